package json

import (
	"encoding/json"
	"errors"
	"io"
)

var (
	ErrDecodeJSON = errors.New("failed to decode JSON")
	ErrEncodeJSON = errors.New("failed to encode JSON")
)

// Decode is a generic version of the stdlib json decoder.
func Decode[T any](reader io.Reader) (T, error) {
	var value T
	if err := json.NewDecoder(reader).Decode(&value); err != nil {
		return value, errors.Join(err, ErrDecodeJSON)
	}

	return value, nil
}

// Encode writes value to the writer, optionally indented for human consumption.
func Encode(writer io.Writer, value any, indent bool) error {
	encoder := json.NewEncoder(writer)
	if indent {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(value); err != nil {
		return errors.Join(err, ErrEncodeJSON)
	}

	return nil
}
