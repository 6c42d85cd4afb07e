package fs

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

var ErrWalkDir = errors.New("failed to walk directory")

// ReplayExtensions are the input suffixes recognized as replay files,
// including the supported compressed forms.
var ReplayExtensions = []string{".dem", ".dem.bz2", ".dem.zst"} //nolint:gochecknoglobals

func Exists(filePath string) bool {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return false
	}

	return true
}

// IsReplay reports whether the file name carries a recognized replay suffix.
func IsReplay(name string) bool {
	for _, extension := range ReplayExtensions {
		if strings.HasSuffix(name, extension) {
			return true
		}
	}

	return false
}

// FindReplays walks root recursively and returns every replay file found, in
// natural name order so numbered replays come back in recording order.
func FindReplays(root string) ([]string, error) {
	var found []string

	errWalk := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() || !IsReplay(entry.Name()) {
			return nil
		}

		found = append(found, path)

		return nil
	})
	if errWalk != nil {
		return nil, errors.Join(errWalk, ErrWalkDir)
	}

	sort.Slice(found, func(i, j int) bool {
		return natural.Less(found[i], found[j])
	})

	return found, nil
}
