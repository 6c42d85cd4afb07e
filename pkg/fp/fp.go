// Package fp provides basic generic functional style functions
package fp

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Avg returns the mean of the inputs, zero for an empty slice.
//
//nolint:ireturn
func Avg[T Number](numbers []T) T {
	var (
		sum   T
		count T
	)

	for _, curValue := range numbers {
		sum += curValue
		count++
	}

	if count == 0 {
		return 0
	}

	return sum / count
}

//nolint:ireturn
func Max[T Number](numbers ...T) T {
	var largest T

	for index, number := range numbers {
		if index == 0 || number > largest {
			largest = number
		}
	}

	return largest
}
