package pricing

import (
	"fmt"
	"math"
	"sort"
)

// Median returns the middle value of values, or the mean of the two middle
// values when the count is even. The input slice is not modified.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	if err := checkNumbers(values); err != nil {
		return 0, err
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	if err := checkNumbers(values); err != nil {
		return 0, err
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

func checkNumbers(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) {
			return fmt.Errorf("value at index %d: %w", i, ErrNotANumber)
		}
	}
	return nil
}
