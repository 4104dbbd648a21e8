package metrics

// RollingAverage returns the floored mean of a trailing window ending at each
// sample. The window shrinks at the start of the sequence and the input is not
// modified. Windows below one are treated as one.
func RollingAverage(samples []int, window int) []int {
	return rolling(samples, window, func(sum, n int) int {
		return floorDiv(sum, n)
	})
}

// RollingSum returns the sum of a trailing window ending at each sample.
func RollingSum(samples []int, window int) []int {
	return rolling(samples, window, func(sum, _ int) int {
		return sum
	})
}

func rolling(samples []int, window int, reduce func(sum, n int) int) []int {
	if window < 1 {
		window = 1
	}
	out := make([]int, len(samples))
	sum := 0
	for i, v := range samples {
		sum += v
		if i >= window {
			sum -= samples[i-window]
		}
		out[i] = reduce(sum, min(i+1, window))
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
