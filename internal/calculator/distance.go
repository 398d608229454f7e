package calculator

// CalculateDistance returns how far price sits from average, in absolute
// terms and as a percentage of the average.
func CalculateDistance(price, average float64) (abs, pct float64, err error) {
	if average == 0 {
		return 0, 0, ErrZeroAverage
	}
	abs = price - average
	pct = 100 * abs / average
	return abs, pct, nil
}
