package calculator

// CalculateRSI computes the Wilder-smoothed RSI of the latest close.
//
// Gains and losses are smoothed with alpha = 1/period, seeded by the first
// price change. At least period+1 closes are required, otherwise the result is
// ErrInsufficientData. A window with gains but no losses yields 100; a window
// with neither yields 50.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(closes) < period+1 {
		return 0, ErrInsufficientData
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if i == 1 {
			avgGain, avgLoss = gain, loss
			continue
		}
		avgGain += alpha * (gain - avgGain)
		avgLoss += alpha * (loss - avgLoss)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0, nil
		}
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	rsi := 100.0 - 100.0/(1.0+rs)
	return clamp(rsi, 0, 100), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
