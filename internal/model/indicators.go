package model

// MovingAverage is a simple moving average over Window closes together with
// the distance of the latest price from it.
type MovingAverage struct {
	Window      int     `json:"window"`
	Value       float64 `json:"value"`
	Distance    float64 `json:"distance"`
	DistancePct float64 `json:"distance_pct"`
}

// IndicatorSet holds the indicators computed for one ticker during one scan.
type IndicatorSet struct {
	RSI            float64         `json:"rsi"`
	RSIPeriod      int             `json:"rsi_period"`
	MovingAverages []MovingAverage `json:"moving_averages,omitempty"` // ascending by Window
}

// MovingAverage returns the average for the given window, if computed.
func (s IndicatorSet) MovingAverage(window int) (MovingAverage, bool) {
	for _, ma := range s.MovingAverages {
		if ma.Window == window {
			return ma, true
		}
	}
	return MovingAverage{}, false
}

// Longest returns the average with the largest window, if any were computed.
func (s IndicatorSet) Longest() (MovingAverage, bool) {
	if len(s.MovingAverages) == 0 {
		return MovingAverage{}, false
	}
	longest := s.MovingAverages[0]
	for _, ma := range s.MovingAverages[1:] {
		if ma.Window > longest.Window {
			longest = ma
		}
	}
	return longest, true
}
