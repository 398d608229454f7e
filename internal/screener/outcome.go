package screener

import "MarketScreener/internal/model"

// SkipReason tells why a ticker produced no record.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipUnavailable  SkipReason = "unavailable"
	SkipShortHistory SkipReason = "insufficient_history"
	SkipUndefined    SkipReason = "indicator_undefined"
	SkipPanic        SkipReason = "panic"
	SkipCancelled    SkipReason = "cancelled"
)

// Outcome is the result of screening one ticker: a record, or a skip reason.
type Outcome struct {
	Symbol string
	Record *model.ScreenRecord
	Skip   SkipReason
	Err    error
}

// OK reports whether the ticker produced a record.
func (o Outcome) OK() bool { return o.Record != nil }

func ok(rec model.ScreenRecord) Outcome {
	return Outcome{Symbol: rec.Symbol, Record: &rec}
}

func skip(symbol string, reason SkipReason, err error) Outcome {
	return Outcome{Symbol: symbol, Skip: reason, Err: err}
}
