package notifier

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"MarketScreener/internal/model"
)

var statusIcon = map[model.Classification]string{
	model.Oversold:   "🟢",
	model.Neutral:    "⚪",
	model.Overbought: "🔴",
}

// FormatScanResult formats a finished scan into a Telegram HTML message
// listing at most limit records.
func FormatScanResult(res model.ScanResult, limit int) string {
	var b strings.Builder
	date := res.FinishedAt.Format("2006-01-02 15:04")

	switch res.Status {
	case model.ScanEmpty:
		fmt.Fprintf(&b, "⚠️ <b>RSI Screener</b> | %s\n\n", date)
		fmt.Fprintf(&b, "No data fetched: none of the %d tickers produced a result.\n", res.Scanned)
		b.WriteString("The price provider may be rate limiting requests; try again later.")
		return b.String()
	case model.ScanFailed, model.ScanCancelled:
		fmt.Fprintf(&b, "❌ <b>RSI Screener</b> | %s\n\n", date)
		fmt.Fprintf(&b, "Scan %s: %s", strings.ToLower(string(res.Status)), html.EscapeString(res.Error))
		return b.String()
	}

	rep := res.Report
	fmt.Fprintf(&b, "📉 <b>RSI Screener</b> | %s\n\n", date)
	fmt.Fprintf(&b, "%s\n", ScanSummaryLine(rep))
	lo, hi := bounds(rep)
	fmt.Fprintf(&b, "Oversold (&lt;%s): %d\n", lo, rep.Summary.Oversold)
	fmt.Fprintf(&b, "Neutral (%s-%s): %d\n", lo, hi, rep.Summary.Neutral)
	fmt.Fprintf(&b, "Overbought (&gt;%s): %d\n\n", hi, rep.Summary.Overbought)

	n := len(rep.Records)
	if limit > 0 && n > limit {
		n = limit
	}
	fmt.Fprintf(&b, "<b>Top %d by %s:</b>\n", n, sortLabel(rep.SortKey))
	for _, r := range rep.Records[:n] {
		fmt.Fprintf(&b, "%s <code>%-6s</code> RSI %6.2f  %.2f", statusIcon[r.Status], r.Symbol, r.Indicators.RSI, r.Price)
		if ma, ok := r.Indicators.Longest(); ok {
			fmt.Fprintf(&b, "  MA%d %+.1f%%", ma.Window, ma.DistancePct)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ScanSummaryLine reports how many tickers produced results.
func ScanSummaryLine(rep *model.ScreenReport) string {
	return fmt.Sprintf("Scan complete: %d of %d tickers produced results", rep.Summary.Total, rep.Scanned)
}

// WriteTable renders the report as an aligned plain-text table.
func WriteTable(w io.Writer, rep *model.ScreenReport) error {
	var windows []int
	if len(rep.Records) > 0 {
		for _, ma := range rep.Records[0].Indicators.MovingAverages {
			windows = append(windows, ma.Window)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	header := []string{"Ticker", "Price", "As Of", "RSI"}
	for _, win := range windows {
		header = append(header, fmt.Sprintf("%dDMA", win), fmt.Sprintf("Dist %d", win), fmt.Sprintf("Dist %d %%", win))
	}
	header = append(header, "Status")
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, r := range rep.Records {
		row := []string{
			r.Symbol,
			fmt.Sprintf("%.2f", r.Price),
			r.AsOf.Format("2006-01-02"),
			fmt.Sprintf("%.2f", r.Indicators.RSI),
		}
		for _, win := range windows {
			ma, ok := r.Indicators.MovingAverage(win)
			if !ok {
				row = append(row, "-", "-", "-")
				continue
			}
			row = append(row,
				fmt.Sprintf("%.2f", ma.Value),
				fmt.Sprintf("%+.2f", ma.Distance),
				fmt.Sprintf("%+.2f", ma.DistancePct))
		}
		row = append(row, string(r.Status))
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lo, hi := bounds(rep)
	_, err := fmt.Fprintf(w, "\n%s\nOversold (<%s): %d | Neutral (%s-%s): %d | Overbought (>%s): %d\n",
		ScanSummaryLine(rep), lo, rep.Summary.Oversold, lo, hi, rep.Summary.Neutral, hi, rep.Summary.Overbought)
	return err
}

// bounds formats the report thresholds, falling back to the defaults for
// reports built without them.
func bounds(rep *model.ScreenReport) (lo, hi string) {
	t := rep.Thresholds
	if t == (model.Thresholds{}) {
		t = model.DefaultThresholds
	}
	return strconv.FormatFloat(t.Oversold, 'f', -1, 64), strconv.FormatFloat(t.Overbought, 'f', -1, 64)
}

func sortLabel(k model.SortKey) string {
	if k == model.SortByDistance {
		return "distance from longest MA"
	}
	return "RSI"
}
