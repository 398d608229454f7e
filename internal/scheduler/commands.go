package scheduler

import (
	"context"
	"errors"
	"fmt"

	"MarketScreener/internal/notifier"
)

const helpText = "Available commands:\n• /scan run a scan now\n• /report show the latest report\n• /progress show scan progress"

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch command {
	case "/scan":
		if err := s.Trigger(); err != nil {
			if errors.Is(err, ErrScanInProgress) {
				return "⏳ A scan is already running."
			}
			return "❌ " + err.Error()
		}
		return "🚀 Scan started, the report follows when it finishes."
	case "/report":
		res, ok := s.Latest()
		if !ok {
			return "No scan has finished yet."
		}
		return notifier.FormatScanResult(res, 25)
	case "/progress":
		p := s.Progress()
		if !p.Running {
			return "No scan is running."
		}
		return fmt.Sprintf("⏳ %d/%d tickers (%.0f%%)", p.Done, p.Total, p.Fraction*100)
	default:
		return helpText
	}
}
