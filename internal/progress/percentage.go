package progress

import "math"

// Percent is round(100*done/total) clamped to [0,100]; 0 when total <= 0.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(done) * 100 / float64(total)))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// StageFinished sums the finished details of every item belonging to main.
func StageFinished(main ProgressMain, items []ProgressItem, details map[int64][]ProgressDetail) int {
	done := 0
	for _, item := range items {
		if item.MainID != 0 && item.MainID != main.ID {
			continue
		}
		done += FinishedAmount(details[item.ID])
	}
	return done
}

// StagePercent is the completion percentage of one stage, computed from the
// finished details rather than the server's opmAmountTotalDone.
func StagePercent(main ProgressMain, items []ProgressItem, details map[int64][]ProgressDetail) int {
	return Percent(StageFinished(main, items, details), main.AmountTotal)
}
