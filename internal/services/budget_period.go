package services

import (
	"math"
	"time"

	"github.com/JereMicheloud/Backend-Gastos/internal/models"
)

// dayStart truncates a time to midnight in its own location. Budget windows
// and transaction dates compare as calendar dates, not instants.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// lookbackStart returns the start of the historical window used by automatic
// budget synthesis: 4 weeks for weekly, 3 months for monthly, 1 year for yearly.
func lookbackStart(now time.Time, period models.BudgetPeriod) time.Time {
	switch period {
	case models.BudgetPeriodWeekly:
		return now.AddDate(0, 0, -28)
	case models.BudgetPeriodYearly:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -3, 0)
	}
}

// forwardEnd returns the end of a new budget window starting at start.
func forwardEnd(start time.Time, period models.BudgetPeriod) time.Time {
	switch period {
	case models.BudgetPeriodWeekly:
		return start.AddDate(0, 0, 7)
	case models.BudgetPeriodYearly:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// periodsBetween counts the number of elapsed periods in [start, end].
// Weekly periods are counted by day-based ceiling; monthly and yearly use
// calendar component differences floored to 1. The asymmetry is deliberate
// and load-bearing for the suggested-amount math.
func periodsBetween(start, end time.Time, period models.BudgetPeriod) int64 {
	switch period {
	case models.BudgetPeriodWeekly:
		days := end.Sub(start).Hours() / 24
		weeks := int64(math.Ceil(days / 7))
		if weeks < 1 {
			return 1
		}
		return weeks
	case models.BudgetPeriodYearly:
		years := int64(end.Year() - start.Year())
		if years < 1 {
			return 1
		}
		return years
	default:
		months := int64((end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()))
		if months < 1 {
			return 1
		}
		return months
	}
}
