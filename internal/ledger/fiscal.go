package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type FiscalYearStatus string

const (
	FiscalYearOpen    FiscalYearStatus = "OPEN"
	FiscalYearClosing FiscalYearStatus = "CLOSING"
	FiscalYearClosed  FiscalYearStatus = "CLOSED"
)

type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "OPEN"
	PeriodClosed PeriodStatus = "CLOSED"
)

// FiscalYear moves one way: OPEN -> CLOSING -> CLOSED.
type FiscalYear struct {
	ID         uuid.UUID        `json:"id"`
	BusinessID uuid.UUID        `json:"business_id"`
	Year       int              `json:"year"`
	StartDate  time.Time        `json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
	Status     FiscalYearStatus `json:"status"`
}

// Contains reports whether d falls inside the year, both ends inclusive.
func (y FiscalYear) Contains(d time.Time) bool { return within(d, y.StartDate, y.EndDate) }

func (y FiscalYear) CanAcceptEntries() bool        { return y.Status == FiscalYearOpen }
func (y FiscalYear) CanAcceptClosingEntries() bool { return y.Status == FiscalYearClosing }

func (y FiscalYear) Validate() error {
	if y.BusinessID == uuid.Nil {
		return fmt.Errorf("business is required")
	}
	if y.Year <= 0 {
		return fmt.Errorf("year is required")
	}
	if y.StartDate.IsZero() || y.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if y.StartDate.After(y.EndDate) {
		return fmt.Errorf("start date %s is after end date %s", FormatDate(y.StartDate), FormatDate(y.EndDate))
	}
	return nil
}

// BeginClosing moves an OPEN year to CLOSING. prior is the year numbered one
// less, nil when there is none; every period of this year must be closed.
func (y *FiscalYear) BeginClosing(prior *FiscalYear, periods []FiscalPeriod) error {
	if y.Status != FiscalYearOpen {
		return fmt.Errorf("fiscal year %d is %s, not OPEN", y.Year, y.Status)
	}
	if prior != nil && prior.Status != FiscalYearClosed {
		return fmt.Errorf("prior fiscal year %d must be CLOSED first", prior.Year)
	}
	for _, p := range periods {
		if p.Status != PeriodClosed {
			return fmt.Errorf("period %d is still open", p.Number)
		}
	}
	y.Status = FiscalYearClosing
	return nil
}

// CompleteClosing moves a CLOSING year to CLOSED. Periods added while closing,
// such as the adjustment period, must be closed as well.
func (y *FiscalYear) CompleteClosing(periods []FiscalPeriod) error {
	if y.Status != FiscalYearClosing {
		return fmt.Errorf("fiscal year %d is %s, not CLOSING", y.Year, y.Status)
	}
	for _, p := range periods {
		if p.Status != PeriodClosed {
			return fmt.Errorf("period %d is still open", p.Number)
		}
	}
	y.Status = FiscalYearClosed
	return nil
}

// FiscalPeriod is a slice of a fiscal year. Closing a period is reversible
// while its year is still OPEN.
type FiscalPeriod struct {
	ID           uuid.UUID    `json:"id"`
	BusinessID   uuid.UUID    `json:"business_id"`
	FiscalYearID uuid.UUID    `json:"fiscal_year_id"`
	Number       int          `json:"number"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Status       PeriodStatus `json:"status"`
}

// MaxPeriodNumber allows twelve months plus one adjustment period.
const MaxPeriodNumber = 13

func (p FiscalPeriod) Contains(d time.Time) bool { return within(d, p.StartDate, p.EndDate) }

// IsAdjustment reports whether p is the thirteenth, adjustment period. It may
// share dates with the regular periods and is where closing entries land
// once those are closed.
func (p FiscalPeriod) IsAdjustment() bool { return p.Number == MaxPeriodNumber }

// CanAcceptEntries needs the period open and its year not yet closed.
func (p FiscalPeriod) CanAcceptEntries(y FiscalYear) bool {
	return p.Status == PeriodOpen && (y.Status == FiscalYearOpen || y.Status == FiscalYearClosing)
}

// Overlaps reports whether the two date ranges share at least one day.
func (p FiscalPeriod) Overlaps(o FiscalPeriod) bool {
	return !DateOf(p.EndDate).Before(DateOf(o.StartDate)) && !DateOf(o.EndDate).Before(DateOf(p.StartDate))
}

// DisplayName renders "MARCH 2024" for regular periods and "Period 13 2024"
// for the adjustment period.
func (p FiscalPeriod) DisplayName(y FiscalYear) string {
	if p.Number <= 12 {
		return strings.ToUpper(p.StartDate.Month().String()) + " " + strconv.Itoa(y.Year)
	}
	return "Period " + strconv.Itoa(p.Number) + " " + strconv.Itoa(y.Year)
}

// ValidateIn checks the period against its year.
func (p FiscalPeriod) ValidateIn(y FiscalYear) error {
	if p.Number < 1 || p.Number > MaxPeriodNumber {
		return fmt.Errorf("period number must be between 1 and %d", MaxPeriodNumber)
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if p.StartDate.After(p.EndDate) {
		return fmt.Errorf("start date is after end date")
	}
	if !y.Contains(p.StartDate) || !y.Contains(p.EndDate) {
		return fmt.Errorf("period must lie within fiscal year %d", y.Year)
	}
	return nil
}

func (p *FiscalPeriod) Close() error {
	if p.Status == PeriodClosed {
		return fmt.Errorf("period %d is already closed", p.Number)
	}
	p.Status = PeriodClosed
	return nil
}

// Reopen is only allowed while the owning year is still OPEN.
func (p *FiscalPeriod) Reopen(y FiscalYear) error {
	if p.Status == PeriodOpen {
		return fmt.Errorf("period %d is already open", p.Number)
	}
	if y.Status != FiscalYearOpen {
		return fmt.Errorf("cannot reopen period %d: fiscal year %d is %s", p.Number, y.Year, y.Status)
	}
	p.Status = PeriodOpen
	return nil
}

// MonthlyPeriods lays out up to twelve calendar-month periods starting at the
// year start. Each ends at its month end, clamped to the year end.
func MonthlyPeriods(y FiscalYear) []FiscalPeriod {
	out := make([]FiscalPeriod, 0, 12)
	start := DateOf(y.StartDate)
	end := DateOf(y.EndDate)
	for i := 1; i <= 12 && !start.After(end); i++ {
		pe := Date(start.Year(), start.Month()+1, 1).AddDate(0, 0, -1)
		if pe.After(end) {
			pe = end
		}
		out = append(out, FiscalPeriod{
			ID:           uuid.New(),
			BusinessID:   y.BusinessID,
			FiscalYearID: y.ID,
			Number:       i,
			StartDate:    start,
			EndDate:      pe,
			Status:       PeriodOpen,
		})
		start = pe.AddDate(0, 0, 1)
	}
	return out
}
