// Package roundclock computes the temporal state of a contest round as seen
// by one viewer at one instant. Everything here is pure.
package roundclock

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRoundDates = errors.New("invalid round dates")

type State int

const (
	Future State = iota
	Active
	Past
)

func (s State) String() string {
	switch s {
	case Future:
		return "FUTURE"
	case Active:
		return "ACTIVE"
	case Past:
		return "PAST"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Dates as configured on the round. Only Start is required.
type Dates struct {
	Start             time.Time
	End               *time.Time
	ResultsDate       *time.Time
	PublicResultsDate *time.Time
	// Late submissions after the unextended end are accepted
	CanSubmitAfterEnd bool
}

// Validate checks the ordering constraints between the configured dates
func (d Dates) Validate() error {
	if d.Start.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidRoundDates)
	}
	if d.End != nil && d.End.Before(d.Start) {
		return fmt.Errorf("%w: start date should be before end date", ErrInvalidRoundDates)
	}
	if d.PublicResultsDate != nil {
		if d.ResultsDate == nil {
			return fmt.Errorf(
				"%w: if you specify a public results date, you should enable the ranking results first",
				ErrInvalidRoundDates,
			)
		}
		if d.PublicResultsDate.Before(*d.ResultsDate) {
			return fmt.Errorf(
				"%w: public results date should be after the results date",
				ErrInvalidRoundDates,
			)
		}
	}
	return nil
}

// Times are the round dates as they apply to one viewer
type Times struct {
	Dates
	ExtraMinutes int
	// Public results use their own date instead of the results date
	SeparatePublic bool
}

func New(dates Dates, extraMinutes int, separatePublic bool) Times {
	if extraMinutes < 0 {
		extraMinutes = 0
	}
	return Times{Dates: dates, ExtraMinutes: extraMinutes, SeparatePublic: separatePublic}
}

// EffectiveEnd is the end date moved by the viewer's extension, or nil when the round never ends
func (t Times) EffectiveEnd() *time.Time {
	if t.End == nil {
		return nil
	}
	end := t.End.Add(time.Duration(t.ExtraMinutes) * time.Minute)
	return &end
}

func (t Times) StateOf(now time.Time) State {
	if now.Before(t.Start) {
		return Future
	}
	end := t.EffectiveEnd()
	if end != nil && now.After(*end) {
		return Past
	}
	return Active
}

func (t Times) IsFuture(now time.Time) bool {
	return t.StateOf(now) == Future
}

func (t Times) IsActive(now time.Time) bool {
	return t.StateOf(now) == Active
}

func (t Times) IsPast(now time.Time) bool {
	return t.StateOf(now) == Past
}

// Submittable layers the late submission exception over the visibility state
func (t Times) Submittable(now time.Time) bool {
	switch t.StateOf(now) {
	case Active:
		return true
	case Past:
		return t.CanSubmitAfterEnd
	default:
		return false
	}
}

// ResultsVisible ignores personal extensions
func (t Times) ResultsVisible(now time.Time) bool {
	if t.ResultsDate == nil {
		return false
	}
	return !now.Before(*t.ResultsDate)
}

func (t Times) PublicResultsVisible(now time.Time) bool {
	if !t.SeparatePublic {
		return t.ResultsVisible(now)
	}
	if t.PublicResultsDate == nil {
		return false
	}
	return !now.Before(*t.PublicResultsDate)
}
