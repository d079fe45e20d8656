// Package walkforward refits the ridge model on a trailing window at every
// calendar boundary and produces strictly out-of-sample predictions.
package walkforward

import (
	"strings"
	"time"

	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// Cadence is the calendar period between refits.
type Cadence string

const (
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
)

// ParseCadence accepts a cadence name, case-insensitively.
func ParseCadence(s string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}

	return c, nil
}

// Validate checks that c is a known cadence.
func (c Cadence) Validate() error {
	switch c {
	case CadenceWeekly, CadenceMonthly, CadenceQuarterly:
		return nil
	default:
		return errors.Newf(errors.ErrCodeInvalidCadence, "unknown refit cadence %q", string(c))
	}
}

// period identifies the calendar period containing t.
func (c Cadence) period(t time.Time) int {
	switch c {
	case CadenceWeekly:
		year, week := t.ISOWeek()

		return year*100 + week
	case CadenceQuarterly:
		return t.Year()*4 + (int(t.Month())-1)/3
	default:
		return t.Year()*12 + int(t.Month()) - 1
	}
}

// Schedule returns the refit boundaries of dates: the first date of every
// calendar period after the first period present. dates must be ascending.
func Schedule(dates []time.Time, cadence Cadence) ([]time.Time, error) {
	if err := cadence.Validate(); err != nil {
		return nil, err
	}

	var boundaries []time.Time

	for i := 1; i < len(dates); i++ {
		if cadence.period(dates[i]) != cadence.period(dates[i-1]) {
			boundaries = append(boundaries, dates[i])
		}
	}

	return boundaries, nil
}
