// Package when turns the date argument of the CLI into a weather.TimeSpec.
package when

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/i474232898/weather-cli/internal/weather"
)

var ErrUnparseable = errors.New("could not parse date")

// Parse accepts "now" (or nothing), the words today, tomorrow and yesterday,
// and any format dateparse understands. Dates without a zone are read in
// now's location, and the relative words resolve to midnight of that day.
func Parse(input string, now time.Time) (weather.TimeSpec, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	loc := now.Location()

	switch s {
	case "", "now":
		return weather.Now(), nil
	case "today":
		return weather.At(midnight(now)), nil
	case "tomorrow":
		return weather.At(midnight(now).AddDate(0, 0, 1)), nil
	case "yesterday":
		return weather.At(midnight(now).AddDate(0, 0, -1)), nil
	}

	t, err := dateparse.ParseIn(strings.TrimSpace(input), loc)
	if err != nil {
		return weather.TimeSpec{}, fmt.Errorf("%w %q: %v", ErrUnparseable, input, err)
	}
	return weather.At(t), nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
