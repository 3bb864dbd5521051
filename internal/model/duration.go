package model

import "fmt"

// Duration is a named retention window.
type Duration string

const (
	DurationNow         Duration = "Now"
	DurationOneSecond   Duration = "One Second"
	DurationOneMinute   Duration = "One Minute"
	DurationOneHour     Duration = "One Hour"
	DurationOneDay      Duration = "One Day"
	DurationOneWeek     Duration = "One Week"
	DurationOneMonth    Duration = "One Month"
	DurationThreeMonths Duration = "Three Months"
	DurationSixMonths   Duration = "Six Months"
	DurationOneYear     Duration = "One Year"
	DurationTwoYears    Duration = "Two Years"
	DurationThreeYears  Duration = "Three Years"
	DurationAllTime     Duration = "All Time"
	DurationForever     Duration = "Forever"
)

// MaxDurationMS is the largest integer a float64 represents exactly.
// Forever maps to it and All Time to one less, so the two never compare equal.
const MaxDurationMS int64 = 1<<53 - 1

// Durations lists every duration from shortest to longest.
var Durations = []Duration{
	DurationNow,
	DurationOneSecond,
	DurationOneMinute,
	DurationOneHour,
	DurationOneDay,
	DurationOneWeek,
	DurationOneMonth,
	DurationThreeMonths,
	DurationSixMonths,
	DurationOneYear,
	DurationTwoYears,
	DurationThreeYears,
	DurationAllTime,
	DurationForever,
}

var durationMS = map[Duration]int64{
	DurationNow:         1,
	DurationOneSecond:   1_000,
	DurationOneMinute:   60_000,
	DurationOneHour:     3_600_000,
	DurationOneDay:      86_400_000,
	DurationOneWeek:     604_800_000,
	DurationOneMonth:    2_592_000_000,
	DurationThreeMonths: 7_776_000_000,
	DurationSixMonths:   15_552_000_000,
	DurationOneYear:     31_536_000_000,
	DurationTwoYears:    63_072_000_000,
	DurationThreeYears:  94_608_000_000,
	DurationAllTime:     MaxDurationMS - 1,
	DurationForever:     MaxDurationMS,
}

// Milliseconds returns the window length, or false for an unknown duration.
func (d Duration) Milliseconds() (int64, bool) {
	ms, ok := durationMS[d]
	return ms, ok
}

// Valid reports whether d is a known duration.
func (d Duration) Valid() bool {
	_, ok := durationMS[d]
	return ok
}

// ParseDuration converts a string into a Duration.
func ParseDuration(s string) (Duration, error) {
	d := Duration(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown duration %q", s)
	}
	return d, nil
}
