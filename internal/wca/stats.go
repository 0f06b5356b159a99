package wca

import (
	"math"
	"sort"
)

// Penalty applied to a single solve.
type Penalty string

const (
	PenaltyNone  Penalty = "none"
	PenaltyPlus2 Penalty = "+2"
	PenaltyDNF   Penalty = "DNF"
)

// Format of a challenge room average.
type Format string

const (
	FormatAo5  Format = "ao5"
	FormatAo12 Format = "ao12"
)

// SolveCount returns the number of solves a format requires.
func SolveCount(f Format) (int, bool) {
	switch f {
	case FormatAo5:
		return 5, true
	case FormatAo12:
		return 12, true
	}
	return 0, false
}

// DNFTime is the sentinel final time for a DNF solve. It compares greater
// than every real time, so sorting naturally pushes DNFs last.
const DNFTime int64 = math.MaxInt64

// Plus2Millis is the +2 penalty expressed in milliseconds.
const Plus2Millis int64 = 2000

// FinalTime applies a penalty to a raw time in milliseconds.
func FinalTime(timeMs int64, penalty Penalty) int64 {
	switch penalty {
	case PenaltyPlus2:
		return timeMs + Plus2Millis
	case PenaltyDNF:
		return DNFTime
	}
	return timeMs
}

// TruncateToCentis floors a time to whole centiseconds, the WCA convention
// for recording single results. DNFs pass through unchanged.
func TruncateToCentis(timeMs int64) int64 {
	if timeMs == DNFTime {
		return DNFTime
	}
	return timeMs - timeMs%10
}

// BestSingle returns the minimum centisecond-truncated time among the
// non-DNF final times. ok is false when every solve is a DNF.
func BestSingle(finalTimes []int64) (best int64, ok bool) {
	for _, t := range finalTimes {
		if t == DNFTime {
			continue
		}
		t = TruncateToCentis(t)
		if !ok || t < best {
			best = t
			ok = true
		}
	}
	return best, ok
}

// TrimmedAverage computes a WCA average over a full set of final times:
// the single best and single worst values are dropped and the rest averaged,
// rounded to the nearest centisecond. Two or more DNFs make the average
// itself a DNF. A single DNF sorts last and is therefore the dropped worst.
// The result is DNFTime for a DNF average.
func TrimmedAverage(finalTimes []int64) int64 {
	if len(finalTimes) < 3 {
		return DNFTime
	}

	dnfs := 0
	times := make([]int64, len(finalTimes))
	for i, t := range finalTimes {
		if t == DNFTime {
			dnfs++
			times[i] = t
		} else {
			times[i] = TruncateToCentis(t)
		}
	}
	if dnfs >= 2 {
		return DNFTime
	}

	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	middle := times[1 : len(times)-1]

	var sum int64
	for _, t := range middle {
		sum += t
	}
	mean := float64(sum) / float64(len(middle))
	return int64(math.Round(mean/10)) * 10
}
