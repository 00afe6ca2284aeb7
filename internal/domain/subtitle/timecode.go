package subtitle

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	msPerHour   = 3_600_000
	msPerMinute = 60_000
	msPerSecond = 1000
)

// Time SRT 时间码的结构化表示
type Time struct {
	Hours        int64
	Minutes      int64
	Seconds int64
	Millis  int64
}

// ToSubtitleTime splits a millisecond offset by integer division. ms must not
// be negative; negative input yields an undefined Time and is not clamped.
func ToSubtitleTime(ms int64) Time {
	return Time{
		Hours:   ms / msPerHour,
		Minutes: (ms % msPerHour) / msPerMinute,
		Seconds: (ms % msPerMinute) / msPerSecond,
		Millis:  ms % msPerSecond,
	}
}

// Milliseconds recomposes the offset.
func (t Time) Milliseconds() int64 {
	return t.Hours*msPerHour + t.Minutes*msPerMinute + t.Seconds*msPerSecond + t.Millis
}

// String renders HH:MM:SS,mmm.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d,%03d", t.Hours, t.Minutes, t.Seconds, t.Millis)
}

// ParseTime parses HH:MM:SS,mmm. A period is accepted in place of the comma.
func ParseTime(value string) (Time, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ".", ",")
	main, frac, ok := strings.Cut(value, ",")
	if !ok {
		return Time{}, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(main, ":")
	if len(hms) != 3 {
		return Time{}, fmt.Errorf("invalid timestamp %q", value)
	}

	fields := append(hms, frac)
	nums := make([]int64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil || n < 0 {
			return Time{}, fmt.Errorf("invalid timestamp %q", value)
		}
		nums[i] = n
	}
	if nums[1] > 59 || nums[2] > 59 || nums[3] > 999 {
		return Time{}, fmt.Errorf("timestamp out of range %q", value)
	}
	return Time{Hours: nums[0], Minutes: nums[1], Seconds: nums[2], Millis: nums[3]}, nil
}
