package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatTimestamp renders seconds as HH:MM:SS<sep>mmm. Rounding happens at
// the millisecond so 1.9996 carries into 00:00:02,000 rather than printing a
// four-digit millisecond field.
func FormatTimestamp(seconds float64, separator byte) string {
	totalMillis := int64(math.Round(seconds * 1000))
	if totalMillis < 0 {
		totalMillis = 0
	}
	millis := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60

	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, separator, millis)
}

// ParseTimestamp reads an SRT or VTT timestamp (comma or period millisecond
// separator) into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")
	hms := strings.Split(value, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.ParseFloat(hms[2], 64)
	if errH != nil || errM != nil || errS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}
