// Package timecode reconstructs absolute wall-clock timestamps for playback
// positions inside recorded segments. Segment filenames encode their start
// instant as a fixed YYYYMMDD_HHMMSS prefix; everything after those fifteen
// characters (extension included) is ignored.
package timecode

import "time"

// displayLayout is the overlay format: 24-hour clock, second precision.
const displayLayout = "2006/01/02 15:04:05"

// ParseSegmentStart extracts the start instant encoded in a segment filename.
// The prefix must be exactly eight digits, an underscore, then six digits;
// anything else reports ok=false. Out-of-range calendar values are normalized
// by time.Date, matching how recordings have always been named upstream.
func ParseSegmentStart(filename string) (time.Time, bool) {
	if len(filename) < 15 || filename[8] != '_' {
		return time.Time{}, false
	}
	var digits [14]int
	for i, pos := range [14]int{0, 1, 2, 3, 4, 5, 6, 7, 9, 10, 11, 12, 13, 14} {
		ch := filename[pos]
		if ch < '0' || ch > '9' {
			return time.Time{}, false
		}
		digits[i] = int(ch - '0')
	}
	year := digits[0]*1000 + digits[1]*100 + digits[2]*10 + digits[3]
	month := digits[4]*10 + digits[5]
	day := digits[6]*10 + digits[7]
	hour := digits[8]*10 + digits[9]
	min := digits[10]*10 + digits[11]
	sec := digits[12]*10 + digits[13]
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.Local), true
}

// DisplayTime maps a playback position to its wall-clock display string.
// startOffset is the seek offset the playback stream was opened with and
// elapsed is the player's reported position within that stream; both are
// added to the parsed segment start as one signed duration so rollovers
// across minute, hour, day and month boundaries resolve correctly and a
// negative elapsed cannot underflow before the offset is applied. Fractional
// elapsed is truncated to whole seconds. A filename that does not carry a
// valid prefix reports ok=false: the overlay is simply omitted.
func DisplayTime(filename string, startOffset int, elapsed float64) (string, bool) {
	start, ok := ParseSegmentStart(filename)
	if !ok {
		return "", false
	}
	total := time.Duration(int64(startOffset)+int64(elapsed)) * time.Second
	return start.Add(total).Format(displayLayout), true
}
