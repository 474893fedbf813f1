package fat12

import "time"

var (
	// minTimestamp is the earliest representable timestamp, 1980-01-01 00:00:00
	// local time.
	minTimestamp = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.Local)
	// maxTimestamp is the latest representable timestamp. Seconds are stored
	// halved, so 59 can't be represented.
	maxTimestamp = time.Date(2107, time.December, 31, 23, 59, 58, 0, time.Local)
)

func clampTimestamp(t time.Time) time.Time {
	t = t.In(time.Local)
	if t.Before(minTimestamp) {
		return minTimestamp
	}
	if t.After(maxTimestamp) {
		return maxTimestamp
	}
	return t
}

// PackDate converts a time into the on-disk date field. The year is stored as
// an offset from 1980 and the month as an offset from January.
func PackDate(t time.Time) uint16 {
	t = clampTimestamp(t)
	return uint16(t.Year()-1980)<<9 | uint16(t.Month()-1)<<5 | uint16(t.Day())
}

// PackTime converts a time into the on-disk time field, with 2-second
// resolution.
func PackTime(t time.Time) uint16 {
	t = clampTimestamp(t)
	return uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
}

// UnpackTimestamp is the inverse of [PackDate] and [PackTime], in local time.
// Out-of-range fields are normalized the way [time.Date] does it.
func UnpackTimestamp(datePart, timePart uint16) time.Time {
	year := 1980 + int(datePart>>9)
	month := time.Month((datePart>>5)&0x0F) + 1
	day := int(datePart & 0x1F)

	hour := int(timePart >> 11)
	minute := int((timePart >> 5) & 0x3F)
	second := int(timePart&0x1F) * 2

	return time.Date(year, month, day, hour, minute, second, 0, time.Local)
}
