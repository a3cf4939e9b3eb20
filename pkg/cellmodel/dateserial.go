package cellmodel

import "math"

// Excel serial date epoch: December 30, 1899 (day 0). Excel's famous bug
// treats 1900 as a leap year, which it was not — serial 60 is the
// fictitious Feb 29, 1900. We replicate this bug for compatibility with
// every workbook in the wild.

// DateToSerial converts a calendar date to an Excel serial date number
// in the 1900 date system, replicating the 1900 leap-year bug.
func DateToSerial(year int, month, day uint32) float64 {
	if year == 1900 && month == 2 && day == 29 {
		return 60
	}

	var serial int64

	for y := 1900; y < year; y++ {
		if isLeapYear(y) {
			serial += 366
		} else {
			serial += 365
		}
	}

	daysInMonth := daysInMonthForYear(year)
	for m := uint32(1); m < month; m++ {
		serial += int64(daysInMonth[m-1])
	}

	serial += int64(day)

	// Excel's bug: dates on or after March 1, 1900 are off by one
	// because Excel thinks Feb 29, 1900 (serial 60) existed.
	if year > 1900 || (year == 1900 && month >= 3) {
		serial++
	}

	return float64(serial)
}

// SerialToDate converts an Excel serial date number (1900 date system)
// back to (year, month, day), preserving the fictitious Feb 29, 1900.
func SerialToDate(serial float64) (int, uint32, uint32) {
	s := int64(math.Floor(serial))

	if s < 1 {
		return 1900, 1, 1
	}
	if s == 60 {
		return 1900, 2, 29
	}

	adjusted := s
	if s > 60 {
		adjusted = s - 1
	}

	remaining := adjusted - 1 // serial 1 = Jan 1, 1900
	year := 1900

	for {
		daysInYear := int64(365)
		if isLeapYear(year) {
			daysInYear = 366
		}
		if remaining < daysInYear {
			break
		}
		remaining -= daysInYear
		year++
	}

	daysInMonth := daysInMonthForYear(year)
	month := uint32(1)
	for _, days := range daysInMonth {
		if remaining < int64(days) {
			break
		}
		remaining -= int64(days)
		month++
	}

	day := uint32(remaining + 1)
	return year, month, day
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func daysInMonthForYear(year int) [12]uint32 {
	if isLeapYear(year) {
		return [12]uint32{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	}
	return [12]uint32{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
}

// Serial1904To1900 converts a serial date from the 1904 date system
// (Mac Excel) to the equivalent 1900-system serial (Windows Excel). The
// difference is a fixed 1462 days.
func Serial1904To1900(serial1904 float64) float64 {
	return serial1904 + 1462
}

// TimeToSerial converts a time-of-day to its fractional-day serial.
func TimeToSerial(hours, minutes, seconds uint32) float64 {
	total := hours*3600 + minutes*60 + seconds
	return float64(total) / 86400
}
