package cellmodel

import "testing"

func TestDateToSerialKnownDates(t *testing.T) {
	cases := []struct {
		year        int
		month, day  uint32
		wantSerial  float64
	}{
		{1900, 1, 1, 1},
		{1900, 2, 28, 59},
		{1900, 2, 29, 60}, // the fictitious leap day Excel believes in
		{1900, 3, 1, 61},
		{2008, 1, 1, 39448},
	}
	for _, c := range cases {
		got := DateToSerial(c.year, c.month, c.day)
		if got != c.wantSerial {
			t.Errorf("DateToSerial(%d, %d, %d) = %v, want %v", c.year, c.month, c.day, got, c.wantSerial)
		}
	}
}

func TestSerialToDateRoundTripsAroundTheLeapBug(t *testing.T) {
	cases := []struct {
		serial               float64
		year                 int
		month, day           uint32
	}{
		{59, 1900, 2, 28},
		{60, 1900, 2, 29},
		{61, 1900, 3, 1},
	}
	for _, c := range cases {
		y, m, d := SerialToDate(c.serial)
		if y != c.year || m != c.month || d != c.day {
			t.Errorf("SerialToDate(%v) = %d-%d-%d, want %d-%d-%d", c.serial, y, m, d, c.year, c.month, c.day)
		}
	}
}

func TestDateSerialRoundTripAfterTheLeapBug(t *testing.T) {
	for _, serial := range []float64{61, 100, 1000, 39448, 45000} {
		y, m, d := SerialToDate(serial)
		back := DateToSerial(y, m, d)
		if back != serial {
			t.Errorf("round trip for serial %v produced %d-%d-%d -> %v", serial, y, m, d, back)
		}
	}
}

func TestSerial1904To1900FixedOffset(t *testing.T) {
	if got := Serial1904To1900(0); got != 1462 {
		t.Fatalf("Serial1904To1900(0) = %v, want 1462", got)
	}
}

func TestTimeToSerial(t *testing.T) {
	if got := TimeToSerial(12, 0, 0); got != 0.5 {
		t.Fatalf("TimeToSerial(12,0,0) = %v, want 0.5", got)
	}
	if got := TimeToSerial(0, 0, 0); got != 0 {
		t.Fatalf("TimeToSerial(0,0,0) = %v, want 0", got)
	}
}
