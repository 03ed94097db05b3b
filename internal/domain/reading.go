package domain

import "time"

// Reading is a single utility meter reading: the amount consumed since the
// previous reading, recorded on Date. Date is always UTC midnight.
type Reading struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Series is an ordered set of readings for one utility, sorted by date
// ascending with unique dates.
type Series struct {
	Utility  string    `json:"utility"` // e.g. "electric", "gas"
	Unit     string    `json:"unit"`    // e.g. "kWh", "CCF"
	Readings []Reading `json:"readings"`
}

// Days returns the number of calendar days covered by the series, from the
// first reading to the last.
func (s Series) Days() int {
	if len(s.Readings) < 2 {
		return 0
	}
	first := s.Readings[0].Date
	last := s.Readings[len(s.Readings)-1].Date
	return int(DayNumber(last) - DayNumber(first))
}

// Point is a dated value in a derived series, such as usage per day or a
// smoothed temperature. Value may be NaN for dates where a smoothing window
// had insufficient data; consumers render those as gaps.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Temp is one day's temperature summary in degrees Fahrenheit.
type Temp struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}
