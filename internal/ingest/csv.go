// Package ingest loads utility meter readings from CSV files and derives
// plottable per-day usage from them.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
)

// ReadFile loads a meter-reading CSV. Rows are "YYYY-MM-DD,amount" with no
// header; whitespace around fields is tolerated. Readings are returned
// sorted by date; a duplicate date is an error, since two readings for one
// day cannot both be "usage since the previous reading".
func ReadFile(path, utility, unit string) (domain.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Series{}, fmt.Errorf("open readings file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return domain.Series{}, fmt.Errorf("parse %s: %w", path, err)
	}

	readings := make([]domain.Reading, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse(time.DateOnly, row[0])
		if err != nil {
			return domain.Series{}, fmt.Errorf("%s row %d: bad date %q: %w", path, i+1, row[0], err)
		}
		amount, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return domain.Series{}, fmt.Errorf("%s row %d: bad amount %q: %w", path, i+1, row[1], err)
		}
		readings = append(readings, domain.Reading{Date: domain.Midnight(date), Amount: amount})
	}

	sort.Slice(readings, func(i, j int) bool { return readings[i].Date.Before(readings[j].Date) })
	for i := 1; i < len(readings); i++ {
		if readings[i].Date.Equal(readings[i-1].Date) {
			return domain.Series{}, fmt.Errorf("%s: duplicate reading date %s", path, readings[i].Date.Format(time.DateOnly))
		}
	}

	return domain.Series{Utility: utility, Unit: unit, Readings: readings}, nil
}

// UsagePerDay converts interval readings into average daily usage: the point
// for reading i spreads its amount evenly over the days since reading i-1.
// The first reading only anchors the first interval and produces no point,
// so the result has len(readings)-1 points.
func UsagePerDay(s domain.Series) []domain.Point {
	if len(s.Readings) < 2 {
		return nil
	}
	points := make([]domain.Point, 0, len(s.Readings)-1)
	for i := 1; i < len(s.Readings); i++ {
		prev, curr := s.Readings[i-1], s.Readings[i]
		days := domain.DayNumber(curr.Date) - domain.DayNumber(prev.Date)
		points = append(points, domain.Point{
			Date:  curr.Date,
			Value: curr.Amount / float64(days),
		})
	}
	return points
}
