// Package render writes interactive usage-vs-temperature charts as
// self-contained HTML pages using plotly.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
)

//go:embed chart.html.tmpl
var templates embed.FS

var chartTmpl = template.Must(template.ParseFS(templates, "chart.html.tmpl"))

// Chart describes one utility's page: the smoothed temperature line on the
// left axis and the per-day usage line on the right.
type Chart struct {
	Title      string
	TempLabel  string // e.g. "Smoothed High Temp (F)"
	UsageLabel string // e.g. "kWh used / day"
	Temp       []domain.Point
	Usage      []domain.Point
}

// Renderer writes chart pages to disk.
type Renderer struct{}

// WriteChart renders the chart to an HTML file at path. NaN values become
// nulls in the plotted series, which plotly draws as line breaks, so gap
// dates stay visible instead of being interpolated over.
func (Renderer) WriteChart(path string, chart Chart) error {
	tempJSON, err := seriesJSON(chart.Temp)
	if err != nil {
		return fmt.Errorf("encode temperature series: %w", err)
	}
	usageJSON, err := seriesJSON(chart.Usage)
	if err != nil {
		return fmt.Errorf("encode usage series: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	data := struct {
		Title      string
		TempLabel  string
		UsageLabel string
		TempJSON   template.JS
		UsageJSON  template.JS
	}{
		Title:      chart.Title,
		TempLabel:  chart.TempLabel,
		UsageLabel: chart.UsageLabel,
		TempJSON:   template.JS(tempJSON),
		UsageJSON:  template.JS(usageJSON),
	}

	if err := chartTmpl.Execute(f, data); err != nil {
		return fmt.Errorf("render chart %s: %w", path, err)
	}
	return nil
}

// seriesJSON encodes points as parallel {x, y} arrays. json.Marshal rejects
// NaN, so gap values are translated to null explicitly.
func seriesJSON(points []domain.Point) (string, error) {
	dates := make([]string, len(points))
	values := make([]*float64, len(points))
	for i, p := range points {
		dates[i] = p.Date.Format(time.DateOnly)
		if !math.IsNaN(p.Value) {
			v := p.Value
			values[i] = &v
		}
	}

	obj := struct {
		X []string   `json:"x"`
		Y []*float64 `json:"y"`
	}{X: dates, Y: values}

	out, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
