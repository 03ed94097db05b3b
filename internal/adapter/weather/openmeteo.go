package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
)

const openMeteoBaseURL = "https://archive-api.open-meteo.com/v1/archive"

// OpenMeteo queries the Open-Meteo historical archive API for a coordinate.
// The archive serves daily aggregates directly; temperatures are requested
// in Fahrenheit.
type OpenMeteo struct {
	Lat     float64
	Lon     float64
	BaseURL string
}

// NewOpenMeteo creates the vendor for a WGS-84 coordinate.
func NewOpenMeteo(lat, lon float64) *OpenMeteo {
	return &OpenMeteo{Lat: lat, Lon: lon, BaseURL: openMeteoBaseURL}
}

func (o *OpenMeteo) Name() string { return "open_meteo" }

func (o *OpenMeteo) NewRequest(ctx context.Context, date time.Time) (*http.Request, error) {
	day := date.Format(time.DateOnly)
	params := url.Values{
		"start_date":       {day},
		"end_date":         {day},
		"latitude":         {strconv.FormatFloat(o.Lat, 'f', -1, 64)},
		"longitude":        {strconv.FormatFloat(o.Lon, 'f', -1, 64)},
		"daily":            {"temperature_2m_min,temperature_2m_mean,temperature_2m_max"},
		"temperature_unit": {"fahrenheit"},
		"timezone":         {"UTC"},
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"?"+params.Encode(), nil)
}

func (o *OpenMeteo) ParseResponse(body []byte, _ time.Time) (domain.Temp, bool, error) {
	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Temp{}, false, err
	}

	d := resp.Daily
	if len(d.Min) == 0 || len(d.Mean) == 0 || len(d.Max) == 0 {
		return domain.Temp{}, false, nil
	}
	// The archive returns nulls for days it has not backfilled yet.
	if d.Min[0] == nil || d.Mean[0] == nil || d.Max[0] == nil {
		return domain.Temp{}, false, nil
	}
	return domain.Temp{Min: *d.Min[0], Mean: *d.Mean[0], Max: *d.Max[0]}, true, nil
}

// Open-Meteo API response types, trimmed to the fields used.

type openMeteoResponse struct {
	Daily openMeteoDaily `json:"daily"`
}

type openMeteoDaily struct {
	Min  []*float64 `json:"temperature_2m_min"`
	Mean []*float64 `json:"temperature_2m_mean"`
	Max  []*float64 `json:"temperature_2m_max"`
}
