package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
)

const nwsBaseURL = "https://api.weather.gov"

// NWS queries the National Weather Service station-observations API. Unlike
// the other vendors it returns raw intra-day observations, so the daily
// summary is reduced here: min/mean/max over every observation in the day.
// Observations report Celsius and are converted; an unknown unit code is an
// error rather than a guess.
type NWS struct {
	Station string // e.g. "KBED"
	BaseURL string
}

// NewNWS creates the vendor for an observation station identifier.
func NewNWS(station string) *NWS {
	return &NWS{Station: station, BaseURL: nwsBaseURL}
}

func (n *NWS) Name() string { return "nws" }

func (n *NWS) NewRequest(ctx context.Context, date time.Time) (*http.Request, error) {
	// The API's end bound is exclusive, so a single day spans the previous
	// midnight to this one.
	u := fmt.Sprintf("%s/stations/%s/observations?start=%sT00:00:00Z&end=%sT00:00:00Z",
		n.BaseURL, n.Station,
		date.AddDate(0, 0, -1).Format(time.DateOnly),
		date.Format(time.DateOnly))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/geo+json")
	// api.weather.gov rejects requests without a User-Agent.
	req.Header.Set("User-Agent", "utility-usage-etl (github.com/couchcryptid/utility-usage-etl)")
	return req, nil
}

func (n *NWS) ParseResponse(body []byte, _ time.Time) (domain.Temp, bool, error) {
	var resp nwsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Temp{}, false, err
	}

	summary := domain.Temp{}
	count := 0
	var sum float64
	for _, f := range resp.Features {
		m := f.Properties.Temperature
		if m.Value == nil {
			continue
		}
		temp, err := toFahrenheit(*m.Value, m.UnitCode)
		if err != nil {
			return domain.Temp{}, false, err
		}
		if count == 0 {
			summary.Min = temp
			summary.Max = temp
		} else {
			summary.Min = min(summary.Min, temp)
			summary.Max = max(summary.Max, temp)
		}
		sum += temp
		count++
	}
	if count == 0 {
		return domain.Temp{}, false, nil
	}
	summary.Mean = sum / float64(count)
	return summary, true, nil
}

func toFahrenheit(value float64, unitCode string) (float64, error) {
	switch unitCode {
	case "wmoUnit:degC", "unit:degC":
		return value*9/5 + 32, nil
	case "wmoUnit:degF", "unit:degF":
		return value, nil
	default:
		return 0, fmt.Errorf("unknown temperature unit code %q", unitCode)
	}
}

// NWS API response types, trimmed to the fields used.

type nwsResponse struct {
	Features []nwsFeature `json:"features"`
}

type nwsFeature struct {
	Properties nwsProperties `json:"properties"`
}

type nwsProperties struct {
	Station     string         `json:"station"`
	Timestamp   time.Time      `json:"timestamp"`
	Temperature nwsMeasurement `json:"temperature"`
}

type nwsMeasurement struct {
	Value    *float64 `json:"value"`
	UnitCode string   `json:"unitCode"`
}
