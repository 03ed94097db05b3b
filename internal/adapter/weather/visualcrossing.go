package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
)

const visualCrossingBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/weatherdata/history"

// VisualCrossing queries the Visual Crossing weather-data history API for a
// single location. Responses already aggregate the day to min/mean/max in
// Fahrenheit (unitGroup=us).
type VisualCrossing struct {
	Location string
	APIKey   string
	BaseURL  string
}

// NewVisualCrossing creates the vendor for a location string as Visual
// Crossing understands it, e.g. "Boston,MA".
func NewVisualCrossing(location, apiKey string) *VisualCrossing {
	return &VisualCrossing{
		Location: location,
		APIKey:   apiKey,
		BaseURL:  visualCrossingBaseURL,
	}
}

func (v *VisualCrossing) Name() string { return "visual_crossing" }

func (v *VisualCrossing) NewRequest(ctx context.Context, date time.Time) (*http.Request, error) {
	day := date.Format(time.DateOnly)
	params := url.Values{
		"startDateTime": {day + "T00:00:00"},
		"endDateTime":   {day + "T23:59:59"},
		"location":      {v.Location},
		"key":           {v.APIKey},
		"aggregateHours": {"24"},
		"unitGroup":     {"us"},
		"contentType":   {"json"},
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"?"+params.Encode(), nil)
}

func (v *VisualCrossing) ParseResponse(body []byte, date time.Time) (domain.Temp, bool, error) {
	var resp visualCrossingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Temp{}, false, err
	}

	loc, ok := resp.Locations[v.Location]
	if !ok || len(loc.Values) == 0 {
		return domain.Temp{}, false, nil
	}
	if len(loc.Values) > 1 {
		return domain.Temp{}, false, fmt.Errorf("expected one daily aggregate for %s, got %d", date.Format(time.DateOnly), len(loc.Values))
	}

	val := loc.Values[0]
	return domain.Temp{Min: val.MinTemp, Mean: val.Temp, Max: val.MaxTemp}, true, nil
}

// Visual Crossing API response types, trimmed to the fields used.

type visualCrossingResponse struct {
	Locations map[string]visualCrossingLocation `json:"locations"`
}

type visualCrossingLocation struct {
	Values []visualCrossingValue `json:"values"`
}

type visualCrossingValue struct {
	MinTemp float64 `json:"mint"`
	Temp    float64 `json:"temp"`
	MaxTemp float64 `json:"maxt"`
}
