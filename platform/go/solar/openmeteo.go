package solar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Open-Meteo forecast API.
const DefaultBaseURL = "https://api.open-meteo.com"

const maxResponseBytes = 1 << 20

const dailySchemaURL = "https://studio-scheduler.local/schemas/open-meteo-daily.json"

// dailySchema rejects any payload whose daily arrays are missing or mistyped.
const dailySchema = `{
  "type": "object",
  "required": ["daily"],
  "properties": {
    "daily": {
      "type": "object",
      "required": ["time", "sunrise", "sunset"],
      "properties": {
        "time":    {"type": "array", "minItems": 1, "items": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"}},
        "sunrise": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 16}},
        "sunset":  {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 16}}
      }
    }
  }
}`

// OpenMeteoConfig configures the Open-Meteo client.
type OpenMeteoConfig struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// OpenMeteoClient implements Provider against the Open-Meteo daily forecast endpoint.
// Days are aggregated in the zone of the requested start date; instants are returned in UTC.
type OpenMeteoClient struct {
	baseURL string
	http    *http.Client
	schema  *jsonschema.Schema
	logger  *zap.Logger
}

// NewOpenMeteoClient compiles the payload schema and returns a client.
func NewOpenMeteoClient(cfg OpenMeteoConfig, logger *zap.Logger) (*OpenMeteoClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse solar base url: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(dailySchemaURL, strings.NewReader(dailySchema)); err != nil {
		return nil, fmt.Errorf("register solar schema: %w", err)
	}
	schema, err := compiler.Compile(dailySchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile solar schema: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenMeteoClient{baseURL: base, http: client, schema: schema, logger: logger}, nil
}

type dailyPayload struct {
	Daily struct {
		Time    []string `json:"time"`
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// Fetch requests the inclusive date range. Any transport, status, decoding,
// schema or consistency failure is reported as ErrUnavailable.
func (c *OpenMeteoClient) Fetch(ctx context.Context, latitude, longitude float64, startDate, endDate time.Time) (Window, error) {
	loc := startDate.Location()
	zone := loc.String()
	if loc == time.UTC || zone == "UTC" || zone == "Local" {
		loc, zone = time.UTC, "GMT"
	}
	endDate = endDate.In(loc)

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', 4, 64))
	q.Set("daily", "sunrise,sunset")
	q.Set("timezone", zone)
	q.Set("start_date", startDate.Format(DateLayout))
	q.Set("end_date", endDate.Format(DateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return Window{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Window{}, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Window{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	window, err := c.parse(raw, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug("solar window fetched",
		zap.Int("days", window.Len()),
		zap.String("start_date", startDate.Format(DateLayout)),
		zap.String("timezone", zone),
	)
	return window, nil
}

func (c *OpenMeteoClient) parse(raw []byte, loc *time.Location) (Window, error) {
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return Window{}, fmt.Errorf("decode payload: %w", err)
	}
	if err := c.schema.Validate(document); err != nil {
		return Window{}, fmt.Errorf("schema validation: %w", err)
	}

	var payload dailyPayload
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&payload); err != nil {
		return Window{}, fmt.Errorf("decode daily: %w", err)
	}

	d := payload.Daily
	if len(d.Sunrise) != len(d.Time) || len(d.Sunset) != len(d.Time) {
		return Window{}, fmt.Errorf("daily arrays disagree: %d dates, %d sunrises, %d sunsets", len(d.Time), len(d.Sunrise), len(d.Sunset))
	}

	days := make([]Day, 0, len(d.Time))
	for i, date := range d.Time {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return Window{}, fmt.Errorf("date %q: %w", date, err)
		}
		sunrise, err := parseInstant(d.Sunrise[i], loc)
		if err != nil {
			return Window{}, fmt.Errorf("sunrise %d: %w", i, err)
		}
		sunset, err := parseInstant(d.Sunset[i], loc)
		if err != nil {
			return Window{}, fmt.Errorf("sunset %d: %w", i, err)
		}
		if i > 0 && date <= days[i-1].Date {
			return Window{}, fmt.Errorf("dates not increasing at %q", date)
		}
		days = append(days, Day{Date: date, Sunrise: sunrise, Sunset: sunset})
	}

	return Window{Days: days}, nil
}

// parseInstant accepts RFC 3339 or the offset-less ISO-8601 minute form Open-Meteo emits, read in loc.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
