package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEndpoint is the OpenWeatherMap current conditions endpoint.
const DefaultEndpoint = "http://api.openweathermap.org/data/2.5/weather"

// ErrMalformedResponse is returned when the body is not the expected JSON shape.
var ErrMalformedResponse = errors.New("malformed weather response")

// StatusError is returned for any status other than 200.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather API error: %d %s", e.Code, http.StatusText(e.Code))
}

// Client handles OpenWeatherMap API interactions
type Client struct {
	Endpoint   string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a new weather API client. An empty endpoint selects
// DefaultEndpoint. No request timeout is set; callers bound requests through
// the context.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		Endpoint:   endpoint,
		UserAgent:  "gotthetime/1.0",
		HTTPClient: &http.Client{},
	}
}

// CurrentResponse represents the /data/2.5/weather response
type CurrentResponse struct {
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		ID          *int   `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Name string `json:"name"`
}

// Observation is the subset of the current conditions the bridge uses.
type Observation struct {
	Kelvin        float64
	ConditionCode int
	City          string
	Raw           string
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err != nil {
		return nil, fmt.Errorf("reading weather response: %w", err)
	}
	return body, nil
}

// Current fetches current conditions for a position.
func (c *Client) Current(ctx context.Context, coords Coordinates) (*Observation, error) {
	ctx, span := otel.Tracer("weather-client").Start(ctx, "fetch-weather", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Float64("lat", coords.Latitude),
		attribute.Float64("lon", coords.Longitude),
	)

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint %s: %w", c.Endpoint, err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	u.RawQuery = q.Encode()

	data, err := c.get(ctx, u.String())
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			span.SetAttributes(attribute.Int("http.status_code", se.Code))
		}
		span.RecordError(err)
		return nil, err
	}

	obs, err := parseCurrent(data)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("condition", obs.ConditionCode),
		attribute.String("city", obs.City),
	)
	return obs, nil
}

func parseCurrent(data []byte) (*Observation, error) {
	var cr CurrentResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if cr.Main == nil || cr.Main.Temp == nil {
		return nil, fmt.Errorf("%w: missing main.temp", ErrMalformedResponse)
	}
	if len(cr.Weather) == 0 || cr.Weather[0].ID == nil {
		return nil, fmt.Errorf("%w: missing weather[0].id", ErrMalformedResponse)
	}
	return &Observation{
		Kelvin:        *cr.Main.Temp,
		ConditionCode: *cr.Weather[0].ID,
		City:          cr.Name,
		Raw:           string(data),
	}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}
