package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// Client communicates with the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
}

// NewClient creates a new API client with sensible defaults.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: defaultBaseURL,
	}
}

// FetchTimings fetches the schedule for q. The payload is validated before it
// is returned; any failure is a *FetchError.
func (c *Client) FetchTimings(ctx context.Context, q prayer.Query) (prayer.Day, error) {
	const op = "timings"
	endpoint := fmt.Sprintf("%s/timings/%s", c.BaseURL, q.DateString())

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("method", strconv.Itoa(q.Method))

	var resp Response
	if err := c.getJSON(ctx, op, endpoint+"?"+params.Encode(), &resp); err != nil {
		return prayer.Day{}, err
	}
	if resp.Code != http.StatusOK {
		return prayer.Day{}, &FetchError{Op: op, StatusCode: resp.Code, Err: fmt.Errorf("API error: status=%s", resp.Status)}
	}

	day, err := resp.Data.Day()
	if err != nil {
		return prayer.Day{}, &FetchError{Op: op, Err: fmt.Errorf("malformed timings: %w", err)}
	}
	return day, nil
}

// FetchQibla fetches the bearing towards the Qibla in degrees from true north.
func (c *Client) FetchQibla(ctx context.Context, lat, lon float64) (float64, error) {
	const op = "qibla"
	endpoint := fmt.Sprintf("%s/qibla/%s/%s", c.BaseURL,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))

	var resp QiblaResponse
	if err := c.getJSON(ctx, op, endpoint, &resp); err != nil {
		return 0, err
	}
	if resp.Code != http.StatusOK {
		return 0, &FetchError{Op: op, StatusCode: resp.Code, Err: fmt.Errorf("API error: status=%s", resp.Status)}
	}

	dir := resp.Data.Direction
	if dir == nil || math.IsNaN(*dir) || *dir < 0 || *dir >= 360 {
		return 0, &FetchError{Op: op, Err: fmt.Errorf("invalid bearing in response")}
	}
	return *dir, nil
}

func (c *Client) getJSON(ctx context.Context, op, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &FetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("failed to decode API response: %w", err)}
	}
	return nil
}
