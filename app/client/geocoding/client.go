package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"omiweather/app/config"
	"omiweather/app/util/timeouts"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const geocodePath = "/maps/api/geocode/json"

var ErrNotFound = errors.New("location not found")

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location Coordinates `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Client talks to the Google Geocoding API.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewWithConfig(cfg.Geocoding), nil
}

func NewWithConfig(cfg config.Geocoding) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
	}
}

// Lookup returns the coordinates of the first match for "city,country".
func (c *Client) Lookup(ctx context.Context, city, country string) (Coordinates, error) {
	query := url.Values{}
	query.Set("address", city+","+country)
	query.Set("key", c.apiKey)

	agent := fiber.Get(c.baseURL + geocodePath).
		QueryString(query.Encode()).
		Timeout(timeouts.Remaining(ctx, c.timeout))

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return Coordinates{}, oops.
			Code("provider_failure").
			With("city", city, "country", country).
			Wrapf(errors.Join(errs...), "geocoding request failed")
	}

	if code != fiber.StatusOK {
		return Coordinates{}, oops.
			Code("provider_failure").
			With("status", code).
			Errorf("geocoding request failed: %s", utils.StatusMessage(code))
	}

	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Coordinates{}, oops.Code("provider_failure").Wrapf(err, "failed to decode geocoding response")
	}

	if len(resp.Results) == 0 {
		return Coordinates{}, oops.
			Code("location_not_found").
			With("status", resp.Status, "error_message", resp.ErrorMessage).
			Wrapf(ErrNotFound, "%s, %s", city, country)
	}

	return resp.Results[0].Geometry.Location, nil
}
