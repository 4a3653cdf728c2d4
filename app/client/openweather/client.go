package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"omiweather/app/client/geocoding"
	"omiweather/app/config"
	"omiweather/app/util/timeouts"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const forecastPath = "/data/2.5/forecast"

// Client talks to the OpenWeatherMap 5 day / 3 hour forecast API.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewWithConfig(cfg.Weather), nil
}

func NewWithConfig(cfg config.Weather) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
	}
}

// Forecast returns the metric forecast slots for the coordinates, oldest first.
func (c *Client) Forecast(ctx context.Context, at geocoding.Coordinates) ([]Entry, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	query.Set("units", "metric")
	query.Set("exclude", "minutely,hourly")
	query.Set("appid", c.apiKey)

	agent := fiber.Get(c.baseURL + forecastPath).
		QueryString(query.Encode()).
		Timeout(timeouts.Remaining(ctx, c.timeout))

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, oops.
			Code("provider_failure").
			With("lat", at.Lat, "lng", at.Lng).
			Wrapf(errors.Join(errs...), "forecast request failed")
	}

	if code != fiber.StatusOK {
		return nil, oops.
			Code("provider_failure").
			With("status", code).
			Errorf("%s", utils.StatusMessage(code))
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oops.Code("provider_failure").Wrapf(err, "failed to decode forecast response")
	}

	return resp.List, nil
}
