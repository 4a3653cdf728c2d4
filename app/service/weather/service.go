package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"omiweather/app/client/geocoding"
	"omiweather/app/client/llm"
	"omiweather/app/client/openweather"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	narrationPrompt    = "Convert the following forecast data into a friendly text which will be read: %s"
	narrationMaxTokens = 250
	// the forecast API returns 3 hour slots, 8 of them make a day
	slotsPerDay = 8
)

var ErrLocationNotFound = geocoding.ErrNotFound

type Geocoder interface {
	Lookup(ctx context.Context, city, country string) (geocoding.Coordinates, error)
}

type Source interface {
	Forecast(ctx context.Context, at geocoding.Coordinates) ([]openweather.Entry, error)
}

type Narrator interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Service turns a city into a spoken forecast: geocode, fetch slots, sample one per day, narrate.
type Service struct {
	geocoder Geocoder
	source   Source
	narrator Narrator
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*geocoding.Client](di),
		do.MustInvoke[*openweather.Client](di),
		do.MustInvoke[*llm.Client](di),
	), nil
}

func NewService(geocoder Geocoder, source Source, narrator Narrator) *Service {
	return &Service{
		geocoder: geocoder,
		source:   source,
		narrator: narrator,
	}
}

func (s *Service) Forecast(ctx context.Context, city, country string) (string, error) {
	errb := oops.With("city", city, "country", country)

	coords, err := s.geocoder.Lookup(ctx, city, country)
	if err != nil {
		return "", errb.Wrapf(err, "geocoding")
	}

	entries, err := s.source.Forecast(ctx, coords)
	if err != nil {
		return "", errb.Wrapf(err, "forecast")
	}

	if len(entries) == 0 {
		return "", errb.Code("provider_failure").Errorf("forecast is empty")
	}

	daily, err := json.Marshal(DailySamples(entries))
	if err != nil {
		return "", errb.Wrapf(err, "failed to encode forecast")
	}

	text, err := s.narrator.Complete(ctx, fmt.Sprintf(narrationPrompt, daily), narrationMaxTokens)
	if err != nil {
		return "", errb.Wrapf(err, "narration")
	}

	return text, nil
}

// DailySamples keeps every eighth slot starting with the first one.
func DailySamples(entries []openweather.Entry) []openweather.Entry {
	result := make([]openweather.Entry, 0, (len(entries)+slotsPerDay-1)/slotsPerDay)
	for i := 0; i < len(entries); i += slotsPerDay {
		result = append(result, entries[i])
	}

	return result
}
