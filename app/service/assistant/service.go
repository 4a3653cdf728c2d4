package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"omiweather/app/service/location"
	"omiweather/app/service/session"
	"omiweather/app/service/trigger"
	"omiweather/app/service/weather"
	"omiweather/app/util/mylog"
	"time"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	fallbackMessage         = "I'm sorry, I encountered an error processing your request."
	locationNotFoundMessage = "Location not found"
)

type Resolver interface {
	Resolve(ctx context.Context, question string) (location.Location, error)
}

type Forecaster interface {
	Forecast(ctx context.Context, city, country string) (string, error)
}

type Request struct {
	SessionID string
	UID       string
	Segments  []string
}

type Result struct {
	Outcome trigger.Outcome
	State   trigger.State
	// Question and Location are set once a question was dispatched.
	Question string
	Location location.Location
	// Message is the text to read back to the user, empty when there is nothing to say.
	Message string
}

// Service is the synchronous entry point for one webhook delivery: it runs the trigger engine
// on the session record and answers a ready question outside of the store lock.
type Service struct {
	store      *session.Store
	engine     *trigger.Engine
	resolver   Resolver
	forecaster Forecaster
	now        func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*session.Store](di),
		do.MustInvoke[*trigger.Engine](di),
		do.MustInvoke[*location.Service](di),
		do.MustInvoke[*weather.Service](di),
		time.Now,
	), nil
}

func NewService(
	store *session.Store,
	engine *trigger.Engine,
	resolver Resolver,
	forecaster Forecaster,
	now func() time.Time,
) *Service {
	return &Service{
		store:      store,
		engine:     engine,
		resolver:   resolver,
		forecaster: forecaster,
		now:        now,
	}
}

func (s *Service) Handle(ctx context.Context, req Request) (Result, error) {
	if req.SessionID == "" {
		return Result{}, oops.Code("missing_session_id").Wrap(ErrMissingSessionID)
	}

	now := s.now()

	var decision trigger.Decision
	s.store.Update(req.SessionID, now, func(rec *session.Record) {
		decision = s.engine.Evaluate(rec, req.Segments, now)
	})

	result := Result{
		Outcome: decision.Outcome,
		State:   decision.State,
	}

	if decision.Outcome != trigger.OutcomeDispatch {
		return result, nil
	}

	result.Question = decision.Question

	// the cycle is over once dispatch was attempted, whatever the outcome
	defer func() {
		s.store.Update(req.SessionID, s.now(), s.engine.Reset)
	}()

	loc, message, err := s.dispatch(ctx, decision.Question)
	result.Location = loc
	if err != nil {
		return result, oops.
			With("session_id", req.SessionID, "uid", req.UID, "question", decision.Question).
			Wrap(err)
	}

	result.Message = message

	slog.InfoContext(ctx, "Question answered",
		"session_id", req.SessionID,
		"question", decision.Question,
		"location", loc.String(),
		mylog.TelegramKey, true)

	return result, nil
}

func (s *Service) dispatch(ctx context.Context, question string) (location.Location, string, error) {
	loc, err := s.resolver.Resolve(ctx, question)
	switch {
	case errors.Is(err, location.ErrExtraction):
		return location.Location{}, "", err
	case err != nil:
		slog.ErrorContext(ctx, "Location resolution failed",
			"question", question,
			"error", err)
		return location.Location{}, fallbackMessage, nil
	}

	text, err := s.forecaster.Forecast(ctx, loc.City, loc.Country)
	switch {
	case errors.Is(err, weather.ErrLocationNotFound):
		return loc, locationNotFoundMessage, nil
	case err != nil:
		return loc, "", oops.
			Code("provider_failure").
			With("location", loc.String()).
			Wrap(fmt.Errorf("%w: %w", ErrProviderFailure, err))
	}

	return loc, text, nil
}

// ActiveSessions is the number of records currently held by the store.
func (s *Service) ActiveSessions() int {
	return s.store.ActiveCount()
}
