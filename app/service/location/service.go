package location

import (
	"context"
	"errors"
	"fmt"
	"omiweather/app/client/llm"
	"strings"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	extractionPrompt    = "Extract the city and country from the following question, comma separate it, it should be the only thing returned: %s"
	extractionMaxTokens = 150
)

var ErrExtraction = errors.New("invalid location extracted")

type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Location struct {
	City    string
	Country string
}

func (l Location) String() string {
	return l.City + ", " + l.Country
}

// Service asks the language model where a question is about.
type Service struct {
	llm Completer
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*llm.Client](di)), nil
}

func NewService(completer Completer) *Service {
	return &Service{llm: completer}
}

// Resolve extracts the city and country of question. A model failure is returned as is,
// an answer that is not "city, country" is ErrExtraction.
func (s *Service) Resolve(ctx context.Context, question string) (Location, error) {
	answer, err := s.llm.Complete(ctx, fmt.Sprintf(extractionPrompt, question), extractionMaxTokens)
	if err != nil {
		return Location{}, err
	}

	return Parse(answer)
}

// Parse accepts exactly two non-empty comma separated tokens.
func Parse(text string) (Location, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return Location{}, oops.
			Code("location_extraction").
			With("text", text, "tokens", len(parts)).
			Wrap(ErrExtraction)
	}

	loc := Location{
		City:    strings.TrimSpace(parts[0]),
		Country: strings.TrimSpace(parts[1]),
	}
	if loc.City == "" || loc.Country == "" {
		return Location{}, oops.
			Code("location_extraction").
			With("text", text).
			Wrap(ErrExtraction)
	}

	return loc, nil
}
