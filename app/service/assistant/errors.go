package assistant

import (
	"errors"
	"omiweather/app/service/location"
)

var (
	ErrMissingSessionID   = errors.New("no session_id provided")
	ErrLocationExtraction = location.ErrExtraction
	ErrProviderFailure    = errors.New("provider failure")
)
