package trigger

import (
	"log/slog"
	"omiweather/app/config"
	"omiweather/app/service/cooldown"
	"omiweather/app/service/session"
	"slices"
	"strings"
	"time"

	"github.com/samber/do"
)

type CooldownTracker interface {
	Touch(sessionID string, now time.Time)
	Since(sessionID string, now time.Time) (time.Duration, bool)
}

// Engine decides how a batch of transcript segments moves a session record through
// idle, partial pending, collecting and ready. It never blocks and never calls out.
type Engine struct {
	wakePhrases  []string
	firstHalves  []string
	secondHalves []string
	delimiter    string

	firstHalfWords  []string
	secondHalfWords []string

	partialWindow     time.Duration
	aggregationWindow time.Duration
	forcedClosure     time.Duration
	cooldown          time.Duration

	cooldowns CooldownTracker
}

func New(di *do.Injector) (*Engine, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewEngine(cfg.Trigger, do.MustInvoke[*cooldown.Service](di)), nil
}

func NewEngine(cfg config.Trigger, cooldowns CooldownTracker) *Engine {
	return &Engine{
		wakePhrases:       normalizePhrases(cfg.WakePhrases),
		firstHalves:       normalizePhrases(cfg.FirstHalves),
		secondHalves:      normalizePhrases(cfg.SecondHalves),
		delimiter:         strings.ToLower(cfg.Delimiter),
		firstHalfWords:    halfWords(cfg.FirstHalves),
		secondHalfWords:   halfWords(cfg.SecondHalves),
		partialWindow:     cfg.PartialWindow,
		aggregationWindow: cfg.AggregationWindow,
		forcedClosure:     time.Duration(float64(cfg.AggregationWindow) * cfg.ForcedClosureFactor),
		cooldown:          cfg.Cooldown,
		cooldowns:         cooldowns,
	}
}

// Evaluate feeds the segments of one delivery to the record in order. Processing stops at
// the first segment that makes the question ready. On OutcomeDispatch the record is left in
// the ready state until Reset is called.
func (e *Engine) Evaluate(rec *session.Record, segments []string, now time.Time) Decision {
	if e.suppressed(rec, segments, now) {
		slog.Info("Cooldown active, duplicate trigger delivery dropped",
			"session_id", rec.SessionID)

		return Decision{Outcome: OutcomeSuppressed, State: StateOf(rec)}
	}

	processed := 0
	for _, segment := range segments {
		text := normalizeSegment(segment)
		if text == "" {
			continue
		}
		processed++

		if !e.step(rec, text, now) {
			continue
		}

		if len(rec.CollectedQuestion) == 0 {
			slog.Info("Question window closed without any text",
				"session_id", rec.SessionID,
				"since_trigger", now.Sub(rec.TriggerTime))
			e.Reset(rec)

			return Decision{Outcome: OutcomeForcedClosure, State: StateReady, Processed: processed}
		}

		rec.Dispatching = true
		question := buildQuestion(rec.CollectedQuestion)

		slog.Info("Question ready",
			"session_id", rec.SessionID,
			"question", question)

		return Decision{Outcome: OutcomeDispatch, State: StateReady, Question: question, Processed: processed}
	}

	return Decision{Outcome: OutcomeNone, State: StateOf(rec), Processed: processed}
}

// Reset ends the cycle after a dispatch attempt, whatever its result.
func (e *Engine) Reset(rec *session.Record) {
	rec.TriggerDetected = false
	rec.TriggerTime = time.Time{}
	rec.CollectedQuestion = []string{}
	rec.ResponseSent = true
	rec.Dispatching = false
	rec.PartialTrigger = false
	rec.SplitTrigger = false
}

// Ready reports whether the collected question may be dispatched once text was evaluated.
// Conditions are checked in order: window elapsed with text, question mark with text,
// forced closure.
func (e *Engine) Ready(rec *session.Record, text string, now time.Time) bool {
	elapsed := now.Sub(rec.TriggerTime)
	collected := len(rec.CollectedQuestion) > 0

	switch {
	case elapsed > e.aggregationWindow && collected:
		return true
	case collected && strings.Contains(text, "?"):
		return true
	case elapsed > e.forcedClosure:
		return true
	default:
		return false
	}
}

// step applies one normalized segment and reports readiness.
func (e *Engine) step(rec *session.Record, text string, now time.Time) bool {
	if !rec.TriggerDetected && containsAny(text, e.wakePhrases) {
		slog.Info("Wake phrase detected", "session_id", rec.SessionID)
		e.confirm(rec, text, now, false)
		return false
	}

	if !rec.TriggerDetected {
		if endsWithAny(text, e.firstHalves) {
			slog.Debug("First half of wake phrase detected", "session_id", rec.SessionID)
			rec.PartialTrigger = true
			rec.PartialTriggerTime = now
			return false
		}

		if rec.PartialTrigger {
			if now.Sub(rec.PartialTriggerTime) > e.partialWindow {
				rec.PartialTrigger = false
			} else if containsAny(text, e.secondHalves) {
				slog.Info("Wake phrase detected across segments", "session_id", rec.SessionID)
				e.confirm(rec, text, now, true)
				return false
			}
		}
	}

	if !rec.TriggerDetected || rec.ResponseSent || rec.Dispatching {
		return false
	}

	if now.Sub(rec.TriggerTime) <= e.aggregationWindow {
		rec.CollectedQuestion = append(rec.CollectedQuestion, text)
		slog.Debug("Question fragment collected",
			"session_id", rec.SessionID,
			"fragment", text)
	}

	return e.Ready(rec, text, now)
}

func (e *Engine) confirm(rec *session.Record, text string, now time.Time, split bool) {
	rec.TriggerDetected = true
	rec.SplitTrigger = split
	rec.TriggerTime = now
	rec.CollectedQuestion = []string{}
	rec.ResponseSent = false
	rec.Dispatching = false
	rec.PartialTrigger = false

	e.cooldowns.Touch(rec.SessionID, now)

	if tail := trailingText(text, e.delimiter); tail != "" {
		rec.CollectedQuestion = append(rec.CollectedQuestion, tail)
	}
}

// suppressed is true for a repeated wake phrase delivery while the confirmed trigger is still
// unresolved and within the cooldown. After a split confirmation a resent half counts as a repeat.
func (e *Engine) suppressed(rec *session.Record, segments []string, now time.Time) bool {
	if !rec.TriggerDetected || rec.ResponseSent {
		return false
	}

	elapsed, ok := e.cooldowns.Since(rec.SessionID, now)
	if !ok || elapsed >= e.cooldown {
		return false
	}

	for _, segment := range segments {
		text := normalizeSegment(segment)
		if containsAny(text, e.wakePhrases) {
			return true
		}

		if rec.SplitTrigger && e.isHalfEcho(text) {
			return true
		}
	}

	return false
}

// isHalfEcho matches a segment that opens with a second half or closes with a first half,
// compared word by word so that "omitted" is not taken for "omi".
func (e *Engine) isHalfEcho(text string) bool {
	words := strings.FieldsFunc(text, isWordSeparator)
	if len(words) == 0 {
		return false
	}

	return slices.Contains(e.secondHalfWords, words[0]) ||
		slices.Contains(e.firstHalfWords, words[len(words)-1])
}
