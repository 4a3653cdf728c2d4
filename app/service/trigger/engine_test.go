package trigger

import (
	"omiweather/app/config"
	"omiweather/app/service/cooldown"
	"omiweather/app/service/session"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func at(d float64) time.Time {
	return t0.Add(time.Duration(d * float64(time.Second)))
}

func newTestEngine() (*Engine, *cooldown.Service) {
	tracker := cooldown.NewTracker(time.Hour, 5*time.Minute, t0)
	return NewEngine(config.Default().Trigger, tracker), tracker
}

func newRecord(id string) *session.Record {
	return &session.Record{SessionID: id, CollectedQuestion: []string{}}
}

func assertInvariant(t *testing.T, rec *session.Record) {
	t.Helper()

	if len(rec.CollectedQuestion) > 0 {
		assert.True(t, rec.TriggerDetected, "collected text without a confirmed trigger")
	}
}

func TestFullWakePhraseStartsCollecting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		segment   string
		partial   bool
		wantFirst []string
	}{
		{name: "plain", segment: "Hey Omi", wantFirst: []string{}},
		{name: "comma variant", segment: "  hey, omi  ", wantFirst: []string{}},
		{name: "stale partial is cleared", segment: "hey omi", partial: true, wantFirst: []string{}},
		{name: "question after delimiter", segment: "Hey Omi, what's the weather in Rome",
			wantFirst: []string{"what's the weather in rome"}},
		{name: "last delimiter wins", segment: "hey omi, omi, is it cold", wantFirst: []string{"is it cold"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine, tracker := newTestEngine()
			rec := newRecord("s1")
			if tc.partial {
				rec.PartialTrigger = true
				rec.PartialTriggerTime = t0.Add(-10 * time.Second)
			}
			rec.ResponseSent = true

			decision := engine.Evaluate(rec, []string{tc.segment}, t0)

			assert.Equal(t, OutcomeNone, decision.Outcome)
			assert.Equal(t, StateCollecting, decision.State)
			assert.True(t, rec.TriggerDetected)
			assert.Equal(t, t0, rec.TriggerTime)
			assert.False(t, rec.ResponseSent)
			assert.False(t, rec.PartialTrigger)
			assert.Equal(t, tc.wantFirst, rec.CollectedQuestion)

			elapsed, ok := tracker.Since("s1", t0)
			assert.True(t, ok)
			assert.Zero(t, elapsed)
			assertInvariant(t, rec)
		})
	}
}

func TestSplitWakePhrase(t *testing.T) {
	t.Parallel()

	t.Run("completed within window", func(t *testing.T) {
		t.Parallel()

		engine, tracker := newTestEngine()
		rec := newRecord("s1")

		decision := engine.Evaluate(rec, []string{"well, hey"}, at(0))
		assert.Equal(t, StatePartialPending, decision.State)
		assert.True(t, rec.PartialTrigger)
		assert.Empty(t, rec.CollectedQuestion)

		decision = engine.Evaluate(rec, []string{"omi, will it rain in oslo"}, at(2))
		assert.Equal(t, StateCollecting, decision.State)
		assert.True(t, rec.TriggerDetected)
		assert.False(t, rec.PartialTrigger)
		assert.Equal(t, at(2), rec.TriggerTime)
		assert.Equal(t, []string{"will it rain in oslo"}, rec.CollectedQuestion)

		_, ok := tracker.Since("s1", at(2))
		assert.True(t, ok)
	})

	t.Run("window expired", func(t *testing.T) {
		t.Parallel()

		engine, tracker := newTestEngine()
		rec := newRecord("s1")

		engine.Evaluate(rec, []string{"hey"}, at(0))
		decision := engine.Evaluate(rec, []string{"omi"}, at(2.1))

		assert.Equal(t, StateIdle, decision.State)
		assert.False(t, rec.TriggerDetected)
		assert.False(t, rec.PartialTrigger)
		assert.Empty(t, rec.CollectedQuestion)

		_, ok := tracker.Since("s1", at(2.1))
		assert.False(t, ok)
	})

	t.Run("unrelated segment keeps waiting", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine()
		rec := newRecord("s1")

		engine.Evaluate(rec, []string{"hey,"}, at(0))
		decision := engine.Evaluate(rec, []string{"um"}, at(1))

		assert.Equal(t, StatePartialPending, decision.State)
		assert.False(t, rec.TriggerDetected)
	})

	t.Run("both halves in one delivery", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine()
		rec := newRecord("s1")

		decision := engine.Evaluate(rec, []string{"hey", "omi"}, at(0))

		assert.Equal(t, StateCollecting, decision.State)
		assert.Equal(t, 2, decision.Processed)
	})
}

func TestReadyPredicate(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()

	tests := []struct {
		name      string
		collected []string
		text      string
		now       time.Time
		want      bool
	}{
		{name: "question mark with text", collected: []string{"weather in paris?"}, text: "weather in paris?", now: at(1), want: true},
		{name: "question mark without text", collected: []string{}, text: "weather in paris?", now: at(1), want: false},
		{name: "window open without question mark", collected: []string{"weather in"}, text: "weather in", now: at(4), want: false},
		{name: "window elapsed with text", collected: []string{"weather in paris"}, text: "france", now: at(5.1), want: true},
		{name: "window elapsed without text", collected: []string{}, text: "france", now: at(5.1), want: false},
		{name: "forced closure without text", collected: []string{}, text: "france", now: at(7.6), want: true},
		{name: "forced closure boundary", collected: []string{}, text: "france", now: at(7.5), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := newRecord("s1")
			rec.TriggerDetected = true
			rec.TriggerTime = t0
			rec.CollectedQuestion = tc.collected

			assert.Equal(t, tc.want, engine.Ready(rec, tc.text, tc.now))
		})
	}
}

func TestQuestionMarkDispatches(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey omi"}, at(0))
	decision := engine.Evaluate(rec, []string{"What's the weather in Paris France?"}, at(1))

	require.Equal(t, OutcomeDispatch, decision.Outcome)
	assert.Equal(t, StateReady, decision.State)
	assert.Equal(t, "what's the weather in paris france?", decision.Question)
	assert.Equal(t, []string{"what's the weather in paris france?"}, rec.CollectedQuestion)
	assert.True(t, rec.Dispatching)
	assert.Equal(t, StateReady, StateOf(rec))
	assertInvariant(t, rec)
}

func TestFragmentsAggregateUntilWindowElapses(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey omi"}, at(0))
	assert.Equal(t, OutcomeNone, engine.Evaluate(rec, []string{"what's the weather"}, at(1)).Outcome)
	assert.Equal(t, OutcomeNone, engine.Evaluate(rec, []string{"in berlin germany"}, at(3)).Outcome)

	decision := engine.Evaluate(rec, []string{"thanks"}, at(6))

	require.Equal(t, OutcomeDispatch, decision.Outcome)
	assert.Equal(t, "what's the weather in berlin germany?", decision.Question)
	assert.Equal(t, []string{"what's the weather", "in berlin germany"}, rec.CollectedQuestion)
}

func TestForcedClosureWithoutQuestion(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey omi"}, at(0))
	decision := engine.Evaluate(rec, []string{"hmm"}, at(7.6))

	assert.Equal(t, OutcomeForcedClosure, decision.Outcome)
	assert.Equal(t, StateReady, decision.State)
	assert.Empty(t, decision.Question)

	assert.Equal(t, StateIdle, StateOf(rec))
	assert.False(t, rec.TriggerDetected)
	assert.True(t, rec.ResponseSent)
	assert.True(t, rec.TriggerTime.IsZero())
	assertInvariant(t, rec)
}

func TestFirstDispatchStopsTheDelivery(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	decision := engine.Evaluate(rec, []string{
		"hey omi",
		"weather in lisbon portugal?",
		"and in madrid?",
	}, at(0))

	require.Equal(t, OutcomeDispatch, decision.Outcome)
	assert.Equal(t, "weather in lisbon portugal?", decision.Question)
	assert.Equal(t, 2, decision.Processed)
	assert.Equal(t, []string{"weather in lisbon portugal?"}, rec.CollectedQuestion)
}

func TestNothingCollectedWhileDispatching(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey omi", "weather in rome italy?"}, at(0))
	require.True(t, rec.Dispatching)

	decision := engine.Evaluate(rec, []string{"weather in rome italy?"}, at(1))

	assert.Equal(t, OutcomeNone, decision.Outcome)
	assert.Equal(t, []string{"weather in rome italy?"}, rec.CollectedQuestion)
}

func TestResetAfterDispatch(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey omi", "weather in rome italy?"}, at(0))
	engine.Reset(rec)

	assert.Equal(t, StateIdle, StateOf(rec))
	assert.False(t, rec.TriggerDetected)
	assert.True(t, rec.TriggerTime.IsZero())
	assert.Empty(t, rec.CollectedQuestion)
	assert.True(t, rec.ResponseSent)
	assert.False(t, rec.PartialTrigger)
	assert.False(t, rec.Dispatching)

	// text after the cycle is not collected until a new trigger
	decision := engine.Evaluate(rec, []string{"and tomorrow?"}, at(2))
	assert.Equal(t, OutcomeNone, decision.Outcome)
	assert.Empty(t, rec.CollectedQuestion)

	decision = engine.Evaluate(rec, []string{"hey omi, and tomorrow in rome italy"}, at(20))
	assert.Equal(t, StateCollecting, decision.State)
	assert.False(t, rec.ResponseSent)
	assert.Equal(t, []string{"and tomorrow in rome italy"}, rec.CollectedQuestion)
}

func TestCooldownSuppressesDuplicateTriggerDelivery(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey omi"}, at(0))

	decision := engine.Evaluate(rec, []string{"hey omi", "weather in paris france?"}, at(3))
	assert.Equal(t, OutcomeSuppressed, decision.Outcome)
	assert.Equal(t, StateCollecting, decision.State)
	assert.Empty(t, rec.CollectedQuestion)
	assert.Zero(t, decision.Processed)
}

func TestCooldownSuppressesResentHalfAfterSplitTrigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		segment       string
		wantOutcome   Outcome
		wantCollected []string
	}{
		{name: "second half again", segment: "omi", wantOutcome: OutcomeSuppressed, wantCollected: []string{}},
		{name: "second half with punctuation", segment: "Omi.", wantOutcome: OutcomeSuppressed, wantCollected: []string{}},
		{name: "first half again", segment: "hey", wantOutcome: OutcomeSuppressed, wantCollected: []string{}},
		{name: "word sharing a prefix", segment: "omitted anything", wantOutcome: OutcomeNone,
			wantCollected: []string{"omitted anything"}},
		{name: "question text", segment: "what's the weather in paris france?", wantOutcome: OutcomeDispatch,
			wantCollected: []string{"what's the weather in paris france?"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine, _ := newTestEngine()
			rec := newRecord("s1")

			engine.Evaluate(rec, []string{"hey"}, at(0))
			engine.Evaluate(rec, []string{"omi"}, at(1))
			require.True(t, rec.TriggerDetected)
			require.True(t, rec.SplitTrigger)

			decision := engine.Evaluate(rec, []string{tc.segment}, at(1.5))

			assert.Equal(t, tc.wantOutcome, decision.Outcome)
			assert.Equal(t, tc.wantCollected, rec.CollectedQuestion)
			assertInvariant(t, rec)
		})
	}
}

func TestResetClearsSplitTrigger(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey"}, at(0))
	engine.Evaluate(rec, []string{"omi"}, at(1))
	engine.Reset(rec)

	assert.False(t, rec.SplitTrigger)
}

func TestCooldownDoesNotBlockQuestionText(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey omi"}, at(0))
	decision := engine.Evaluate(rec, []string{"weather in paris france?"}, at(1))

	assert.Equal(t, OutcomeDispatch, decision.Outcome)
}

func TestCooldownExpires(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	engine.Evaluate(rec, []string{"hey omi"}, at(0))
	decision := engine.Evaluate(rec, []string{"hey omi"}, at(10))

	// the wake phrase is collected as plain text; the forced closure window has passed
	assert.NotEqual(t, OutcomeSuppressed, decision.Outcome)
	assert.Equal(t, OutcomeForcedClosure, decision.Outcome)
}

func TestEmptySegmentsAreSkipped(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	rec := newRecord("s1")

	decision := engine.Evaluate(rec, []string{"", "   ", "hey omi"}, at(0))

	assert.Equal(t, 1, decision.Processed)
	assert.Equal(t, StateCollecting, decision.State)
}

func TestCustomPhrases(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Trigger
	cfg.WakePhrases = []string{"OK Weatherman"}
	cfg.FirstHalves = []string{"ok"}
	cfg.SecondHalves = []string{"Weatherman"}
	cfg.Delimiter = "weatherman:"

	engine := NewEngine(cfg, cooldown.NewTracker(time.Hour, time.Minute, t0))

	rec := newRecord("s1")
	engine.Evaluate(rec, []string{"hey omi"}, at(0))
	assert.False(t, rec.TriggerDetected)

	engine.Evaluate(rec, []string{"ok weatherman: forecast for tokyo japan"}, at(1))
	assert.True(t, rec.TriggerDetected)
	assert.Equal(t, []string{"forecast for tokyo japan"}, rec.CollectedQuestion)

	rec = newRecord("s2")
	engine.Evaluate(rec, []string{"OK"}, at(0))
	engine.Evaluate(rec, []string{"weatherman"}, at(1))
	assert.True(t, rec.TriggerDetected)
}
