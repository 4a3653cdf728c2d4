package session

import "time"

// Record is the trigger/aggregation state of one device session.
type Record struct {
	SessionID string

	// TriggerDetected is set once the wake phrase is confirmed for the current cycle.
	TriggerDetected bool
	// TriggerTime is zero while no trigger is active.
	TriggerTime time.Time
	// CollectedQuestion holds fragments collected since the trigger, in arrival order.
	CollectedQuestion []string
	// ResponseSent suppresses collection until the next trigger.
	ResponseSent bool
	// Dispatching is set while a question handed out for dispatch is being answered.
	Dispatching bool

	PartialTrigger     bool
	PartialTriggerTime time.Time
	// SplitTrigger is set when the current trigger was confirmed from two separate segments.
	SplitTrigger bool

	LastActivity time.Time
}

func newRecord(sessionID string, now time.Time) Record {
	return Record{
		SessionID:         sessionID,
		CollectedQuestion: []string{},
		LastActivity:      now,
	}
}

func (r *Record) clone() Record {
	c := *r
	c.CollectedQuestion = append([]string(nil), r.CollectedQuestion...)
	return c
}
