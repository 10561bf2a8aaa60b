package missingfonts

import "strings"

// ScriptState is what we know about a script this session.
type ScriptState int

const (
	// StateNotified: shown to the user, awaiting a decision.
	StateNotified ScriptState = iota
	// StateProcessed: the user accepted remediation.
	StateProcessed
	// StateIgnored: the user declined for good, possibly in an earlier session.
	StateIgnored
)

func (s ScriptState) String() string {
	switch s {
	case StateNotified:
		return "notified"
	case StateProcessed:
		return "processed"
	case StateIgnored:
		return "ignored"
	}
	return "unknown"
}

// Tracker maps script identifiers to their state. A script is tracked at most
// once; its first observation decides whether the user hears about it.
// Tracker is not safe for concurrent use; the App owns it on its event loop.
type Tracker struct {
	states map[string]ScriptState
	order  []string
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]ScriptState)}
}

// normalizeIDs trims ids and drops empty and repeated ones, keeping order.
func normalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (t *Tracker) insert(id string, state ScriptState) {
	t.states[id] = state
	t.order = append(t.order, id)
}

// RecordMissing inserts every untracked id as Notified and returns those ids.
// An empty result means nothing new needs to be shown.
func (t *Tracker) RecordMissing(ids []string) []string {
	var added []string
	for _, id := range normalizeIDs(ids) {
		if _, ok := t.states[id]; ok {
			continue
		}
		t.insert(id, StateNotified)
		added = append(added, id)
	}
	return added
}

func (t *Tracker) collect(state ScriptState) []string {
	var out []string
	for _, id := range t.order {
		if t.states[id] == state {
			out = append(out, id)
		}
	}
	return out
}

// CurrentlyNotified returns the Notified scripts in first-seen order.
func (t *Tracker) CurrentlyNotified() []string {
	return t.collect(StateNotified)
}

// MarkProcessed moves the given Notified scripts to Processed. Ids in any other
// state are left alone.
func (t *Tracker) MarkProcessed(ids []string) {
	for _, id := range normalizeIDs(ids) {
		if s, ok := t.states[id]; ok && s == StateNotified {
			t.states[id] = StateProcessed
		}
	}
}

// TakeNotified marks every Notified script Processed and returns them.
func (t *Tracker) TakeNotified() []string {
	ids := t.CurrentlyNotified()
	t.MarkProcessed(ids)
	return ids
}

// IgnoreAll moves every tracked script to Ignored. The caller persists.
func (t *Tracker) IgnoreAll() {
	for id := range t.states {
		t.states[id] = StateIgnored
	}
}

// SeedIgnored merges persisted ids as Ignored. Already tracked ids keep their
// state.
func (t *Tracker) SeedIgnored(ids []string) {
	for _, id := range normalizeIDs(ids) {
		if _, ok := t.states[id]; !ok {
			t.insert(id, StateIgnored)
		}
	}
}

// PersistIgnored returns the Ignored scripts for the preference store.
func (t *Tracker) PersistIgnored() []string {
	return t.collect(StateIgnored)
}

// State returns the state of id and whether it is tracked.
func (t *Tracker) State(id string) (ScriptState, bool) {
	s, ok := t.states[id]
	return s, ok
}

func (t *Tracker) Len() int { return len(t.states) }
