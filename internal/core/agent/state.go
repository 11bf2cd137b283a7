package agent

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Mode is the conversation state machine position for one customer.
type Mode string

const (
	ModeIdle                   Mode = "idle"
	ModeAwaitingTime           Mode = "awaiting_time"
	ModeAwaitingBookingDetails Mode = "awaiting_booking_details"
	ModeAwaitingOrderDetails   Mode = "awaiting_order_details"
	ModeHandoffOpen            Mode = "handoff_open"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeIdle, ModeAwaitingTime, ModeAwaitingBookingDetails, ModeAwaitingOrderDetails, ModeHandoffOpen:
		return true
	}
	return false
}

// State is the per-customer conversation memory carried between turns.
// Missing lists the fields still needed to complete the in-flight
// booking or order; Preferences accumulates soft facts the model wants
// to remember.
type State struct {
	Mode        Mode           `json:"mode"`
	Missing     []string       `json:"missing,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// ParseState decodes a stored state document. Anything unreadable or
// carrying an unknown mode degrades to idle rather than erroring; a
// corrupt state row must never block the conversation.
func ParseState(raw datatypes.JSON) State {
	state := State{Mode: ModeIdle}
	if len(raw) == 0 {
		return state
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{Mode: ModeIdle}
	}
	if !state.Mode.Valid() {
		state.Mode = ModeIdle
	}
	return state
}

// JSON encodes the state for persistence and prompt embedding.
func (s State) JSON() datatypes.JSON {
	raw, err := json.Marshal(s)
	if err != nil {
		return datatypes.JSON(`{"mode":"idle"}`)
	}
	return datatypes.JSON(raw)
}

// SetMissing moves the state into mode with the given outstanding
// fields.
func (s *State) SetMissing(mode Mode, missing []string) {
	s.Mode = mode
	s.Missing = missing
}

// Clear returns the state to idle and drops any outstanding fields.
// Preferences survive; they are customer facts, not turn progress.
func (s *State) Clear() {
	s.Mode = ModeIdle
	s.Missing = nil
}
