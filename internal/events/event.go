package events

// Event types produced by the signal lifecycle service.
const (
	TypePublished   = "published"
	TypeTriggered   = "triggered"
	TypeClosed      = "closed"
	TypeInvalidated = "invalidated"
)

// Event is the envelope published to consumers. Payload is one of the
// typed payload structs below, matching Type.
type Event struct {
	Type string `json:"type"`
	TsMs int64  `json:"ts"`
	Payload any `json:"payload"`
}

// Published is emitted after a non-HOLD signal is durably stored.
type Published struct {
	SignalID        string   `json:"signal_id"`
	Symbol          string   `json:"symbol"`
	ConfluenceScore float64  `json:"confluence_score"`
	RR              float64  `json:"rr"`
	Scenarios       []string `json:"scenarios,omitempty"`
	ExpiryMinutes   int64    `json:"expiry_minutes,omitempty"`
	RulesVersion    string   `json:"rules_version,omitempty"`
}

// Triggered is emitted after the execution fill is durably stored.
type Triggered struct {
	SignalID        string  `json:"signal_id"`
	Symbol          string  `json:"symbol"`
	EntryFill       float64 `json:"entry_fill"`
	TimeToTriggerMs int64   `json:"time_to_trigger_ms"`
}

// Closed is emitted after the outcome is durably stored.
type Closed struct {
	SignalID      string  `json:"signal_id"`
	Symbol        string  `json:"symbol"`
	RRRealized    float64 `json:"rr_realized"`
	TimeInTradeMs int64   `json:"time_in_trade_ms"`
	ExitReason    string  `json:"exit_reason"`
}

// Invalidated is emitted when a published signal is withdrawn before
// it triggers.
type Invalidated struct {
	SignalID string `json:"signal_id"`
	Symbol   string `json:"symbol"`
	Reason   string `json:"reason"`
}
