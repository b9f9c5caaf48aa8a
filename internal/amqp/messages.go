package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"moneylog/internal/ledger"
)

// LedgerChangedMessage announces that a ledger command was committed.
// Consumers re-read the persisted snapshot instead of trusting the payload.
type LedgerChangedMessage struct {
	Revision  uint64    `json:"revision"`
	Command   string    `json:"command"`
	Expenses  int       `json:"expenses"`
	Income    int       `json:"income"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage builds a message from a committed change
func NewLedgerChangedMessage(ev ledger.ChangeEvent) *LedgerChangedMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerChangedMessage{
		Revision:  ev.Revision,
		Command:   ev.Command,
		Expenses:  ev.Expenses,
		Income:    ev.Income,
		Timestamp: ts,
	}
}

// Event converts the message back into the ledger's change event
func (m *LedgerChangedMessage) Event() ledger.ChangeEvent {
	return ledger.ChangeEvent{
		Revision: m.Revision,
		Command:  m.Command,
		Expenses: m.Expenses,
		Income:   m.Income,
		At:       m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message body
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Command == "" {
		return nil, fmt.Errorf("ledger changed message: missing command")
	}
	return &msg, nil
}
