package amqp

import (
	"encoding/json"
	"time"

	"spendtrack/internal/core"
)

// Mutation operations carried on the feed.
const (
	OpCreate = "create"
	OpDelete = "delete"
)

// MutationMessage mirrors one local store mutation to the worker. For
// creates the full record travels along; for deletes the worker only
// needs the identifier but the payload is kept for diagnostics.
type MutationMessage struct {
	Op          string           `json:"op"`
	UID         string           `json:"uid"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewMutationMessage(op, uid string, t core.Transaction) *MutationMessage {
	return &MutationMessage{
		Op:          op,
		UID:         uid,
		Transaction: t,
		Timestamp:   time.Now(),
	}
}

func (m *MutationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MutationMessageFromJSON(data []byte) (*MutationMessage, error) {
	var msg MutationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
