package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventTransactionCreated EventKind = "transaction.created"
	EventTransactionDeleted EventKind = "transaction.deleted"
)

// TransactionEventMessage is the lightweight event published on transaction
// creation and deletion. It carries only identifiers; the export worker
// fetches the full transaction from the database.
type TransactionEventMessage struct {
	Kind      EventKind `json:"kind"`
	ID        uuid.UUID `json:"id"`
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(kind EventKind, id uuid.UUID, owner string) *TransactionEventMessage {
	return &TransactionEventMessage{
		Kind:      kind,
		ID:        id,
		Owner:     owner,
		Timestamp: time.Now(),
	}
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case EventTransactionCreated, EventTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.ID == uuid.Nil {
		return nil, fmt.Errorf("event missing transaction id")
	}
	return &msg, nil
}
