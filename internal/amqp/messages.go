package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"esuvi/internal/core"
)

// TransactionRecordedMessage announces a committed transaction. It carries
// the full record so consumers do not need access to the writer's store.
type TransactionRecordedMessage struct {
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewTransactionRecordedMessage wraps tx with the current time.
func NewTransactionRecordedMessage(tx core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		Transaction: tx,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON decodes and validates a message.
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Transaction.ID == "" {
		return nil, errors.New("message has no transaction id")
	}
	if err := msg.Transaction.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
