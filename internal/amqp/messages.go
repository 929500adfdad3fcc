package amqp

import (
	"encoding/json"
	"time"
)

// BudgetChangedMessage announces that a month's budget data changed.
// Consumers refetch what they need from the database, so the message only
// carries the month key.
type BudgetChangedMessage struct {
	Month     string    `json:"month"` // YYYY-MM
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetChangedMessage creates a change notification for a month
func NewBudgetChangedMessage(month string) *BudgetChangedMessage {
	return &BudgetChangedMessage{
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetChangedMessageFromJSON creates a message from JSON bytes
func BudgetChangedMessageFromJSON(data []byte) (*BudgetChangedMessage, error) {
	var msg BudgetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
