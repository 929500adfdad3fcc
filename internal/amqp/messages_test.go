package amqp

import (
	"testing"
	"time"
)

func TestNewBudgetChangedMessage(t *testing.T) {
	msg := NewBudgetChangedMessage("2024-06")

	if msg.Month != "2024-06" {
		t.Errorf("Month = %v, want 2024-06", msg.Month)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestBudgetChangedMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &BudgetChangedMessage{
		Month:     "2024-06",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := BudgetChangedMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("BudgetChangedMessageFromJSON() error = %v", err)
	}

	if parsedMsg.Month != msg.Month {
		t.Errorf("Parsed Month = %v, want %v", parsedMsg.Month, msg.Month)
	}
	if !parsedMsg.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsedMsg.Timestamp, msg.Timestamp)
	}
}

func TestBudgetChangedMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"month": 42}`)

	_, err := BudgetChangedMessageFromJSON(invalidJSON)
	if err == nil {
		t.Error("BudgetChangedMessageFromJSON() should fail with invalid JSON")
	}
}
