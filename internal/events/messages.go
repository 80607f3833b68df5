package events

import (
	"encoding/json"
	"time"

	"spendwise/internal/core"
)

const (
	KindExpenseCreated = "expense.created"
	KindExpenseDeleted = "expense.deleted"
)

// ExpenseEvent is published after the store confirms a mutation.
// Created events carry the full record so consumers need no read-back;
// deleted events carry only the id.
type ExpenseEvent struct {
	Kind      string        `json:"kind"`
	UserID    string        `json:"userId"`
	ExpenseID string        `json:"expenseId"`
	Expense   *core.Expense `json:"expense,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewExpenseCreated(userID string, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Kind:      KindExpenseCreated,
		UserID:    userID,
		ExpenseID: e.ID,
		Expense:   &e,
		Timestamp: time.Now(),
	}
}

func NewExpenseDeleted(userID, id string) *ExpenseEvent {
	return &ExpenseEvent{
		Kind:      KindExpenseDeleted,
		UserID:    userID,
		ExpenseID: id,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
