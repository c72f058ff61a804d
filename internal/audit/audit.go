package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Reference string    `json:"reference"`
	AccountID int64     `json:"account_id,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogLedgerWrite(reference string, accountID int64, txType, amount, status string) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "LEDGER_WRITE",
		Reference: reference,
		AccountID: accountID,
		Amount:    amount,
		Status:    status,
		Details: map[string]string{
			"transaction_type": txType,
		},
	}
	a.log(event)
}

func (a *Logger) LogError(reference string, accountID int64, err error) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		Reference: reference,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
