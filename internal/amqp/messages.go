package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
)

// TransactionSyncMessage asks the ledger-worker to mirror one transaction.
// It carries only identifiers; the worker fetches the full record from the
// store so the queue never holds stale amounts.
type TransactionSyncMessage struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, ownerID uuid.UUID) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DueReminderMessage announces that a definition falls due within its
// notify window. Consumers turn it into a user notification.
type DueReminderMessage struct {
	DefinitionID uuid.UUID `json:"definition_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Name         string    `json:"name"`
	DueDate      core.Date `json:"due_date"`
	DaysUntilDue int       `json:"days_until_due"`
	Timestamp    time.Time `json:"timestamp"`
}

func (m *DueReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DueReminderMessageFromJSON(data []byte) (*DueReminderMessage, error) {
	var msg DueReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
