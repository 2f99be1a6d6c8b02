package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an append-only record; the read flag only ever goes
// false -> true.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Message   string
	Read      bool
	CreatedAt time.Time
}
