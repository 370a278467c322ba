package buffer

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	EntityListing = "listing"
	EntityProfile = "profile"

	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// ErrFull is returned by Enqueue once the store holds MaxSize items.
var ErrFull = errors.New("buffer: store is full")

// Item is a catalog or profile write that could not reach Postgres yet.
type Item struct {
	ID        string          `json:"id"`
	RecordID  string          `json:"record_id"`
	UserID    string          `json:"user_id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = 3
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}

func (i Item) sameRecord(other Item) bool {
	return i.RecordID != "" && i.Entity == other.Entity && i.RecordID == other.RecordID
}

// coalesce folds next into a pending write for the same record. keep reports
// whether a merged item should stay in the store.
func coalesce(pending, next Item) (merged Item, keep bool) {
	switch {
	case pending.Operation == OperationCreate && next.Operation == OperationDelete:
		return Item{}, false
	case pending.Operation == OperationCreate:
		pending.Data = next.Data
		pending.Timestamp = next.Timestamp
		pending.Retries = 0
		return pending, true
	default:
		next.Retries = 0
		return next, true
	}
}
