package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/medflow/medflow-attendance/pkg/messaging"
	bolt "go.etcd.io/bbolt"
)

var outboxBucket = []byte("notifications")

// OutboxEntry is a notification that could not be published yet
type OutboxEntry struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Outbox is a local bbolt file holding undelivered notifications. Keys are
// ULIDs, so iteration order is enqueue order.
type Outbox struct {
	db *bolt.DB
}

// OpenOutbox opens or creates the outbox file at path
func OpenOutbox(path string) (*Outbox, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create outbox directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(outboxBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create outbox bucket: %w", err)
	}

	return &Outbox{db: db}, nil
}

// Put enqueues data for later publication under eventType
func (o *Outbox) Put(eventType string, data interface{}, cause error) (*OutboxEntry, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox entry: %w", err)
	}

	now := time.Now().UTC()
	entry := &OutboxEntry{
		ID:        messaging.GenerateEventID(now),
		EventType: eventType,
		Data:      raw,
		CreatedAt: now,
	}
	if cause != nil {
		entry.LastError = cause.Error()
	}

	if err := o.save(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns up to limit entries, oldest first. limit <= 0 means all.
func (o *Outbox) List(limit int) ([]OutboxEntry, error) {
	entries := make([]OutboxEntry, 0)
	err := o.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(outboxBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry OutboxEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt outbox entry %s: %w", k, err)
			}
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Len returns the number of queued entries
func (o *Outbox) Len() (int, error) {
	n := 0
	err := o.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(outboxBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// MarkFailed records another failed delivery attempt
func (o *Outbox) MarkFailed(entry OutboxEntry, cause error) error {
	entry.Attempts++
	if cause != nil {
		entry.LastError = cause.Error()
	}
	return o.save(&entry)
}

// Delete removes a delivered entry
func (o *Outbox) Delete(id string) error {
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(outboxBucket).Delete([]byte(id))
	})
}

// Close closes the outbox file
func (o *Outbox) Close() error {
	return o.db.Close()
}

func (o *Outbox) save(entry *OutboxEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox entry: %w", err)
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(outboxBucket).Put([]byte(entry.ID), value)
	})
}
