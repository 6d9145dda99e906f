package snapshot

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot mirrors the payload returned by /api/snapshot/{id}.
type Snapshot struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Favicon   bool      `json:"favicon"`
	Ready     bool      `json:"ready"`
	Files     int       `json:"files"`
	Size      *int64    `json:"size,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats returns the artifact statistics. ok is false until the snapshot is
// ready; files and size reported before that are not meaningful.
func (s Snapshot) Stats() (files int, size int64, ok bool) {
	if !s.Ready {
		return 0, 0, false
	}
	if s.Size != nil {
		size = *s.Size
	}
	return s.Files, size, true
}

// Clone returns a copy that shares no pointers with s.
func (s Snapshot) Clone() Snapshot {
	dup := s
	if s.Size != nil {
		size := *s.Size
		dup.Size = &size
	}
	return dup
}

// ListResponse mirrors /api/snapshots.
type ListResponse struct {
	Items []Snapshot `json:"items"`
}

// DeleteRequest is the body of POST /api/action/delete.
type DeleteRequest struct {
	UUID string `json:"uuid"`
}

// MessageResponse carries a human readable message from the API, used for
// both successful mutations and error bodies.
type MessageResponse struct {
	Message string `json:"message"`
}

// Encode serializes a snapshot for crossing the bootstrap boundary. The
// creation timestamp is written with nanosecond precision and its zone
// offset so Decode restores an equal instant.
func Encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.ID == "" {
		return Snapshot{}, fmt.Errorf("decode snapshot: missing id")
	}
	return s, nil
}
