package domain

import "time"

// ActivityKind is the closed enumeration of loggable user actions
type ActivityKind string

const (
	ActivityView      ActivityKind = "view"
	ActivityAddToList ActivityKind = "add_to_list"
	ActivityRate      ActivityKind = "rate"
	ActivityComment   ActivityKind = "comment"
	ActivitySearch    ActivityKind = "search"
	ActivityLike      ActivityKind = "like"
	ActivityFollow    ActivityKind = "follow"
	ActivityRegister  ActivityKind = "register"
	ActivityLogin     ActivityKind = "login"
)

// Valid reports whether k is one of the known activity kinds
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityView, ActivityAddToList, ActivityRate, ActivityComment,
		ActivitySearch, ActivityLike, ActivityFollow, ActivityRegister,
		ActivityLogin:
		return true
	}
	return false
}

// ActivityLogEntry is an append-only record of one user action. Entries
// are never updated after creation; they are only appended, bulk-deleted
// by erasure, or archived past a cutoff.
type ActivityLogEntry struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Kind       ActivityKind      `json:"kind"`
	ResourceID string            `json:"resource_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ActivityEvent is the wire format for activity submissions arriving over
// Kafka or HTTP
type ActivityEvent struct {
	UserID     string            `json:"user_id"`
	Kind       ActivityKind      `json:"kind"`
	ResourceID string            `json:"resource_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
