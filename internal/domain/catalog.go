package domain

import "time"

// LikeRecord marks that a user likes a game. Logically unique per
// (user, game) pair; duplicate suppression is the Coordinator's concern.
type LikeRecord struct {
	UserID    string    `json:"user_id"`
	GameID    string    `json:"game_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentRecord is a free-form comment on a game, optionally carrying a
// rating and spoiler flag
type CommentRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	GameID    string    `json:"game_id"`
	Content   string    `json:"content"`
	Rating    int       `json:"rating,omitempty"`
	Spoiler   bool      `json:"spoiler"`
	Likes     int64     `json:"likes"`
	ReplyIDs  []string  `json:"reply_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserListRecord is a named, ordered collection of game ids owned by one
// user. Users may hold multiple lists distinguished by name.
type UserListRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	GameIDs     []string  `json:"game_ids"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CacheEntry is a time-boxed copy of externally fetched game metadata,
// keyed by (game_id, source). A read past ExpiresAt is a miss and deletes
// the stale entry.
type CacheEntry struct {
	GameID      string    `json:"game_id"`
	Source      string    `json:"source"`
	Payload     []byte    `json:"payload"`
	LastUpdated time.Time `json:"last_updated"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GlobalStats is a point-in-time snapshot of aggregate counts across both
// stores. A side that fails to answer contributes zeros, never an error.
type GlobalStats struct {
	Users         int64     `json:"users"`
	Follows       int64     `json:"follows"`
	PremiumUsers  int64     `json:"premium_users"`
	Likes         int64     `json:"likes"`
	Comments      int64     `json:"comments"`
	Lists         int64     `json:"lists"`
	Activities    int64     `json:"activities"`
	GeneratedAt   time.Time `json:"generated_at"`
	RelationalOK  bool      `json:"relational_ok"`
	DocumentOK    bool      `json:"document_ok"`
}

// HealthStatus reports per-store reachability. The system is considered
// up when at least one store answers.
type HealthStatus struct {
	Relational bool `json:"relational"`
	Document   bool `json:"document"`
	Overall    bool `json:"overall"`
}

// MaintenanceReport carries the counts removed by one maintenance pass
type MaintenanceReport struct {
	ExpiredCacheEntries int64 `json:"expired_cache_entries"`
	ArchivedLogEntries  int64 `json:"archived_log_entries"`
	Skipped             bool  `json:"skipped"`
}

// ErasureReport describes the per-side outcome of a full account erasure.
// A partial failure is never reported as a blanket success.
type ErasureReport struct {
	UserID          string `json:"user_id"`
	DocumentOK      bool   `json:"document_ok"`
	RelationalOK    bool   `json:"relational_ok"`
	DocumentError   string `json:"document_error,omitempty"`
	RelationalError string `json:"relational_error,omitempty"`
}

// Complete reports whether both sides of the erasure succeeded
func (r ErasureReport) Complete() bool {
	return r.DocumentOK && r.RelationalOK
}
