package domain

import "time"

// SubscriptionPlan represents the billing plan attached to a subscription
type SubscriptionPlan string

const (
	PlanFree    SubscriptionPlan = "free"
	PlanPremium SubscriptionPlan = "premium"
)

// SubscriptionStatus represents the lifecycle state of a subscription record
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// UserRecord is the authoritative identity row for a platform user.
// It is created when the authentication provider reports a new identity
// and removed only through account erasure.
type UserRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Premium   bool      `json:"premium"`
	Private   bool      `json:"private"`
	Verified  bool      `json:"verified"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	BannerURL string    `json:"banner_url,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Location  string    `json:"location,omitempty"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate carries the mutable profile fields of a user
type ProfileUpdate struct {
	AvatarURL *string `json:"avatar_url,omitempty"`
	BannerURL *string `json:"banner_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Location  *string `json:"location,omitempty"`
	Website   *string `json:"website,omitempty"`
	Private   *bool   `json:"private,omitempty"`
}

// SubscriptionRecord tracks one billing period for a user. At most one
// record per user is active at any time; upgrading cancels the prior
// active record in the same transaction.
type SubscriptionRecord struct {
	ID         int64              `json:"id"`
	UserID     string             `json:"user_id"`
	Plan       SubscriptionPlan   `json:"plan"`
	Status     SubscriptionStatus `json:"status"`
	BillingRef string             `json:"billing_ref,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// FollowEdge is a directed edge in the social graph
type FollowEdge struct {
	FollowerID string    `json:"follower_id"`
	FollowedID string    `json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserProfile combines the identity row with the active subscription,
// the shape returned to the UI layer
type UserProfile struct {
	User         UserRecord          `json:"user"`
	Subscription *SubscriptionRecord `json:"subscription,omitempty"`
}
