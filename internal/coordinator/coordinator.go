package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gamecrate-api/internal/config"
	"github.com/gamecrate-api/internal/domain"
)

// RelationalStore is the authoritative-identity side of the platform:
// user records, the follow graph and subscriptions.
type RelationalStore interface {
	Ping(ctx context.Context) error
	Available() bool
	CreateUser(ctx context.Context, user *domain.UserRecord) error
	GetUser(ctx context.Context, userID string) (*domain.UserRecord, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserRecord, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserRecord, error)
	Follow(ctx context.Context, followerID, followedID string) error
	Unfollow(ctx context.Context, followerID, followedID string) error
	GetFollowers(ctx context.Context, userID string, limit int) ([]domain.FollowEdge, error)
	GetFollowing(ctx context.Context, userID string, limit int) ([]domain.FollowEdge, error)
	UpgradeSubscription(ctx context.Context, userID, billingRef string) (*domain.SubscriptionRecord, error)
	CancelSubscription(ctx context.Context, userID string) error
	GetUserSubscription(ctx context.Context, userID string) (*domain.SubscriptionRecord, error)
	DeleteUserData(ctx context.Context, userID string) error
	Counts(ctx context.Context) (users, follows, premium int64, err error)
}

// DocumentStore is the high-churn side: likes, comments, lists, cached
// game data and the activity log.
type DocumentStore interface {
	Ping(ctx context.Context) error
	Enabled() bool
	AddLike(ctx context.Context, userID, gameID string) (bool, error)
	RemoveLike(ctx context.Context, userID, gameID string) (bool, error)
	GetUserLikes(ctx context.Context, userID string, limit int) ([]domain.LikeRecord, error)
	CreateComment(ctx context.Context, comment *domain.CommentRecord) error
	GetGameComments(ctx context.Context, gameID string, limit int) ([]domain.CommentRecord, error)
	GetOrCreateList(ctx context.Context, userID, name string) (*domain.UserListRecord, error)
	GetList(ctx context.Context, listID string) (*domain.UserListRecord, error)
	GetUserLists(ctx context.Context, userID string) ([]domain.UserListRecord, error)
	AddGameToList(ctx context.Context, listID, gameID string) (bool, error)
	CacheGameData(ctx context.Context, gameID, source string, payload []byte, ttlHours int) error
	GetCachedGameData(ctx context.Context, gameID, source string) (*domain.CacheEntry, error)
	LogActivity(ctx context.Context, entry *domain.ActivityLogEntry) error
	GetUserActivity(ctx context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error)
	ClearExpiredCache(ctx context.Context) (int64, error)
	ArchiveOldLogs(ctx context.Context, olderThan time.Time) (int64, error)
	DeleteUserData(ctx context.Context, userID string) error
	Counts(ctx context.Context) (likes, comments, lists, activities int64, err error)
}

// ActivityBroadcaster pushes a freshly logged activity entry to live
// subscribers. Best-effort; a nil broadcaster is valid.
type ActivityBroadcaster interface {
	BroadcastActivity(entry domain.ActivityLogEntry)
}

// Coordinator routes each operation to the store that owns the data and
// composes the cross-store flows: registration, erasure, statistics and
// maintenance. Both stores are injected, so either side can be swapped
// or faked without touching this package.
type Coordinator struct {
	relational  RelationalStore
	documents   DocumentStore
	broadcaster ActivityBroadcaster
	logger      *slog.Logger

	likesPageSize    int
	commentsPageSize int
	activityPageSize int
	cacheTTLHours    int
	logRetention     time.Duration
	now              func() time.Time
}

// New creates a coordinator over the two injected stores. broadcaster
// may be nil.
func New(relational RelationalStore, documents DocumentStore, broadcaster ActivityBroadcaster, cfg *config.Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		relational:       relational,
		documents:        documents,
		broadcaster:      broadcaster,
		logger:           logger,
		likesPageSize:    cfg.Coordinator.LikesPageSize,
		commentsPageSize: cfg.Coordinator.CommentsPageSize,
		activityPageSize: cfg.Coordinator.ActivityPageSize,
		cacheTTLHours:    cfg.Coordinator.CacheTTLHours,
		logRetention:     time.Duration(cfg.Maintenance.LogRetainDays) * 24 * time.Hour,
		now:              time.Now,
	}
}

// logActivity records a side-effect activity entry. Failures here are
// logged and swallowed: activity logging is observability, and it must
// never turn a succeeded primary operation into an error.
func (c *Coordinator) logActivity(ctx context.Context, kind domain.ActivityKind, userID, resourceID string, metadata map[string]string) {
	entry := domain.ActivityLogEntry{
		UserID:     userID,
		Kind:       kind,
		ResourceID: resourceID,
		Metadata:   metadata,
	}
	if err := c.documents.LogActivity(ctx, &entry); err != nil {
		c.logger.Warn("activity log write failed",
			"kind", kind, "user_id", userID, "error", err)
		return
	}
	if c.broadcaster != nil {
		c.broadcaster.BroadcastActivity(entry)
	}
}

// RegisterUser creates the authoritative identity record for a new user
func (c *Coordinator) RegisterUser(ctx context.Context, user *domain.UserRecord) (*domain.UserRecord, error) {
	if user.Email == "" || user.Username == "" {
		return nil, domain.ErrInvalidRequest
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	if err := c.relational.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	c.logActivity(ctx, domain.ActivityRegister, user.ID, "", nil)
	return user, nil
}

// GetUserProfile returns a user's record together with their active
// subscription, or ErrUserNotFound
func (c *Coordinator) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	user, err := c.relational.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	subscription, err := c.relational.GetUserSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}

	return &domain.UserProfile{User: *user, Subscription: subscription}, nil
}

// GetUserProfileByUsername resolves a username to its profile, or
// ErrUserNotFound
func (c *Coordinator) GetUserProfileByUsername(ctx context.Context, username string) (*domain.UserProfile, error) {
	user, err := c.relational.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return c.GetUserProfile(ctx, user.ID)
}

// UpdateProfile applies a partial profile update
func (c *Coordinator) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserRecord, error) {
	user, err := c.relational.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// Follow creates a follow edge from follower to followed. Self-follows,
// duplicate follows and private targets are rejected with typed errors.
func (c *Coordinator) Follow(ctx context.Context, followerID, followedID string) error {
	if err := c.relational.Follow(ctx, followerID, followedID); err != nil {
		return err
	}
	c.logActivity(ctx, domain.ActivityFollow, followerID, followedID, nil)
	return nil
}

// Unfollow removes a follow edge. Removing an absent edge is a no-op.
func (c *Coordinator) Unfollow(ctx context.Context, followerID, followedID string) error {
	return c.relational.Unfollow(ctx, followerID, followedID)
}

// GetFollowers returns the users following userID
func (c *Coordinator) GetFollowers(ctx context.Context, userID string) ([]domain.FollowEdge, error) {
	return c.relational.GetFollowers(ctx, userID, c.activityPageSize)
}

// GetFollowing returns the users userID follows
func (c *Coordinator) GetFollowing(ctx context.Context, userID string) ([]domain.FollowEdge, error) {
	return c.relational.GetFollowing(ctx, userID, c.activityPageSize)
}

// ToggleLike flips a user's like of a game and returns the resulting
// state. The user must exist on the relational side before any document
// write happens, so a like for an unknown user never leaves orphaned
// document data. Either direction records a like activity entry whose
// metadata carries the resulting state.
func (c *Coordinator) ToggleLike(ctx context.Context, userID, gameID string) (bool, error) {
	user, err := c.relational.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("verifying user: %w", err)
	}
	if user == nil {
		return false, domain.ErrUserNotFound
	}

	added, err := c.documents.AddLike(ctx, userID, gameID)
	if err != nil {
		return false, fmt.Errorf("adding like: %w", err)
	}
	if !added {
		if _, err := c.documents.RemoveLike(ctx, userID, gameID); err != nil {
			return false, fmt.Errorf("removing like: %w", err)
		}
		c.logActivity(ctx, domain.ActivityLike, userID, gameID, map[string]string{"liked": "false"})
		return false, nil
	}

	c.logActivity(ctx, domain.ActivityLike, userID, gameID, map[string]string{"liked": "true"})
	return true, nil
}

// GetUserLikes returns the user's likes, most recent first
func (c *Coordinator) GetUserLikes(ctx context.Context, userID string) ([]domain.LikeRecord, error) {
	return c.documents.GetUserLikes(ctx, userID, c.likesPageSize)
}

// PostComment validates and stores a comment on a game
func (c *Coordinator) PostComment(ctx context.Context, comment *domain.CommentRecord) (*domain.CommentRecord, error) {
	if comment.Content == "" || comment.GameID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if comment.Rating < 0 || comment.Rating > 5 {
		return nil, domain.ErrInvalidRequest
	}

	user, err := c.relational.GetUser(ctx, comment.UserID)
	if err != nil {
		return nil, fmt.Errorf("verifying user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if err := c.documents.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	c.logActivity(ctx, domain.ActivityComment, comment.UserID, comment.GameID, nil)
	return comment, nil
}

// GetGameComments returns the comments on a game, newest first
func (c *Coordinator) GetGameComments(ctx context.Context, gameID string) ([]domain.CommentRecord, error) {
	return c.documents.GetGameComments(ctx, gameID, c.commentsPageSize)
}

// AddGameToUserList appends a game to the user's named list, creating
// the list on first use. Returns the list and whether the game was newly
// added.
func (c *Coordinator) AddGameToUserList(ctx context.Context, userID, listName, gameID string) (*domain.UserListRecord, bool, error) {
	if listName == "" || gameID == "" {
		return nil, false, domain.ErrInvalidRequest
	}

	user, err := c.relational.GetUser(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("verifying user: %w", err)
	}
	if user == nil {
		return nil, false, domain.ErrUserNotFound
	}

	list, err := c.documents.GetOrCreateList(ctx, userID, listName)
	if err != nil {
		return nil, false, fmt.Errorf("resolving list: %w", err)
	}
	if list == nil {
		return nil, false, domain.NewStoreError(domain.FailureAuthorization, "coordinator: add game to list", domain.ErrStoreDisabled)
	}

	added, err := c.documents.AddGameToList(ctx, list.ID, gameID)
	if err != nil {
		return nil, false, fmt.Errorf("adding game to list: %w", err)
	}

	list, err = c.documents.GetList(ctx, list.ID)
	if err != nil {
		return nil, false, fmt.Errorf("reloading list: %w", err)
	}
	if list == nil {
		return nil, false, domain.ErrListNotFound
	}

	if added {
		c.logActivity(ctx, domain.ActivityAddToList, userID, gameID, nil)
	}
	return list, added, nil
}

// GetUserLists returns all of a user's lists
func (c *Coordinator) GetUserLists(ctx context.Context, userID string) ([]domain.UserListRecord, error) {
	return c.documents.GetUserLists(ctx, userID)
}

// CacheGameData stores externally fetched game metadata. A negative
// ttlHours selects the configured default.
func (c *Coordinator) CacheGameData(ctx context.Context, gameID, source string, payload []byte, ttlHours int) error {
	if ttlHours < 0 {
		ttlHours = c.cacheTTLHours
	}
	return c.documents.CacheGameData(ctx, gameID, source, payload, ttlHours)
}

// GetCachedGameData returns cached game metadata, or nil on a miss
func (c *Coordinator) GetCachedGameData(ctx context.Context, gameID, source string) (*domain.CacheEntry, error) {
	return c.documents.GetCachedGameData(ctx, gameID, source)
}

// RecordActivity validates and appends an activity event submitted over
// the wire. This is the primary operation for ingestion paths, so unlike
// side-effect logging its failures are returned to the caller.
func (c *Coordinator) RecordActivity(ctx context.Context, event domain.ActivityEvent) (*domain.ActivityLogEntry, error) {
	if event.UserID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if !event.Kind.Valid() {
		return nil, domain.ErrInvalidActivity
	}

	entry := domain.ActivityLogEntry{
		UserID:     event.UserID,
		Kind:       event.Kind,
		ResourceID: event.ResourceID,
		Metadata:   event.Metadata,
	}
	if err := c.documents.LogActivity(ctx, &entry); err != nil {
		return nil, fmt.Errorf("logging activity: %w", err)
	}

	if c.broadcaster != nil {
		c.broadcaster.BroadcastActivity(entry)
	}
	return &entry, nil
}

// GetUserActivity returns a user's activity entries, newest first
func (c *Coordinator) GetUserActivity(ctx context.Context, userID string) ([]domain.ActivityLogEntry, error) {
	return c.documents.GetUserActivity(ctx, userID, c.activityPageSize)
}

// UpgradeSubscription moves a user to the premium plan
func (c *Coordinator) UpgradeSubscription(ctx context.Context, userID, billingRef string) (*domain.SubscriptionRecord, error) {
	return c.relational.UpgradeSubscription(ctx, userID, billingRef)
}

// CancelSubscription ends a user's active subscription
func (c *Coordinator) CancelSubscription(ctx context.Context, userID string) error {
	return c.relational.CancelSubscription(ctx, userID)
}

// DeleteAllUserData erases a user's footprint across both stores for an
// account-deletion request. The document side goes first: the relational
// identity row is the anchor for retries, so it is only removed once the
// document erasure has fully succeeded. Any failure yields a per-side
// report and ErrPartialErasure, never a blanket success.
func (c *Coordinator) DeleteAllUserData(ctx context.Context, userID string) (domain.ErasureReport, error) {
	report := domain.ErasureReport{UserID: userID}

	if err := c.documents.DeleteUserData(ctx, userID); err != nil {
		report.DocumentError = err.Error()
		report.RelationalError = "skipped: document erasure failed"
		c.logger.Error("document erasure failed",
			"user_id", userID, "error", err)
		return report, domain.ErrPartialErasure
	}
	report.DocumentOK = true

	if err := c.relational.DeleteUserData(ctx, userID); err != nil {
		report.RelationalError = err.Error()
		c.logger.Error("relational erasure failed",
			"user_id", userID, "error", err)
		return report, domain.ErrPartialErasure
	}
	report.RelationalOK = true

	c.logger.Info("user data erased", "user_id", userID)
	return report, nil
}

// HealthCheck probes both stores concurrently. The system is up when at
// least one store answers.
func (c *Coordinator) HealthCheck(ctx context.Context) domain.HealthStatus {
	var status domain.HealthStatus

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status.Relational = c.relational.Ping(gctx) == nil
		return nil
	})
	g.Go(func() error {
		status.Document = c.documents.Ping(gctx) == nil
		return nil
	})
	_ = g.Wait()

	status.Overall = status.Relational || status.Document
	return status
}

// GetGlobalStats assembles aggregate counts from both stores. A side
// that fails to answer contributes zeros and is flagged unhealthy; the
// snapshot itself always succeeds.
func (c *Coordinator) GetGlobalStats(ctx context.Context) domain.GlobalStats {
	stats := domain.GlobalStats{GeneratedAt: c.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, follows, premium, err := c.relational.Counts(gctx)
		if err != nil {
			c.logger.Warn("relational counts unavailable", "error", err)
			return nil
		}
		stats.Users = users
		stats.Follows = follows
		stats.PremiumUsers = premium
		stats.RelationalOK = true
		return nil
	})
	g.Go(func() error {
		likes, comments, lists, activities, err := c.documents.Counts(gctx)
		if err != nil {
			c.logger.Warn("document counts unavailable", "error", err)
			return nil
		}
		stats.Likes = likes
		stats.Comments = comments
		stats.Lists = lists
		stats.Activities = activities
		stats.DocumentOK = true
		return nil
	})
	_ = g.Wait()

	return stats
}

// RunMaintenance executes one cleanup pass: expired cache entries are
// swept and activity entries past the retention window are pruned. The
// pass is skipped entirely when the document adapter is disabled.
func (c *Coordinator) RunMaintenance(ctx context.Context) (domain.MaintenanceReport, error) {
	var report domain.MaintenanceReport

	if !c.documents.Enabled() {
		report.Skipped = true
		c.logger.Warn("maintenance skipped, document store disabled")
		return report, nil
	}

	expired, err := c.documents.ClearExpiredCache(ctx)
	if err != nil {
		return report, fmt.Errorf("clearing expired cache: %w", err)
	}
	report.ExpiredCacheEntries = expired

	cutoff := c.now().Add(-c.logRetention)
	archived, err := c.documents.ArchiveOldLogs(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("archiving old logs: %w", err)
	}
	report.ArchivedLogEntries = archived

	c.logger.Info("maintenance pass completed",
		"expired_cache_entries", expired,
		"archived_log_entries", archived)
	return report, nil
}
