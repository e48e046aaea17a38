package relational

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gamecrate-api/internal/config"
	"github.com/gamecrate-api/internal/domain"
)

// Store is the typed adapter over the authoritative relational store:
// user records, the follow graph and subscription state. Operations
// return nil (not an error) for "not found" and classify every store
// failure into the domain taxonomy at this boundary.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates the relational adapter. A config missing required
// connection parameters produces an adapter that is unavailable from
// process start: every call returns a typed connectivity failure without
// attempting I/O. An unreachable but fully configured store is not a
// construction error; connectivity failures surface per call and are
// retryable.
func NewStore(cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	if !cfg.Complete() {
		logger.Warn("relational store not configured, adapter unavailable")
		return &Store{logger: logger, now: time.Now}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, domain.NewStoreError(domain.FailureUnknown, "relational: parse config", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, classify("relational: create pool", err)
	}

	return &Store{pool: pool, logger: logger, now: time.Now}, nil
}

// Available reports whether the adapter was constructed with a complete
// configuration
func (s *Store) Available() bool {
	return s.pool != nil
}

// Close closes the connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping executes a minimal read against the store. Side-effect-free.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return s.unavailable("relational: ping")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return classify("relational: ping", err)
	}
	return nil
}

func (s *Store) unavailable(op string) error {
	return domain.NewStoreError(domain.FailureConnectivity, op, domain.ErrStoreUnavailable)
}

// classify wraps a pgx error into the closed failure taxonomy. SQLSTATE
// class 28 is authorization, class 08 and network/timeout errors are
// connectivity, class 23 is a constraint conflict.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "28":
			return domain.NewStoreError(domain.FailureAuthorization, op, err)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return domain.NewStoreError(domain.FailureConnectivity, op, err)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23":
			return domain.NewStoreError(domain.FailureConflict, op, err)
		}
		return domain.NewStoreError(domain.FailureUnknown, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return domain.NewStoreError(domain.FailureConnectivity, op, err)
	}
	return domain.NewStoreError(domain.FailureUnknown, op, err)
}

// RunMigrations executes database migrations
func (s *Store) RunMigrations(ctx context.Context) error {
	if s.pool == nil {
		return s.unavailable("relational: migrate")
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			username VARCHAR(64) NOT NULL UNIQUE,
			premium BOOLEAN NOT NULL DEFAULT FALSE,
			private BOOLEAN NOT NULL DEFAULT FALSE,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			avatar_url TEXT NOT NULL DEFAULT '',
			banner_url TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL REFERENCES users(id),
			plan VARCHAR(20) NOT NULL DEFAULT 'free',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			billing_ref VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_one_active
			ON subscriptions(user_id) WHERE status = 'active'`,
		`CREATE TABLE IF NOT EXISTS follow_edges (
			follower_id VARCHAR(64) NOT NULL REFERENCES users(id),
			followed_id VARCHAR(64) NOT NULL REFERENCES users(id),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (follower_id, followed_id),
			CHECK (follower_id <> followed_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_follow_edges_followed
			ON follow_edges(followed_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return classify("relational: migrate", err)
		}
	}

	s.logger.Info("relational migrations completed")
	return nil
}

// CreateUser inserts the authoritative identity row for a new user
func (s *Store) CreateUser(ctx context.Context, user *domain.UserRecord) error {
	if s.pool == nil {
		return s.unavailable("relational: create user")
	}

	query := `
		INSERT INTO users (id, email, username, premium, private, verified,
			avatar_url, banner_url, bio, location, website, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := s.pool.Exec(ctx, query,
		user.ID, user.Email, user.Username,
		user.Premium, user.Private, user.Verified,
		user.AvatarURL, user.BannerURL, user.Bio, user.Location, user.Website,
		now,
	)
	if err != nil {
		return classify("relational: create user", err)
	}
	return nil
}

const userColumns = `id, email, username, premium, private, verified,
	avatar_url, banner_url, bio, location, website, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.UserRecord, error) {
	var u domain.UserRecord
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.Premium, &u.Private, &u.Verified,
		&u.AvatarURL, &u.BannerURL, &u.Bio, &u.Location, &u.Website,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns a user by id, or nil when no such user exists
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.UserRecord, error) {
	if s.pool == nil {
		return nil, s.unavailable("relational: get user")
	}

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("relational: get user", err)
	}
	return user, nil
}

// GetUserByUsername returns a user by username, or nil when absent
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserRecord, error) {
	if s.pool == nil {
		return nil, s.unavailable("relational: get user by username")
	}

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("relational: get user by username", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update to a user's profile
// and returns the updated record, or nil when the user does not exist
func (s *Store) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserRecord, error) {
	if s.pool == nil {
		return nil, s.unavailable("relational: update profile")
	}

	query := `
		UPDATE users SET
			avatar_url = COALESCE($2, avatar_url),
			banner_url = COALESCE($3, banner_url),
			bio = COALESCE($4, bio),
			location = COALESCE($5, location),
			website = COALESCE($6, website),
			private = COALESCE($7, private),
			updated_at = $8
		WHERE id = $1
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, userID,
		update.AvatarURL, update.BannerURL, update.Bio,
		update.Location, update.Website, update.Private,
		s.now(),
	)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("relational: update profile", err)
	}
	return user, nil
}

// Follow inserts a follow edge. Duplicate edges and self-edges are
// rejected by the store's constraints and surfaced as typed conflicts;
// a private target is rejected by the guarded insert.
func (s *Store) Follow(ctx context.Context, followerID, followedID string) error {
	if s.pool == nil {
		return s.unavailable("relational: follow")
	}
	if followerID == followedID {
		return domain.ErrSelfFollow
	}

	query := `
		INSERT INTO follow_edges (follower_id, followed_id, created_at)
		SELECT $1, $2, $3
		WHERE EXISTS (SELECT 1 FROM users WHERE id = $2 AND NOT private)
	`
	result, err := s.pool.Exec(ctx, query, followerID, followedID, s.now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return domain.ErrAlreadyFollowing
			case "23514":
				return domain.ErrSelfFollow
			case "23503":
				return domain.ErrUserNotFound
			}
		}
		return classify("relational: follow", err)
	}
	if result.RowsAffected() == 0 {
		// The guard suppressed the insert: target missing or private.
		target, err := s.GetUser(ctx, followedID)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.ErrUserNotFound
		}
		return domain.ErrPrivateAccount
	}
	return nil
}

// Unfollow deletes a follow edge. Removing an absent edge is a no-op.
func (s *Store) Unfollow(ctx context.Context, followerID, followedID string) error {
	if s.pool == nil {
		return s.unavailable("relational: unfollow")
	}

	query := `DELETE FROM follow_edges WHERE follower_id = $1 AND followed_id = $2`
	if _, err := s.pool.Exec(ctx, query, followerID, followedID); err != nil {
		return classify("relational: unfollow", err)
	}
	return nil
}

// GetFollowers returns the edges pointing at a user, newest first
func (s *Store) GetFollowers(ctx context.Context, userID string, limit int) ([]domain.FollowEdge, error) {
	return s.queryEdges(ctx, `
		SELECT follower_id, followed_id, created_at
		FROM follow_edges
		WHERE followed_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
}

// GetFollowing returns the edges originating from a user, newest first
func (s *Store) GetFollowing(ctx context.Context, userID string, limit int) ([]domain.FollowEdge, error) {
	return s.queryEdges(ctx, `
		SELECT follower_id, followed_id, created_at
		FROM follow_edges
		WHERE follower_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
}

func (s *Store) queryEdges(ctx context.Context, query, userID string, limit int) ([]domain.FollowEdge, error) {
	if s.pool == nil {
		return nil, s.unavailable("relational: list edges")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, classify("relational: list edges", err)
	}
	defer rows.Close()

	var edges []domain.FollowEdge
	for rows.Next() {
		var edge domain.FollowEdge
		if err := rows.Scan(&edge.FollowerID, &edge.FollowedID, &edge.CreatedAt); err != nil {
			return nil, classify("relational: scan edge", err)
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// UpgradeSubscription cancels the prior active subscription, inserts a
// new active premium record and flips the user's premium flag, all in
// one transaction so the flag can never be set while the insert failed.
func (s *Store) UpgradeSubscription(ctx context.Context, userID, billingRef string) (*domain.SubscriptionRecord, error) {
	if s.pool == nil {
		return nil, s.unavailable("relational: upgrade subscription")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classify("relational: upgrade subscription", err)
	}
	defer tx.Rollback(ctx)

	now := s.now()
	_, err = tx.Exec(ctx, `
		UPDATE subscriptions SET status = 'cancelled', updated_at = $2
		WHERE user_id = $1 AND status = 'active'
	`, userID, now)
	if err != nil {
		return nil, classify("relational: cancel prior subscription", err)
	}

	var record domain.SubscriptionRecord
	err = tx.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, billing_ref, created_at, updated_at)
		VALUES ($1, 'premium', 'active', $2, $3, $3)
		RETURNING id, user_id, plan, status, billing_ref, created_at, updated_at
	`, userID, billingRef, now).Scan(
		&record.ID, &record.UserID, &record.Plan, &record.Status,
		&record.BillingRef, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.ErrUserNotFound
		}
		return nil, classify("relational: insert subscription", err)
	}

	// Premium flag flips last; a failed insert never leaves it set.
	if _, err := tx.Exec(ctx, `
		UPDATE users SET premium = TRUE, updated_at = $2 WHERE id = $1
	`, userID, now); err != nil {
		return nil, classify("relational: flip premium flag", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("relational: upgrade subscription", err)
	}
	return &record, nil
}

// CancelSubscription marks the active subscription cancelled and clears
// the premium flag. Cancelling with no active subscription is a no-op.
func (s *Store) CancelSubscription(ctx context.Context, userID string) error {
	if s.pool == nil {
		return s.unavailable("relational: cancel subscription")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("relational: cancel subscription", err)
	}
	defer tx.Rollback(ctx)

	now := s.now()
	if _, err := tx.Exec(ctx, `
		UPDATE subscriptions SET status = 'cancelled', updated_at = $2
		WHERE user_id = $1 AND status = 'active'
	`, userID, now); err != nil {
		return classify("relational: cancel subscription", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users SET premium = FALSE, updated_at = $2 WHERE id = $1
	`, userID, now); err != nil {
		return classify("relational: clear premium flag", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("relational: cancel subscription", err)
	}
	return nil
}

// GetUserSubscription returns the single active subscription for a user,
// or nil when none is active
func (s *Store) GetUserSubscription(ctx context.Context, userID string) (*domain.SubscriptionRecord, error) {
	if s.pool == nil {
		return nil, s.unavailable("relational: get subscription")
	}

	var record domain.SubscriptionRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, plan, status, billing_ref, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1 AND status = 'active'
	`, userID).Scan(
		&record.ID, &record.UserID, &record.Plan, &record.Status,
		&record.BillingRef, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("relational: get subscription", err)
	}
	return &record, nil
}

// DeleteUserData removes the user's relational footprint: follow edges
// in both directions, then subscriptions, then the user row, respecting
// the store's foreign keys. Deleting an absent user is a no-op, which
// keeps the erasure operation safe to retry.
func (s *Store) DeleteUserData(ctx context.Context, userID string) error {
	if s.pool == nil {
		return s.unavailable("relational: delete user data")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("relational: delete user data", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM follow_edges WHERE follower_id = $1 OR followed_id = $1`,
		`DELETE FROM subscriptions WHERE user_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.Exec(ctx, step, userID); err != nil {
			return classify("relational: delete user data", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("relational: delete user data", err)
	}
	return nil
}

// Counts returns aggregate totals for the statistics snapshot
func (s *Store) Counts(ctx context.Context) (users, follows, premium int64, err error) {
	if s.pool == nil {
		return 0, 0, 0, s.unavailable("relational: counts")
	}

	if err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		return 0, 0, 0, classify("relational: count users", err)
	}
	if err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM follow_edges`).Scan(&follows); err != nil {
		return 0, 0, 0, classify("relational: count follows", err)
	}
	if err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE premium`).Scan(&premium); err != nil {
		return 0, 0, 0, classify("relational: count premium", err)
	}
	return users, follows, premium, nil
}
