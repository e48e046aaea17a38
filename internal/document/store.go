package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gamecrate-api/internal/config"
	"github.com/gamecrate-api/internal/domain"
)

const (
	activityLogKey      = "activity:log"
	cacheIndexKey       = "cache:index"
	likesCounterKey     = "counters:likes"
	commentsCounterKey  = "counters:comments"
	listsCounterKey     = "counters:lists"
	activityCounterKey  = "counters:activities"
	defaultActivityPage = 100
)

// Store is the adapter over the document store holding the volatile,
// high-churn side of the catalogue: likes, comments, lists, cached game
// data and the activity log.
//
// Authorization failures from the store disable the adapter for the
// rest of the process lifetime: the flag is write-once and never
// cleared, so a store that rejects credentials is not hammered with
// doomed requests. Plain connectivity failures never trip the flag.
// While disabled, reads and writes return empty results without
// attempting I/O; only Ping and DeleteUserData still fail loudly, since
// health must reflect the outage and an erasure must never be silently
// skipped.
type Store struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time

	disabled    atomic.Bool
	disableOnce sync.Once
}

// NewStore creates the document adapter. An empty address is not an
// error: the adapter is constructed already disabled and every call
// short-circuits instead of attempting I/O.
func NewStore(cfg *config.RedisConfig, logger *slog.Logger) *Store {
	store := &Store{
		logger: logger,
		now:    time.Now,
	}

	if cfg.Addr == "" {
		store.disabled.Store(true)
		logger.Warn("document store not configured, adapter disabled")
		return store
	}

	store.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return store
}

// Enabled reports whether the adapter is still accepting operations
func (s *Store) Enabled() bool {
	return !s.disabled.Load()
}

// Close closes the client connection
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Ping executes a health probe against the store. Side-effect-free. A
// disabled adapter reports unhealthy rather than silently passing.
func (s *Store) Ping(ctx context.Context) error {
	if s.disabled.Load() {
		return domain.NewStoreError(domain.FailureAuthorization, "document: ping", domain.ErrStoreDisabled)
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.fail("document: ping", err)
	}
	return nil
}

// fail classifies a store error and, when it is an authorization
// failure, trips the process-lifetime disable flag.
func (s *Store) fail(op string, err error) error {
	classified := classify(op, err)
	if domain.IsAuthorizationFailure(classified) {
		s.disableOnce.Do(func() {
			s.disabled.Store(true)
			s.logger.Error("document store rejected credentials, disabling adapter for process lifetime",
				"op", op, "error", err)
		})
	}
	return classified
}

// classify wraps a client error into the closed failure taxonomy. Server
// replies carry their code as the leading token; NOAUTH, WRONGPASS and
// NOPERM are authorization, transport and timeout errors are
// connectivity.
func classify(op string, err error) error {
	if redis.HasErrorPrefix(err, "NOAUTH") ||
		redis.HasErrorPrefix(err, "WRONGPASS") ||
		redis.HasErrorPrefix(err, "NOPERM") ||
		redis.HasErrorPrefix(err, "ERR AUTH") {
		return domain.NewStoreError(domain.FailureAuthorization, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return domain.NewStoreError(domain.FailureConnectivity, op, err)
	}
	return domain.NewStoreError(domain.FailureUnknown, op, err)
}

func (s *Store) userLikesKey(userID string) string {
	return fmt.Sprintf("user:%s:likes", userID)
}

func (s *Store) commentKey(commentID string) string {
	return fmt.Sprintf("comment:%s", commentID)
}

func (s *Store) gameCommentsKey(gameID string) string {
	return fmt.Sprintf("game:%s:comments", gameID)
}

func (s *Store) userCommentsKey(userID string) string {
	return fmt.Sprintf("user:%s:comments", userID)
}

func (s *Store) userListsKey(userID string) string {
	return fmt.Sprintf("user:%s:lists", userID)
}

func (s *Store) listKey(listID string) string {
	return fmt.Sprintf("list:%s", listID)
}

func (s *Store) listGamesKey(listID string) string {
	return fmt.Sprintf("list:%s:games", listID)
}

func (s *Store) cacheKey(gameID, source string) string {
	return fmt.Sprintf("cache:%s:%s", gameID, source)
}

func (s *Store) activityKey(entryID string) string {
	return fmt.Sprintf("activity:%s", entryID)
}

func (s *Store) userActivityKey(userID string) string {
	return fmt.Sprintf("user:%s:activity", userID)
}

// AddLike records a like of a game by a user. Returns true when the
// like was newly added, false when it was already present.
func (s *Store) AddLike(ctx context.Context, userID, gameID string) (bool, error) {
	if s.disabled.Load() {
		return false, nil
	}

	added, err := s.client.ZAddNX(ctx, s.userLikesKey(userID), redis.Z{
		Score:  float64(s.now().Unix()),
		Member: gameID,
	}).Result()
	if err != nil {
		return false, s.fail("document: add like", err)
	}
	if added > 0 {
		if err := s.client.Incr(ctx, likesCounterKey).Err(); err != nil {
			return false, s.fail("document: add like", err)
		}
	}
	return added > 0, nil
}

// RemoveLike deletes a like. Returns true when a like was actually
// removed, false when none existed.
func (s *Store) RemoveLike(ctx context.Context, userID, gameID string) (bool, error) {
	if s.disabled.Load() {
		return false, nil
	}

	removed, err := s.client.ZRem(ctx, s.userLikesKey(userID), gameID).Result()
	if err != nil {
		return false, s.fail("document: remove like", err)
	}
	if removed > 0 {
		if err := s.client.Decr(ctx, likesCounterKey).Err(); err != nil {
			return false, s.fail("document: remove like", err)
		}
	}
	return removed > 0, nil
}

// GetUserLikes returns the user's likes, most recent first
func (s *Store) GetUserLikes(ctx context.Context, userID string, limit int) ([]domain.LikeRecord, error) {
	if s.disabled.Load() {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultActivityPage
	}

	entries, err := s.client.ZRevRangeWithScores(ctx, s.userLikesKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, s.fail("document: get likes", err)
	}

	likes := make([]domain.LikeRecord, 0, len(entries))
	for _, entry := range entries {
		gameID, ok := entry.Member.(string)
		if !ok {
			continue
		}
		likes = append(likes, domain.LikeRecord{
			UserID:    userID,
			GameID:    gameID,
			CreatedAt: time.Unix(int64(entry.Score), 0).UTC(),
		})
	}
	return likes, nil
}

// CreateComment stores a comment and indexes it under its game and its
// author. Assigns the comment id when the caller left it empty.
func (s *Store) CreateComment(ctx context.Context, comment *domain.CommentRecord) error {
	if s.disabled.Load() {
		return nil
	}

	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	now := s.now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	payload, err := json.Marshal(comment)
	if err != nil {
		return fmt.Errorf("marshaling comment: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.commentKey(comment.ID), payload, 0)
	pipe.ZAdd(ctx, s.gameCommentsKey(comment.GameID), redis.Z{
		Score:  float64(now.Unix()),
		Member: comment.ID,
	})
	pipe.SAdd(ctx, s.userCommentsKey(comment.UserID), comment.ID)
	pipe.Incr(ctx, commentsCounterKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.fail("document: create comment", err)
	}
	return nil
}

// GetComment returns a comment by id, or nil when absent
func (s *Store) GetComment(ctx context.Context, commentID string) (*domain.CommentRecord, error) {
	if s.disabled.Load() {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.commentKey(commentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, s.fail("document: get comment", err)
	}

	var comment domain.CommentRecord
	if err := json.Unmarshal(raw, &comment); err != nil {
		return nil, fmt.Errorf("unmarshaling comment: %w", err)
	}
	return &comment, nil
}

// GetGameComments returns the comments on a game, newest first
func (s *Store) GetGameComments(ctx context.Context, gameID string, limit int) ([]domain.CommentRecord, error) {
	if s.disabled.Load() {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultActivityPage
	}

	ids, err := s.client.ZRevRange(ctx, s.gameCommentsKey(gameID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, s.fail("document: get game comments", err)
	}

	comments := make([]domain.CommentRecord, 0, len(ids))
	for _, id := range ids {
		comment, err := s.GetComment(ctx, id)
		if err != nil {
			return nil, err
		}
		if comment != nil {
			comments = append(comments, *comment)
		}
	}
	return comments, nil
}

type listMeta struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetOrCreateList returns the user's list with the given name, creating
// it when it does not exist yet. The per-user name index makes repeated
// calls converge on a single list.
func (s *Store) GetOrCreateList(ctx context.Context, userID, name string) (*domain.UserListRecord, error) {
	if s.disabled.Load() {
		return nil, nil
	}

	listID := uuid.New().String()
	created, err := s.client.HSetNX(ctx, s.userListsKey(userID), name, listID).Result()
	if err != nil {
		return nil, s.fail("document: get or create list", err)
	}
	if !created {
		existingID, err := s.client.HGet(ctx, s.userListsKey(userID), name).Result()
		if err != nil {
			return nil, s.fail("document: get or create list", err)
		}
		return s.GetList(ctx, existingID)
	}

	now := s.now()
	meta := listMeta{
		ID:        listID,
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling list: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.listKey(listID), payload, 0)
	pipe.Incr(ctx, listsCounterKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, s.fail("document: get or create list", err)
	}

	return &domain.UserListRecord{
		ID:        meta.ID,
		UserID:    meta.UserID,
		Name:      meta.Name,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
	}, nil
}

// GetList returns a list with its games in insertion order, or nil when
// no such list exists
func (s *Store) GetList(ctx context.Context, listID string) (*domain.UserListRecord, error) {
	if s.disabled.Load() {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.listKey(listID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, s.fail("document: get list", err)
	}

	var meta listMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshaling list: %w", err)
	}

	gameIDs, err := s.client.ZRange(ctx, s.listGamesKey(listID), 0, -1).Result()
	if err != nil {
		return nil, s.fail("document: get list", err)
	}

	return &domain.UserListRecord{
		ID:          meta.ID,
		UserID:      meta.UserID,
		Name:        meta.Name,
		Description: meta.Description,
		GameIDs:     gameIDs,
		Public:      meta.Public,
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	}, nil
}

// GetUserLists returns all of a user's lists
func (s *Store) GetUserLists(ctx context.Context, userID string) ([]domain.UserListRecord, error) {
	if s.disabled.Load() {
		return nil, nil
	}

	index, err := s.client.HGetAll(ctx, s.userListsKey(userID)).Result()
	if err != nil {
		return nil, s.fail("document: get user lists", err)
	}

	lists := make([]domain.UserListRecord, 0, len(index))
	for _, listID := range index {
		list, err := s.GetList(ctx, listID)
		if err != nil {
			return nil, err
		}
		if list != nil {
			lists = append(lists, *list)
		}
	}
	return lists, nil
}

// AddGameToList appends a game to a list, preserving insertion order.
// Adding a game that is already present leaves the list unchanged and
// returns false.
func (s *Store) AddGameToList(ctx context.Context, listID, gameID string) (bool, error) {
	if s.disabled.Load() {
		return false, nil
	}

	exists, err := s.client.Exists(ctx, s.listKey(listID)).Result()
	if err != nil {
		return false, s.fail("document: add game to list", err)
	}
	if exists == 0 {
		return false, domain.ErrListNotFound
	}

	// NX keeps the original score on re-add, so position is stable.
	added, err := s.client.ZAddNX(ctx, s.listGamesKey(listID), redis.Z{
		Score:  float64(s.now().UnixNano()),
		Member: gameID,
	}).Result()
	if err != nil {
		return false, s.fail("document: add game to list", err)
	}
	return added > 0, nil
}

// CacheGameData upserts a payload fetched from an external game source,
// valid for ttlHours from now. Expiry is an explicit timestamp on the
// entry rather than a store TTL, so reads and the maintenance sweep
// share one clock. A non-positive ttl produces an entry that is already
// expired and will never be served.
func (s *Store) CacheGameData(ctx context.Context, gameID, source string, payload []byte, ttlHours int) error {
	if s.disabled.Load() {
		return nil
	}

	now := s.now()
	entry := domain.CacheEntry{
		GameID:      gameID,
		Source:      source,
		Payload:     payload,
		LastUpdated: now,
		ExpiresAt:   now.Add(time.Duration(ttlHours) * time.Hour),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	key := s.cacheKey(gameID, source)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, raw, 0)
	pipe.ZAdd(ctx, cacheIndexKey, redis.Z{
		Score:  float64(entry.ExpiresAt.Unix()),
		Member: key,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return s.fail("document: cache game data", err)
	}
	return nil
}

// GetCachedGameData returns the cached payload for a game and source,
// or nil when absent or expired. An expired entry is deleted on read so
// it can never be served again, even before the next maintenance sweep.
func (s *Store) GetCachedGameData(ctx context.Context, gameID, source string) (*domain.CacheEntry, error) {
	if s.disabled.Load() {
		return nil, nil
	}

	key := s.cacheKey(gameID, source)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, s.fail("document: get cached game data", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("unmarshaling cache entry: %w", err)
	}
	if !entry.ExpiresAt.After(s.now()) {
		pipe := s.client.Pipeline()
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, cacheIndexKey, key)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, s.fail("document: get cached game data", err)
		}
		return nil, nil
	}
	return &entry, nil
}

// ClearExpiredCache deletes every cache entry whose expiry has passed
// and returns the exact number of entries removed. A second sweep with
// no intervening writes removes nothing.
func (s *Store) ClearExpiredCache(ctx context.Context) (int64, error) {
	if s.disabled.Load() {
		return 0, nil
	}

	cutoff := fmt.Sprintf("%d", s.now().Unix())
	keys, err := s.client.ZRangeByScore(ctx, cacheIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return 0, s.fail("document: clear expired cache", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, s.fail("document: clear expired cache", err)
	}
	if err := s.client.ZRemRangeByScore(ctx, cacheIndexKey, "-inf", cutoff).Err(); err != nil {
		return 0, s.fail("document: clear expired cache", err)
	}
	return removed, nil
}

// LogActivity appends an entry to the activity log and indexes it under
// its user. Assigns the entry id when the caller left it empty.
func (s *Store) LogActivity(ctx context.Context, entry *domain.ActivityLogEntry) error {
	if s.disabled.Load() {
		return nil
	}
	if !entry.Kind.Valid() {
		return domain.ErrInvalidActivity
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling activity entry: %w", err)
	}

	score := float64(entry.CreatedAt.UnixNano())
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.activityKey(entry.ID), raw, 0)
	pipe.ZAdd(ctx, activityLogKey, redis.Z{Score: score, Member: entry.ID})
	pipe.ZAdd(ctx, s.userActivityKey(entry.UserID), redis.Z{Score: score, Member: entry.ID})
	pipe.Incr(ctx, activityCounterKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.fail("document: log activity", err)
	}
	return nil
}

// GetUserActivity returns a user's activity entries, newest first
func (s *Store) GetUserActivity(ctx context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error) {
	if s.disabled.Load() {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultActivityPage
	}

	ids, err := s.client.ZRevRange(ctx, s.userActivityKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, s.fail("document: get user activity", err)
	}

	entries := make([]domain.ActivityLogEntry, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Get(ctx, s.activityKey(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, s.fail("document: get user activity", err)
		}
		var entry domain.ActivityLogEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("unmarshaling activity entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ArchiveOldLogs prunes activity entries older than the cutoff from the
// hot log and returns the exact number pruned
func (s *Store) ArchiveOldLogs(ctx context.Context, olderThan time.Time) (int64, error) {
	if s.disabled.Load() {
		return 0, nil
	}

	cutoff := fmt.Sprintf("%d", olderThan.UnixNano())
	ids, err := s.client.ZRangeByScore(ctx, activityLogKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return 0, s.fail("document: archive old logs", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var pruned int64
	for _, id := range ids {
		raw, err := s.client.Get(ctx, s.activityKey(id)).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return pruned, s.fail("document: archive old logs", err)
		}
		pipe := s.client.Pipeline()
		if err == nil {
			var entry domain.ActivityLogEntry
			if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
				pipe.ZRem(ctx, s.userActivityKey(entry.UserID), id)
			}
		}
		pipe.Del(ctx, s.activityKey(id))
		pipe.ZRem(ctx, activityLogKey, id)
		pipe.Decr(ctx, activityCounterKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return pruned, s.fail("document: archive old logs", err)
		}
		pruned++
	}
	return pruned, nil
}

// DeleteUserData removes every document the user owns: likes, comments
// with their game indexes, lists with their game sets, and activity
// entries. Each collection is erased independently so a failure in one
// never blocks the others; the combined error is returned and the
// erasure can be retried, every step is idempotent.
func (s *Store) DeleteUserData(ctx context.Context, userID string) error {
	if s.disabled.Load() {
		return domain.NewStoreError(domain.FailureAuthorization, "document: delete user data", domain.ErrStoreDisabled)
	}

	return errors.Join(
		s.deleteUserLikes(ctx, userID),
		s.deleteUserComments(ctx, userID),
		s.deleteUserLists(ctx, userID),
		s.deleteUserActivity(ctx, userID),
	)
}

func (s *Store) deleteUserLikes(ctx context.Context, userID string) error {
	count, err := s.client.ZCard(ctx, s.userLikesKey(userID)).Result()
	if err != nil {
		return s.fail("document: delete user likes", err)
	}
	if count == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.userLikesKey(userID))
	pipe.DecrBy(ctx, likesCounterKey, count)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.fail("document: delete user likes", err)
	}
	return nil
}

func (s *Store) deleteUserComments(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, s.userCommentsKey(userID)).Result()
	if err != nil {
		return s.fail("document: delete user comments", err)
	}
	for _, id := range ids {
		comment, err := s.GetComment(ctx, id)
		if err != nil {
			return err
		}
		pipe := s.client.Pipeline()
		if comment != nil {
			pipe.ZRem(ctx, s.gameCommentsKey(comment.GameID), id)
		}
		pipe.Del(ctx, s.commentKey(id))
		pipe.SRem(ctx, s.userCommentsKey(userID), id)
		pipe.Decr(ctx, commentsCounterKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return s.fail("document: delete user comments", err)
		}
	}
	if err := s.client.Del(ctx, s.userCommentsKey(userID)).Err(); err != nil {
		return s.fail("document: delete user comments", err)
	}
	return nil
}

func (s *Store) deleteUserLists(ctx context.Context, userID string) error {
	index, err := s.client.HGetAll(ctx, s.userListsKey(userID)).Result()
	if err != nil {
		return s.fail("document: delete user lists", err)
	}
	for _, listID := range index {
		pipe := s.client.Pipeline()
		pipe.Del(ctx, s.listKey(listID))
		pipe.Del(ctx, s.listGamesKey(listID))
		pipe.Decr(ctx, listsCounterKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return s.fail("document: delete user lists", err)
		}
	}
	if err := s.client.Del(ctx, s.userListsKey(userID)).Err(); err != nil {
		return s.fail("document: delete user lists", err)
	}
	return nil
}

func (s *Store) deleteUserActivity(ctx context.Context, userID string) error {
	ids, err := s.client.ZRange(ctx, s.userActivityKey(userID), 0, -1).Result()
	if err != nil {
		return s.fail("document: delete user activity", err)
	}
	for _, id := range ids {
		pipe := s.client.Pipeline()
		pipe.Del(ctx, s.activityKey(id))
		pipe.ZRem(ctx, activityLogKey, id)
		pipe.Decr(ctx, activityCounterKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return s.fail("document: delete user activity", err)
		}
	}
	if err := s.client.Del(ctx, s.userActivityKey(userID)).Err(); err != nil {
		return s.fail("document: delete user activity", err)
	}
	return nil
}

// Counts returns aggregate totals for the statistics snapshot
func (s *Store) Counts(ctx context.Context) (likes, comments, lists, activities int64, err error) {
	if s.disabled.Load() {
		return 0, 0, 0, 0, domain.NewStoreError(domain.FailureAuthorization, "document: counts", domain.ErrStoreDisabled)
	}

	values, err := s.client.MGet(ctx, likesCounterKey, commentsCounterKey, listsCounterKey, activityCounterKey).Result()
	if err != nil {
		return 0, 0, 0, 0, s.fail("document: counts", err)
	}

	parsed := make([]int64, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var n int64
		if _, scanErr := fmt.Sscanf(raw, "%d", &n); scanErr == nil {
			parsed[i] = n
		}
	}
	return parsed[0], parsed[1], parsed[2], parsed[3], nil
}
