package document

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/gamecrate-api/internal/config"
	"github.com/gamecrate-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewStore(&config.RedisConfig{Addr: mr.Addr()}, testLogger())
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestLikeToggleRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddLike(ctx, "u1", "hades")
	if err != nil {
		t.Fatalf("AddLike: %v", err)
	}
	if !added {
		t.Fatal("expected first AddLike to report newly added")
	}

	added, err = store.AddLike(ctx, "u1", "hades")
	if err != nil {
		t.Fatalf("AddLike: %v", err)
	}
	if added {
		t.Fatal("expected duplicate AddLike to report already present")
	}

	likes, err := store.GetUserLikes(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("GetUserLikes: %v", err)
	}
	if len(likes) != 1 || likes[0].GameID != "hades" {
		t.Fatalf("unexpected likes: %+v", likes)
	}

	removed, err := store.RemoveLike(ctx, "u1", "hades")
	if err != nil {
		t.Fatalf("RemoveLike: %v", err)
	}
	if !removed {
		t.Fatal("expected RemoveLike to remove the like")
	}

	removed, err = store.RemoveLike(ctx, "u1", "hades")
	if err != nil {
		t.Fatalf("RemoveLike: %v", err)
	}
	if removed {
		t.Fatal("expected second RemoveLike to be a no-op")
	}
}

func TestGameCommentsNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second", "third"} {
		tick := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return tick }
		err := store.CreateComment(ctx, &domain.CommentRecord{
			UserID:  "u1",
			GameID:  "celeste",
			Content: content,
		})
		if err != nil {
			t.Fatalf("CreateComment(%q): %v", content, err)
		}
	}

	comments, err := store.GetGameComments(ctx, "celeste", 10)
	if err != nil {
		t.Fatalf("GetGameComments: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("expected 3 comments, got %d", len(comments))
	}
	want := []string{"third", "second", "first"}
	for i, comment := range comments {
		if comment.Content != want[i] {
			t.Errorf("comment %d: got %q, want %q", i, comment.Content, want[i])
		}
	}
}

func TestListAppendIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	list, err := store.GetOrCreateList(ctx, "u1", "backlog")
	if err != nil {
		t.Fatalf("GetOrCreateList: %v", err)
	}

	again, err := store.GetOrCreateList(ctx, "u1", "backlog")
	if err != nil {
		t.Fatalf("GetOrCreateList: %v", err)
	}
	if again.ID != list.ID {
		t.Fatalf("expected same list, got %s and %s", list.ID, again.ID)
	}

	for _, game := range []string{"hades", "celeste"} {
		if _, err := store.AddGameToList(ctx, list.ID, game); err != nil {
			t.Fatalf("AddGameToList(%q): %v", game, err)
		}
	}

	added, err := store.AddGameToList(ctx, list.ID, "hades")
	if err != nil {
		t.Fatalf("AddGameToList: %v", err)
	}
	if added {
		t.Fatal("expected re-add of existing game to report false")
	}

	loaded, err := store.GetList(ctx, list.ID)
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if len(loaded.GameIDs) != 2 || loaded.GameIDs[0] != "hades" || loaded.GameIDs[1] != "celeste" {
		t.Fatalf("unexpected game order: %v", loaded.GameIDs)
	}
}

func TestAddGameToMissingList(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.AddGameToList(context.Background(), "nope", "hades")
	if !errors.Is(err, domain.ErrListNotFound) {
		t.Fatalf("expected ErrListNotFound, got %v", err)
	}
}

func TestCacheExpiryOnRead(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.CacheGameData(ctx, "hades", "igdb", []byte(`{"name":"Hades"}`), 24); err != nil {
		t.Fatalf("CacheGameData: %v", err)
	}

	entry, err := store.GetCachedGameData(ctx, "hades", "igdb")
	if err != nil {
		t.Fatalf("GetCachedGameData: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a cache hit before expiry")
	}

	now = now.Add(25 * time.Hour)
	entry, err = store.GetCachedGameData(ctx, "hades", "igdb")
	if err != nil {
		t.Fatalf("GetCachedGameData: %v", err)
	}
	if entry != nil {
		t.Fatal("expected expired entry to be a miss")
	}

	// The lazy read already removed the entry, so a sweep finds nothing.
	removed, err := store.ClearExpiredCache(ctx)
	if err != nil {
		t.Fatalf("ClearExpiredCache: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removed after lazy delete, got %d", removed)
	}
}

func TestClearExpiredCacheCounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for _, game := range []string{"hades", "celeste"} {
		if err := store.CacheGameData(ctx, game, "igdb", []byte(`{}`), 24); err != nil {
			t.Fatalf("CacheGameData(%q): %v", game, err)
		}
	}

	now = now.Add(12 * time.Hour)
	if err := store.CacheGameData(ctx, "factorio", "igdb", []byte(`{}`), 24); err != nil {
		t.Fatalf("CacheGameData: %v", err)
	}

	// 25h after the first two writes, 13h after the third.
	now = now.Add(13 * time.Hour)
	removed, err := store.ClearExpiredCache(ctx)
	if err != nil {
		t.Fatalf("ClearExpiredCache: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected exactly 2 removed, got %d", removed)
	}

	removed, err = store.ClearExpiredCache(ctx)
	if err != nil {
		t.Fatalf("ClearExpiredCache: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected second sweep to remove 0, got %d", removed)
	}

	entry, err := store.GetCachedGameData(ctx, "factorio", "igdb")
	if err != nil {
		t.Fatalf("GetCachedGameData: %v", err)
	}
	if entry == nil {
		t.Fatal("expected unexpired entry to survive the sweep")
	}
}

func TestZeroTTLNeverServes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.CacheGameData(ctx, "hades", "igdb", []byte(`{}`), 0); err != nil {
		t.Fatalf("CacheGameData: %v", err)
	}
	entry, err := store.GetCachedGameData(ctx, "hades", "igdb")
	if err != nil {
		t.Fatalf("GetCachedGameData: %v", err)
	}
	if entry != nil {
		t.Fatal("expected zero-ttl entry to never be served")
	}
}

func TestArchiveOldLogs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.LogActivity(ctx, &domain.ActivityLogEntry{
			UserID:    "u1",
			Kind:      domain.ActivityView,
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		})
		if err != nil {
			t.Fatalf("LogActivity: %v", err)
		}
	}

	pruned, err := store.ArchiveOldLogs(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("ArchiveOldLogs: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("expected 2 pruned, got %d", pruned)
	}

	entries, err := store.GetUserActivity(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("GetUserActivity: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(entries))
	}

	pruned, err = store.ArchiveOldLogs(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("ArchiveOldLogs: %v", err)
	}
	if pruned != 0 {
		t.Fatalf("expected second archive to prune 0, got %d", pruned)
	}
}

func TestLogActivityRejectsUnknownKind(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.LogActivity(context.Background(), &domain.ActivityLogEntry{
		UserID: "u1",
		Kind:   domain.ActivityKind("teleport"),
	})
	if !errors.Is(err, domain.ErrInvalidActivity) {
		t.Fatalf("expected ErrInvalidActivity, got %v", err)
	}
}

func TestDeleteUserDataCoversAllCollections(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddLike(ctx, "u1", "hades"); err != nil {
		t.Fatalf("AddLike: %v", err)
	}
	if err := store.CreateComment(ctx, &domain.CommentRecord{UserID: "u1", GameID: "hades", Content: "great"}); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if err := store.CreateComment(ctx, &domain.CommentRecord{UserID: "u2", GameID: "hades", Content: "agreed"}); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	list, err := store.GetOrCreateList(ctx, "u1", "backlog")
	if err != nil {
		t.Fatalf("GetOrCreateList: %v", err)
	}
	if _, err := store.AddGameToList(ctx, list.ID, "celeste"); err != nil {
		t.Fatalf("AddGameToList: %v", err)
	}
	if err := store.LogActivity(ctx, &domain.ActivityLogEntry{UserID: "u1", Kind: domain.ActivityLike}); err != nil {
		t.Fatalf("LogActivity: %v", err)
	}

	if err := store.DeleteUserData(ctx, "u1"); err != nil {
		t.Fatalf("DeleteUserData: %v", err)
	}

	likes, err := store.GetUserLikes(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("GetUserLikes: %v", err)
	}
	if len(likes) != 0 {
		t.Fatalf("expected no likes after erasure, got %d", len(likes))
	}

	lists, err := store.GetUserLists(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserLists: %v", err)
	}
	if len(lists) != 0 {
		t.Fatalf("expected no lists after erasure, got %d", len(lists))
	}

	activity, err := store.GetUserActivity(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("GetUserActivity: %v", err)
	}
	if len(activity) != 0 {
		t.Fatalf("expected no activity after erasure, got %d", len(activity))
	}

	comments, err := store.GetGameComments(ctx, "hades", 10)
	if err != nil {
		t.Fatalf("GetGameComments: %v", err)
	}
	if len(comments) != 1 || comments[0].UserID != "u2" {
		t.Fatalf("expected only u2's comment to survive, got %+v", comments)
	}

	// Erasure is idempotent.
	if err := store.DeleteUserData(ctx, "u1"); err != nil {
		t.Fatalf("repeated DeleteUserData: %v", err)
	}
}

func TestDeleteUserDataContinuesPastFailingCollection(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateComment(ctx, &domain.CommentRecord{UserID: "u1", GameID: "hades", Content: "great"}); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if err := store.LogActivity(ctx, &domain.ActivityLogEntry{UserID: "u1", Kind: domain.ActivityLike}); err != nil {
		t.Fatalf("LogActivity: %v", err)
	}
	// A wrong-typed value under the likes key makes that collection fail.
	if err := mr.Set("user:u1:likes", "corrupt"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	err := store.DeleteUserData(ctx, "u1")
	if err == nil {
		t.Fatal("expected erasure to report the failing collection")
	}

	comments, err := store.GetGameComments(ctx, "hades", 10)
	if err != nil {
		t.Fatalf("GetGameComments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected comments erased despite likes failure, got %d", len(comments))
	}

	activity, err := store.GetUserActivity(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("GetUserActivity: %v", err)
	}
	if len(activity) != 0 {
		t.Fatalf("expected activity erased despite likes failure, got %d", len(activity))
	}
}

func TestCountsTrackWrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddLike(ctx, "u1", "hades"); err != nil {
		t.Fatalf("AddLike: %v", err)
	}
	if _, err := store.AddLike(ctx, "u1", "celeste"); err != nil {
		t.Fatalf("AddLike: %v", err)
	}
	if err := store.CreateComment(ctx, &domain.CommentRecord{UserID: "u1", GameID: "hades", Content: "x"}); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := store.GetOrCreateList(ctx, "u1", "backlog"); err != nil {
		t.Fatalf("GetOrCreateList: %v", err)
	}

	likes, comments, lists, activities, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if likes != 2 || comments != 1 || lists != 1 || activities != 0 {
		t.Fatalf("unexpected counts: likes=%d comments=%d lists=%d activities=%d",
			likes, comments, lists, activities)
	}
}

func TestAuthorizationFailureDisablesAdapter(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("sekrit")

	// No password configured: every command is rejected with NOAUTH.
	store := NewStore(&config.RedisConfig{Addr: mr.Addr()}, testLogger())
	defer store.Close()

	ctx := context.Background()
	_, err := store.AddLike(ctx, "u1", "hades")
	if err == nil {
		t.Fatal("expected authorization error")
	}
	if !domain.IsAuthorizationFailure(err) {
		t.Fatalf("expected authorization failure kind, got %v", err)
	}
	if store.Enabled() {
		t.Fatal("expected adapter to be disabled after authorization failure")
	}

	// Later reads and writes no-op without touching the connection.
	likes, err := store.GetUserLikes(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("GetUserLikes on disabled store: %v", err)
	}
	if len(likes) != 0 {
		t.Fatalf("expected empty likes from disabled store, got %d", len(likes))
	}
	added, err := store.AddLike(ctx, "u1", "celeste")
	if err != nil {
		t.Fatalf("AddLike on disabled store: %v", err)
	}
	if added {
		t.Fatal("expected disabled AddLike to report false")
	}

	// Health checks and erasure still surface the disabled state.
	if err := store.Ping(ctx); !errors.Is(err, domain.ErrStoreDisabled) {
		t.Fatalf("expected Ping to report ErrStoreDisabled, got %v", err)
	}
	if err := store.DeleteUserData(ctx, "u1"); !errors.Is(err, domain.ErrStoreDisabled) {
		t.Fatalf("expected DeleteUserData to report ErrStoreDisabled, got %v", err)
	}
}

func TestMissingConfigDisablesFromConstruction(t *testing.T) {
	store := NewStore(&config.RedisConfig{}, testLogger())

	if store.Enabled() {
		t.Fatal("expected adapter without address to start disabled")
	}
	added, err := store.AddLike(context.Background(), "u1", "hades")
	if err != nil {
		t.Fatalf("AddLike on disabled store: %v", err)
	}
	if added {
		t.Fatal("expected disabled AddLike to report false")
	}
	if err := store.DeleteUserData(context.Background(), "u1"); !errors.Is(err, domain.ErrStoreDisabled) {
		t.Fatalf("expected DeleteUserData to report ErrStoreDisabled, got %v", err)
	}
}
