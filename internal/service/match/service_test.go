package match_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veloradating/matchsvc/internal/app"
	"github.com/veloradating/matchsvc/internal/cache"
	"github.com/veloradating/matchsvc/internal/config"
	"github.com/veloradating/matchsvc/internal/db"
	svcErr "github.com/veloradating/matchsvc/internal/errors"
	"github.com/veloradating/matchsvc/internal/service/match"
)

// setupService spins up an in-memory SQLite DB, applies migrations, starts a
// miniredis, and wires everything into a match service instance.
//
// Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*match.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	appCtx := app.New(dbase, redisCache, logger)
	return match.NewService(appCtx), dbase
}

// TestRecordActionRejectsSelf covers the no-self-action invariant: acting on
// yourself always fails, regardless of kind.
func TestRecordActionRejectsSelf(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	for _, kind := range []db.ActionKind{db.ActionLike, db.ActionPass, db.ActionSuperLike} {
		_, err := svc.RecordAction(ctx, 7, 7, kind)
		var invalid *svcErr.InvalidActionError
		require.ErrorAs(t, err, &invalid, "kind %s", kind)
	}
}

func TestRecordActionRejectsUnknownKind(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordAction(ctx, 1, 2, db.ActionKind("wink"))
	var invalid *svcErr.InvalidActionError
	require.ErrorAs(t, err, &invalid)
}

// TestMutualDetectionSymmetry checks that a like in each direction, in either
// order, ends with both rows mutual and exactly one direct conversation.
func TestMutualDetectionSymmetry(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	first, err := svc.RecordAction(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)
	assert.False(t, first.IsMutual)
	assert.Empty(t, first.ConversationID)

	second, err := svc.RecordAction(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	assert.True(t, second.IsMutual)
	require.NotEmpty(t, second.ConversationID)

	var actions []db.Action
	require.NoError(t, dbase.Find(&actions).Error)
	require.Len(t, actions, 2)
	for _, a := range actions {
		assert.True(t, a.IsMutual, "action %d->%d", a.ActorID, a.TargetID)
	}

	// both sides resolve to the same conversation
	conv, err := svc.GetOrCreateDirectConversation(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, second.ConversationID, conv.ID)

	var convCount int64
	dbase.Model(&db.Conversation{}).Count(&convCount)
	assert.Equal(t, int64(1), convCount)
}

// TestSuperLikeMatchesLike verifies that kind mix does not affect the outcome.
func TestSuperLikeMatchesLike(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordAction(ctx, 1, 2, db.ActionSuperLike)
	require.NoError(t, err)

	result, err := svc.RecordAction(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	assert.True(t, result.IsMutual)
}

// TestPassNeverMatches: a pass records a row but never triggers detection,
// even against an existing reverse like.
func TestPassNeverMatches(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, err := svc.RecordAction(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)

	result, err := svc.RecordAction(ctx, 1, 2, db.ActionPass)
	require.NoError(t, err)
	assert.False(t, result.IsMutual)

	var convCount int64
	dbase.Model(&db.Conversation{}).Count(&convCount)
	assert.Zero(t, convCount)
}

// TestDuplicateReverseRowsStillMatch: duplicate reciprocal rows are
// sufficient evidence of interest, not a blocker.
func TestDuplicateReverseRowsStillMatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordAction(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	// retry left a duplicate
	_, err = svc.RecordAction(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)

	result, err := svc.RecordAction(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)
	assert.True(t, result.IsMutual)
	assert.NotEmpty(t, result.ConversationID)
}

// TestGetOrCreateDirectConversationIdempotent: N sequential calls return the
// same conversation row.
func TestGetOrCreateDirectConversationIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	first, err := svc.GetOrCreateDirectConversation(ctx, 4, 3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		conv, err := svc.GetOrCreateDirectConversation(ctx, 3, 4)
		require.NoError(t, err)
		assert.Equal(t, first.ID, conv.ID)
	}

	var convCount int64
	dbase.Model(&db.Conversation{}).Count(&convCount)
	assert.Equal(t, int64(1), convCount)
}

func TestListLikedYou(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordAction(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	_, err = svc.RecordAction(ctx, 3, 1, db.ActionLike)
	require.NoError(t, err)
	// user 1 passed user 3, so that like is hidden
	_, err = svc.RecordAction(ctx, 1, 3, db.ActionPass)
	require.NoError(t, err)

	likers, _, err := svc.ListLikedYou(ctx, 1, nil, 10)
	require.NoError(t, err)
	require.Len(t, likers, 1)
	assert.Equal(t, uint64(2), likers[0].UserID)
}

// TestCountLikedYouCache verifies the cache-first count: first read falls
// back to the DB and primes Redis, second read is served from it.
func TestCountLikedYouCache(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, err := svc.RecordAction(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)

	count, err := svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// bypass the service so only the cache can answer correctly
	require.NoError(t, dbase.Exec("DELETE FROM actions").Error)

	cached, err := svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached)
}
