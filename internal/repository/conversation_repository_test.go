package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloradating/matchsvc/internal/db"
	"github.com/veloradating/matchsvc/internal/repository"
)

func TestCreateDirectAndFindByPair(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	created, err := repo.CreateDirect(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, db.ConversationDirect, created.Kind)
	assert.Equal(t, "1:2", created.PairKey)

	// lookup is order-independent
	found, err := repo.FindDirectByPair(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	participants, err := repo.ParticipantsFor(ctx, []string{created.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, participants[created.ID])
}

func TestFindDirectByPairMissing(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	found, err := repo.FindDirectByPair(ctx, 7, 8)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepointMessages(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	from, err := repo.CreateDirect(ctx, 1, 2)
	require.NoError(t, err)
	to, err := repo.CreateDirect(ctx, 3, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		msg := db.Message{ConversationID: from.ID, SenderID: 1, Content: "hi"}
		require.NoError(t, dbase.Create(&msg).Error)
	}

	moved, err := repo.RepointMessages(ctx, from.ID, to.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), moved)

	remaining, err := repo.CountMessages(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	// idempotent: nothing left to move
	moved, err = repo.RepointMessages(ctx, from.ID, to.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), moved)
}

func TestDeleteWithMessages(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	conv, err := repo.CreateDirect(ctx, 1, 2)
	require.NoError(t, err)
	msg := db.Message{ConversationID: conv.ID, SenderID: 1, Content: "bye"}
	require.NoError(t, dbase.Create(&msg).Error)

	removed, err := repo.DeleteWithMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	var convCount, partCount, msgCount int64
	dbase.Model(&db.Conversation{}).Count(&convCount)
	dbase.Model(&db.ConversationParticipant{}).Count(&partCount)
	dbase.Model(&db.Message{}).Count(&msgCount)
	assert.Zero(t, convCount)
	assert.Zero(t, partCount)
	assert.Zero(t, msgCount)

	// deleting again is a no-op
	removed, err = repo.DeleteWithMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}
