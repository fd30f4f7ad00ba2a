package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloradating/matchsvc/internal/db"
	svcErr "github.com/veloradating/matchsvc/internal/errors"
)

// ConversationRepository provides data access for conversations, their
// participant rows, and message ownership.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository bound to the given DB connection.
func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// FindDirectByPair returns the oldest direct conversation for the unordered
// pair {a, b}, or nil when none exists. Oldest-first keeps the answer stable
// while raced duplicates await reconciliation.
func (r *ConversationRepository) FindDirectByPair(ctx context.Context, a, b uint64) (*db.Conversation, error) {
	var conv db.Conversation
	err := r.db.WithContext(ctx).
		Where("kind = ? AND pair_key = ?", db.ConversationDirect, db.PairKey(a, b)).
		Order("created_at ASC, id ASC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, svcErr.Persistence("conversation lookup", err)
	}
	return &conv, nil
}

// CreateDirect inserts a direct conversation plus its two participant rows.
// No lock guards the read-then-write window in the provisioner; a raced
// duplicate is accepted and merged later by the reconciler.
func (r *ConversationRepository) CreateDirect(ctx context.Context, a, b uint64) (*db.Conversation, error) {
	conv := db.Conversation{
		ID:      uuid.NewString(),
		Kind:    db.ConversationDirect,
		PairKey: db.PairKey(a, b),
	}
	if err := r.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, svcErr.Persistence("conversation create", err)
	}
	participants := []db.ConversationParticipant{
		{ConversationID: conv.ID, UserID: a},
		{ConversationID: conv.ID, UserID: b},
	}
	if err := r.db.WithContext(ctx).Create(&participants).Error; err != nil {
		return nil, svcErr.Persistence("participant create", err)
	}
	return &conv, nil
}

// Page reads one page of conversations ordered by id, starting after the
// given id ("" for the first page). Used by the integrity scanner.
func (r *ConversationRepository) Page(ctx context.Context, afterID string, limit int) ([]db.Conversation, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, svcErr.Persistence("conversation scan page", err)
	}
	return convs, nil
}

// GetByIDs loads the conversations that still exist among ids.
func (r *ConversationRepository) GetByIDs(ctx context.Context, ids []string) ([]db.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var convs []db.Conversation
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&convs).Error; err != nil {
		return nil, svcErr.Persistence("conversation load", err)
	}
	return convs, nil
}

// ParticipantsFor returns participant user ids grouped by conversation id.
func (r *ConversationRepository) ParticipantsFor(ctx context.Context, convIDs []string) (map[string][]uint64, error) {
	out := make(map[string][]uint64, len(convIDs))
	if len(convIDs) == 0 {
		return out, nil
	}
	var rows []db.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", convIDs).
		Order("user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, svcErr.Persistence("participant load", err)
	}
	for _, row := range rows {
		out[row.ConversationID] = append(out[row.ConversationID], row.UserID)
	}
	return out, nil
}

// RepointMessages moves every message from one conversation to another.
// The UPDATE is idempotent: re-running after a partial failure moves only
// what is left.
func (r *ConversationRepository) RepointMessages(ctx context.Context, fromID, toID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("conversation_id = ?", fromID).
		Update("conversation_id", toID)
	if res.Error != nil {
		return 0, svcErr.Persistence("message repoint", res.Error)
	}
	return res.RowsAffected, nil
}

// CountMessages reports how many messages still reference the conversation.
func (r *ConversationRepository) CountMessages(ctx context.Context, convID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("conversation_id = ?", convID).
		Count(&count).Error
	if err != nil {
		return 0, svcErr.Persistence("message count", err)
	}
	return count, nil
}

// Delete removes a conversation and its participant rows. Messages are left
// alone; callers either migrated them already or delete them explicitly.
func (r *ConversationRepository) Delete(ctx context.Context, convID string) (bool, error) {
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Delete(&db.ConversationParticipant{}).Error; err != nil {
		return false, svcErr.Persistence("participant delete", err)
	}
	res := r.db.WithContext(ctx).Where("id = ?", convID).Delete(&db.Conversation{})
	if res.Error != nil {
		return false, svcErr.Persistence("conversation delete", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteWithMessages removes a conversation together with everything it
// owns. Used for orphan cleanup where no recoverable owner exists.
func (r *ConversationRepository) DeleteWithMessages(ctx context.Context, convID string) (bool, error) {
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Delete(&db.Message{}).Error; err != nil {
		return false, svcErr.Persistence("message delete", err)
	}
	return r.Delete(ctx, convID)
}

// MessagesChronological returns the conversation's messages oldest-first.
func (r *ConversationRepository) MessagesChronological(ctx context.Context, convID string) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, svcErr.Persistence("message listing", err)
	}
	return msgs, nil
}
