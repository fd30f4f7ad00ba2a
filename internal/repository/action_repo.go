package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/veloradating/matchsvc/internal/db"
	svcErr "github.com/veloradating/matchsvc/internal/errors"
	"github.com/veloradating/matchsvc/internal/utils/pagination"
)

// ActionRepository provides data access for Action rows (likes/passes/
// super-likes between users).
type ActionRepository struct {
	db *gorm.DB
}

// NewActionRepository creates a new repository bound to the given DB connection.
func NewActionRepository(database *gorm.DB) *ActionRepository {
	return &ActionRepository{db: database}
}

// Create inserts one action row with IsMutual=false.
//
// There is intentionally no upsert and no uniqueness check: a retried request
// that succeeds twice leaves two rows, and cleanup belongs to the integrity
// scanner. Recording must never block on deduplication.
func (r *ActionRepository) Create(
	ctx context.Context,
	actorID, targetID uint64,
	kind db.ActionKind,
) (*db.Action, error) {
	action := db.Action{
		ActorID:  actorID,
		TargetID: targetID,
		Kind:     kind,
	}
	if err := r.db.WithContext(ctx).Create(&action).Error; err != nil {
		return nil, svcErr.Persistence("action create", err)
	}
	return &action, nil
}

// ReverseLikes returns every like/super_like row from target back to actor.
// Duplicates may be present; any one row is sufficient evidence of mutual
// interest.
func (r *ActionRepository) ReverseLikes(
	ctx context.Context,
	actorID, targetID uint64,
) ([]db.Action, error) {
	var actions []db.Action
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ? AND kind IN ?",
			targetID, actorID, []db.ActionKind{db.ActionLike, db.ActionSuperLike}).
		Find(&actions).Error
	if err != nil {
		return nil, svcErr.Persistence("reverse like lookup", err)
	}
	return actions, nil
}

// MarkPairMutual flips IsMutual on every like/super_like row in both
// directions for the pair. Two writes; if the second fails the caller reports
// not-yet-mutual and the next detector invocation converges.
func (r *ActionRepository) MarkPairMutual(ctx context.Context, a, b uint64) error {
	positive := []db.ActionKind{db.ActionLike, db.ActionSuperLike}

	if err := r.db.WithContext(ctx).Model(&db.Action{}).
		Where("actor_id = ? AND target_id = ? AND kind IN ?", a, b, positive).
		Update("is_mutual", true).Error; err != nil {
		return svcErr.Persistence("mark mutual forward", err)
	}
	if err := r.db.WithContext(ctx).Model(&db.Action{}).
		Where("actor_id = ? AND target_id = ? AND kind IN ?", b, a, positive).
		Update("is_mutual", true).Error; err != nil {
		return svcErr.Persistence("mark mutual reverse", err)
	}
	return nil
}

// ListLikers returns users who liked the given target.
//
// Behavior:
//   - Only like/super_like rows count.
//   - Excludes likers the target explicitly passed.
//   - Ordered by created_at DESC, actor_id DESC.
//   - Cursor-based pagination via pageToken.
func (r *ActionRepository) ListLikers(
	ctx context.Context,
	targetID uint64,
	pageToken *string,
	limit int,
) ([]db.Action, *string, error) {
	return r.listLikers(ctx, targetID, pageToken, limit, false)
}

// ListNewLikers is ListLikers restricted to likers the target has not yet
// liked back.
func (r *ActionRepository) ListNewLikers(
	ctx context.Context,
	targetID uint64,
	pageToken *string,
	limit int,
) ([]db.Action, *string, error) {
	return r.listLikers(ctx, targetID, pageToken, limit, true)
}

func (r *ActionRepository) listLikers(
	ctx context.Context,
	targetID uint64,
	pageToken *string,
	limit int,
	excludeMutual bool,
) ([]db.Action, *string, error) {
	var actions []db.Action

	cursor, err := pagination.Decode(getString(pageToken))
	if err != nil {
		return nil, nil, svcErr.InvalidAction("%v", err)
	}

	query := r.db.WithContext(ctx).
		Table("actions a").
		Where("a.target_id = ? AND a.kind IN ?",
			targetID, []db.ActionKind{db.ActionLike, db.ActionSuperLike}).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM actions a2
				WHERE a2.actor_id = ?
				  AND a2.target_id = a.actor_id
				  AND a2.kind = ?
			)`, targetID, db.ActionPass).
		Order("a.created_at DESC, a.actor_id DESC").
		Limit(limit + 1)

	if excludeMutual {
		subQuery := r.db.
			Table("actions").
			Select("1").
			Where("actor_id = a.target_id AND target_id = a.actor_id AND kind IN ?",
				[]db.ActionKind{db.ActionLike, db.ActionSuperLike})
		query = query.Where("NOT EXISTS (?)", subQuery)
	}

	if cursor.ActorID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(a.created_at < ? OR (a.created_at = ? AND a.actor_id < ?))",
			ts, ts, cursor.ActorID,
		)
	}

	if err := query.Find(&actions).Error; err != nil {
		return nil, nil, svcErr.Persistence("liker listing", err)
	}

	var nextToken *string
	if len(actions) > limit {
		last := actions[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ActorID:     last.ActorID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		actions = actions[:limit]
	}

	return actions, nextToken, nil
}

// CountLikers returns how many users liked the given target, excluding likers
// the target explicitly passed. Used as the DB fallback behind the Redis
// counter.
func (r *ActionRepository) CountLikers(ctx context.Context, targetID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("actions a").
		Where("a.target_id = ? AND a.kind IN ?",
			targetID, []db.ActionKind{db.ActionLike, db.ActionSuperLike}).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM actions a2
				WHERE a2.actor_id = ?
				  AND a2.target_id = a.actor_id
				  AND a2.kind = ?
			)`, targetID, db.ActionPass).
		Count(&count).Error
	if err != nil {
		return 0, svcErr.Persistence("liker count", err)
	}
	return count, nil
}

// PositiveActionsPage reads one page of like/super_like rows ordered by id,
// starting after afterID. The integrity scanner pages the whole table with it.
func (r *ActionRepository) PositiveActionsPage(
	ctx context.Context,
	afterID uint64,
	limit int,
) ([]db.Action, error) {
	var actions []db.Action
	err := r.db.WithContext(ctx).
		Where("id > ? AND kind IN ?",
			afterID, []db.ActionKind{db.ActionLike, db.ActionSuperLike}).
		Order("id ASC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, svcErr.Persistence("action scan page", err)
	}
	return actions, nil
}

// GetByIDs loads the actions that still exist among ids. Missing ids are not
// an error; reconciliation treats them as already fixed.
func (r *ActionRepository) GetByIDs(ctx context.Context, ids []uint64) ([]db.Action, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var actions []db.Action
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&actions).Error; err != nil {
		return nil, svcErr.Persistence("action load", err)
	}
	return actions, nil
}

// DeleteByIDs removes the given action rows and reports how many went away.
func (r *ActionRepository) DeleteByIDs(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&db.Action{})
	if res.Error != nil {
		return 0, svcErr.Persistence("action delete", res.Error)
	}
	return res.RowsAffected, nil
}

// SetMutual updates the mutual flag on a single row.
func (r *ActionRepository) SetMutual(ctx context.Context, id uint64, mutual bool) error {
	err := r.db.WithContext(ctx).Model(&db.Action{}).
		Where("id = ?", id).
		Update("is_mutual", mutual).Error
	if err != nil {
		return svcErr.Persistence("action mutual update", err)
	}
	return nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
