package integrity

import (
	"context"
	"sort"

	"github.com/veloradating/matchsvc/internal/db"
	svcErr "github.com/veloradating/matchsvc/internal/errors"
)

// FixDuplicateMatches removes retry-duplicated action rows.
//
// Policy: per ordered direction, keep the row with the latest created_at
// (tie-break: largest id) and delete the rest. A mutual flag on any deleted
// duplicate is preserved onto the kept row, so a fixed pair never loses its
// match. Ids that no longer exist or are no longer duplicated are skipped
// silently; re-running with the same ids changes 0 rows and succeeds.
func (s *Service) FixDuplicateMatches(ctx context.Context, ids []uint64) (int64, error) {
	actions, err := s.actionRepo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	groups := make(map[orderedPair][]db.Action)
	for _, a := range actions {
		key := orderedPair{Actor: a.ActorID, Target: a.TargetID}
		groups[key] = append(groups[key], a)
	}

	var fixed int64
	for _, rows := range groups {
		if len(rows) <= 1 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool {
			if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
				return rows[i].CreatedAt.After(rows[j].CreatedAt)
			}
			return rows[i].ID > rows[j].ID
		})
		kept := rows[0]

		deleteIDs := make([]uint64, 0, len(rows)-1)
		wasMutual := false
		for _, row := range rows[1:] {
			deleteIDs = append(deleteIDs, row.ID)
			wasMutual = wasMutual || row.IsMutual
		}

		deleted, err := s.actionRepo.DeleteByIDs(ctx, deleteIDs)
		if err != nil {
			return fixed, err
		}
		fixed += deleted

		if wasMutual && !kept.IsMutual {
			if err := s.actionRepo.SetMutual(ctx, kept.ID, true); err != nil {
				return fixed, err
			}
		}

		// cached liked-you counters included the duplicates
		s.appCtx.RedisCache.InvalidateLikedCount(ctx, kept.TargetID)
	}

	return fixed, nil
}

// FixDuplicateConversations merges raced direct conversations of one pair.
//
// Policy: keep the oldest conversation (message history continuity;
// tie-break: smallest id), re-point all messages from the duplicates onto it,
// and delete each duplicate only after verifying it holds zero messages.
// Every step is idempotent, so a partial failure is retryable from scratch;
// a duplicate whose messages were not fully migrated is never deleted.
func (s *Service) FixDuplicateConversations(ctx context.Context, ids []string) (int64, error) {
	convs, err := s.convRepo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	groups := make(map[string][]db.Conversation)
	for _, conv := range convs {
		if conv.Kind != db.ConversationDirect || conv.PairKey == "" {
			continue
		}
		groups[conv.PairKey] = append(groups[conv.PairKey], conv)
	}

	var fixed int64
	for _, rows := range groups {
		if len(rows) <= 1 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool {
			if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
				return rows[i].CreatedAt.Before(rows[j].CreatedAt)
			}
			return rows[i].ID < rows[j].ID
		})
		kept := rows[0]

		for _, dup := range rows[1:] {
			if _, err := s.convRepo.RepointMessages(ctx, dup.ID, kept.ID); err != nil {
				return fixed, err
			}

			remaining, err := s.convRepo.CountMessages(ctx, dup.ID)
			if err != nil {
				return fixed, err
			}
			if remaining > 0 {
				return fixed, &svcErr.PartialMigrationError{
					ConversationID: dup.ID,
					Remaining:      remaining,
				}
			}

			removed, err := s.convRepo.Delete(ctx, dup.ID)
			if err != nil {
				return fixed, err
			}
			if removed {
				fixed++
				s.appCtx.Logger.Info("merged duplicate conversation",
					"kept", kept.ID, "removed", dup.ID)
			}
		}
	}

	return fixed, nil
}

// FixOrphanedConversations deletes conversations whose participants no longer
// resolve, together with their messages. There is no recoverable owner to
// reassign them to. Orphanhood is re-verified per id, so an id that was fixed
// concurrently, or never was an orphan, is skipped silently.
func (s *Service) FixOrphanedConversations(ctx context.Context, ids []string) (int64, error) {
	convs, err := s.convRepo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	var fixed int64
	for _, conv := range convs {
		participants, err := s.convRepo.ParticipantsFor(ctx, []string{conv.ID})
		if err != nil {
			return fixed, err
		}
		userIDs := participants[conv.ID]
		if len(userIDs) == 0 {
			continue
		}

		existing, err := s.userRepo.ExistingIDs(ctx, userIDs)
		if err != nil {
			return fixed, err
		}
		orphaned := false
		for _, id := range userIDs {
			if !existing[id] {
				orphaned = true
				break
			}
		}
		if !orphaned {
			continue
		}

		removed, err := s.convRepo.DeleteWithMessages(ctx, conv.ID)
		if err != nil {
			return fixed, err
		}
		if removed {
			fixed++
			s.appCtx.Logger.Info("deleted orphaned conversation", "conversation", conv.ID)
		}
	}

	return fixed, nil
}
