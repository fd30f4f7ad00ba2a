package match

import (
	"context"

	"github.com/veloradating/matchsvc/internal/app"
	"github.com/veloradating/matchsvc/internal/db"
	svcErr "github.com/veloradating/matchsvc/internal/errors"
	"github.com/veloradating/matchsvc/internal/repository"
)

// Service owns the match data plane: recording actions, detecting mutual
// matches, and provisioning direct conversations.
type Service struct {
	appCtx     *app.AppContext
	actionRepo *repository.ActionRepository
	convRepo   *repository.ConversationRepository
}

// MatchResult is the outcome of recording one action.
type MatchResult struct {
	Action         *db.Action
	IsMutual       bool
	ConversationID string
}

// Liker is one entry of a liked-you listing.
type Liker struct {
	UserID uint64 `json:"user_id"`
	At     int64  `json:"at"`
}

// NewService creates the match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		actionRepo: repository.NewActionRepository(appCtx.DB),
		convRepo:   repository.NewConversationRepository(appCtx.DB),
	}
}

// RecordAction persists one directional action and, for like/super_like,
// runs mutual-match detection synchronously.
//
// Behavior:
//   - Rejects self-action and unknown kinds with InvalidActionError.
//   - Inserts exactly one row per call; a retried call that succeeds twice
//     leaves a duplicate row for the integrity scanner, never an error.
//   - On a reciprocal like, flips is_mutual on both directions and provisions
//     the pair's direct conversation.
func (s *Service) RecordAction(
	ctx context.Context,
	actorID, targetID uint64,
	kind db.ActionKind,
) (*MatchResult, error) {
	if actorID == 0 || targetID == 0 {
		return nil, svcErr.InvalidAction("actor and target ids are required")
	}
	if actorID == targetID {
		return nil, svcErr.InvalidAction("cannot act on yourself")
	}
	if !kind.Valid() {
		return nil, svcErr.InvalidAction("unknown action kind %q", kind)
	}

	action, err := s.actionRepo.Create(ctx, actorID, targetID, kind)
	if err != nil {
		return nil, err
	}

	result := &MatchResult{Action: action}
	if !kind.Positive() {
		return result, nil
	}

	// best-effort counter bump; DB remains the source of truth
	s.appCtx.RedisCache.IncrLikedCount(ctx, targetID)

	return s.detectMutual(ctx, result, actorID, targetID)
}

// detectMutual checks for a reciprocal like and, if present, marks the pair
// matched and provisions the conversation.
func (s *Service) detectMutual(
	ctx context.Context,
	result *MatchResult,
	actorID, targetID uint64,
) (*MatchResult, error) {
	reverse, err := s.actionRepo.ReverseLikes(ctx, actorID, targetID)
	if err != nil {
		// the action row is in; the next like from either side retries detection
		s.appCtx.Logger.Warn("mutual detection lookup failed", "actor", actorID, "target", targetID, "err", err)
		return result, nil
	}
	if len(reverse) == 0 {
		return result, nil
	}

	// Any one reciprocal row is sufficient; duplicates are left for the
	// integrity scanner.
	if err := s.actionRepo.MarkPairMutual(ctx, actorID, targetID); err != nil {
		// must not surface a partially-mutual pair as matched
		s.appCtx.Logger.Warn("mutual flag update failed", "actor", actorID, "target", targetID, "err", err)
		return result, nil
	}
	result.IsMutual = true

	conv, err := s.GetOrCreateDirectConversation(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	result.ConversationID = conv.ID

	s.appCtx.Logger.Info("mutual match", "actor", actorID, "target", targetID, "conversation", conv.ID)
	return result, nil
}

// GetOrCreateDirectConversation ensures a direct conversation exists for the
// unordered pair and returns it. Order-independent and idempotent.
//
// Two near-simultaneous calls can both miss the lookup and both insert; the
// race is accepted (no locks) and the duplicate is merged asynchronously by
// the reconciler. Lookups prefer the oldest row, so both callers converge on
// the same conversation id once the merge lands.
func (s *Service) GetOrCreateDirectConversation(ctx context.Context, a, b uint64) (*db.Conversation, error) {
	if a == b {
		return nil, svcErr.InvalidAction("conversation needs two distinct users")
	}

	conv, err := s.convRepo.FindDirectByPair(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	return s.convRepo.CreateDirect(ctx, a, b)
}

// ListLikedYou returns users who liked the given user, newest first,
// excluding users they explicitly passed. Cursor-paginated.
func (s *Service) ListLikedYou(
	ctx context.Context,
	userID uint64,
	pageToken *string,
	limit int,
) ([]Liker, *string, error) {
	actions, next, err := s.actionRepo.ListLikers(ctx, userID, pageToken, limit)
	if err != nil {
		return nil, nil, err
	}
	return toLikers(actions), next, nil
}

// ListNewLikedYou is ListLikedYou restricted to not-yet-mutual likers.
func (s *Service) ListNewLikedYou(
	ctx context.Context,
	userID uint64,
	pageToken *string,
	limit int,
) ([]Liker, *string, error) {
	actions, next, err := s.actionRepo.ListNewLikers(ctx, userID, pageToken, limit)
	if err != nil {
		return nil, nil, err
	}
	return toLikers(actions), next, nil
}

// CountLikedYou returns how many users liked the given user.
// Cache-first: Redis counter with TTL refresh, DB fallback on miss.
func (s *Service) CountLikedYou(ctx context.Context, userID uint64) (int64, error) {
	if n, ok, err := s.appCtx.RedisCache.GetLikedCount(ctx, userID); err == nil && ok {
		return n, nil
	}

	count, err := s.actionRepo.CountLikers(ctx, userID)
	if err != nil {
		return 0, err
	}

	_ = s.appCtx.RedisCache.SetLikedCount(ctx, userID, count)
	return count, nil
}

func toLikers(actions []db.Action) []Liker {
	likers := make([]Liker, 0, len(actions))
	for _, a := range actions {
		likers = append(likers, Liker{
			UserID: a.ActorID,
			At:     a.CreatedAt.UnixMilli(),
		})
	}
	return likers
}
