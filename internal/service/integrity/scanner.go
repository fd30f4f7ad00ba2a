package integrity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/veloradating/matchsvc/internal/app"
	"github.com/veloradating/matchsvc/internal/db"
	"github.com/veloradating/matchsvc/internal/repository"
)

// scanPageSize bounds one storage round-trip of the scan. Internal only:
// partial results are never reported as complete.
const scanPageSize = 500

// Service owns the integrity scanner and reconciler. It is a permanent,
// re-runnable safety net, not a one-time migration: other writers share the
// store and drift keeps reappearing.
type Service struct {
	appCtx     *app.AppContext
	actionRepo *repository.ActionRepository
	convRepo   *repository.ConversationRepository
	userRepo   *repository.UserRepository
}

// NewService creates the integrity service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		actionRepo: repository.NewActionRepository(appCtx.DB),
		convRepo:   repository.NewConversationRepository(appCtx.DB),
		userRepo:   repository.NewUserRepository(appCtx.DB),
	}
}

// Scan walks all matches and conversations, classifies duplicates and
// orphans, and returns a report with fix suggestions.
//
// Strictly read-only and safe to run concurrently with live traffic. A row
// the scanner cannot classify is skipped and counted, never fatal; a failed
// page read fails the whole scan so partial results are never presented as
// complete.
func (s *Service) Scan(ctx context.Context) (*Report, error) {
	report := &Report{
		CheckedAt: time.Now().UTC(),
		Issues:    []Issue{},
		Summary:   Summary{ByType: map[IssueType]int{}},
	}

	if err := s.scanActions(ctx, report); err != nil {
		return nil, err
	}
	if err := s.scanConversations(ctx, report); err != nil {
		return nil, err
	}

	sort.Slice(report.Issues, func(i, j int) bool {
		return report.Issues[i].ID < report.Issues[j].ID
	})
	for _, issue := range report.Issues {
		report.Summary.ByType[issue.Type]++
	}

	if err := s.attachDisplayFields(ctx, report); err != nil {
		// presentation only; the detection outcome stands
		s.appCtx.Logger.Warn("display field lookup failed", "err", err)
	}

	return report, nil
}

// orderedPair keys one direction of a relationship.
type orderedPair struct {
	Actor  uint64
	Target uint64
}

func (s *Service) scanActions(ctx context.Context, report *Report) error {
	groups := make(map[orderedPair][]db.Action)

	var afterID uint64
	for {
		page, err := s.actionRepo.PositiveActionsPage(ctx, afterID, scanPageSize)
		if err != nil {
			return err
		}
		for _, a := range page {
			afterID = a.ID
			if a.ActorID == 0 || a.TargetID == 0 || a.ActorID == a.TargetID {
				report.SkippedRows++
				continue
			}
			report.TotalMatches++
			key := orderedPair{Actor: a.ActorID, Target: a.TargetID}
			groups[key] = append(groups[key], a)
		}
		if len(page) < scanPageSize {
			break
		}
	}

	// Duplicates live within one direction (retry-induced); a healthy mutual
	// pair has one row per direction and is not an issue. Issues are reported
	// per unordered relationship so the operator sees one fix per pair.
	byPair := make(map[string]*DuplicateMatchDetails)
	for key, rows := range groups {
		if len(rows) <= 1 {
			continue
		}
		pairKey := db.PairKey(key.Actor, key.Target)
		det := byPair[pairKey]
		if det == nil {
			a, b := key.Actor, key.Target
			if a > b {
				a, b = b, a
			}
			det = &DuplicateMatchDetails{UserA: a, UserB: b}
			byPair[pairKey] = det
		}
		for _, row := range rows {
			det.MatchIDs = append(det.MatchIDs, row.ID)
			det.CreatedAts = append(det.CreatedAts, row.CreatedAt)
		}
	}

	for pairKey, det := range byPair {
		sort.Slice(det.MatchIDs, func(i, j int) bool { return det.MatchIDs[i] < det.MatchIDs[j] })
		sort.Slice(det.CreatedAts, func(i, j int) bool { return det.CreatedAts[i].Before(det.CreatedAts[j]) })
		report.Issues = append(report.Issues, Issue{
			ID:          fmt.Sprintf("%s:%s", IssueDuplicateMatch, pairKey),
			Type:        IssueDuplicateMatch,
			Severity:    SeverityCritical,
			AutoFixable: true,
			Details:     det,
		})
	}
	return nil
}

func (s *Service) scanConversations(ctx context.Context, report *Report) error {
	var all []db.Conversation

	afterID := ""
	for {
		page, err := s.convRepo.Page(ctx, afterID, scanPageSize)
		if err != nil {
			return err
		}
		for _, conv := range page {
			afterID = conv.ID
			all = append(all, conv)
		}
		if len(page) < scanPageSize {
			break
		}
	}

	convIDs := make([]string, 0, len(all))
	byPair := make(map[string][]db.Conversation)
	for _, conv := range all {
		convIDs = append(convIDs, conv.ID)
		if conv.Kind != db.ConversationDirect {
			continue
		}
		if conv.PairKey == "" {
			// direct row without a pair key cannot be classified
			report.SkippedRows++
			continue
		}
		byPair[conv.PairKey] = append(byPair[conv.PairKey], conv)
	}

	for pairKey, convs := range byPair {
		if len(convs) <= 1 {
			continue
		}
		sort.Slice(convs, func(i, j int) bool { return convs[i].ID < convs[j].ID })
		det := &DuplicateConversationDetails{}
		fmt.Sscanf(pairKey, "%d:%d", &det.UserA, &det.UserB)
		for _, conv := range convs {
			det.ConversationIDs = append(det.ConversationIDs, conv.ID)
			det.CreatedAts = append(det.CreatedAts, conv.CreatedAt)
		}
		report.Issues = append(report.Issues, Issue{
			ID:          fmt.Sprintf("%s:%s", IssueDuplicateConversation, pairKey),
			Type:        IssueDuplicateConversation,
			Severity:    SeverityWarning,
			AutoFixable: true,
			Details:     det,
		})
	}

	return s.scanOrphans(ctx, report, convIDs)
}

func (s *Service) scanOrphans(ctx context.Context, report *Report, convIDs []string) error {
	participants, err := s.convRepo.ParticipantsFor(ctx, convIDs)
	if err != nil {
		return err
	}

	idSet := make(map[uint64]bool)
	for _, userIDs := range participants {
		for _, id := range userIDs {
			idSet[id] = true
		}
	}
	allIDs := make([]uint64, 0, len(idSet))
	for id := range idSet {
		allIDs = append(allIDs, id)
	}
	existing, err := s.userRepo.ExistingIDs(ctx, allIDs)
	if err != nil {
		return err
	}

	for _, convID := range convIDs {
		userIDs := participants[convID]
		if len(userIDs) == 0 {
			// membership rows lost entirely; cannot classify who this belonged to
			report.SkippedRows++
			continue
		}
		var missing []uint64
		for _, id := range userIDs {
			if !existing[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			continue
		}
		severity := SeverityInfo
		if len(missing) == len(userIDs) {
			severity = SeverityWarning
		}
		report.Issues = append(report.Issues, Issue{
			ID:          fmt.Sprintf("%s:%s", IssueOrphanedConversation, convID),
			Type:        IssueOrphanedConversation,
			Severity:    severity,
			AutoFixable: true,
			Details: &OrphanedConversationDetails{
				ConversationID: convID,
				MissingUserIDs: missing,
			},
		})
	}
	return nil
}

// attachDisplayFields decorates issues with name/email of involved users.
func (s *Service) attachDisplayFields(ctx context.Context, report *Report) error {
	idSet := make(map[uint64]bool)
	for _, issue := range report.Issues {
		for _, id := range issueUserIDs(issue) {
			idSet[id] = true
		}
	}
	ids := make([]uint64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	display, err := s.userRepo.DisplayFields(ctx, ids)
	if err != nil {
		return err
	}

	for i := range report.Issues {
		for _, id := range issueUserIDs(report.Issues[i]) {
			if d, ok := display[id]; ok {
				report.Issues[i].Users = append(report.Issues[i].Users, d)
			}
		}
	}
	return nil
}

func issueUserIDs(issue Issue) []uint64 {
	switch det := issue.Details.(type) {
	case *DuplicateMatchDetails:
		return []uint64{det.UserA, det.UserB}
	case *DuplicateConversationDetails:
		return []uint64{det.UserA, det.UserB}
	case *OrphanedConversationDetails:
		return det.MissingUserIDs
	}
	return nil
}
