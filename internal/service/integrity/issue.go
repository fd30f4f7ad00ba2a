package integrity

import (
	"time"

	"github.com/veloradating/matchsvc/internal/repository"
)

// IssueType discriminates the detail payload of an Issue.
type IssueType string

const (
	IssueDuplicateMatch        IssueType = "duplicate_match"
	IssueDuplicateConversation IssueType = "duplicate_conversation"
	IssueOrphanedConversation  IssueType = "orphaned_conversation"
)

// Severity ranks operator attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue is one finding of a scan. Issues are computed fresh on every scan and
// never persisted. IDs are deterministic, so repeated scans over unchanged
// data report identical issue sets.
type Issue struct {
	ID          string    `json:"id"`
	Type        IssueType `json:"issueType"`
	Severity    Severity  `json:"severity"`
	AutoFixable bool      `json:"autoFixable"`

	// Details holds exactly one of the *Details types below, keyed by Type.
	Details any `json:"details"`

	// Users is presentation only: display fields of involved users for
	// operator review. Not part of the detection contract.
	Users []repository.UserDisplay `json:"users,omitempty"`
}

// DuplicateMatchDetails lists every like/super_like row of one relationship
// that has a retry-duplicated direction.
type DuplicateMatchDetails struct {
	UserA      uint64      `json:"userA"`
	UserB      uint64      `json:"userB"`
	MatchIDs   []uint64    `json:"matchIds"`
	CreatedAts []time.Time `json:"createdAts"`
}

// DuplicateConversationDetails lists the raced direct conversations of one
// pair.
type DuplicateConversationDetails struct {
	UserA           uint64      `json:"userA"`
	UserB           uint64      `json:"userB"`
	ConversationIDs []string    `json:"conversationIds"`
	CreatedAts      []time.Time `json:"createdAts"`
}

// OrphanedConversationDetails names the conversation and which participants
// no longer resolve to users.
type OrphanedConversationDetails struct {
	ConversationID string   `json:"conversationId"`
	MissingUserIDs []uint64 `json:"missingUserIds"`
}

// Report is the outcome of one full scan.
type Report struct {
	TotalMatches int64     `json:"totalMatches"`
	CheckedAt    time.Time `json:"checkedAt"`
	SkippedRows  int       `json:"skippedRows"`
	Issues       []Issue   `json:"issues"`
	Summary      Summary   `json:"summary"`
}

// Summary aggregates issue counts for the operator dashboard.
type Summary struct {
	ByType map[IssueType]int `json:"byType"`
}
