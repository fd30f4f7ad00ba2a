package db

import (
	"fmt"
	"time"
)

// ActionKind is the kind of a directional swipe action.
type ActionKind string

const (
	ActionLike      ActionKind = "like"
	ActionPass      ActionKind = "pass"
	ActionSuperLike ActionKind = "super_like"
)

// Valid reports whether k is one of the three known kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionLike, ActionPass, ActionSuperLike:
		return true
	}
	return false
}

// Positive reports whether the kind counts toward a mutual match.
func (k ActionKind) Positive() bool {
	return k == ActionLike || k == ActionSuperLike
}

// ConversationKind discriminates direct (two-party) from group threads.
type ConversationKind string

const (
	ConversationDirect ConversationKind = "direct"
	ConversationGroup  ConversationKind = "group"
)

// User mirrors the user directory. This service does not own identity; it
// only needs existence checks and display fields for operator reports.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:128"`
	Active       bool   `gorm:"default:true"`
	LastLoginAt  time.Time
	Gender       string    `gorm:"size:16;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Action is a directional like/pass/super_like record from actor to target.
//
// There is deliberately no unique constraint on (actor_id, target_id):
// recording must stay fast and available under client retries, so duplicate
// rows are tolerated at write time and reconciled asynchronously by the
// integrity scanner.
//
// Indexes:
//   - idx_actions_actor_target(actor_id, target_id, kind)
//     O(1) reverse-row lookup for mutual-match detection.
//   - idx_actions_target_kind(target_id, kind, created_at DESC, actor_id)
//     "who liked me" listings with cursor pagination.
type Action struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	ActorID   uint64     `gorm:"not null;index:idx_actions_actor_target,priority:1"`
	TargetID  uint64     `gorm:"not null;index:idx_actions_actor_target,priority:2;index:idx_actions_target_kind,priority:1"`
	Kind      ActionKind `gorm:"size:16;not null;index:idx_actions_actor_target,priority:3;index:idx_actions_target_kind,priority:2"`
	IsMutual  bool       `gorm:"not null;default:false"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index:idx_actions_target_kind,priority:3,sort:desc"`
}

// Conversation is a chat thread. Direct conversations carry a normalized
// PairKey so at-most-one-per-pair lookups are a single indexed query; group
// conversations leave it empty.
type Conversation struct {
	ID        string           `gorm:"primaryKey;size:36"`
	Kind      ConversationKind `gorm:"size:16;not null"`
	PairKey   string           `gorm:"size:64;index:idx_conversations_pair"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
}

// ConversationParticipant is one membership row; a direct conversation has
// exactly two.
type ConversationParticipant struct {
	ConversationID string `gorm:"primaryKey;size:36"`
	UserID         uint64 `gorm:"primaryKey;index:idx_participants_user"`
}

// Message belongs to exactly one conversation. Ownership moves during
// duplicate-conversation merges; CreatedAt is never rewritten, so chronology
// survives a merge.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	ConversationID string    `gorm:"size:36;not null;index:idx_messages_conversation"`
	SenderID       uint64    `gorm:"not null"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// PairKey normalizes an unordered user pair into its canonical lookup key.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
