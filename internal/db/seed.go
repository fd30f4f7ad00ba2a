package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo users, actions
// and conversations.
//
// Behavior:
//  1. Clears all tables owned by this service.
//  2. Creates 20 users (10 male, 10 female) with hashed passwords.
//  3. Generates ~200 actions with ~70% likes; every 3rd pair is made mutual
//     and gets a direct conversation with a couple of messages.
//  4. Injects deliberate data drift (duplicate actions, a duplicate
//     conversation, an orphaned conversation) so the integrity tooling has
//     real findings in development.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "conversation_participants", "conversations", "actions", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE actions AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('actions', 'users', 'messages')")
	}

	log.Println("Cleared existing data")

	// --- Seed Users (10 male, 10 female) ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender := "male"
		if i > 10 {
			gender = "female"
		}

		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			DisplayName:  fmt.Sprintf("User %d", i),
			Gender:       gender,
			Active:       true,
			LastLoginAt:  time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}

		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 20 users.")

	// --- Seed Actions (~200) ---
	counter := 0
	for actorID := uint64(1); actorID <= 20; actorID++ {
		for j := 0; j < 12; j++ { // each user acts on ~12 others
			targetID := uint64(r.Intn(20) + 1)
			if actorID == targetID {
				continue
			}

			var actor, target User
			if err := db.First(&actor, actorID).Error; err != nil {
				continue
			}
			if err := db.First(&target, targetID).Error; err != nil {
				continue
			}
			if actor.Gender == target.Gender {
				continue
			}

			kind := ActionPass
			if r.Intn(100) < 70 {
				kind = ActionLike
				if r.Intn(10) == 0 {
					kind = ActionSuperLike
				}
			}
			mutual := false

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				kind = ActionLike
				mutual = true
				recip := Action{
					ActorID:  targetID,
					TargetID: actorID,
					Kind:     ActionLike,
					IsMutual: true,
				}
				if err := db.Create(&recip).Error; err != nil {
					return fmt.Errorf("failed to seed reciprocal action: %w", err)
				}
			}

			action := Action{
				ActorID:  actorID,
				TargetID: targetID,
				Kind:     kind,
				IsMutual: mutual,
			}
			if err := db.Create(&action).Error; err != nil {
				return fmt.Errorf("failed to seed action: %w", err)
			}

			if mutual {
				if err := seedDirectConversation(db, actorID, targetID, 2); err != nil {
					return err
				}
			}

			counter++
		}
	}

	return seedDrift(db)
}

// seedDirectConversation creates a direct conversation for the pair with n
// filler messages, skipping pairs that already have one.
func seedDirectConversation(db *gorm.DB, a, b uint64, n int) error {
	key := PairKey(a, b)

	var count int64
	db.Model(&Conversation{}).Where("pair_key = ?", key).Count(&count)
	if count > 0 {
		return nil
	}

	conv := Conversation{
		ID:      uuid.NewString(),
		Kind:    ConversationDirect,
		PairKey: key,
	}
	if err := db.Create(&conv).Error; err != nil {
		return fmt.Errorf("failed to seed conversation: %w", err)
	}
	participants := []ConversationParticipant{
		{ConversationID: conv.ID, UserID: a},
		{ConversationID: conv.ID, UserID: b},
	}
	if err := db.Create(&participants).Error; err != nil {
		return fmt.Errorf("failed to seed participants: %w", err)
	}

	for i := 0; i < n; i++ {
		sender := a
		if i%2 == 1 {
			sender = b
		}
		msg := Message{
			ConversationID: conv.ID,
			SenderID:       sender,
			Content:        fmt.Sprintf("hey there (%d)", i+1),
		}
		if err := db.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to seed message: %w", err)
		}
	}
	return nil
}

// seedDrift plants the kinds of inconsistencies the integrity scanner exists
// to find: retry-duplicated actions, a raced duplicate conversation, and a
// conversation pointing at a user that no longer exists.
func seedDrift(db *gorm.DB) error {
	// duplicate like rows: user1 -> user11, three times
	for i := 0; i < 3; i++ {
		dup := Action{ActorID: 1, TargetID: 11, Kind: ActionLike}
		if err := db.Create(&dup).Error; err != nil {
			return fmt.Errorf("failed to seed duplicate action: %w", err)
		}
	}

	// duplicate direct conversation for {2, 12}
	key := PairKey(2, 12)
	var stale []Conversation
	db.Where("pair_key = ?", key).Find(&stale)
	for _, conv := range stale {
		db.Where("conversation_id = ?", conv.ID).Delete(&ConversationParticipant{})
		db.Where("conversation_id = ?", conv.ID).Delete(&Message{})
	}
	db.Where("pair_key = ?", key).Delete(&Conversation{})
	for i := 0; i < 2; i++ {
		conv := Conversation{ID: uuid.NewString(), Kind: ConversationDirect, PairKey: key}
		if err := db.Create(&conv).Error; err != nil {
			return err
		}
		parts := []ConversationParticipant{
			{ConversationID: conv.ID, UserID: 2},
			{ConversationID: conv.ID, UserID: 12},
		}
		if err := db.Create(&parts).Error; err != nil {
			return err
		}
		msg := Message{ConversationID: conv.ID, SenderID: 2, Content: fmt.Sprintf("split thread %d", i+1)}
		if err := db.Create(&msg).Error; err != nil {
			return err
		}
	}

	// orphaned conversation: user 999 does not exist
	orphan := Conversation{ID: uuid.NewString(), Kind: ConversationDirect, PairKey: PairKey(3, 999)}
	if err := db.Create(&orphan).Error; err != nil {
		return err
	}
	parts := []ConversationParticipant{
		{ConversationID: orphan.ID, UserID: 3},
		{ConversationID: orphan.ID, UserID: 999},
	}
	if err := db.Create(&parts).Error; err != nil {
		return err
	}

	log.Println("Seeded data drift for integrity tooling.")
	return nil
}
