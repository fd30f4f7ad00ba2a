package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/veloradating/matchsvc/internal/db"
	svcErr "github.com/veloradating/matchsvc/internal/errors"
)

// UserDisplay is the operator-facing slice of a user record.
type UserDisplay struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserRepository is the boundary to the user directory. This service does not
// own identity; it checks existence and fetches display fields only.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// ExistingIDs returns which of the given ids resolve to a user record.
func (r *UserRepository) ExistingIDs(ctx context.Context, ids []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []uint64
	err := r.db.WithContext(ctx).Model(&db.User{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, svcErr.Persistence("user existence check", err)
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

// Exists reports whether a single user id resolves.
func (r *UserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	existing, err := r.ExistingIDs(ctx, []uint64{id})
	if err != nil {
		return false, err
	}
	return existing[id], nil
}

// DisplayFields returns name/email per user id for operator review. Missing
// ids are simply absent from the map.
func (r *UserRepository) DisplayFields(ctx context.Context, ids []uint64) (map[uint64]UserDisplay, error) {
	out := make(map[uint64]UserDisplay, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	err := r.db.WithContext(ctx).
		Select("id", "display_name", "username", "email").
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, svcErr.Persistence("user display fetch", err)
	}
	for _, u := range users {
		name := u.DisplayName
		if name == "" {
			name = u.Username
		}
		out[u.ID] = UserDisplay{ID: u.ID, Name: name, Email: u.Email}
	}
	return out, nil
}
