package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/zhanyysh/Chat02/internal/apperr"
	"github.com/zhanyysh/Chat02/internal/models"
)

// UserStore is a read-side lookup for user identities referenced by
// messages and memberships. Users are created by the signup collaborator and
// never deleted here.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) ByID(id uint) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUnknownUser
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Search(query string, excludeID uint, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.
		Where("username LIKE ? AND id <> ?", "%"+query+"%", excludeID).
		Limit(limit).
		Find(&users).Error
	return users, err
}
