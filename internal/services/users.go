package services

import (
	"errors"
	"strings"
	"time"

	"task-tracker/server/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type ProfileUpdate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type UserService interface {
	GetUserProfile(db *gorm.DB, userID uuid.UUID) (*models.User, error)
	UpdateUserProfile(db *gorm.DB, userID uuid.UUID, update ProfileUpdate) (*models.User, error)
}

type UserServiceImpl struct{}

func NewUserService() *UserServiceImpl {
	return &UserServiceImpl{}
}

func (s *UserServiceImpl) GetUserProfile(db *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserServiceImpl) UpdateUserProfile(db *gorm.DB, userID uuid.UUID, update ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email != user.Email {
			var other models.User
			err := db.Where("email = ? AND id <> ?", email, userID).First(&other).Error
			if err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		user.Email = email
	}

	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	user.UpdatedAt = time.Now()

	if err := db.Save(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}
