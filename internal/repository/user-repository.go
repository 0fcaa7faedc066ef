package repository

import (
	"errors"
	"log"

	"github.com/SundayYogurt/inkpress-account-svc/internal/domain"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	CreateUser(user *domain.User) error
	FindUserByUsername(username string) (*domain.User, error)
	// UpdateUserField writes exactly one allow-listed column.
	UpdateUserField(username string, update domain.UserUpdate) error
	DeleteUser(username string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(user *domain.User) error {
	if user == nil {
		return errors.New("nil user")
	}

	if err := r.db.Create(user).Error; err != nil {
		log.Printf("create user error: %v", err)
		return errors.New("failed to create user")
	}
	return nil
}

func (r *userRepository) FindUserByUsername(username string) (*domain.User, error) {
	user := &domain.User{}

	err := r.db.First(user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("find user by username error: %v", err)
		return nil, errors.New("failed to find user")
	}
	return user, nil
}

func (r *userRepository) UpdateUserField(username string, update domain.UserUpdate) error {
	res := r.db.Model(&domain.User{}).
		Where("username = ?", username).
		Update(update.Column(), update.Value())
	if res.Error != nil {
		log.Printf("update user %s error: %v", update.Column(), res.Error)
		return errors.New("failed to update user")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) DeleteUser(username string) error {
	res := r.db.Delete(&domain.User{}, "username = ?", username)
	if res.Error != nil {
		log.Printf("delete user error: %v", res.Error)
		return errors.New("failed to delete user")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
