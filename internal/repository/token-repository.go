package repository

import (
	"errors"
	"log"

	"github.com/SundayYogurt/inkpress-account-svc/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository interface {
	// Save persists a token; a prior entry with the same value is replaced.
	Save(token *domain.VerificationToken) error
	GetByValue(value string) (*domain.VerificationToken, error)
	Delete(value string) error
	DeleteAllForUser(username string) error
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Save(token *domain.VerificationToken) error {
	if token == nil || token.Value == "" {
		return errors.New("invalid token")
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "value"}},
		UpdateAll: true,
	}).Create(token).Error
	if err != nil {
		log.Printf("save token error: %v", err)
		return errors.New("failed to save token")
	}
	return nil
}

func (r *tokenRepository) GetByValue(value string) (*domain.VerificationToken, error) {
	token := &domain.VerificationToken{}

	err := r.db.First(token, "value = ?", value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("find token error: %v", err)
		return nil, errors.New("failed to find token")
	}
	return token, nil
}

func (r *tokenRepository) Delete(value string) error {
	if err := r.db.Delete(&domain.VerificationToken{}, "value = ?", value).Error; err != nil {
		log.Printf("delete token error: %v", err)
		return errors.New("failed to delete token")
	}
	return nil
}

func (r *tokenRepository) DeleteAllForUser(username string) error {
	if err := r.db.Delete(&domain.VerificationToken{}, "username = ?", username).Error; err != nil {
		log.Printf("delete tokens for %s error: %v", username, err)
		return errors.New("failed to delete tokens")
	}
	return nil
}
