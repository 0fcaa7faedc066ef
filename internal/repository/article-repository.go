package repository

import (
	"errors"
	"log"

	"github.com/SundayYogurt/inkpress-account-svc/internal/domain"
	"gorm.io/gorm"
)

type ArticleRepository interface {
	FindIDsByAuthor(table, author string) ([]string, error)
	UpdateAuthorPicture(table, articleID, pictureURL string) error
	// RemoveAllByAuthor clears both the published and the draft tables.
	RemoveAllByAuthor(author string) error
}

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) FindIDsByAuthor(table, author string) ([]string, error) {
	var ids []string

	err := r.db.Table(table).
		Where("author = ?", author).
		Pluck("id", &ids).Error
	if err != nil {
		log.Printf("find articles in %s error: %v", table, err)
		return nil, errors.New("failed to query articles")
	}
	return ids, nil
}

func (r *articleRepository) UpdateAuthorPicture(table, articleID, pictureURL string) error {
	err := r.db.Table(table).
		Where("id = ?", articleID).
		Update("author_picture", pictureURL).Error
	if err != nil {
		log.Printf("relink picture in %s error: %v", table, err)
		return errors.New("failed to update article picture")
	}
	return nil
}

func (r *articleRepository) RemoveAllByAuthor(author string) error {
	for _, table := range []string{domain.ArticleTablePublished, domain.ArticleTableDrafts} {
		if err := r.db.Table(table).Where("author = ?", author).Delete(&domain.Article{}).Error; err != nil {
			log.Printf("delete articles in %s error: %v", table, err)
			return errors.New("failed to delete articles")
		}
	}
	return nil
}
