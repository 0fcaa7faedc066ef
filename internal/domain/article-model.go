package domain

// Article tables the account flows touch. Published pieces and drafts live
// in separate tables; picture relinking and account deletion cover both.
const (
	ArticleTablePublished = "articles"
	ArticleTableDrafts    = "drafts"
)

type Article struct {
	ID            string `gorm:"primaryKey;size:64" json:"id"`
	Author        string `gorm:"index;not null" json:"author"`
	Title         string `json:"title"`
	AuthorPicture string `json:"author_picture"`
}
