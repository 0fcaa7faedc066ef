package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SundayYogurt/inkpress-account-svc/internal/domain"
	"github.com/SundayYogurt/inkpress-account-svc/internal/repository"
)

type fakeUserRepo struct {
	users map[string]*domain.User

	createErr error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (f *fakeUserRepo) CreateUser(user *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.users[user.Username]; exists {
		return errors.New("duplicate username")
	}
	u := *user
	f.users[user.Username] = &u
	return nil
}

func (f *fakeUserRepo) FindUserByUsername(username string) (*domain.User, error) {
	u, exists := f.users[username]
	if !exists {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateUserField(username string, update domain.UserUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, exists := f.users[username]
	if !exists {
		return repository.ErrNotFound
	}
	switch update.Column() {
	case "password_hash":
		u.PasswordHash = update.Value().(string)
	case "email":
		u.Email = update.Value().(string)
	case "verified":
		u.Verified = update.Value().(string)
	case "last_password_change":
		u.LastPasswordChange = update.Value().(int64)
	case "last_email_change":
		u.LastEmailChange = update.Value().(int64)
	case "profile_picture":
		u.ProfilePicture = update.Value().(string)
	case "profile_picture_changed_at":
		u.ProfilePictureChangedAt = update.Value().(int64)
	case "liked_article_ids":
		u.LikedArticleIDs = update.Value().([]string)
	default:
		return fmt.Errorf("unexpected column %q", update.Column())
	}
	return nil
}

func (f *fakeUserRepo) DeleteUser(username string) error {
	if _, exists := f.users[username]; !exists {
		return repository.ErrNotFound
	}
	delete(f.users, username)
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]*domain.VerificationToken

	saveErr error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*domain.VerificationToken{}}
}

func (f *fakeTokenRepo) Save(token *domain.VerificationToken) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	t := *token
	f.tokens[token.Value] = &t
	return nil
}

func (f *fakeTokenRepo) GetByValue(value string) (*domain.VerificationToken, error) {
	t, exists := f.tokens[value]
	if !exists {
		return nil, repository.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTokenRepo) Delete(value string) error {
	delete(f.tokens, value)
	return nil
}

func (f *fakeTokenRepo) DeleteAllForUser(username string) error {
	for value, t := range f.tokens {
		if t.Username == username {
			delete(f.tokens, value)
		}
	}
	return nil
}

// forUser returns the user's tokens of one kind, for assertions.
func (f *fakeTokenRepo) forUser(username, kind string) []*domain.VerificationToken {
	var out []*domain.VerificationToken
	for _, t := range f.tokens {
		if t.Username == username && t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

type fakeArticleRepo struct {
	mu sync.Mutex
	// table -> article id -> author picture URL
	pictures map[string]map[string]string
	authors  map[string]map[string]string // table -> id -> author

	queryErr error
}

func newFakeArticleRepo() *fakeArticleRepo {
	f := &fakeArticleRepo{
		pictures: map[string]map[string]string{},
		authors:  map[string]map[string]string{},
	}
	for _, table := range []string{domain.ArticleTablePublished, domain.ArticleTableDrafts} {
		f.pictures[table] = map[string]string{}
		f.authors[table] = map[string]string{}
	}
	return f
}

func (f *fakeArticleRepo) add(table, id, author, picture string) {
	f.authors[table][id] = author
	f.pictures[table][id] = picture
}

func (f *fakeArticleRepo) FindIDsByAuthor(table, author string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var ids []string
	for id, a := range f.authors[table] {
		if a == author {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeArticleRepo) UpdateAuthorPicture(table, articleID, pictureURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pictures[table][articleID] = pictureURL
	return nil
}

func (f *fakeArticleRepo) RemoveAllByAuthor(author string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, table := range []string{domain.ArticleTablePublished, domain.ArticleTableDrafts} {
		for id, a := range f.authors[table] {
			if a == author {
				delete(f.authors[table], id)
				delete(f.pictures[table], id)
			}
		}
	}
	return nil
}

type fakeObjectStore struct {
	stored  map[string][2]int // id -> width, height
	removed []string

	storeErr  error
	removeErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{stored: map[string][2]int{}}
}

func (f *fakeObjectStore) StoreImage(_ context.Context, id string, _ []byte, width, height int) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.stored[id] = [2]int{width, height}
	return "https://cdn.test/inkpress/avatars/" + id + ".jpg", nil
}

func (f *fakeObjectStore) Remove(_ context.Context, id string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	return nil
}

type mailRecord struct {
	kind     string
	email    string
	username string
	code     string
}

type fakeMailer struct {
	sent    []mailRecord
	sendErr error
}

func (f *fakeMailer) record(kind, email, username, code string) error {
	f.sent = append(f.sent, mailRecord{kind: kind, email: email, username: username, code: code})
	return f.sendErr
}

func (f *fakeMailer) SendVerification(email, username, code string) error {
	return f.record("verification", email, username, code)
}

func (f *fakeMailer) SendEmailChangeVerification(email, username, code string) error {
	return f.record("email_change", email, username, code)
}

func (f *fakeMailer) SendPasswordReset(email, username, code string) error {
	return f.record("password_reset", email, username, code)
}

func (f *fakeMailer) SendNewPassword(email, username, newPassword string) error {
	return f.record("new_password", email, username, newPassword)
}

func (f *fakeMailer) last() mailRecord {
	if len(f.sent) == 0 {
		return mailRecord{}
	}
	return f.sent[len(f.sent)-1]
}
