package repository

import (
	"github.com/dropforge/case-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User       UserRepository
	Session    SessionRepository
	OAuthState OAuthStateRepository
	Case       CaseRepository
	CaseOpen   CaseOpenRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres, redis *database.Redis) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Session:    NewSessionRepository(db),
		OAuthState: NewOAuthStateRepository(redis),
		Case:       NewCaseRepository(db),
		CaseOpen:   NewCaseOpenRepository(db),
	}
}
