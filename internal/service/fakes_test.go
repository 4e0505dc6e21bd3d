package service

import (
	"context"
	"sync"
	"time"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/repository"
	"github.com/google/uuid"
)

// In-memory repository fakes mirroring the conditional-update semantics of
// the SQL implementations.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) put(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.DiscordID] = &copied
}

func (r *fakeUserRepo) UpsertOnLogin(_ context.Context, discordID, username string, avatarURL *string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[discordID]; ok {
		existing.Username = username
		existing.AvatarURL = avatarURL
		copied := *existing
		return &copied, nil
	}

	user := &domain.User{
		DiscordID: discordID,
		Username:  username,
		AvatarURL: avatarURL,
		Level:     domain.LevelPending,
		CreatedAt: time.Now(),
	}
	r.users[discordID] = user
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, discordID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[discordID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]*domain.User, 0, len(r.users))
	for _, user := range r.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (r *fakeUserRepo) AdjustBalance(_ context.Context, discordID string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[discordID]
	if !ok {
		return repository.ErrNotFound
	}
	if user.Balance+delta < 0 {
		return domain.ErrInsufficientBalance
	}
	user.Balance += delta
	return nil
}

func (r *fakeUserRepo) SetLevel(_ context.Context, discordID string, level domain.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[discordID]
	if !ok {
		return repository.ErrNotFound
	}
	user.Level = level
	user.Approved = true
	return nil
}

func (r *fakeUserRepo) SetDecision(_ context.Context, discordID string, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[discordID]
	if !ok {
		return repository.ErrNotFound
	}
	user.Approved = approved
	if approved {
		user.Level = domain.LevelUser
	} else {
		user.Level = domain.LevelPending
	}
	return nil
}

func (r *fakeUserRepo) SetBlocked(_ context.Context, discordID string, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[discordID]
	if !ok {
		return repository.ErrNotFound
	}
	user.Blocked = blocked
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.RefreshHash]; exists {
		return repository.ErrDuplicateSession
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	copied := *session
	r.sessions[session.RefreshHash] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByRefreshHash(_ context.Context, refreshHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[refreshHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Rotate(_ context.Context, refreshHash, replacedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[refreshHash]
	if !ok || !session.IsActive(time.Now()) {
		return repository.ErrSessionConsumed
	}

	now := time.Now()
	session.RevokedAt = &now
	session.LastUsedAt = &now
	session.ReplacedBy = &replacedBy
	return nil
}

func (r *fakeSessionRepo) RevokeByRefreshHash(_ context.Context, refreshHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[refreshHash]; ok && session.RevokedAt == nil {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

func (r *fakeSessionRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			session.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeSessionRepo) EnforceSessionCap(_ context.Context, _ string, _ int) error {
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for hash, session := range r.sessions {
		if session.ExpiresAt.Before(before) {
			delete(r.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeSessionRepo) activeCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && session.IsActive(time.Now()) {
			count++
		}
	}
	return count
}

type fakeOAuthStateRepo struct {
	mu        sync.Mutex
	attempts  map[string]*domain.OAuthAttempt
	usedCodes map[string]struct{}
}

func newFakeOAuthStateRepo() *fakeOAuthStateRepo {
	return &fakeOAuthStateRepo{
		attempts:  make(map[string]*domain.OAuthAttempt),
		usedCodes: make(map[string]struct{}),
	}
}

func (r *fakeOAuthStateRepo) CreateAttempt(_ context.Context, attempt *domain.OAuthAttempt, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *attempt
	r.attempts[attempt.State] = &copied
	return nil
}

func (r *fakeOAuthStateRepo) ConsumeAttempt(_ context.Context, state string) (*domain.OAuthAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, ok := r.attempts[state]
	if !ok {
		return nil, repository.ErrStateNotFound
	}
	delete(r.attempts, state)
	return attempt, nil
}

func (r *fakeOAuthStateRepo) MarkCodeUsed(_ context.Context, codeHash string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, used := r.usedCodes[codeHash]; used {
		return repository.ErrCodeAlreadyUsed
	}
	r.usedCodes[codeHash] = struct{}{}
	return nil
}

type fakeCaseRepo struct {
	mu    sync.Mutex
	cases map[string]*domain.Case
	users *fakeUserRepo
	opens *fakeCaseOpenRepo
}

func newFakeCaseRepo(users *fakeUserRepo, opens *fakeCaseOpenRepo) *fakeCaseRepo {
	return &fakeCaseRepo{
		cases: make(map[string]*domain.Case),
		users: users,
		opens: opens,
	}
}

func (r *fakeCaseRepo) put(box *domain.Case) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *box
	copied.Prizes = append([]domain.Prize(nil), box.Prizes...)
	r.cases[box.Name] = &copied
}

func (r *fakeCaseRepo) GetByName(_ context.Context, name string) (*domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	box, ok := r.cases[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *box
	copied.Prizes = append([]domain.Prize(nil), box.Prizes...)
	return &copied, nil
}

func (r *fakeCaseRepo) List(_ context.Context) ([]*domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	boxes := make([]*domain.Case, 0, len(r.cases))
	for _, box := range r.cases {
		copied := *box
		copied.Prizes = append([]domain.Prize(nil), box.Prizes...)
		boxes = append(boxes, &copied)
	}
	return boxes, nil
}

func (r *fakeCaseRepo) Upsert(_ context.Context, box *domain.Case) error {
	r.put(box)
	return nil
}

func (r *fakeCaseRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cases[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.cases, name)
	return nil
}

// Open mirrors the transactional guards of the SQL implementation: every
// limit is re-checked at commit time under one lock.
func (r *fakeCaseRepo) Open(_ context.Context, params repository.OpenParams) (*domain.CaseOpen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users.mu.Lock()
	user, ok := r.users.users[params.UserID]
	if !ok || user.Blocked || user.Balance < params.Price {
		r.users.mu.Unlock()
		return nil, domain.ErrInsufficientBalance
	}

	box, ok := r.cases[params.CaseName]
	if !ok || box.Disabled || (box.MaxTotal > 0 && box.TotalOpened >= box.MaxTotal) {
		r.users.mu.Unlock()
		return nil, domain.ErrCaseTotalLimit
	}

	var prize *domain.Prize
	if params.Finite {
		for i := range box.Prizes {
			if box.Prizes[i].ID == params.PrizeID {
				prize = &box.Prizes[i]
				break
			}
		}
		if prize == nil || prize.Remaining == nil || *prize.Remaining <= 0 {
			r.users.mu.Unlock()
			return nil, domain.ErrNoPrizesAvailable
		}
	}

	if params.MaxPerUser > 0 && r.opens.count(params.UserID, params.CaseName) >= params.MaxPerUser {
		r.users.mu.Unlock()
		return nil, domain.ErrUserCaseLimit
	}

	user.Balance -= params.Price
	user.OpenedCasesCount++
	r.users.mu.Unlock()

	box.TotalOpened++
	if prize != nil {
		*prize.Remaining--
	}

	record := &domain.CaseOpen{
		ID:        uuid.New().String(),
		UserID:    params.UserID,
		CaseName:  params.CaseName,
		Prize:     params.PrizeName,
		CreatedAt: time.Now(),
	}
	r.opens.add(record)
	return record, nil
}

type fakeCaseOpenRepo struct {
	mu    sync.Mutex
	opens []*domain.CaseOpen
}

func newFakeCaseOpenRepo() *fakeCaseOpenRepo {
	return &fakeCaseOpenRepo{}
}

func (r *fakeCaseOpenRepo) add(record *domain.CaseOpen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *record
	r.opens = append(r.opens, &copied)
}

func (r *fakeCaseOpenRepo) count(userID, caseName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, open := range r.opens {
		if open.UserID == userID && open.CaseName == caseName {
			count++
		}
	}
	return count
}

func (r *fakeCaseOpenRepo) CountByUserAndCase(_ context.Context, userID, caseName string) (int, error) {
	return r.count(userID, caseName), nil
}

func (r *fakeCaseOpenRepo) CountByUserGrouped(_ context.Context, userID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, open := range r.opens {
		if open.UserID == userID {
			counts[open.CaseName]++
		}
	}
	return counts, nil
}

func (r *fakeCaseOpenRepo) ListByUser(_ context.Context, userID string, limit int) ([]*domain.CaseOpen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []*domain.CaseOpen
	for i := len(r.opens) - 1; i >= 0 && len(records) < limit; i-- {
		if r.opens[i].UserID == userID {
			copied := *r.opens[i]
			records = append(records, &copied)
		}
	}
	return records, nil
}

func (r *fakeCaseOpenRepo) Confirm(_ context.Context, userID, caseName, prize string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, open := range r.opens {
		if open.UserID == userID && open.CaseName == caseName && open.Prize == prize && open.ConfirmedAt == nil {
			now := time.Now()
			open.ConfirmedAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

var (
	_ repository.UserRepository       = (*fakeUserRepo)(nil)
	_ repository.SessionRepository    = (*fakeSessionRepo)(nil)
	_ repository.OAuthStateRepository = (*fakeOAuthStateRepo)(nil)
	_ repository.CaseRepository       = (*fakeCaseRepo)(nil)
	_ repository.CaseOpenRepository   = (*fakeCaseOpenRepo)(nil)
)
