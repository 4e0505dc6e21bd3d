package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/dto"
	"github.com/dropforge/case-service/internal/repository"
	"go.uber.org/zap"
)

var imageURLPattern = regexp.MustCompile(`^https?://\S+$`)

const userDetailHistoryLimit = 50

// adminService implements AdminService
type adminService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	caseRepo     repository.CaseRepository
	caseOpenRepo repository.CaseOpenRepository
	audit        *Audit
}

// NewAdminService creates a new admin service
func NewAdminService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	caseRepo repository.CaseRepository,
	caseOpenRepo repository.CaseOpenRepository,
	audit *Audit,
) AdminService {
	return &adminService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		caseRepo:     caseRepo,
		caseOpenRepo: caseOpenRepo,
		audit:        audit,
	}
}

// ListUsers returns all users split into approved and pending groups
func (s *adminService) ListUsers(ctx context.Context) (*dto.UserListResponse, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	response := &dto.UserListResponse{
		Approved: []dto.UserInfo{},
		Pending:  []dto.PendingUserInfo{},
	}

	for _, user := range users {
		if user.Approved {
			response.Approved = append(response.Approved, dto.UserInfo{
				DiscordID: user.DiscordID,
				Username:  user.Username,
				Level:     string(user.Level),
				Balance:   user.Balance,
				Approved:  user.Approved,
				Blocked:   user.Blocked,
				AvatarURL: user.AvatarURL,
			})
		} else {
			response.Pending = append(response.Pending, dto.PendingUserInfo{
				DiscordID: user.DiscordID,
				Username:  user.Username,
				AvatarURL: user.AvatarURL,
			})
		}
	}

	return response, nil
}

// GetUserDetail returns one user with their recent prize history
func (s *adminService) GetUserDetail(ctx context.Context, targetID string) (*dto.UserDetailResponse, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	opens, err := s.caseOpenRepo.ListByUser(ctx, user.DiscordID, userDetailHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list case opens: %w", err)
	}

	return &dto.UserDetailResponse{
		User: dto.UserInfo{
			DiscordID: user.DiscordID,
			Username:  user.Username,
			Level:     string(user.Level),
			Balance:   user.Balance,
			Approved:  user.Approved,
			Blocked:   user.Blocked,
			AvatarURL: user.AvatarURL,
		},
		Prizes: toPrizeRecords(opens),
	}, nil
}

// AdjustBalance applies a signed balance delta to the target user
func (s *adminService) AdjustBalance(ctx context.Context, actorID, targetID string, delta int64) error {
	if err := s.userRepo.AdjustBalance(ctx, targetID, delta); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	s.audit.Event("balance_update",
		zap.String("actor", actorID),
		zap.String("target", targetID),
		zap.Int64("amount", delta),
	)
	return nil
}

// SetLevel changes the target user's level. Granting dev requires a dev
// actor, and admins cannot change their own level.
func (s *adminService) SetLevel(ctx context.Context, actor *domain.User, targetID string, level domain.Level) error {
	assignable := false
	for _, allowed := range domain.AssignableLevels() {
		if level == allowed {
			assignable = true
			break
		}
	}
	if !assignable {
		return domain.ErrInvalidLevel
	}

	if level == domain.LevelDev && actor.Level != domain.LevelDev {
		return domain.ErrAccessDenied
	}

	if targetID == actor.DiscordID {
		return domain.ErrSelfModification
	}

	if err := s.userRepo.SetLevel(ctx, targetID, level); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	s.audit.Event("user_level_update",
		zap.String("actor", actor.DiscordID),
		zap.String("target", targetID),
		zap.String("level", string(level)),
	)
	return nil
}

// Decide approves or denies a pending user
func (s *adminService) Decide(ctx context.Context, actorID, targetID string, approved bool) error {
	if err := s.userRepo.SetDecision(ctx, targetID, approved); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	event := "user_denied"
	if approved {
		event = "user_approved"
	}
	s.audit.Event(event, zap.String("actor", actorID), zap.String("target", targetID))
	return nil
}

// SetBlocked blocks or unblocks the target user. Blocking also revokes
// every session of the target so the block takes effect at the next refresh.
func (s *adminService) SetBlocked(ctx context.Context, actorID, targetID string, blocked bool) error {
	if targetID == actorID {
		return domain.ErrSelfModification
	}

	if err := s.userRepo.SetBlocked(ctx, targetID, blocked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	if blocked {
		if err := s.sessionRepo.RevokeAllForUser(ctx, targetID); err != nil {
			return fmt.Errorf("failed to revoke sessions of blocked user: %w", err)
		}
	}

	s.audit.Event("user_block",
		zap.String("actor", actorID),
		zap.String("target", targetID),
		zap.Bool("blocked", blocked),
	)
	return nil
}

// ConfirmPrize marks a delivered prize as confirmed
func (s *adminService) ConfirmPrize(ctx context.Context, actorID, targetID, caseName, prize string) error {
	if err := s.caseOpenRepo.Confirm(ctx, targetID, caseName, prize); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	s.audit.Event("prize_confirm",
		zap.String("actor", actorID),
		zap.String("target", targetID),
		zap.String("prize", prize),
	)
	return nil
}

// UpsertCase creates or redefines a case and its prize pool
func (s *adminService) UpsertCase(ctx context.Context, actorID string, req *dto.UpsertCaseRequest) error {
	if req.ImageURL != "" && !imageURLPattern.MatchString(req.ImageURL) {
		return domain.ErrInvalidImageURL
	}

	minLevel := domain.Level(strings.TrimSpace(req.MinLevel))
	assignable := false
	for _, allowed := range domain.AssignableLevels() {
		if minLevel == allowed {
			assignable = true
			break
		}
	}
	if !assignable {
		minLevel = domain.LevelUser
	}

	box := &domain.Case{
		Name:       req.Name,
		Price:      req.Price,
		MinLevel:   minLevel,
		MaxPerUser: req.MaxPerUser,
		MaxTotal:   req.MaxTotal,
		Disabled:   req.Disabled,
	}
	if req.ImageURL != "" {
		box.ImageURL = &req.ImageURL
	}

	for _, prize := range req.Prizes {
		entry := domain.Prize{
			Name:     prize.Name,
			Rarity:   prize.Rarity,
			Quantity: prize.Quantity,
		}
		if prize.Image != "" {
			entry.Image = &prize.Image
		}
		box.Prizes = append(box.Prizes, entry)
	}

	if err := s.caseRepo.Upsert(ctx, box); err != nil {
		return err
	}

	s.audit.Event("case_upsert", zap.String("actor", actorID), zap.String("case_name", req.Name))
	return nil
}

// DeleteCase removes a case and its prizes
func (s *adminService) DeleteCase(ctx context.Context, actorID, name string) error {
	if err := s.caseRepo.Delete(ctx, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrCaseNotFound
		}
		return err
	}

	s.audit.Event("case_delete", zap.String("actor", actorID), zap.String("case_name", name))
	return nil
}

// ListCasesFull returns the unprojected case definitions for the admin panel
func (s *adminService) ListCasesFull(ctx context.Context) (*dto.AdminCaseListResponse, error) {
	cases, err := s.caseRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.AdminCaseListResponse{Cases: cases}, nil
}
