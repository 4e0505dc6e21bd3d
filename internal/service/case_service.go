package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/dto"
	"github.com/dropforge/case-service/internal/repository"
	"go.uber.org/zap"
)

// rarityWeights maps a prize rarity tag to its selection weight; lower
// weight means rarer. Unknown tags fall back to defaultRarityWeight.
var rarityWeights = map[string]int64{
	"Редкий":      50,
	"Эпический":   30,
	"Мифический":  15,
	"Легендарный": 5,
}

const (
	defaultRarityWeight = 10
	minRarityWeight     = 1

	// displayLength and displayPrizeIndex shape the cosmetic reel shown by
	// the client; the real prize always lands at the same position
	displayLength     = 16
	displayPrizeIndex = 12

	profileHistoryLimit = 200
)

// caseService implements CaseService
type caseService struct {
	userRepo     repository.UserRepository
	caseRepo     repository.CaseRepository
	caseOpenRepo repository.CaseOpenRepository
	audit        *Audit
}

// NewCaseService creates a new case service
func NewCaseService(
	userRepo repository.UserRepository,
	caseRepo repository.CaseRepository,
	caseOpenRepo repository.CaseOpenRepository,
	audit *Audit,
) CaseService {
	return &caseService{
		userRepo:     userRepo,
		caseRepo:     caseRepo,
		caseOpenRepo: caseOpenRepo,
		audit:        audit,
	}
}

// ListCases returns every case with remaining-quantity projections for the
// requesting user, ordered by minimum level
func (s *caseService) ListCases(ctx context.Context, userID string) (*dto.CaseListResponse, error) {
	user, err := s.requireActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	boxes, err := s.caseRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	userOpens, err := s.caseOpenRepo.CountByUserGrouped(ctx, user.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to count user opens: %w", err)
	}

	summaries := make([]dto.CaseSummary, 0, len(boxes))
	for _, box := range boxes {
		summary := dto.CaseSummary{
			Name:     box.Name,
			Price:    box.Price,
			MinLevel: string(box.MinLevel),
			ImageURL: box.ImageURL,
			Disabled: box.Disabled,
		}

		if box.MaxTotal > 0 {
			remaining := max(box.MaxTotal-box.TotalOpened, 0)
			summary.RemainingTotal = &remaining
		}
		if box.MaxPerUser > 0 {
			remaining := max(box.MaxPerUser-userOpens[box.Name], 0)
			summary.RemainingPerUser = &remaining
		}

		for _, prize := range box.Prizes {
			summary.Prizes = append(summary.Prizes, dto.PrizeBrief{
				Name:   prize.Name,
				Rarity: prize.Rarity,
				Emoji:  prize.Image,
			})
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return domain.Level(summaries[i].MinLevel).Rank() < domain.Level(summaries[j].MinLevel).Rank()
	})

	return &dto.CaseListResponse{Cases: summaries}, nil
}

// GetProfile returns the user's profile and recent prize history
func (s *caseService) GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	user, err := s.requireActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	opens, err := s.caseOpenRepo.ListByUser(ctx, user.DiscordID, profileHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list case opens: %w", err)
	}

	createdAt := user.CreatedAt
	response := &dto.ProfileResponse{
		User: dto.UserInfo{
			DiscordID: user.DiscordID,
			Username:  user.Username,
			Level:     string(user.Level),
			Balance:   user.Balance,
			Approved:  user.Approved,
			Blocked:   user.Blocked,
			AvatarURL: user.AvatarURL,
			CreatedAt: &createdAt,
		},
		Prizes: toPrizeRecords(opens),
	}

	return response, nil
}

// Open prices, selects and records a prize for the user. Preconditions are
// checked in order with distinct failures; the commit itself re-checks
// every limit atomically at write time.
func (s *caseService) Open(ctx context.Context, userID, caseName string) (*dto.OpenResult, error) {
	user, err := s.requireActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	box, err := s.caseRepo.GetByName(ctx, caseName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	if box.Disabled {
		return nil, domain.ErrCaseDisabled
	}
	if !user.Level.AtLeast(box.MinLevel) {
		return nil, domain.ErrLevelTooLow
	}
	if user.Balance < box.Price {
		return nil, domain.ErrInsufficientBalance
	}

	if box.MaxPerUser > 0 {
		count, err := s.caseOpenRepo.CountByUserAndCase(ctx, user.DiscordID, box.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to count user opens: %w", err)
		}
		if count >= box.MaxPerUser {
			return nil, domain.ErrUserCaseLimit
		}
	}

	if box.MaxTotal > 0 && box.TotalOpened >= box.MaxTotal {
		return nil, domain.ErrCaseTotalLimit
	}

	prize, err := choosePrize(box.Prizes)
	if err != nil {
		return nil, err
	}

	record, err := s.caseRepo.Open(ctx, repository.OpenParams{
		UserID:     user.DiscordID,
		CaseName:   box.Name,
		Price:      box.Price,
		PrizeID:    prize.ID,
		PrizeName:  prize.Name,
		Finite:     prize.Quantity != nil,
		MaxPerUser: box.MaxPerUser,
		MaxTotal:   box.MaxTotal,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event("case_open",
		zap.String("user_id", record.UserID),
		zap.String("case_name", record.CaseName),
		zap.String("prize", record.Prize),
	)

	return &dto.OpenResult{
		Prize:   dto.PrizeInfo{Name: prize.Name, Rarity: prize.Rarity},
		Display: buildDisplaySequence(box.Prizes, prize.Name),
	}, nil
}

// choosePrize draws one prize from the entries with remaining stock using
// rarity-table weights. The roll comes from crypto/rand.Int, which samples
// uniformly without modulo bias.
func choosePrize(prizes []domain.Prize) (*domain.Prize, error) {
	var available []domain.Prize
	for _, prize := range prizes {
		if prize.Available() {
			available = append(available, prize)
		}
	}
	if len(available) == 0 {
		return nil, domain.ErrNoPrizesAvailable
	}

	var total int64
	weights := make([]int64, len(available))
	for i, prize := range available {
		weights[i] = rarityWeight(prize.Rarity)
		total += weights[i]
	}

	roll, err := rand.Int(rand.Reader, big.NewInt(total))
	if err != nil {
		return nil, fmt.Errorf("failed to draw random number: %w", err)
	}

	var acc int64
	r := roll.Int64()
	for i := range available {
		acc += weights[i]
		if r < acc {
			return &available[i], nil
		}
	}

	return &available[len(available)-1], nil
}

func rarityWeight(rarity string) int64 {
	weight, ok := rarityWeights[rarity]
	if !ok {
		weight = defaultRarityWeight
	}
	return max(weight, minRarityWeight)
}

// buildDisplaySequence assembles the fixed-length reel shown by the client
// with the awarded prize inserted at a fixed index. Purely cosmetic.
func buildDisplaySequence(prizes []domain.Prize, awarded string) []string {
	var names []string
	for _, prize := range prizes {
		if prize.Name != "" {
			names = append(names, prize.Name)
		}
	}

	base := make([]string, 0, displayLength)
	if len(names) > 0 {
		for len(base) < displayLength {
			base = append(base, names...)
		}
		base = base[:displayLength]
	} else {
		for i := 1; i <= displayLength; i++ {
			base = append(base, fmt.Sprintf("%d", i))
		}
	}

	display := make([]string, 0, displayLength+1)
	display = append(display, base[:displayPrizeIndex]...)
	display = append(display, awarded)
	display = append(display, base[displayPrizeIndex:]...)

	return display
}

// requireActiveUser loads the user and enforces the shared API access gate:
// the user must exist, be approved, not blocked and past pending
func (s *caseService) requireActiveUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.CanAccess() {
		return nil, domain.ErrAccessDenied
	}

	return user, nil
}

func toPrizeRecords(opens []*domain.CaseOpen) []dto.PrizeRecord {
	records := make([]dto.PrizeRecord, 0, len(opens))
	for _, open := range opens {
		records = append(records, dto.PrizeRecord{
			CaseName:    open.CaseName,
			Prize:       open.Prize,
			CreatedAt:   open.CreatedAt,
			ConfirmedAt: open.ConfirmedAt,
		})
	}
	return records
}
