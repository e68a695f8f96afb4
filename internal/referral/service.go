package referral

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByReferralCode(ctx context.Context, code string) (*domain.Account, error)
	ListReferrals(ctx context.Context, referralCode string) ([]*domain.Referral, error)
}

type BonusRepository interface {
	FindByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.ReferralBonus, error)
	TotalByAccountID(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// Service answers a referrer's read-only questions about their network.
type Service struct {
	accounts AccountRepository
	bonuses  BonusRepository
	baseURL  string
}

func NewService(accounts AccountRepository, bonuses BonusRepository, baseURL string) *Service {
	return &Service{accounts: accounts, bonuses: bonuses, baseURL: baseURL}
}

// Link is what a referrer shares to invite new accounts.
type Link struct {
	Code string `json:"referral_code"`
	URL  string `json:"referral_link"`
}

func (s *Service) Link(ctx context.Context, accountID uuid.UUID) (*Link, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Link{Code: account.ReferralCode, URL: s.buildURL(account.ReferralCode)}, nil
}

func (s *Service) buildURL(code string) string {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return s.baseURL + "?ref=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("ref", code)
	u.RawQuery = q.Encode()
	return u.String()
}

// ValidateCode returns the display name of the code's owner, or ErrInvalidReferralCode.
func (s *Service) ValidateCode(ctx context.Context, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", errors.ErrInvalidReferralCode
	}
	owner, err := s.accounts.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, errors.ErrAccountNotFound) {
			return "", errors.ErrInvalidReferralCode
		}
		return "", err
	}
	return strings.TrimSpace(owner.FirstName + " " + owner.LastName), nil
}

// Summary is the referral dashboard for one account.
type Summary struct {
	Referrals   []*domain.Referral `json:"referrals"`
	Level1Count int                `json:"level1_count"`
	Level2Count int                `json:"level2_count"`
	TotalEarned decimal.Decimal    `json:"total_earned"`
}

func (s *Service) Summary(ctx context.Context, accountID uuid.UUID) (*Summary, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	referrals, err := s.accounts.ListReferrals(ctx, account.ReferralCode)
	if err != nil {
		return nil, err
	}
	total, err := s.bonuses.TotalByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Referrals: referrals, TotalEarned: total}
	if summary.Referrals == nil {
		summary.Referrals = []*domain.Referral{}
	}
	for _, r := range referrals {
		switch r.Level {
		case 1:
			summary.Level1Count++
		case 2:
			summary.Level2Count++
		}
	}
	return summary, nil
}

func (s *Service) ListBonuses(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.ReferralBonus, error) {
	return s.bonuses.FindByAccountID(ctx, accountID, limit, offset)
}
