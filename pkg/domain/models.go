package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a platform user holding a single balance.
type Account struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Email         string          `json:"email" db:"email"`
	PasswordHash  string          `json:"-" db:"password_hash"`
	FirstName     string          `json:"first_name" db:"first_name"`
	LastName      string          `json:"last_name" db:"last_name"`
	IsAdmin       bool            `json:"is_admin" db:"is_admin"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	ReferralCode  string          `json:"referral_code" db:"referral_code"`
	ReferredBy    *string         `json:"referred_by,omitempty" db:"referred_by"`
	TOTPSecret    *string         `json:"-" db:"totp_secret"`
	IsTOTPEnabled bool            `json:"is_totp_enabled" db:"is_totp_enabled"`
	LastLogin     *time.Time      `json:"last_login,omitempty" db:"last_login"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Role is the value carried in the user_type token claim.
func (a *Account) Role() UserType {
	if a.IsAdmin {
		return UserTypeAdmin
	}
	return UserTypeUser
}

type UserType string

const (
	UserTypeUser  UserType = "user"
	UserTypeAdmin UserType = "admin"
)

// Transaction records a movement of funds on an account.
type Transaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	AccountID     uuid.UUID         `json:"account_id" db:"account_id"`
	Type          TransactionType   `json:"type" db:"type"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	Status        TransactionStatus `json:"status" db:"status"`
	Description   string            `json:"description" db:"description"`
	PaymentMethod *string           `json:"payment_method,omitempty" db:"payment_method"`
	PaymentProof  *string           `json:"payment_proof,omitempty" db:"payment_proof"`
	Destination   *string           `json:"destination,omitempty" db:"destination"`
	Reference     *string           `json:"reference,omitempty" db:"reference"`
	Metadata      Metadata          `json:"metadata,omitempty" db:"metadata"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// IsTerminal reports whether no further status change is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

type TransactionType string

const (
	TransactionTypeDeposit          TransactionType = "deposit"
	TransactionTypeWithdrawal       TransactionType = "withdrawal"
	TransactionTypeInvestment       TransactionType = "investment"
	TransactionTypeInvestmentReturn TransactionType = "investment_return"
	TransactionTypeProfit           TransactionType = "profit"
	TransactionTypeReferralBonus    TransactionType = "referral_bonus"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeInvestment,
		TransactionTypeInvestmentReturn, TransactionTypeProfit, TransactionTypeReferralBonus:
		return true
	}
	return false
}

// RequiresApproval reports whether new transactions of this type start pending.
func (t TransactionType) RequiresApproval() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdrawal
}

// CommissionRule is the payout percentage for one referral level.
type CommissionRule struct {
	ID                   int64           `json:"id" db:"id"`
	Level                int             `json:"level" db:"level"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage" db:"commission_percentage"`
	BonusPercentage      decimal.Decimal `json:"bonus_percentage" db:"bonus_percentage"`
	IsActive             bool            `json:"is_active" db:"is_active"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// Commission is a payout computed for one referrer of a deposit. It is not persisted.
type Commission struct {
	PayeeAccountID uuid.UUID       `json:"payee_account_id"`
	Level          int             `json:"level"`
	Percentage     decimal.Decimal `json:"percentage"`
	Amount         decimal.Decimal `json:"amount"`
}

// ReferralBonus is the immutable record of a paid commission.
type ReferralBonus struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	AccountID            uuid.UUID       `json:"account_id" db:"account_id"`
	SourceAccountID      uuid.UUID       `json:"source_account_id" db:"source_account_id"`
	TransactionID        uuid.UUID       `json:"transaction_id" db:"transaction_id"`
	DepositTransactionID uuid.UUID       `json:"deposit_transaction_id" db:"deposit_transaction_id"`
	Amount               decimal.Decimal `json:"amount" db:"amount"`
	Level                int             `json:"level" db:"level"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
}

// Referral is a downline entry shown to a referrer.
type Referral struct {
	AccountID uuid.UUID `json:"account_id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Level     int       `json:"level" db:"level"`
	JoinedAt  time.Time `json:"joined_at" db:"created_at"`
}

// InvestmentPlan describes a fixed-term product.
type InvestmentPlan struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	MinAmount    decimal.Decimal `json:"min_amount" db:"min_amount"`
	MaxAmount    decimal.Decimal `json:"max_amount" db:"max_amount"`
	DurationDays int             `json:"duration_days" db:"duration_days"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusCompleted InvestmentStatus = "completed"
)

// Investment is an account's stake in a plan. Profit is paid daily until EndDate.
type Investment struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	AccountID     uuid.UUID        `json:"account_id" db:"account_id"`
	PlanID        int64            `json:"plan_id" db:"plan_id"`
	Amount        decimal.Decimal  `json:"amount" db:"amount"`
	InterestRate  decimal.Decimal  `json:"interest_rate" db:"interest_rate"`
	DurationDays  int              `json:"duration_days" db:"duration_days"`
	ProfitPaid    decimal.Decimal  `json:"profit_paid" db:"profit_paid"`
	DaysPaid      int              `json:"days_paid" db:"days_paid"`
	Status        InvestmentStatus `json:"status" db:"status"`
	StartDate     time.Time        `json:"start_date" db:"start_date"`
	EndDate       time.Time        `json:"end_date" db:"end_date"`
	LastAccruedAt *time.Time       `json:"last_accrued_at,omitempty" db:"last_accrued_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// PlatformStats feeds the admin dashboard.
type PlatformStats struct {
	TotalUsers          int             `json:"total_users" db:"total_users"`
	TotalTransactions   int             `json:"total_transactions" db:"total_transactions"`
	PendingDeposits     int             `json:"pending_deposits" db:"pending_deposits"`
	PendingWithdrawals  int             `json:"pending_withdrawals" db:"pending_withdrawals"`
	ActiveInvestments   int             `json:"active_investments" db:"active_investments"`
	TotalInvested       decimal.Decimal `json:"total_invested" db:"total_invested"`
	TotalProfitPaid     decimal.Decimal `json:"total_profit_paid" db:"total_profit_paid"`
	TotalReferralPayout decimal.Decimal `json:"total_referral_payout" db:"total_referral_payout"`
	TotalBalance        decimal.Decimal `json:"total_balance" db:"total_balance"`
}

// Metadata is a JSON-compatible map
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, m)
}

// AuditLog records an admin request.
type AuditLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     *uuid.UUID `json:"user_id" db:"user_id"`
	Action     string     `json:"action" db:"action"`
	ResourceID string     `json:"resource_id" db:"resource_id"`
	IPAddress  string     `json:"ip_address" db:"ip_address"`
	UserAgent  string     `json:"user_agent" db:"user_agent"`
	StatusCode int        `json:"status_code" db:"status_code"`
	RequestID  string     `json:"request_id" db:"request_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// TransactionFilter narrows admin listings. Zero values match everything.
type TransactionFilter struct {
	Status    TransactionStatus
	Type      TransactionType
	AccountID *uuid.UUID
}
