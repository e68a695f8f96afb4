// Package domain re-exports core domain types so internal code can import
// `moneypro/internal/domain` while using definitions from `moneypro/pkg/domain`.
package domain

import pkg "moneypro/pkg/domain"

type Account = pkg.Account

type UserType = pkg.UserType

const (
	UserTypeUser  = pkg.UserTypeUser
	UserTypeAdmin = pkg.UserTypeAdmin
)

type Transaction = pkg.Transaction

type TransactionStatus = pkg.TransactionStatus

const (
	TransactionStatusPending   = pkg.TransactionStatusPending
	TransactionStatusCompleted = pkg.TransactionStatusCompleted
	TransactionStatusFailed    = pkg.TransactionStatusFailed
)

type TransactionType = pkg.TransactionType

const (
	TransactionTypeDeposit          = pkg.TransactionTypeDeposit
	TransactionTypeWithdrawal       = pkg.TransactionTypeWithdrawal
	TransactionTypeInvestment       = pkg.TransactionTypeInvestment
	TransactionTypeInvestmentReturn = pkg.TransactionTypeInvestmentReturn
	TransactionTypeProfit           = pkg.TransactionTypeProfit
	TransactionTypeReferralBonus    = pkg.TransactionTypeReferralBonus
)

type CommissionRule = pkg.CommissionRule

type Commission = pkg.Commission

type ReferralBonus = pkg.ReferralBonus

type Referral = pkg.Referral

type InvestmentPlan = pkg.InvestmentPlan

type InvestmentStatus = pkg.InvestmentStatus

const (
	InvestmentStatusActive    = pkg.InvestmentStatusActive
	InvestmentStatusCompleted = pkg.InvestmentStatusCompleted
)

type Investment = pkg.Investment

type PlatformStats = pkg.PlatformStats

type Metadata = pkg.Metadata

type AuditLog = pkg.AuditLog

type TransactionFilter = pkg.TransactionFilter
