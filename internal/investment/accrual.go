package investment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/internal/transaction"
)

const accrualBatchSize = 500

// AccrualReport summarises one accrual run.
type AccrualReport struct {
	Processed  int             `json:"processed"`
	Paid       decimal.Decimal `json:"paid"`
	Matured    int             `json:"matured"`
	Failed     int             `json:"failed"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// AccrueProfits pays the profit earned since the last run on every active
// investment and closes the ones that reached their end date. Each investment
// settles in its own database transaction; a failure on one does not stop the rest.
func (s *Service) AccrueProfits(ctx context.Context) (*AccrualReport, error) {
	report := &AccrualReport{Paid: decimal.Zero, StartedAt: s.now()}

	ids, err := s.repo.ListActiveIDs(ctx, accrualBatchSize)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		paid, matured, err := s.accrueOne(ctx, id)
		if err != nil {
			report.Failed++
			s.logger.Error("Profit accrual failed", map[string]interface{}{
				"investment_id": id,
				"error":         err,
			})
			continue
		}
		report.Processed++
		report.Paid = report.Paid.Add(paid)
		if matured {
			report.Matured++
		}
	}

	report.FinishedAt = s.now()
	s.logger.Info("Profit accrual finished", map[string]interface{}{
		"processed": report.Processed,
		"matured":   report.Matured,
		"failed":    report.Failed,
		"paid":      report.Paid.String(),
	})
	return report, nil
}

func (s *Service) accrueOne(ctx context.Context, id uuid.UUID) (decimal.Decimal, bool, error) {
	var (
		paid    = decimal.Zero
		matured bool
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != domain.InvestmentStatusActive {
			return nil
		}

		now := s.now()
		due := ProfitDue(inv, now)
		if due.IsPositive() {
			if err := s.pay(ctx, inv, domain.TransactionTypeProfit, due, "Daily investment profit"); err != nil {
				return err
			}
			inv.ProfitPaid = inv.ProfitPaid.Add(due)
			paid = due
		}
		inv.DaysPaid = DaysElapsed(inv, now)

		if !now.Before(inv.EndDate) {
			if err := s.pay(ctx, inv, domain.TransactionTypeInvestmentReturn, inv.Amount, "Investment principal returned"); err != nil {
				return err
			}
			inv.Status = domain.InvestmentStatusCompleted
			matured = true
		}

		inv.LastAccruedAt = &now
		return s.repo.UpdateAccrual(ctx, inv)
	})
	return paid, matured, err
}

func (s *Service) pay(ctx context.Context, inv *domain.Investment, t domain.TransactionType, amount decimal.Decimal, description string) error {
	if _, err := s.ledger.Credit(ctx, inv.AccountID, amount); err != nil {
		return err
	}
	_, err := s.recorder.Create(ctx, transaction.CreateParams{
		AccountID:   inv.AccountID,
		Type:        t,
		Amount:      amount,
		Status:      domain.TransactionStatusCompleted,
		Description: description,
		Reference:   inv.ID.String(),
	})
	return err
}

// DaysElapsed is the number of whole days of the term that have passed at now.
func DaysElapsed(inv *domain.Investment, now time.Time) int {
	if !now.After(inv.StartDate) {
		return 0
	}
	days := int(now.Sub(inv.StartDate) / day)
	if days > inv.DurationDays {
		days = inv.DurationDays
	}
	return days
}

// ProfitDue is the profit earned by now and not yet paid. Earned profit is the
// total profit pro rata to whole elapsed days, and the full total at maturity,
// so per-day rounding never leaves a remainder behind.
func ProfitDue(inv *domain.Investment, now time.Time) decimal.Decimal {
	total := totalProfit(inv.Amount, inv.InterestRate)

	earned := total
	if now.Before(inv.EndDate) {
		days := DaysElapsed(inv, now)
		earned = total.Mul(decimal.NewFromInt(int64(days))).
			Div(decimal.NewFromInt(int64(inv.DurationDays))).
			Round(2)
	}

	due := earned.Sub(inv.ProfitPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
