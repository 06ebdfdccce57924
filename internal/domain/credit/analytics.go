package credit

import (
	"context"
	"fmt"
	"time"
)

// Analytics aggregates the ledger for the admin dashboard: today's usage,
// this month's usage, all-time added/used totals, and the top consumers.
func (r *Repository) Analytics(ctx context.Context) (*Analytics, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var out Analytics

	if err := r.db.GetContext(ctx2, &out.TodaysCreditUsage, `
		SELECT COALESCE(SUM(amount), 0) FROM credit_transactions
		WHERE kind = $1 AND created_at >= $2
	`, KindUsed, startOfDay); err != nil {
		return nil, fmt.Errorf("%w: todays usage", ErrInternal)
	}

	if err := r.db.GetContext(ctx2, &out.MonthlyCreditUsage, `
		SELECT COALESCE(SUM(amount), 0) FROM credit_transactions
		WHERE kind = $1 AND created_at >= $2
	`, KindUsed, startOfMonth); err != nil {
		return nil, fmt.Errorf("%w: monthly usage", ErrInternal)
	}

	if err := r.db.GetContext(ctx2, &out.TotalCreditsAdded, `
		SELECT COALESCE(SUM(amount), 0) FROM credit_transactions
		WHERE kind IN ($1, $2, $3, $4)
	`, KindAdded, KindPurchase, KindBonus, KindReferral); err != nil {
		return nil, fmt.Errorf("%w: total added", ErrInternal)
	}

	if err := r.db.GetContext(ctx2, &out.TotalCreditsUsed, `
		SELECT COALESCE(SUM(amount), 0) FROM credit_transactions
		WHERE kind = $1
	`, KindUsed); err != nil {
		return nil, fmt.Errorf("%w: total used", ErrInternal)
	}

	out.TopUsers = make([]TopUser, 0, 10)
	if err := r.db.SelectContext(ctx2, &out.TopUsers, `
		SELECT u.name AS name, SUM(ct.amount) AS total_credits_used
		FROM credit_transactions ct
		JOIN users u ON u.id = ct.user_id
		WHERE ct.kind = $1
		GROUP BY u.id, u.name
		ORDER BY total_credits_used DESC
		LIMIT 10
	`, KindUsed); err != nil {
		return nil, fmt.Errorf("%w: top users", ErrInternal)
	}

	return &out, nil
}
