package repo

import (
	"context"
	"fmt"

	"symposium/internal/model"
)

func (r *Postgres) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{RegistrationsByStatus: map[string]int{}}

	err := r.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM events WHERE is_active),
			(SELECT COUNT(*) FROM workshops WHERE is_active),
			(SELECT COUNT(*) FROM registrations),
			(SELECT COUNT(*) FROM attendance),
			(SELECT COALESCE(SUM(amount - refund_amount), 0) FROM payments WHERE status = 'success')
	`).Scan(&stats.TotalUsers, &stats.ActiveEvents, &stats.ActiveWorkshops,
		&stats.TotalRegistrations, &stats.CheckIns, &stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to count totals: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM registrations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to group registrations: %w", err)
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan registration group: %w", err)
		}
		stats.RegistrationsByStatus[status] = count
	}
	rows.Close()

	rows, err = r.q.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM payments GROUP BY status ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to group payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st model.StatusTotal
		if err := rows.Scan(&st.Status, &st.Count, &st.Total); err != nil {
			return nil, fmt.Errorf("failed to scan payment group: %w", err)
		}
		stats.Payments = append(stats.Payments, st)
	}
	return stats, rows.Err()
}
