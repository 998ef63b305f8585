package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository struct {
	db base.Querier
}

func NewSubscriptionRepository(db base.Querier) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `
	ps.id, ps.student_id, ps.package_id, p.name, ps.status, ps.used_slot,
	ps.total_slots_snapshot, p.total_slots, ps.start_date, ps.end_date
`

func scanSubscription(row pgx.Row) (*model.PackageSubscription, error) {
	var (
		sub    model.PackageSubscription
		status string
	)
	err := row.Scan(
		&sub.ID,
		&sub.StudentID,
		&sub.PackageID,
		&sub.PackageName,
		&status,
		&sub.UsedSlot,
		&sub.TotalSlotsSnapshot,
		&sub.TotalSlots,
		&sub.StartDate,
		&sub.EndDate,
	)
	if err != nil {
		return nil, err
	}
	sub.Status = subscriptionStatusFromDB(status)
	return &sub, nil
}

// GetByStudentID все подписки студента, новые первыми
func (r *SubscriptionRepository) GetByStudentID(ctx context.Context, studentID string) ([]model.PackageSubscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM package_subscriptions ps
		JOIN packages p ON p.id = ps.package_id
		WHERE ps.student_id = $1
		ORDER BY ps.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get subscriptions by student: %w", err)
	}
	defer rows.Close()

	var subs []model.PackageSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}

// LockForStudent блокирует подписку студента до конца транзакции. nil - не найдена.
func (r *SubscriptionRepository) LockForStudent(ctx context.Context, tx pgx.Tx, subscriptionID, studentID string) (*model.PackageSubscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM package_subscriptions ps
		JOIN packages p ON p.id = ps.package_id
		WHERE ps.id = $1 AND ps.student_id = $2
		FOR UPDATE OF ps
	`

	sub, err := scanSubscription(tx.QueryRow(ctx, query, subscriptionID, studentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock subscription: %w", err)
	}
	return sub, nil
}

// AdjustUsed меняет счётчик использованных занятий, не опускаясь ниже нуля
func (r *SubscriptionRepository) AdjustUsed(ctx context.Context, tx pgx.Tx, subscriptionID string, delta int) error {
	affected, err := base.ExecAffected(ctx, tx, `
		UPDATE package_subscriptions
		SET used_slot = GREATEST(used_slot + $2, 0)
		WHERE id = $1
	`, subscriptionID, delta)
	if err != nil {
		return fmt.Errorf("adjust used slots: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("subscription %s not found", subscriptionID)
	}
	return nil
}

// SuitablePackageTotals итоги занятий активных пакетов филиала студента
func (r *SubscriptionRepository) SuitablePackageTotals(ctx context.Context, studentID string) (map[string]int, error) {
	query := `
		SELECT p.id, p.total_slots
		FROM packages p
		JOIN students s ON s.branch_id = p.branch_id
		WHERE s.id = $1 AND p.is_active AND p.total_slots IS NOT NULL
	`

	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get suitable packages: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var (
			packageID string
			total     int
		)
		if err := rows.Scan(&packageID, &total); err != nil {
			return nil, fmt.Errorf("scan package total: %w", err)
		}
		totals[packageID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate package totals: %w", err)
	}

	return totals, nil
}
