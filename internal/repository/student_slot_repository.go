package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/calendar"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// StudentSlotRepository записи студентов на экземпляры слотов
type StudentSlotRepository struct {
	db  base.Querier
	loc *time.Location
}

func NewStudentSlotRepository(db base.Querier, loc *time.Location) *StudentSlotRepository {
	return &StudentSlotRepository{db: db, loc: loc}
}

const studentSlotColumns = `
	ss.id, ss.student_id, ss.branch_slot_id, ss.slot_date, to_char(st.start_time, 'HH24:MI:SS'),
	ss.room_id, ss.package_subscription_id, ss.status, ss.parent_note, ss.created_at
`

// scan читает studentSlotColumns; extra - колонки запроса после них
func (r *StudentSlotRepository) scan(row pgx.Row, extra ...any) (*model.Booking, error) {
	var (
		b         model.Booking
		slotDate  time.Time
		startTime string
		status    string
	)
	dest := append([]any{
		&b.ID,
		&b.StudentID,
		&b.BranchSlotID,
		&slotDate,
		&startTime,
		&b.RoomID,
		&b.PackageSubscriptionID,
		&status,
		&b.ParentNote,
		&b.CreatedAt,
	}, extra...)
	err := row.Scan(dest...)
	if err != nil {
		return nil, err
	}
	b.Status = bookingStatusFromDB(status)
	b.Date = r.bookingDate(slotDate, startTime)
	return &b, nil
}

// bookingDate дата занятия в часовом поясе филиала с временем начала
func (r *StudentSlotRepository) bookingDate(slotDate time.Time, startTime string) time.Time {
	day := time.Date(slotDate.Year(), slotDate.Month(), slotDate.Day(), 0, 0, 0, 0, r.loc)
	if dt, err := calendar.ToDateTime(day, startTime); err == nil {
		return dt
	}
	return day
}

// ListByStudent страница записей студента, новые первыми
func (r *StudentSlotRepository) ListByStudent(ctx context.Context, studentID string, page, pageSize int) ([]model.Booking, int, error) {
	query := `SELECT ` + studentSlotColumns + `, COUNT(*) OVER()
		FROM student_slots ss
		JOIN slot_templates st ON st.id = ss.branch_slot_id
		WHERE ss.student_id = $1
		ORDER BY ss.slot_date DESC, st.start_time DESC, ss.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, studentID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("get bookings by student: %w", err)
	}
	defer rows.Close()

	var (
		bookings []model.Booking
		total    int
	)
	for rows.Next() {
		b, err := r.scan(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, total, nil
}

// LockForStudent блокирует запись студента. nil - не найдена или чужая.
func (r *StudentSlotRepository) LockForStudent(ctx context.Context, tx pgx.Tx, bookingID, studentID string) (*model.Booking, error) {
	query := `SELECT ` + studentSlotColumns + `
		FROM student_slots ss
		JOIN slot_templates st ON st.id = ss.branch_slot_id
		WHERE ss.id = $1 AND ss.student_id = $2
		FOR UPDATE OF ss
	`

	b, err := r.scan(tx.QueryRow(ctx, query, bookingID, studentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock booking: %w", err)
	}
	return b, nil
}

// CountActive занятые места в комнате на дату
func (r *StudentSlotRepository) CountActive(ctx context.Context, tx pgx.Tx, templateID string, slotDate time.Time, roomID string) (int, error) {
	var taken int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM student_slots
		WHERE branch_slot_id = $1 AND slot_date = $2 AND room_id = $3 AND status <> 'cancelled'
	`, templateID, slotDate, roomID).Scan(&taken)
	if err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return taken, nil
}

type occupancyKey struct {
	templateID string
	date       string
	roomID     string
}

// Occupancy занятые места по (шаблон, дата, комната) в диапазоне дат
func (r *StudentSlotRepository) Occupancy(ctx context.Context, templateIDs []string, from, to time.Time) (map[occupancyKey]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT branch_slot_id, slot_date, room_id, COUNT(*)
		FROM student_slots
		WHERE branch_slot_id = ANY($1) AND slot_date BETWEEN $2 AND $3 AND status <> 'cancelled'
		GROUP BY branch_slot_id, slot_date, room_id
	`, templateIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("get occupancy: %w", err)
	}
	defer rows.Close()

	out := make(map[occupancyKey]int)
	for rows.Next() {
		var (
			key      occupancyKey
			slotDate time.Time
			taken    int
		)
		if err := rows.Scan(&key.templateID, &slotDate, &key.roomID, &taken); err != nil {
			return nil, fmt.Errorf("scan occupancy: %w", err)
		}
		key.date = slotDate.Format(time.DateOnly)
		out[key] = taken
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occupancy: %w", err)
	}
	return out, nil
}

// Insert создаёт запись. Нарушение уникального индекса означает, что у
// студента уже есть активная запись на этот экземпляр.
func (r *StudentSlotRepository) Insert(ctx context.Context, tx pgx.Tx, id string, p model.BookingPayload, slotDate time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO student_slots (id, student_id, branch_slot_id, slot_date, room_id, package_subscription_id, status, parent_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, p.StudentID, p.BranchSlotID, slotDate, p.RoomID, p.PackageSubscriptionID, dbStatusBooked, p.ParentNote)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// UpdateStatus обновляет статус записи
func (r *StudentSlotRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status model.BookingStatus) error {
	affected, err := base.ExecAffected(ctx, tx, `
		UPDATE student_slots
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, bookingStatusToDB(status), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("booking not found")
	}
	return nil
}
