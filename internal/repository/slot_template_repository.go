package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type SlotTemplateRepository struct {
	db base.Querier
}

func NewSlotTemplateRepository(db base.Querier) *SlotTemplateRepository {
	return &SlotTemplateRepository{db: db}
}

// ListForStudent получает страницу шаблонов филиала студента вместе с комнатами
// и преподавателями. AvailableCapacity не заполняется: он зависит от недели.
func (r *SlotTemplateRepository) ListForStudent(ctx context.Context, studentID string, page, pageSize int) ([]model.SlotTemplate, int, error) {
	query := `
		SELECT st.id, st.branch_id, st.weekday,
		       st.timeframe_id, st.timeframe_name,
		       to_char(st.start_time, 'HH24:MI:SS'), to_char(st.end_time, 'HH24:MI:SS'),
		       st.timeframe_description, st.slot_type_name, st.slot_type_description,
		       ps.id, COUNT(*) OVER()
		FROM slot_templates st
		JOIN students s ON s.branch_id = st.branch_id
		LEFT JOIN package_subscriptions ps
		       ON ps.id = st.promo_subscription_id AND ps.student_id = s.id
		WHERE s.id = $1 AND st.is_active
		ORDER BY st.weekday, st.start_time, st.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, studentID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list slot templates: %w", err)
	}
	defer rows.Close()

	var (
		templates []model.SlotTemplate
		total     int
	)
	for rows.Next() {
		var (
			tpl model.SlotTemplate
			tf  model.Timeframe
		)
		err := rows.Scan(
			&tpl.ID,
			&tpl.BranchID,
			&tpl.Weekday,
			&tf.ID,
			&tf.Name,
			&tf.StartTime,
			&tf.EndTime,
			&tf.Description,
			&tpl.SlotType.Name,
			&tpl.SlotType.Description,
			&tpl.PackageSubscriptionID,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan slot template: %w", err)
		}
		tpl.Timeframe = &tf
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate slot templates: %w", err)
	}

	if len(templates) == 0 {
		return templates, total, nil
	}
	if err := r.attachRooms(ctx, templates); err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

func (r *SlotTemplateRepository) attachRooms(ctx context.Context, templates []model.SlotTemplate) error {
	ids := make([]string, len(templates))
	index := make(map[string]int, len(templates))
	for i, tpl := range templates {
		ids[i] = tpl.ID
		index[tpl.ID] = i
	}

	rows, err := r.db.Query(ctx, `
		SELECT str.slot_template_id, r.id, r.name, r.facility_name, str.capacity
		FROM slot_template_rooms str
		JOIN rooms r ON r.id = str.room_id
		WHERE str.slot_template_id = ANY($1)
		ORDER BY str.slot_template_id, r.name
	`, ids)
	if err != nil {
		return fmt.Errorf("list template rooms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			templateID string
			room       model.RoomOption
		)
		if err := rows.Scan(&templateID, &room.RoomID, &room.RoomName, &room.FacilityName, &room.Capacity); err != nil {
			return fmt.Errorf("scan template room: %w", err)
		}
		i := index[templateID]
		templates[i].Rooms = append(templates[i].Rooms, room)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate template rooms: %w", err)
	}

	staffRows, err := r.db.Query(ctx, `
		SELECT slot_template_id, room_id, staff_id, staff_name, role
		FROM slot_template_staff
		WHERE slot_template_id = ANY($1)
		ORDER BY slot_template_id, staff_name
	`, ids)
	if err != nil {
		return fmt.Errorf("list template staff: %w", err)
	}
	defer staffRows.Close()

	for staffRows.Next() {
		var (
			templateID string
			roomID     *string
			staff      model.StaffAssignment
		)
		if err := staffRows.Scan(&templateID, &roomID, &staff.StaffID, &staff.Name, &staff.Role); err != nil {
			return fmt.Errorf("scan template staff: %w", err)
		}
		tpl := &templates[index[templateID]]
		if roomID == nil {
			tpl.Staff = append(tpl.Staff, staff)
			continue
		}
		if room, ok := tpl.Room(*roomID); ok {
			room.Staff = append(room.Staff, staff)
		}
	}
	return staffRows.Err()
}

// templateRoom строка пула комнат шаблона, заблокированная на время записи
type templateRoom struct {
	Weekday   int
	StartTime string
	Capacity  int
}

// LockRoom блокирует строку (шаблон, комната). nil - комнаты нет в пуле
// или шаблон выключен. Записи в одну комнату сериализуются этой блокировкой.
func (r *SlotTemplateRepository) LockRoom(ctx context.Context, tx pgx.Tx, templateID, roomID string) (*templateRoom, error) {
	query := `
		SELECT st.weekday, to_char(st.start_time, 'HH24:MI:SS'), str.capacity
		FROM slot_template_rooms str
		JOIN slot_templates st ON st.id = str.slot_template_id
		WHERE str.slot_template_id = $1 AND str.room_id = $2 AND st.is_active
		FOR UPDATE OF str
	`

	var tr templateRoom
	err := tx.QueryRow(ctx, query, templateID, roomID).Scan(&tr.Weekday, &tr.StartTime, &tr.Capacity)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock template room: %w", err)
	}
	return &tr, nil
}

// GetTimeframe шаблон с таймфреймом, без комнат
func (r *SlotTemplateRepository) GetTimeframe(ctx context.Context, q base.Querier, templateID string) (*model.SlotTemplate, error) {
	query := `
		SELECT id, branch_id, weekday, timeframe_id, timeframe_name,
		       to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS')
		FROM slot_templates
		WHERE id = $1
	`

	var (
		tpl model.SlotTemplate
		tf  model.Timeframe
	)
	err := q.QueryRow(ctx, query, templateID).Scan(
		&tpl.ID, &tpl.BranchID, &tpl.Weekday, &tf.ID, &tf.Name, &tf.StartTime, &tf.EndTime,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot template: %w", err)
	}
	tpl.Timeframe = &tf
	return &tpl, nil
}
