package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campus-events-api/models"
	"github.com/lib/pq"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventInvalidOrganizer = errors.New("invalid organizer reference")
	ErrEventInUse            = errors.New("event has registrations")
)

type ListEventsFilter struct {
	Category    *string
	OrganizerID *int
	Status      *models.EventStatus
	Search      *string
	Limit       int
	Offset      int
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int) (*models.Event, error)
	// GetByIDForUpdate locks the event row for the duration of the
	// surrounding transaction. Registration serializes on this lock.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error)
	List(ctx context.Context, filter ListEventsFilter) ([]models.Event, error)
	ListByAttendee(ctx context.Context, userID int) ([]models.Event, error)
	ListEndedBefore(ctx context.Context, exec SQLExecutor, cutoff time.Time) ([]*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EventStatus) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
	Delete(ctx context.Context, id int) error
	CountAttendees(ctx context.Context, exec SQLExecutor, eventID int) (int, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const eventColumns = `
	id, title, description, location, category, organizer_id, starts_at,
	registration_deadline, registration_type, form_url, is_team_event,
	min_team_members, max_team_members, capacity, status, questions_json,
	banner_key, created_at`

func (r *postgresEventRepository) Create(ctx context.Context, e *models.Event) error {
	e.EncodeTeamConfig()
	if err := e.EncodeQuestions(); err != nil {
		return fmt.Errorf("failed to encode form questions: %w", err)
	}

	query := `
		INSERT INTO events (
			title, description, location, category, organizer_id, starts_at,
			registration_deadline, registration_type, form_url, is_team_event,
			min_team_members, max_team_members, capacity, status, questions_json, banner_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Location, e.Category, e.OrganizerID, e.StartsAt,
		e.RegistrationDeadline, e.RegistrationType, e.FormURL, e.IsTeamEvent,
		e.MinTeamMembers, e.MaxTeamMembers, e.Capacity, e.Status, e.QuestionsJSON, e.BannerKey,
	).Scan(&e.ID, &e.CreatedAt)

	return mapEventError(err)
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `SELECT` + eventColumns + ` FROM events WHERE id = $1`
	return r.scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresEventRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return r.scanEvent(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresEventRepository) List(ctx context.Context, filter ListEventsFilter) ([]models.Event, error) {
	query := `SELECT` + eventColumns + ` FROM events WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argID)
		args = append(args, *filter.Category)
		argID++
	}
	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Search != nil && *filter.Search != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argID, argID)
		args = append(args, "%"+*filter.Search+"%")
		argID++
	}

	query += " ORDER BY starts_at ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	return r.listEvents(ctx, query, args...)
}

func (r *postgresEventRepository) ListByAttendee(ctx context.Context, userID int) ([]models.Event, error) {
	query := `
		SELECT ` + aliasedEventColumns("e") + `
		FROM events e
		JOIN registrations reg ON reg.event_id = e.id
		WHERE reg.user_id = $1
		ORDER BY e.starts_at ASC`
	return r.listEvents(ctx, query, userID)
}

// ListEndedBefore returns upcoming events whose start time has passed,
// used by the completion scheduler. Rows are locked for the transaction.
func (r *postgresEventRepository) ListEndedBefore(ctx context.Context, exec SQLExecutor, cutoff time.Time) ([]*models.Event, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + eventColumns + ` FROM events
		WHERE status = $1 AND starts_at < $2
		FOR UPDATE`

	rows, err := executor.QueryContext(ctx, query, models.EventStatusUpcoming, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		e := &models.Event{}
		if err := scanEventRow(rows, e); err != nil {
			return nil, err
		}
		e.DecodeTeamConfig()
		if err := e.DecodeQuestions(); err != nil {
			return nil, fmt.Errorf("failed to decode form questions for event %d: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) Update(ctx context.Context, e *models.Event) error {
	e.EncodeTeamConfig()
	if err := e.EncodeQuestions(); err != nil {
		return fmt.Errorf("failed to encode form questions: %w", err)
	}

	query := `
		UPDATE events SET
			title = $1, description = $2, location = $3, category = $4,
			starts_at = $5, registration_deadline = $6, registration_type = $7,
			form_url = $8, is_team_event = $9, min_team_members = $10,
			max_team_members = $11, capacity = $12, status = $13, questions_json = $14
		WHERE id = $15`

	result, err := r.db.ExecContext(ctx, query,
		e.Title, e.Description, e.Location, e.Category,
		e.StartsAt, e.RegistrationDeadline, e.RegistrationType,
		e.FormURL, e.IsTeamEvent, e.MinTeamMembers,
		e.MaxTeamMembers, e.Capacity, e.Status, e.QuestionsJSON,
		e.ID,
	)
	if err != nil {
		return mapEventError(err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EventStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE events SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	query := `UPDATE events SET banner_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrEventInUse
		}
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) CountAttendees(ctx context.Context, exec SQLExecutor, eventID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	query := `SELECT COUNT(*) FROM registrations WHERE event_id = $1`
	if err := executor.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attendees: %w", err)
	}
	return count, nil
}

func (r *postgresEventRepository) listEvents(ctx context.Context, query string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		if err := scanEventRow(rows, &e); err != nil {
			return nil, err
		}
		e.DecodeTeamConfig()
		if err := e.DecodeQuestions(); err != nil {
			return nil, fmt.Errorf("failed to decode form questions for event %d: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) scanEvent(row *sql.Row) (*models.Event, error) {
	e := &models.Event{}
	if err := scanEventRow(row, e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	e.DecodeTeamConfig()
	if err := e.DecodeQuestions(); err != nil {
		return nil, fmt.Errorf("failed to decode form questions for event %d: %w", e.ID, err)
	}
	return e, nil
}

func scanEventRow(row rowScanner, e *models.Event) error {
	return row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Location,
		&e.Category,
		&e.OrganizerID,
		&e.StartsAt,
		&e.RegistrationDeadline,
		&e.RegistrationType,
		&e.FormURL,
		&e.IsTeamEvent,
		&e.MinTeamMembers,
		&e.MaxTeamMembers,
		&e.Capacity,
		&e.Status,
		&e.QuestionsJSON,
		&e.BannerKey,
		&e.CreatedAt,
	)
}

func aliasedEventColumns(alias string) string {
	return alias + `.id, ` + alias + `.title, ` + alias + `.description, ` + alias + `.location, ` +
		alias + `.category, ` + alias + `.organizer_id, ` + alias + `.starts_at, ` +
		alias + `.registration_deadline, ` + alias + `.registration_type, ` + alias + `.form_url, ` +
		alias + `.is_team_event, ` + alias + `.min_team_members, ` + alias + `.max_team_members, ` +
		alias + `.capacity, ` + alias + `.status, ` + alias + `.questions_json, ` +
		alias + `.banner_key, ` + alias + `.created_at`
}

func mapEventError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" && pqErr.Constraint == "events_organizer_id_fkey" {
			return ErrEventInvalidOrganizer
		}
	}
	return err
}
