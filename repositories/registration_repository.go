package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campus-events-api/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound     = errors.New("registration not found")
	ErrRegistrationConflict     = errors.New("registration conflict: user already registered for this event")
	ErrRegistrationUserInvalid  = errors.New("registration user conflict or invalid")
	ErrRegistrationEventInvalid = errors.New("registration event conflict or invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	FindByUserAndEvent(ctx context.Context, exec SQLExecutor, userID, eventID int) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID int) ([]*models.Registration, error)
	ListUserIDsByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]int, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	executor := r.getExecutor(exec)
	if err := reg.EncodeResponses(); err != nil {
		return fmt.Errorf("failed to encode form responses: %w", err)
	}

	query := `
		INSERT INTO registrations (event_id, user_id, team_id, responses_json)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		reg.EventID,
		reg.UserID,
		reg.TeamID,
		reg.ResponsesJSON,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "registrations_event_id_user_id_key" {
					return ErrRegistrationConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "registrations_user_id_fkey":
					return ErrRegistrationUserInvalid
				case "registrations_event_id_fkey":
					return ErrRegistrationEventInvalid
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) FindByUserAndEvent(ctx context.Context, exec SQLExecutor, userID, eventID int) (*models.Registration, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, event_id, user_id, team_id, responses_json, created_at
		FROM registrations
		WHERE user_id = $1 AND event_id = $2`

	reg := &models.Registration{}
	err := executor.QueryRowContext(ctx, query, userID, eventID).Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.TeamID, &reg.ResponsesJSON, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	if err := reg.DecodeResponses(); err != nil {
		return nil, fmt.Errorf("failed to decode form responses for registration %d: %w", reg.ID, err)
	}
	return reg, nil
}

// ListByEvent returns an event's attendee list with the registrant joined in.
func (r *postgresRegistrationRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.Registration, error) {
	query := `
		SELECT
			reg.id, reg.event_id, reg.user_id, reg.team_id, reg.responses_json, reg.created_at,
			u.id, u.name, u.email, u.id_number, u.branch, u.role, u.created_at
		FROM registrations reg
		JOIN users u ON u.id = reg.user_id
		WHERE reg.event_id = $1
		ORDER BY reg.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		user := &models.User{}
		err := rows.Scan(
			&reg.ID, &reg.EventID, &reg.UserID, &reg.TeamID, &reg.ResponsesJSON, &reg.CreatedAt,
			&user.ID, &user.Name, &user.Email, &user.IDNumber, &user.Branch, &user.Role, &user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := reg.DecodeResponses(); err != nil {
			return nil, fmt.Errorf("failed to decode form responses for registration %d: %w", reg.ID, err)
		}
		reg.User = user
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ListUserIDsByEvent is used when every attendee has to be notified
// (event cancellation, completion).
func (r *postgresRegistrationRepository) ListUserIDsByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT user_id FROM registrations WHERE event_id = $1`

	rows, err := executor.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM registrations WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
