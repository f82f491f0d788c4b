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
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("user email conflict")
	ErrUserIDNumberConflict = errors.New("user id number conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByConfirmationToken(ctx context.Context, token string) (*models.User, error)
	GetByPasswordResetToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ConfirmEmail(ctx context.Context, id int) error
	SetPasswordResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error
	SetRequestOrganizer(ctx context.Context, id int, requested bool) error
	UpdateRole(ctx context.Context, id int, role models.UserRole, requestOrganizer bool) error
	AdjustCounters(ctx context.Context, exec SQLExecutor, id int, registered, upcoming, completed int) error
	ListOrganizerRequests(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	Delete(ctx context.Context, id int) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `
	id, name, email, id_number, branch, role, request_organizer,
	events_registered, upcoming_events, completed_events,
	password_hash, email_confirmed, email_confirmation_token,
	password_reset_token, password_reset_expires_at, created_at`

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, id_number, branch, role, password_hash, email_confirmation_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		user.IDNumber,
		user.Branch,
		user.Role,
		user.PasswordHash,
		user.EmailConfirmationToken,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return mapUserError(err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

func (r *postgresUserRepository) GetByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email_confirmation_token = $1`
	return r.scanUser(ctx, query, token)
}

func (r *postgresUserRepository) GetByPasswordResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE password_reset_token = $1`
	return r.scanUser(ctx, query, token)
}

func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			name = $1,
			email = $2,
			id_number = $3,
			branch = $4,
			role = $5,
			request_organizer = $6,
			password_hash = $7,
			password_reset_token = $8,
			password_reset_expires_at = $9
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.IDNumber,
		user.Branch,
		user.Role,
		user.RequestOrganizer,
		user.PasswordHash,
		user.PasswordResetToken,
		user.PasswordResetExpiresAt,
		user.ID,
	)
	if err != nil {
		return mapUserError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) ConfirmEmail(ctx context.Context, id int) error {
	query := `
		UPDATE users SET email_confirmed = TRUE, email_confirmation_token = NULL
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) SetPasswordResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error {
	query := `
		UPDATE users SET password_reset_token = $1, password_reset_expires_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, token, expiresAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) SetRequestOrganizer(ctx context.Context, id int, requested bool) error {
	query := `UPDATE users SET request_organizer = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, requested, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateRole(ctx context.Context, id int, role models.UserRole, requestOrganizer bool) error {
	query := `UPDATE users SET role = $1, request_organizer = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, role, requestOrganizer, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

// AdjustCounters applies deltas to the activity counters; it accepts an
// executor so registration can update counters inside its transaction.
func (r *postgresUserRepository) AdjustCounters(ctx context.Context, exec SQLExecutor, id int, registered, upcoming, completed int) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		UPDATE users SET
			events_registered = events_registered + $1,
			upcoming_events = GREATEST(upcoming_events + $2, 0),
			completed_events = completed_events + $3
		WHERE id = $4`
	result, err := exec.ExecContext(ctx, query, registered, upcoming, completed, id)
	if err != nil {
		return fmt.Errorf("failed to adjust user counters: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) ListOrganizerRequests(ctx context.Context) ([]models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE request_organizer = TRUE AND role = $1
		ORDER BY name ASC`
	return r.listUsers(ctx, query, models.RoleGeneral)
}

func (r *postgresUserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE role = $1 ORDER BY name ASC`
	return r.listUsers(ctx, query, role)
}

func (r *postgresUserRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) listUsers(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var user models.User
		if err := scanUserRow(rows, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *postgresUserRepository) scanUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user := &models.User{}
	err := scanUserRow(r.db.QueryRowContext(ctx, query, args...), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(row rowScanner, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.IDNumber,
		&user.Branch,
		&user.Role,
		&user.RequestOrganizer,
		&user.EventsRegistered,
		&user.UpcomingEvents,
		&user.CompletedEvents,
		&user.PasswordHash,
		&user.EmailConfirmed,
		&user.EmailConfirmationToken,
		&user.PasswordResetToken,
		&user.PasswordResetExpiresAt,
		&user.CreatedAt,
	)
}

func mapUserError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" { // unique_violation
			switch pqErr.Constraint {
			case "users_email_key":
				return ErrUserEmailConflict
			case "users_id_number_key":
				return ErrUserIDNumberConflict
			}
		}
	}
	return err
}
