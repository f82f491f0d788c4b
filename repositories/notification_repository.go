package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campus-events-api/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int) (int, error)
	MarkRead(ctx context.Context, id, userID int) error
	MarkAllRead(ctx context.Context, userID int) error
	Delete(ctx context.Context, id, userID int) error
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, message, details, event_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, read, created_at`

	err := r.db.QueryRowContext(ctx, query,
		n.UserID, n.Type, n.Message, n.Details, n.EventID,
	).Scan(&n.ID, &n.Read, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, message, details, event_id, read, created_at
		FROM notifications
		WHERE user_id = $1`

	args := []interface{}{userID}
	argID := 2

	if unreadOnly {
		query += " AND read = FALSE"
	}
	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, limit)
		argID++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Details, &n.EventID, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *postgresNotificationRepository) CountUnread(ctx context.Context, userID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}

func (r *postgresNotificationRepository) MarkAllRead(ctx context.Context, userID int) error {
	query := `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *postgresNotificationRepository) Delete(ctx context.Context, id, userID int) error {
	query := `DELETE FROM notifications WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}
