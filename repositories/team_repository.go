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
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamEventInvalid  = errors.New("team event conflict or invalid")
	ErrTeamLeaderInvalid = errors.New("team leader conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByEvent(ctx context.Context, eventID int) ([]*models.Team, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor := r.getExecutor(exec)
	if err := team.EncodeMembers(); err != nil {
		return fmt.Errorf("failed to encode team members: %w", err)
	}

	query := `
		INSERT INTO teams (event_id, leader_id, members_json)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		team.EventID,
		team.LeaderID,
		team.MembersJSON,
	).Scan(&team.ID, &team.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "teams_event_id_fkey":
				return ErrTeamEventInvalid
			case "teams_leader_id_fkey":
				return ErrTeamLeaderInvalid
			}
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `
		SELECT id, event_id, leader_id, members_json, created_at
		FROM teams
		WHERE id = $1`

	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.EventID, &team.LeaderID, &team.MembersJSON, &team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if err := team.DecodeMembers(); err != nil {
		return nil, fmt.Errorf("failed to decode members for team %d: %w", team.ID, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.Team, error) {
	query := `
		SELECT
			t.id, t.event_id, t.leader_id, t.members_json, t.created_at,
			u.id, u.name, u.email, u.id_number, u.branch, u.role, u.created_at
		FROM teams t
		JOIN users u ON u.id = t.leader_id
		WHERE t.event_id = $1
		ORDER BY t.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team := &models.Team{}
		leader := &models.User{}
		err := rows.Scan(
			&team.ID, &team.EventID, &team.LeaderID, &team.MembersJSON, &team.CreatedAt,
			&leader.ID, &leader.Name, &leader.Email, &leader.IDNumber, &leader.Branch, &leader.Role, &leader.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := team.DecodeMembers(); err != nil {
			return nil, fmt.Errorf("failed to decode members for team %d: %w", team.ID, err)
		}
		team.Leader = leader
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM teams WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
