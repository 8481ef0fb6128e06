package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed registration store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(learnerID, courseID string) (*Registration, error) {
	if err := validate(learnerID, courseID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	reg := &Registration{ID: uuid.NewString(), LearnerID: learnerID, CourseID: courseID}
	if err := s.pool.QueryRow(ctx,
		`INSERT INTO registrations (id, learner_id, course_id)
		 VALUES ($1, $2, $3)
		 RETURNING started_at`,
		reg.ID, learnerID, courseID,
	).Scan(&reg.StartedAt); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}

	slog.Debug("registration created", "registration_id", reg.ID, "course_id", courseID)
	return reg, nil
}

func (s *PostgresStore) Get(id string) (*Registration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	reg, err := s.scanOne(ctx,
		`SELECT id, learner_id, course_id, started_at, ended_at
		 FROM registrations WHERE id = $1`,
		id,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) GetActive(learnerID, courseID string) (*Registration, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	reg, err := s.scanOne(ctx,
		`SELECT id, learner_id, course_id, started_at, ended_at
		 FROM registrations
		 WHERE learner_id = $1 AND course_id = $2 AND ended_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`,
		learnerID, courseID,
	)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Warn("get active registration failed", "course_id", courseID, "error", err)
		}
		return nil, false
	}
	return reg, true
}

func (s *PostgresStore) End(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE registrations SET ended_at = COALESCE(ended_at, NOW()) WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("end registration: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, args ...any) (*Registration, error) {
	var reg Registration
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&reg.ID, &reg.LearnerID, &reg.CourseID, &reg.StartedAt, &reg.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}
