package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/server/migrations"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
)

// Postgres is the Repository implementation for persistent deployments.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the connection and applies the embedded migrations.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &Postgres{db: db}, nil
}

func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (username, salt, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id
		`
	err := p.db.QueryRowContext(ctx, query,
		user.Username, user.Salt, user.PasswordHash).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByName(ctx context.Context, username string) (*models.User, error) {
	query :=
		`SELECT id, username, salt, password_hash FROM users
		 WHERE username = $1
		`
	user := &models.User{}
	err := p.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Salt, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return user, nil
}

func (p *Postgres) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	data, err := json.Marshal(sub.Data)
	if err != nil {
		return fmt.Errorf("error encoding submission data: %w", err)
	}

	query :=
		`INSERT INTO submissions (local_id, form_id, user_id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (form_id, local_id) DO UPDATE
		 SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		 RETURNING id
		`
	err = p.db.QueryRowContext(ctx, query,
		sub.LocalID, sub.FormID, sub.UserID, data, sub.CreatedAt, sub.UpdatedAt).Scan(&sub.ID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (p *Postgres) GetSubmission(ctx context.Context, formID, localID string) (*models.Submission, error) {
	query :=
		`SELECT id, local_id, form_id, user_id, data, created_at, updated_at FROM submissions
		 WHERE form_id = $1 AND local_id = $2
		`
	sub := &models.Submission{}
	var data []byte
	err := p.db.QueryRowContext(ctx, query, formID, localID).Scan(
		&sub.ID, &sub.LocalID, &sub.FormID, &sub.UserID, &data, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if err := json.Unmarshal(data, &sub.Data); err != nil {
		return nil, fmt.Errorf("error decoding submission data: %w", err)
	}
	return sub, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
