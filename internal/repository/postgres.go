package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wardrobe-backend/internal/apperror"
	"wardrobe-backend/internal/models"
	"wardrobe-backend/internal/repository/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const uniqueViolation = "23505"

// PostgresStore keeps each user as a JSONB document in the users table.
// id and email are mirrored into columns for lookups and uniqueness.
type PostgresStore struct {
	db *sql.DB
}

var _ UserStore = (*PostgresStore)(nil)

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// OpenPostgresStore connects, pings and migrates the database
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an already opened database
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunMigrations applies the embedded goose migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// FindByEmail retrieves a user by email
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT doc FROM users WHERE email = $1`
	return s.queryOne(ctx, query, email)
}

// FindByID retrieves a user by ID
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT doc FROM users WHERE id = $1`
	return s.queryOne(ctx, query, id)
}

// Create creates a new user
func (s *PostgresStore) Create(ctx context.Context, email string) (*models.User, error) {
	user := models.NewUser(uuid.New().String(), email)
	if err := s.insert(ctx, user, false); err != nil {
		return nil, err
	}
	return user, nil
}

// Save replaces the stored document
func (s *PostgresStore) Save(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	query := `UPDATE users SET email = $2, doc = $3, updated_at = $4 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, user.ID, user.Email, doc, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// EnsureExists inserts a provisioned user unless the ID is already present.
// The primary key makes the check-and-insert atomic.
func (s *PostgresStore) EnsureExists(ctx context.Context, id string) (*models.User, error) {
	if err := s.insert(ctx, models.NewUser(id, ProvisionedEmail(id)), true); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

// List returns every user ordered by creation time
func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) insert(ctx context.Context, user *models.User, ignoreExistingID bool) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	query := `
		INSERT INTO users (id, email, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if ignoreExistingID {
		query += ` ON CONFLICT (id) DO NOTHING`
	}

	_, err = s.db.ExecContext(ctx, query, user.ID, user.Email, doc, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", arg)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return decodeUser(doc)
}

func decodeUser(doc []byte) (*models.User, error) {
	var user models.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	user.Normalize()
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
