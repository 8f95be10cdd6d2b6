package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liamwears/reelwrapped/internal/models"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrMissingCredentials = errors.New("username and password are required")
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation
const uniqueViolation = "23505"

// UserService handles user-related business logic
type UserService struct {
	db *pgxpool.Pool
}

// NewUserService creates a new UserService
func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, "providerId", provider, COALESCE(username, ''), COALESCE(password, ''), email, name, "createdAt", "updatedAt"`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.ProviderID,
		&user.Provider,
		&user.Username,
		&user.Password,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ValidateRegistration checks the register form before touching the database
func ValidateRegistration(username, password, confirm string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrMissingCredentials
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// Register creates a local account
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	query := `
		INSERT INTO "User" ("providerId", provider, username, password, name)
		VALUES ($1, $2, $1, $3, $1)
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRow(ctx, query, username, models.ProviderLocal, password))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate checks a local username/password pair
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.Provider != models.ProviderLocal ||
		subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// FindByUsername finds a local user by username
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM "User" WHERE username = $1`
	return scanUser(s.db.QueryRow(ctx, query, username))
}

// FindOrCreate finds an OAuth user by provider ID or creates a new one
func (s *UserService) FindOrCreate(ctx context.Context, providerID string, provider models.Provider, email, name string) (*models.User, error) {
	user, err := s.FindByProviderID(ctx, provider, providerID)
	if err == nil {
		return user, nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return s.Create(ctx, providerID, provider, email, name)
	}

	return nil, fmt.Errorf("failed to find user: %w", err)
}

// FindByProviderID finds a user by their provider ID
func (s *UserService) FindByProviderID(ctx context.Context, provider models.Provider, providerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM "User" WHERE provider = $1 AND "providerId" = $2`
	return scanUser(s.db.QueryRow(ctx, query, provider, providerID))
}

// Create creates a new OAuth user
func (s *UserService) Create(ctx context.Context, providerID string, provider models.Provider, email, name string) (*models.User, error) {
	if !provider.IsValid() || provider == models.ProviderLocal {
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}

	query := `
		INSERT INTO "User" ("providerId", provider, email, name)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRow(ctx, query, providerID, provider, email, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM "User" WHERE id = $1`
	return scanUser(s.db.QueryRow(ctx, query, id))
}

// Delete deletes a user by ID; their favorites go with them
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM "User" WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}
