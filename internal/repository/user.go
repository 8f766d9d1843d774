package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mymail/mymail/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

const userColumns = `id, email, first_name, last_name, COALESCE(display_name, ''), role, is_online, last_seen, never_logged_in, password_hash`

// scanUser reads one user row in userColumns order.
func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.DisplayName,
		&user.Role,
		&user.IsOnline,
		&user.LastSeen,
		&user.NeverLoggedIn,
		&user.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user and sets its server-assigned ID.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (email, first_name, last_name, display_name, role, is_online, never_logged_in, password_hash)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.DisplayName,
		user.Role,
		user.IsOnline,
		user.NeverLoggedIn,
		user.PasswordHash,
	).Scan(&user.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves an active (non-deleted) user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves an active (non-deleted) user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// ListUsers returns the full active roster ordered by ID.
func (r *Repository) ListUsers(ctx context.Context) ([]model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}

	return users, nil
}

// MarkLoggedIn flags the user online, stamps last_seen, and clears
// the never-logged-in marker. Returns the updated record.
func (r *Repository) MarkLoggedIn(ctx context.Context, id int64, timestampMs int64) (*model.User, error) {
	query := `
		UPDATE users
		SET is_online = TRUE, last_seen = $2, never_logged_in = FALSE
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns + `
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, timestampMs))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to mark user logged in: %w", err)
	}

	return user, nil
}

// MarkLoggedOut flags the user offline and stamps last_seen.
func (r *Repository) MarkLoggedOut(ctx context.Context, id int64, timestampMs int64) error {
	query := `
		UPDATE users
		SET is_online = FALSE, last_seen = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, timestampMs)
	if err != nil {
		return fmt.Errorf("failed to mark user logged out: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateDisplayName sets the user's display name and returns the
// updated record. An empty name clears the display name.
func (r *Repository) UpdateDisplayName(ctx context.Context, id int64, displayName string) (*model.User, error) {
	query := `
		UPDATE users
		SET display_name = NULLIF($2, '')
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns + `
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, displayName))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update display name: %w", err)
	}

	return user, nil
}

// SoftDeleteUser marks the user deleted. The row is retained so that
// historical messages keep a valid sender reference.
func (r *Repository) SoftDeleteUser(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET deleted_at = NOW(), is_online = FALSE
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
