package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/taskhub/internal/domain"
)

var userColumns = []string{"id", "email", "name", "role", "token", "created_at", "updated_at"}

// UserRepository handles database operations for users.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row, notFound error) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Token,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) || isViolation(err, invalidTextRepresentation) {
			return nil, notFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) getOne(ctx context.Context, where sq.Eq, notFound error) (*domain.User, error) {
	query, args, err := psql.
		Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return scanUser(r.pool.QueryRow(ctx, query, args...), notFound)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.getOne(ctx, sq.Eq{"id": userID}, domain.ErrUserNotFound)
}

// GetByToken finds a user by authentication token.
func (r *UserRepository) GetByToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getOne(ctx, sq.Eq{"token": token}, domain.ErrInvalidToken)
}

// GetByEmail finds a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, sq.Eq{"email": email}, domain.ErrUserNotFound)
}

// List returns every user ordered by name.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	query, args, err := psql.
		Select(userColumns...).
		From("users").
		OrderBy("name ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows, domain.ErrUserNotFound)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return users, nil
}

// Create inserts a user. ID, CreatedAt and UpdatedAt are populated from the database.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query, args, err := psql.
		Insert("users").
		Columns("email", "name", "role", "token").
		Values(user.Email, user.Name, user.Role, user.Token).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for user: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isViolation(err, uniqueViolation) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Update writes email, name and role. The token is never rotated here.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query, args, err := psql.
		Update("users").
		Set("email", user.Email).
		Set("name", user.Name).
		Set("role", user.Role).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Update query for user %s: %w", user.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isViolation(err, uniqueViolation) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete removes a user. Users who created tasks cannot be removed.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	query, args, err := psql.
		Delete("users").
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for user %s: %w", userID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isViolation(err, foreignKeyViolation) {
			return domain.ErrUserHasTasks
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// CountAssignedTasks returns how many tasks are assigned to the user.
func (r *UserRepository) CountAssignedTasks(ctx context.Context, userID string) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		From("tasks").
		Where(sq.Eq{"assigned_to_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assigned tasks: %w", err)
	}
	return n, nil
}

const (
	foreignKeyViolation       = "23503"
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func isViolation(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
