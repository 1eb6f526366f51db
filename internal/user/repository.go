package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/tasknest/tasknest-api/internal/database"
)

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("username or email already exists")
)

// Repository handles account persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new account. Accounts always start inactive; the
// activation flow is the only writer of the active flag.
func (r *Repository) Create(ctx context.Context, account *Account) (*Account, error) {
	dbUser := &database.User{
		Username:     account.Username,
		Email:        account.Email,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		BirthDate:    account.BirthDate,
		Gender:       account.Gender,
		PasswordHash: account.PasswordHash,
		Active:       false,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return mapDBUserToAccount(dbUser), nil
}

// FindByUsername retrieves an account by username
func (r *Repository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("username = ?", username).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}

	return mapDBUserToAccount(dbUser), nil
}

// FindByID retrieves an account by id
func (r *Repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return mapDBUserToAccount(dbUser), nil
}

// Update rewrites the mutable profile fields of an account
func (r *Repository) Update(ctx context.Context, account *Account) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("username = ?", account.Username).
		Set("email = ?", account.Email).
		Set("first_name = ?", account.FirstName).
		Set("last_name = ?", account.LastName).
		Set("updated_at = NOW()").
		Where("id = ?", account.ID).
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes an account row. Only the account's own holder reaches this.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetActive flips the active flag. Two concurrent activations both set true;
// last-writer-wins is acceptable here.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("active = ?", active).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBUserToAccount converts the database model to the domain model
func mapDBUserToAccount(dbu *database.User) *Account {
	return &Account{
		ID:           dbu.ID,
		Username:     dbu.Username,
		Email:        dbu.Email,
		FirstName:    dbu.FirstName,
		LastName:     dbu.LastName,
		BirthDate:    dbu.BirthDate,
		Gender:       dbu.Gender,
		PasswordHash: dbu.PasswordHash,
		Active:       dbu.Active,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
}
