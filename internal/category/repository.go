package category

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
	ErrNotFound  = errors.New("category not found")
	ErrDuplicate = errors.New("category already exists")
)

// Repository handles category persistence.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// List returns all categories ordered by id
func (r *Repository) List(ctx context.Context) ([]Category, error) {
	var dbCategories []database.Category
	err := r.db.NewSelect().
		Model(&dbCategories).
		Order("id ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := make([]Category, 0, len(dbCategories))
	for _, dbc := range dbCategories {
		categories = append(categories, Category{ID: dbc.ID, Name: dbc.Name})
	}
	return categories, nil
}

// FindByID retrieves a single category
func (r *Repository) FindByID(ctx context.Context, id int64) (*Category, error) {
	dbCategory := new(database.Category)
	err := r.db.NewSelect().
		Model(dbCategory).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &Category{ID: dbCategory.ID, Name: dbCategory.Name}, nil
}

// Create inserts a new category. The name is unique across the table.
func (r *Repository) Create(ctx context.Context, name string) (*Category, error) {
	dbCategory := &database.Category{Name: name}

	_, err := r.db.NewInsert().
		Model(dbCategory).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return &Category{ID: dbCategory.ID, Name: dbCategory.Name}, nil
}

// Delete removes a category by id
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*database.Category)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
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
