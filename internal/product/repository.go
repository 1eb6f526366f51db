package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tasknest/tasknest-api/internal/database"
)

var (
	ErrNotFound  = errors.New("product not found")
	ErrDuplicate = errors.New("product already exists")
)

// Repository handles product persistence. Lookups after creation go through
// the SKU, always combined with the owner id, so a product belonging to a
// different account is indistinguishable from a missing one.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// CreateInput carries the caller-supplied fields for a new product. The SKU
// is not among them; it is generated here.
type CreateInput struct {
	Name        string
	Description string
	Price       float64
	CategoryID  int64
	Stock       int
	Status      string
	Brand       string
}

// UpdateInput carries the mutable fields of an existing product.
type UpdateInput struct {
	Name        string
	Description string
	Price       float64
	CategoryID  int64
	Stock       int
	Status      string
	Brand       string
}

// ListByUser returns all products owned by the given account
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Product, error) {
	var dbProducts []database.Product
	err := r.db.NewSelect().
		Model(&dbProducts).
		Where("user_id = ?", userID).
		Order("id ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]Product, 0, len(dbProducts))
	for i := range dbProducts {
		products = append(products, *mapDBProductToModel(&dbProducts[i]))
	}
	return products, nil
}

// FindBySKU retrieves one of the account's own products by SKU
func (r *Repository) FindBySKU(ctx context.Context, sku string, userID int64) (*Product, error) {
	dbProduct := new(database.Product)
	err := r.db.NewSelect().
		Model(dbProduct).
		Where("sku = ?", sku).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return mapDBProductToModel(dbProduct), nil
}

// Create inserts a new product owned by userID with a freshly generated SKU
func (r *Repository) Create(ctx context.Context, userID int64, input CreateInput) (*Product, error) {
	dbProduct := &database.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		CategoryID:  input.CategoryID,
		Stock:       input.Stock,
		SKU:         uuid.NewString(),
		Status:      input.Status,
		Brand:       input.Brand,
		UserID:      userID,
	}

	_, err := r.db.NewInsert().
		Model(dbProduct).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return mapDBProductToModel(dbProduct), nil
}

// Update rewrites the mutable fields of one of the account's own products
func (r *Repository) Update(ctx context.Context, sku string, userID int64, input UpdateInput) error {
	result, err := r.db.NewUpdate().
		Model((*database.Product)(nil)).
		Set("name = ?", input.Name).
		Set("description = ?", input.Description).
		Set("price = ?", input.Price).
		Set("category_id = ?", input.CategoryID).
		Set("stock = ?", input.Stock).
		Set("status = ?", input.Status).
		Set("brand = ?", input.Brand).
		Set("updated_at = NOW()").
		Where("sku = ?", sku).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
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

// Delete removes one of the account's own products by SKU
func (r *Repository) Delete(ctx context.Context, sku string, userID int64) error {
	result, err := r.db.NewDelete().
		Model((*database.Product)(nil)).
		Where("sku = ?", sku).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
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

func isDuplicateKeyError(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value")
}

func mapDBProductToModel(dbp *database.Product) *Product {
	return &Product{
		ID:          dbp.ID,
		Name:        dbp.Name,
		Description: dbp.Description,
		Price:       dbp.Price,
		CategoryID:  dbp.CategoryID,
		Stock:       dbp.Stock,
		SKU:         dbp.SKU,
		Status:      dbp.Status,
		Brand:       dbp.Brand,
		UserID:      dbp.UserID,
		CreatedAt:   dbp.CreatedAt,
		UpdatedAt:   dbp.UpdatedAt,
	}
}
