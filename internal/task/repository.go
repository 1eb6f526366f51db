package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tasknest/tasknest-api/internal/database"
)

var ErrNotFound = errors.New("task not found")

// Repository handles task persistence. The owner id is part of every
// predicate so a caller can never touch another account's rows.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser returns all tasks owned by the given account
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Task, error) {
	var dbTasks []database.Task
	err := r.db.NewSelect().
		Model(&dbTasks).
		Where("user_id = ?", userID).
		Order("id ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]Task, 0, len(dbTasks))
	for i := range dbTasks {
		tasks = append(tasks, *mapDBTaskToModel(&dbTasks[i]))
	}
	return tasks, nil
}

// FindByID retrieves one of the account's own tasks. A task owned by a
// different account is indistinguishable from a missing one.
func (r *Repository) FindByID(ctx context.Context, id, userID int64) (*Task, error) {
	dbTask := new(database.Task)
	err := r.db.NewSelect().
		Model(dbTask).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// Create inserts a new task owned by userID
func (r *Repository) Create(ctx context.Context, userID int64, title, description string) (*Task, error) {
	dbTask := &database.Task{
		Title:       title,
		Description: description,
		UserID:      userID,
	}

	_, err := r.db.NewInsert().
		Model(dbTask).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// Update rewrites title and description of one of the account's own tasks
func (r *Repository) Update(ctx context.Context, id, userID int64, title, description string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Task)(nil)).
		Set("title = ?", title).
		Set("description = ?", description).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
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

// Delete removes one of the account's own tasks
func (r *Repository) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
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

func mapDBTaskToModel(dbt *database.Task) *Task {
	return &Task{
		ID:          dbt.ID,
		Title:       dbt.Title,
		Description: dbt.Description,
		UserID:      dbt.UserID,
		CreatedAt:   dbt.CreatedAt,
		UpdatedAt:   dbt.UpdatedAt,
	}
}
