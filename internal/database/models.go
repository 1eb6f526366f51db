package database

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the database model for the users table. The same row stores the
// credential (username + password hash) and the account profile.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,notnull,unique"`
	Email        string    `bun:"email,notnull,unique"`
	FirstName    string    `bun:"first_name,notnull"`
	LastName     string    `bun:"last_name,notnull"`
	BirthDate    time.Time `bun:"birth_date,notnull"`
	Gender       string    `bun:"gender,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Active       bool      `bun:"active,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Task is the database model for the tasks table.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	UserID      int64     `bun:"user_id,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Product is the database model for the products table.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull"`
	Price       float64   `bun:"price,notnull"`
	CategoryID  int64     `bun:"category_id,notnull"`
	Stock       int       `bun:"stock,notnull"`
	SKU         string    `bun:"sku,notnull,unique"`
	Status      string    `bun:"status,notnull"`
	Brand       string    `bun:"brand,notnull"`
	UserID      int64     `bun:"user_id,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Category is the database model for the categories table. Categories are
// shared reference data and carry no owner column.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}
