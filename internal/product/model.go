package product

import "time"

// Product statuses accepted on create and update.
const (
	StatusActive   = "Active"
	StatusInactive = "Desactive"
)

// Product is a user-owned catalog record. The SKU is generated server-side
// on creation and is the public identifier; numeric ids stay internal.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CategoryID  int64     `json:"category_id"`
	Stock       int       `json:"stock"`
	SKU         string    `json:"sku"`
	Status      string    `json:"status"`
	Brand       string    `json:"brand"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidStatus reports whether s is one of the accepted product statuses.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusInactive
}
