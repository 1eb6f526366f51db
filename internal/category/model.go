package category

// Category is shared reference data for products. Unlike tasks and products
// there is no owner column; every active account sees the same set.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
