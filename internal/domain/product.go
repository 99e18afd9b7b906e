package domain

// Product is a catalog record as served to the storefront pages. Prices are
// integer cents; two-decimal formatting happens at presentation time only.
type Product struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Price       int64   `json:"price"` // cents
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Rating      *Rating `json:"rating,omitempty"`
}

// Rating is the aggregate review score carried by the catalog.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}
