package domain

import (
	"strings"
	"time"
)

// MaxProductImages is the number of images a product may carry.
const MaxProductImages = 5

// Product is a seller's listing. Prices are in minor currency units.
type Product struct {
	ID           string         `json:"id"`
	SellerID     string         `json:"seller_id"`
	Name         string         `json:"name"`
	Brand        string         `json:"brand"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	CostPrice    int64          `json:"cost_price"`
	SellingPrice int64          `json:"selling_price"`
	Quantity     int            `json:"quantity"`
	About        []string       `json:"about"`
	Images       []ProductImage `json:"images,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ProductImage is one stored image of a product. URL is computed from the
// storage key when the image is returned to a client.
type ProductImage struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	StorageKey string `json:"-"`
	Position   int    `json:"position"`
	URL        string `json:"url"`
}

// ProductSummary is the list view of a product with its first image.
type ProductSummary struct {
	Product
	ImageURL string `json:"image_url"`
}

// ProductFields are the seller-editable attributes of a product.
type ProductFields struct {
	Name         string
	Brand        string
	Title        string
	Description  string
	Category     string
	CostPrice    int64
	SellingPrice int64
	Quantity     int
	About        []string
}

// Check returns a client-facing message for the first invalid field, or "".
func (f ProductFields) Check() string {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return "product name is required"
	case strings.TrimSpace(f.Category) == "":
		return "category is required"
	case f.CostPrice < 0:
		return "cost price must not be negative"
	case f.SellingPrice < 0:
		return "selling price must not be negative"
	case f.Quantity < 0:
		return "quantity must not be negative"
	}
	return ""
}

// Apply copies the fields onto p.
func (f ProductFields) Apply(p *Product) {
	p.Name = f.Name
	p.Brand = f.Brand
	p.Title = f.Title
	p.Description = f.Description
	p.Category = f.Category
	p.CostPrice = f.CostPrice
	p.SellingPrice = f.SellingPrice
	p.Quantity = f.Quantity
	p.About = f.About
	if p.About == nil {
		p.About = []string{}
	}
}

// Summarize builds the list view, taking the first image by position.
func Summarize(p Product) ProductSummary {
	s := ProductSummary{Product: p}
	first := -1
	for i, img := range p.Images {
		if first < 0 || img.Position < p.Images[first].Position {
			first = i
		}
	}
	if first >= 0 {
		s.ImageURL = p.Images[first].URL
	}
	s.Images = nil
	return s
}
