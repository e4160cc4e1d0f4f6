package domain

import "time"

// Address is a delivery address owned by a user.
type Address struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	LineOne   string    `json:"line_one"`
	LineTwo   string    `json:"line_two"`
	Street    string    `json:"street"`
	Landmark  string    `json:"landmark"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Country   string    `json:"country"`
	ZipCode   string    `json:"zip_code"`
	CreatedAt time.Time `json:"created_at"`
}

const DefaultCountry = "India"

// CartLine is a cart item joined with the product it refers to.
type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
	ImageKey  string `json:"-"`
	ImageURL  string `json:"image_url"`
}

// CartView is the user's cart with a server-computed total.
type CartView struct {
	CartID     string     `json:"cart_id,omitempty"`
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"total_items"`
	Total      int64      `json:"total"`
}

// NewCartView totals lines.
func NewCartView(cartID string, lines []CartLine) CartView {
	v := CartView{CartID: cartID, Lines: lines}
	if v.Lines == nil {
		v.Lines = []CartLine{}
	}
	for i := range v.Lines {
		v.Lines[i].LineTotal = v.Lines[i].UnitPrice * int64(v.Lines[i].Quantity)
		v.Total += v.Lines[i].LineTotal
		v.TotalItems += v.Lines[i].Quantity
	}
	return v
}

const (
	OrderStatusPlaced = "placed"

	PaymentStatusPending = "pending"
)

// Payment fields are recorded as supplied by the client.
type Payment struct {
	TransactionID string `json:"transaction_id"`
	PaymentID     string `json:"payment_id"`
	Method        string `json:"payment_method"`
	Status        string `json:"payment_status"`
}

type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Address     string      `json:"address"`
	TotalAmount int64       `json:"total_amount"`
	Payment     Payment     `json:"payment"`
	OrderStatus string      `json:"order_status"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
}

// OrderItem snapshots a cart line at the time the order was placed.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Template is an operator-uploaded image asset.
type Template struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}
