package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmcampos/minimart-backend/pkg/enums"
)

// CartLine is one product inside the session-resident cart. Name, price,
// image, and MaxStock are snapshots taken when the line was added; MaxStock
// is refreshed against live stock whenever the cart is viewed.
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  *string         `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
	MaxStock  int             `json:"max_stock"`
}

// Subtotal returns price times quantity for the line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Session is the server-side document stored in Redis, keyed by the JWT jti.
// It carries the login state machine and the cart so a bearer token is all a
// client needs.
type Session struct {
	ID               string             `json:"id"`
	UserID           uuid.UUID          `json:"user_id"`
	Role             enums.Role         `json:"role"`
	State            enums.SessionState `json:"state"`
	TwoFASetupSecret string             `json:"twofa_setup_secret,omitempty"`
	Cart             []CartLine         `json:"cart"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Authenticated reports whether the session has passed every required factor.
func (s *Session) Authenticated() bool {
	return s.State == enums.SessionStateAuthenticated
}

// LineFor returns a pointer to the cart line for productID, or nil.
func (s *Session) LineFor(productID uuid.UUID) *CartLine {
	for i := range s.Cart {
		if s.Cart[i].ProductID == productID {
			return &s.Cart[i]
		}
	}
	return nil
}

// RemoveLine drops the cart line for productID if present.
func (s *Session) RemoveLine(productID uuid.UUID) {
	for i := range s.Cart {
		if s.Cart[i].ProductID == productID {
			s.Cart = append(s.Cart[:i], s.Cart[i+1:]...)
			return
		}
	}
}

// CartTotal sums the line subtotals.
func (s *Session) CartTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Cart {
		total = total.Add(line.Subtotal())
	}
	return total
}
