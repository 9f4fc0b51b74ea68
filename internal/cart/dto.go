package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmcampos/minimart-backend/pkg/session"
)

// LineView is one rendered cart row.
type LineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  *string         `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
	MaxStock  int             `json:"max_stock"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// View is the cart as shown to the shopper, after stock clamping.
type View struct {
	Items []LineView      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func viewFromSession(sess *session.Session) *View {
	items := make([]LineView, 0, len(sess.Cart))
	for _, line := range sess.Cart {
		items = append(items, LineView{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			ImageURL:  line.ImageURL,
			Quantity:  line.Quantity,
			MaxStock:  line.MaxStock,
			Subtotal:  line.Subtotal(),
		})
	}
	return &View{Items: items, Total: sess.CartTotal()}
}
