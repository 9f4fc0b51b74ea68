package enums

// PaymentMode is the settlement method recorded on an order.
type PaymentMode string

const (
	PaymentModeCash PaymentMode = "cash"
)

func (p PaymentMode) IsValid() bool {
	return p == PaymentModeCash
}
