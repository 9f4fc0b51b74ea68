package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jmcampos/minimart-backend/api/middleware"
	"github.com/jmcampos/minimart-backend/api/responses"
	"github.com/jmcampos/minimart-backend/api/validators"
	checkoutsvc "github.com/jmcampos/minimart-backend/internal/checkout"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
)

type checkoutRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids" validate:"required,min=1"`
}

// CheckoutPreview totals the selected cart lines without placing an order.
// Selection comes in as ?ids=<uuid>,<uuid>.
func CheckoutPreview(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
			return
		}

		ids, err := selectedIDsParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preview, err := svc.Preview(r.Context(), sess, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

func selectedIDsParam(r *http.Request) ([]uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id in selection")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Checkout turns the selected cart lines into a completed order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), sess, payload.ProductIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
