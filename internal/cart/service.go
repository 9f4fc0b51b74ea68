package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
	"github.com/jmcampos/minimart-backend/pkg/session"
)

// Quantity actions accepted by UpdateQuantity.
const (
	ActionIncrease = "plus"
	ActionDecrease = "minus"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type sessionSaver interface {
	Save(ctx context.Context, sess *session.Session) error
}

// Service owns the session cart and its persisted mirror. Session and
// mirror are written independently; a lost mirror write is healed by the
// next login rehydration.
type Service interface {
	AddToCart(ctx context.Context, sess *session.Session, productID uuid.UUID, quantity int) (*View, error)
	ViewCart(ctx context.Context, sess *session.Session) (*View, error)
	UpdateQuantity(ctx context.Context, sess *session.Session, productID uuid.UUID, action string) (*View, error)
	RemoveFromCart(ctx context.Context, sess *session.Session, productID uuid.UUID) (*View, error)
	ClearCart(ctx context.Context, sess *session.Session) error
	Rehydrate(ctx context.Context, sess *session.Session) error
}

type service struct {
	mirror   *MirrorRepository
	products productLoader
	sessions sessionSaver
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(mirror *MirrorRepository, products productLoader, sessions sessionSaver, logg *logger.Logger) (Service, error) {
	if mirror == nil {
		return nil, fmt.Errorf("cart mirror repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session saver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{mirror: mirror, products: products, sessions: sessions, logg: logg}, nil
}

func (s *service) AddToCart(ctx context.Context, sess *session.Session, productID uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	inCart := 0
	if line := sess.LineFor(productID); line != nil {
		inCart = line.Quantity
	}
	if inCart+quantity > product.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "not enough stock for requested quantity").
			WithDetails(map[string]any{
				"available": product.Quantity,
				"in_cart":   inCart,
				"requested": quantity,
			})
	}

	newQty := inCart + quantity
	if line := sess.LineFor(productID); line != nil {
		line.Quantity = newQty
		line.MaxStock = product.Quantity
	} else {
		sess.Cart = append(sess.Cart, session.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			ImageURL:  product.ImageURL,
			Quantity:  newQty,
			MaxStock:  product.Quantity,
		})
	}

	if err := s.mirror.Upsert(ctx, sess.UserID, productID, newQty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "persisting cart mirror")
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session cart")
	}
	return viewFromSession(sess), nil
}

// ViewCart refreshes each line's stock ceiling against the live catalog,
// clamping quantities down when stock shrank since the line was added.
// Lines whose product disappeared are dropped.
func (s *service) ViewCart(ctx context.Context, sess *session.Session) (*View, error) {
	ids := make([]uuid.UUID, 0, len(sess.Cart))
	for _, line := range sess.Cart {
		ids = append(ids, line.ProductID)
	}
	live, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading cart products")
	}

	kept := sess.Cart[:0]
	for _, line := range sess.Cart {
		product, ok := live[line.ProductID]
		if !ok || !product.IsActive {
			continue
		}
		line.MaxStock = product.Quantity
		if line.Quantity > product.Quantity {
			line.Quantity = product.Quantity
		}
		kept = append(kept, line)
	}
	sess.Cart = kept

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session cart")
	}
	return viewFromSession(sess), nil
}

// UpdateQuantity steps a line up or down by one. Stepping past the stock
// ceiling or below one is a silent no-op.
func (s *service) UpdateQuantity(ctx context.Context, sess *session.Session, productID uuid.UUID, action string) (*View, error) {
	line := sess.LineFor(productID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}

	switch action {
	case ActionIncrease:
		if line.Quantity < line.MaxStock {
			line.Quantity++
		}
	case ActionDecrease:
		if line.Quantity > 1 {
			line.Quantity--
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be plus or minus")
	}

	if err := s.mirror.Upsert(ctx, sess.UserID, productID, line.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "persisting cart mirror")
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session cart")
	}
	return viewFromSession(sess), nil
}

func (s *service) RemoveFromCart(ctx context.Context, sess *session.Session, productID uuid.UUID) (*View, error) {
	if sess.LineFor(productID) == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	sess.RemoveLine(productID)

	if err := s.mirror.Delete(ctx, sess.UserID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "removing cart mirror row")
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session cart")
	}
	return viewFromSession(sess), nil
}

func (s *service) ClearCart(ctx context.Context, sess *session.Session) error {
	sess.Cart = []session.CartLine{}
	if err := s.mirror.DeleteAll(ctx, sess.UserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing cart mirror")
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session cart")
	}
	return nil
}

// Rehydrate rebuilds the session cart from the persisted mirror. Called on
// login so a shopper's cart follows them across devices and restarts.
func (s *service) Rehydrate(ctx context.Context, sess *session.Session) error {
	rows, err := s.mirror.ListByUser(ctx, sess.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading cart mirror")
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	live, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading cart products")
	}

	lines := make([]session.CartLine, 0, len(rows))
	for _, row := range rows {
		product, ok := live[row.ProductID]
		if !ok || !product.IsActive {
			continue
		}
		lines = append(lines, session.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			ImageURL:  product.ImageURL,
			Quantity:  row.Quantity,
			MaxStock:  product.Quantity,
		})
	}
	sess.Cart = lines

	if err := s.sessions.Save(ctx, sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session cart")
	}
	return nil
}
