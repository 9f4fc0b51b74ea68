package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/pagination"
)

// Service exposes order history read paths.
type Service interface {
	UserOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	UserOrderDetail(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	AdminOrders(ctx context.Context, params pagination.Params) (*AdminOrderPage, error)
	AdminOrderDetail(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs an order history service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) UserOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// UserOrderDetail loads a single order. Orders belonging to another user
// are reported as missing rather than forbidden.
func (s *service) UserOrderDetail(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return FromModel(order), nil
}

func (s *service) AdminOrders(ctx context.Context, params pagination.Params) (*AdminOrderPage, error) {
	rows, usernames, nextCursor, err := s.repo.ListAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing orders")
	}
	page := &AdminOrderPage{
		Orders:     make([]AdminOrderDTO, 0, len(rows)),
		NextCursor: nextCursor,
	}
	for i := range rows {
		page.Orders = append(page.Orders, AdminOrderDTO{
			OrderDTO: *FromModel(&rows[i]),
			Username: usernames[rows[i].ID],
		})
	}
	return page, nil
}

func (s *service) AdminOrderDetail(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading order")
	}
	return order, nil
}
