package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/internal/orders"
	"github.com/jmcampos/minimart-backend/pkg/db/models"
	"github.com/jmcampos/minimart-backend/pkg/enums"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
	"github.com/jmcampos/minimart-backend/pkg/outbox"
	"github.com/jmcampos/minimart-backend/pkg/session"
)

type stockDecrementer interface {
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
}

type mirrorPruner interface {
	DeleteProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error
}

type sessionSaver interface {
	Save(ctx context.Context, sess *session.Session) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service turns a selection of session cart lines into a completed order.
type Service interface {
	Preview(ctx context.Context, sess *session.Session, selected []uuid.UUID) (*Preview, error)
	PlaceOrder(ctx context.Context, sess *session.Session, selected []uuid.UUID) (*orders.OrderDTO, error)
}

// PreviewLine is one selected cart line priced from the session snapshot.
type PreviewLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Preview is the order summary shown before the buyer confirms.
type Preview struct {
	Items []PreviewLine   `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type service struct {
	orders   *orders.Repository
	products stockDecrementer
	mirror   mirrorPruner
	sessions sessionSaver
	emitter  eventEmitter
	db       *gorm.DB
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the checkout service.
func NewService(
	orderRepo *orders.Repository,
	products stockDecrementer,
	mirror mirrorPruner,
	sessions sessionSaver,
	emitter eventEmitter,
	db *gorm.DB,
	logg *logger.Logger,
) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("stock decrementer required")
	}
	if mirror == nil {
		return nil, fmt.Errorf("cart mirror required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session saver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   orderRepo,
		products: products,
		mirror:   mirror,
		sessions: sessions,
		emitter:  emitter,
		db:       db,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Preview totals the selected session lines without touching storage.
func (s *service) Preview(_ context.Context, sess *session.Session, selected []uuid.UUID) (*Preview, error) {
	lines := selectLines(sess, selected)
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items selected for checkout")
	}

	preview := &Preview{Items: make([]PreviewLine, 0, len(lines)), Total: decimal.Zero}
	for _, line := range lines {
		subtotal := line.Subtotal()
		preview.Items = append(preview.Items, PreviewLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
			Subtotal:  subtotal,
		})
		preview.Total = preview.Total.Add(subtotal)
	}
	return preview, nil
}

// PlaceOrder writes the order header, then fires every line's item insert
// and guarded stock decrement concurrently and waits for all of them.
// There is no transaction across the writes: a failed line does not roll
// back its siblings or the header, and a decrement held back by the stock
// guard still leaves the order row in place. Stock can never go negative;
// order totals are trusted from the session snapshot.
func (s *service) PlaceOrder(ctx context.Context, sess *session.Session, selected []uuid.UUID) (*orders.OrderDTO, error) {
	lines := selectLines(sess, selected)
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items selected for checkout")
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}

	now := s.now().UTC()
	order := &models.Order{
		OrderNumber: timestampedID("ORD", now),
		ReferenceID: timestampedID("REF", now),
		UserID:      sess.UserID,
		PaymentMode: enums.PaymentModeCash,
		Status:      enums.OrderStatusCompleted,
		Total:       total,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating order")
	}

	var (
		mu       sync.Mutex
		lineErrs error
	)
	g := new(errgroup.Group)
	for _, line := range lines {
		line := line
		g.Go(func() error {
			item := &models.OrderItem{
				OrderID:     order.ID,
				ProductID:   line.ProductID,
				ProductName: line.Name,
				UnitPrice:   line.Price,
				Quantity:    line.Quantity,
				Subtotal:    line.Subtotal(),
			}
			if err := s.orders.CreateItem(ctx, item); err != nil {
				mu.Lock()
				lineErrs = multierr.Append(lineErrs, fmt.Errorf("order item %s: %w", line.ProductID, err))
				mu.Unlock()
				return nil
			}
			if _, err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				mu.Lock()
				lineErrs = multierr.Append(lineErrs, fmt.Errorf("stock decrement %s: %w", line.ProductID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if lineErrs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, lineErrs, "writing order lines")
	}

	purchased := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		purchased = append(purchased, line.ProductID)
		sess.RemoveLine(line.ProductID)
	}
	if err := s.mirror.DeleteProducts(ctx, sess.UserID, purchased); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "pruning cart mirror")
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session cart")
	}

	s.emitOrderPlaced(ctx, sess, order, lines)

	placed, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading placed order")
	}
	return orders.FromModel(placed), nil
}

// emitOrderPlaced queues the outbox event. Best-effort: checkout already
// succeeded, so a failed emit is only logged.
func (s *service) emitOrderPlaced(ctx context.Context, sess *session.Session, order *models.Order, lines []session.CartLine) {
	if s.emitter == nil || s.db == nil {
		return
	}
	items := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		items = append(items, map[string]any{
			"product_id": line.ProductID,
			"name":       line.Name,
			"quantity":   line.Quantity,
			"unit_price": line.Price,
		})
	}
	err := s.emitter.Emit(ctx, s.db, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: sess.UserID, Role: string(sess.Role)},
		Data: map[string]any{
			"order_number": order.OrderNumber,
			"reference_id": order.ReferenceID,
			"total":        order.Total,
			"items":        items,
		},
		Version: 1,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "queueing order event", err)
	}
}

func selectLines(sess *session.Session, selected []uuid.UUID) []session.CartLine {
	want := make(map[uuid.UUID]struct{}, len(selected))
	for _, id := range selected {
		want[id] = struct{}{}
	}
	var lines []session.CartLine
	for _, line := range sess.Cart {
		if _, ok := want[line.ProductID]; ok && line.Quantity > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// timestampedID builds the ORD-/REF- identifiers: millisecond timestamp
// plus a short random suffix so two checkouts in the same instant cannot
// collide.
func timestampedID(prefix string, at time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("%s-%d-%s", prefix, at.UnixMilli(), suffix)
}
