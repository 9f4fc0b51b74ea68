package products

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
)

// Service exposes catalog management and browsing operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	row := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    input.Category,
		Tags:        pq.StringArray(tags),
		Price:       input.Price,
		Quantity:    input.Quantity,
		ImageURL:    input.ImageURL,
		IsActive:    input.IsActive,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", created.ID.String()), "product created")
	return FromModel(created), nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.Tags != nil {
		updates["tags"] = pq.StringArray(*input.Tags)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, productID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating product")
		}
	}

	updated, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", productID.String()), "product deleted")
	return nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

// ListProducts pulls the catalog and applies search/filter/sort in process.
// The catalog is small enough that the browse paths never page.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error) {
	rows, err := s.repo.List(ctx, input.IncludeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing products")
	}

	search := strings.ToLower(strings.TrimSpace(input.Search))
	category := strings.TrimSpace(input.Category)

	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		if search != "" && !strings.Contains(strings.ToLower(rows[i].Name), search) {
			continue
		}
		if category != "" && !matchesCategory(&rows[i], category) {
			continue
		}
		out = append(out, *FromModel(&rows[i]))
	}

	sortProducts(out, input.Sort)
	return out, nil
}

func matchesCategory(p *models.Product, category string) bool {
	if p.Category != nil && strings.EqualFold(*p.Category, category) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.EqualFold(tag, category) {
			return true
		}
	}
	return false
}

func sortProducts(items []ProductDTO, order string) {
	switch order {
	case SortPriceAsc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Price.LessThan(items[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(items, func(i, j int) bool { return items[j].Price.LessThan(items[i].Price) })
	case SortNameAsc:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})
	case SortNameDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[j].Name) < strings.ToLower(items[i].Name)
		})
	}
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading product")
	}
	return product, nil
}
