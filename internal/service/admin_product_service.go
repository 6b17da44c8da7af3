package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// adminProductService implements AdminProductService.
type adminProductService struct {
	productRepo     repository.ProductRepository
	defaultCurrency string
	logger          zerolog.Logger
}

// NewAdminProductService creates a catalogue management service. Products
// created without a currency are priced in defaultCurrency.
func NewAdminProductService(productRepo repository.ProductRepository, defaultCurrency string, logger zerolog.Logger) AdminProductService {
	return &adminProductService{
		productRepo:     productRepo,
		defaultCurrency: defaultCurrency,
		logger:          logger.With().Str("service", "admin_product").Logger(),
	}
}

func (s *adminProductService) Create(ctx context.Context, in *model.ProductInput) (*model.Product, error) {
	p, err := s.build(uuid.New(), in)
	if err != nil {
		return nil, err
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}

	if err := s.productRepo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, model.ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().Str("product_id", p.ID.String()).Str("slug", p.Slug).Msg("product created")
	return p, nil
}

func (s *adminProductService) Update(ctx context.Context, id uuid.UUID, in *model.ProductInput) (*model.Product, error) {
	p, err := s.build(id, in)
	if err != nil {
		return nil, err
	}

	updated, err := s.productRepo.Update(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, model.ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if updated == nil {
		return nil, model.ErrProductNotFound
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product updated")
	return updated, nil
}

// Delete deactivates rather than removes, since past orders reference the row.
func (s *adminProductService) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.productRepo.Deactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !found {
		return model.ErrProductNotFound
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product deactivated")
	return nil
}

// build validates in and maps it onto a product row.
func (s *adminProductService) build(id uuid.UUID, in *model.ProductInput) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, model.InvalidRequest("name is required")
	}
	if !slugPattern.MatchString(in.Slug) {
		return nil, model.InvalidRequest("slug must be lowercase letters, digits and single hyphens")
	}
	if in.Price.IsNegative() {
		return nil, model.InvalidRequest("price must not be negative")
	}
	if in.StockQuantity < 0 {
		return nil, model.InvalidRequest("stock quantity must not be negative")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	return &model.Product{
		ID:            id,
		Name:          name,
		Slug:          in.Slug,
		Description:   blankToNil(in.Description),
		Price:         in.Price,
		Currency:      currency,
		Category:      blankToNil(in.Category),
		StockQuantity: in.StockQuantity,
		IsActive:      in.IsActive,
		ImageURLs:     in.ImageURLs,
	}, nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
