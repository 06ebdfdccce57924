package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo Repository
}

func NewService(db *sqlx.DB) *Service {
	return &Service{repo: NewRepository(db)}
}

// Storefront returns the public catalog: enabled items only, plus the
// current payment-method availability.
func (s *Service) Storefront(ctx context.Context) (*StorefrontResponse, error) {
	items, err := s.repo.List(ctx, true)
	if err != nil {
		log.Error().Err(err).Msg("failed to list catalog items")
		return nil, ErrInternal
	}
	methods, err := s.repo.ListMethods(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list payment methods")
		return nil, ErrInternal
	}
	return &StorefrontResponse{Items: items, PaymentMethods: methods}, nil
}

func (s *Service) ListAll(ctx context.Context) ([]Item, error) {
	items, err := s.repo.List(ctx, false)
	if err != nil {
		log.Error().Err(err).Msg("failed to list catalog items")
		return nil, ErrInternal
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPurchasable resolves an item for checkout. Disabled items are treated
// the same as missing ones so clients cannot buy a pack that was pulled from
// the storefront after they loaded it.
func (s *Service) GetPurchasable(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.Enabled {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *Service) Create(ctx context.Context, req CreateItemRequest) (*Item, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	item := &Item{
		ID:           uuid.New(),
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		RewriteLimit: req.RewriteLimit,
		Tier:         Tier(req.Tier),
		Enabled:      enabled,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("failed to create catalog item")
		return nil, ErrInternal
	}
	log.Info().Str("item_id", item.ID.String()).Str("title", item.Title).Msg("catalog item created")
	return item, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateItemRequest) (*Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.RewriteLimit != nil {
		item.RewriteLimit = *req.RewriteLimit
	}
	if req.Tier != nil {
		item.Tier = Tier(*req.Tier)
	}
	if req.Enabled != nil {
		item.Enabled = *req.Enabled
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		log.Error().Err(err).Str("item_id", id.String()).Msg("failed to update catalog item")
		return nil, ErrInternal
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == ErrNotFound {
			return err
		}
		log.Error().Err(err).Str("item_id", id.String()).Msg("failed to delete catalog item")
		return ErrInternal
	}
	return nil
}

func (s *Service) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	methods, err := s.repo.ListMethods(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list payment methods")
		return nil, ErrInternal
	}
	return methods, nil
}

// MethodEnabled reports whether a payment channel accepts new orders.
// Unknown methods are closed, not errors.
func (s *Service) MethodEnabled(ctx context.Context, name string) (bool, error) {
	method, err := s.repo.GetMethod(ctx, name)
	if err != nil {
		if err == ErrMethodNotFound {
			return false, nil
		}
		return false, err
	}
	return method.Enabled, nil
}

func (s *Service) SetMethod(ctx context.Context, name string, enabled bool) error {
	if err := s.repo.SetMethod(ctx, name, enabled); err != nil {
		log.Error().Err(err).Str("method", name).Msg("failed to toggle payment method")
		return ErrInternal
	}
	log.Info().Str("method", name).Bool("enabled", enabled).Msg("payment method toggled")
	return nil
}
