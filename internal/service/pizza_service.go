package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"pizza-service/internal/apperr"
	"pizza-service/internal/models"
	"pizza-service/internal/redisclient"
	"pizza-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PizzaRepository persists catalog entries
type PizzaRepository interface {
	GetPizzas(ctx context.Context) ([]models.Pizza, error)
	GetPizzaByID(ctx context.Context, id int64) (*models.Pizza, error)
	CreatePizza(ctx context.Context, pizza *models.Pizza) error
	UpdatePizza(ctx context.Context, pizza *models.Pizza) error
	UpdatePizzaPhoto(ctx context.Context, id int64, photoPath string) error
	DeletePizza(ctx context.Context, id int64) error
}

// CatalogCache caches the full catalog. GetCatalog reports an empty cache
// with redisclient.ErrCacheMiss.
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]models.Pizza, error)
	SetCatalog(ctx context.Context, pizzas []models.Pizza, ttl time.Duration) error
	InvalidateCatalog(ctx context.Context) error
}

// ImageStore stores pizza photos
type ImageStore interface {
	SavePizzaImage(pizzaID int64, filename string, r io.Reader) (string, error)
	PrunePizzaImages(pizzaID int64, keep string) error
	DeleteImage(key string) error
	DeletePizzaFolder(pizzaID int64) error
	FullURL(key string) string
}

// PizzaEventPublisher publishes catalog events
type PizzaEventPublisher interface {
	PublishPizzaChanged(ctx context.Context, event *models.PizzaChangedEvent) error
}

// Pizza change actions
const (
	PizzaCreated = "created"
	PizzaUpdated = "updated"
	PizzaDeleted = "deleted"
)

// PizzaInput is the editable part of a pizza
type PizzaInput struct {
	Name         string           `json:"name" validate:"required,notblank,max=150"`
	Description  DescriptionInput `json:"description"`
	Price        decimal.Decimal  `json:"price" validate:"required,gte=0.01,lte=10000"`
	IsVegetarian bool             `json:"isVegetarian"`
}

// DescriptionInput is the editable description of a pizza
type DescriptionInput struct {
	Text        string   `json:"text" validate:"required,notblank,max=500"`
	Ingredients []string `json:"ingredients" validate:"dive,notblank,excludes=0x2C"`
	Weight      string   `json:"weight" validate:"max=50"`
}

// Image is an uploaded photo
type Image struct {
	Filename string
	Content  io.Reader
}

// PizzaService handles catalog administration
type PizzaService struct {
	repo     PizzaRepository
	images   ImageStore
	cache    CatalogCache
	events   PizzaEventPublisher
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewPizzaService creates a new pizza service. cache and events may be nil.
func NewPizzaService(repo PizzaRepository, images ImageStore, cache CatalogCache, events PizzaEventPublisher, cacheTTL time.Duration) *PizzaService {
	return &PizzaService{
		repo:     repo,
		images:   images,
		cache:    cache,
		events:   events,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// List returns the catalog ordered by id with absolute photo URLs
func (s *PizzaService) List(ctx context.Context) ([]models.Pizza, error) {
	ctx, span := util.StartSpan(ctx, "PizzaService.List")
	defer span.End()

	pizzas, err := s.cachedCatalog(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	out := make([]models.Pizza, len(pizzas))
	for i, p := range pizzas {
		p.PhotoPath = s.images.FullURL(p.PhotoPath)
		out[i] = p
	}
	return out, nil
}

func (s *PizzaService) cachedCatalog(ctx context.Context) ([]models.Pizza, error) {
	if s.cache != nil {
		pizzas, err := s.cache.GetCatalog(ctx)
		if err == nil {
			util.CatalogCacheRequestsTotal.WithLabelValues("hit").Inc()
			return pizzas, nil
		}
		if errors.Is(err, redisclient.ErrCacheMiss) {
			util.CatalogCacheRequestsTotal.WithLabelValues("miss").Inc()
		} else {
			util.CatalogCacheRequestsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Catalog cache read failed", zap.Error(err))
		}
	}

	pizzas, err := s.repo.GetPizzas(ctx)
	if err != nil {
		return nil, apperr.Storage("list pizzas", err)
	}

	if s.cache != nil {
		if err := s.cache.SetCatalog(ctx, pizzas, s.cacheTTL); err != nil {
			s.logger.Warn("Catalog cache write failed", zap.Error(err))
		}
	}
	return pizzas, nil
}

// Get returns one pizza with an absolute photo URL
func (s *PizzaService) Get(ctx context.Context, id int64) (*models.Pizza, error) {
	ctx, span := util.StartSpan(ctx, "PizzaService.Get", attribute.Int64("pizza.id", id))
	defer span.End()

	pizza, err := s.repo.GetPizzaByID(ctx, id)
	if err != nil {
		err = apperr.Storage("get pizza", err)
		util.RecordError(span, err)
		return nil, err
	}
	pizza.PhotoPath = s.images.FullURL(pizza.PhotoPath)
	return pizza, nil
}

// Create adds a pizza. The photo, if any, is stored under the new id.
func (s *PizzaService) Create(ctx context.Context, in *PizzaInput, image *Image) (*models.Pizza, error) {
	ctx, span := util.StartSpan(ctx, "PizzaService.Create")
	defer span.End()

	if err := validatePizza(in); err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	pizza := in.toModel()
	if err := s.repo.CreatePizza(ctx, &pizza); err != nil {
		err = apperr.Storage("create pizza", err)
		util.RecordError(span, err)
		return nil, err
	}

	if image != nil {
		key, err := s.images.SavePizzaImage(pizza.ID, image.Filename, image.Content)
		if err != nil {
			s.logger.Warn("Failed to store pizza image, rolling back", zap.Int64("pizza_id", pizza.ID), zap.Error(err))
			if derr := s.repo.DeletePizza(ctx, pizza.ID); derr != nil {
				s.logger.Error("Failed to roll back pizza", zap.Int64("pizza_id", pizza.ID), zap.Error(derr))
			}
			util.RecordError(span, err)
			return nil, err
		}
		if err := s.repo.UpdatePizzaPhoto(ctx, pizza.ID, key); err != nil {
			err = apperr.Storage("set pizza photo", err)
			util.RecordError(span, err)
			return nil, err
		}
		pizza.PhotoPath = key
	}

	s.logger.Info("Pizza created", zap.Int64("pizza_id", pizza.ID), zap.String("name", pizza.Name))
	s.changed(ctx, pizza.ID, PizzaCreated)

	pizza.PhotoPath = s.images.FullURL(pizza.PhotoPath)
	return &pizza, nil
}

// Update replaces the editable fields of a pizza. A new photo replaces all
// previous photos of the pizza.
func (s *PizzaService) Update(ctx context.Context, id int64, in *PizzaInput, image *Image) error {
	ctx, span := util.StartSpan(ctx, "PizzaService.Update", attribute.Int64("pizza.id", id))
	defer span.End()

	if err := validatePizza(in); err != nil {
		util.RecordError(span, err)
		return err
	}

	existing, err := s.repo.GetPizzaByID(ctx, id)
	if err != nil {
		err = apperr.Storage("get pizza", err)
		util.RecordError(span, err)
		return err
	}

	pizza := in.toModel()
	pizza.ID = id
	pizza.PhotoPath = existing.PhotoPath

	// Old photos are pruned only once the row points at the new one.
	if image != nil {
		key, err := s.images.SavePizzaImage(id, image.Filename, image.Content)
		if err != nil {
			util.RecordError(span, err)
			return err
		}
		pizza.PhotoPath = key
	}

	if err := s.repo.UpdatePizza(ctx, &pizza); err != nil {
		if image != nil && pizza.PhotoPath != existing.PhotoPath {
			if derr := s.images.DeleteImage(pizza.PhotoPath); derr != nil {
				s.logger.Warn("Failed to remove unused pizza image", zap.String("key", pizza.PhotoPath), zap.Error(derr))
			}
		}
		err = apperr.Storage("update pizza", err)
		util.RecordError(span, err)
		return err
	}

	if image != nil {
		if err := s.images.PrunePizzaImages(id, pizza.PhotoPath); err != nil {
			s.logger.Warn("Failed to remove old pizza images", zap.Int64("pizza_id", id), zap.Error(err))
		}
	}

	s.logger.Info("Pizza updated", zap.Int64("pizza_id", id))
	s.changed(ctx, id, PizzaUpdated)
	return nil
}

// Delete removes a pizza and its photos. Orders referencing it are kept.
func (s *PizzaService) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "PizzaService.Delete", attribute.Int64("pizza.id", id))
	defer span.End()

	if err := s.repo.DeletePizza(ctx, id); err != nil {
		err = apperr.Storage("delete pizza", err)
		util.RecordError(span, err)
		return err
	}

	if err := s.images.DeletePizzaFolder(id); err != nil {
		s.logger.Warn("Failed to remove pizza images", zap.Int64("pizza_id", id), zap.Error(err))
	}

	s.logger.Info("Pizza deleted", zap.Int64("pizza_id", id))
	s.changed(ctx, id, PizzaDeleted)
	return nil
}

// changed drops the cached catalog and announces the change
func (s *PizzaService) changed(ctx context.Context, id int64, action string) {
	if s.cache != nil {
		if err := s.cache.InvalidateCatalog(ctx); err != nil {
			s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
		}
	}
	if s.events == nil {
		return
	}
	event := &models.PizzaChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypePizzaChanged),
		PizzaID:   id,
		Action:    action,
	}
	if err := s.events.PublishPizzaChanged(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypePizzaChanged).Inc()
		s.logger.Error("Failed to publish PizzaChanged event", zap.Int64("pizza_id", id), zap.Error(err))
	}
}

func validatePizza(in *PizzaInput) error {
	if in == nil {
		return apperr.NewValidation("pizza", "is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description.Text = strings.TrimSpace(in.Description.Text)
	in.Description.Weight = strings.TrimSpace(in.Description.Weight)
	return validateStruct(in)
}

func (in *PizzaInput) toModel() models.Pizza {
	ingredients := make(models.Ingredients, 0, len(in.Description.Ingredients))
	for _, ing := range in.Description.Ingredients {
		ingredients = append(ingredients, strings.TrimSpace(ing))
	}
	return models.Pizza{
		Name: in.Name,
		Description: models.Description{
			Text:        in.Description.Text,
			Ingredients: ingredients,
			Weight:      in.Description.Weight,
		},
		Price:        in.Price,
		IsVegetarian: in.IsVegetarian,
	}
}
