package catalog

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"julianmorley.ca/pureview/api/internal/store"
	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
	"julianmorley.ca/pureview/api/pkg/redis"
)

const (
	AllCategories = "all"
	similarLimit  = 5
)

// ProductCache is a read-through cache keyed by product id. Get returns
// redis.ErrCacheMiss when the id is not cached.
type ProductCache interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	Set(ctx context.Context, product *models.Product) error
	SetMany(ctx context.Context, products []*models.Product) error
	Delete(ctx context.Context, id string) error
}

type ImageDeleter interface {
	DeleteAsset(ctx context.Context, publicID string) error
}

// Service owns the product catalog. Cache and image host failures are
// logged and never fail a request.
type Service struct {
	products store.Products
	users    store.Users
	cache    ProductCache
	images   ImageDeleter
	validate *validator.Validate
	group    singleflight.Group
	logger   *zap.Logger
}

// NewService wires the catalog. cache and images may be nil.
func NewService(products store.Products, users store.Users, cache ProductCache, images ImageDeleter, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		users:    users,
		cache:    cache,
		images:   images,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// List returns every product, newest first, and warms the cache with them.
func (s *Service) List(ctx context.Context) ([]*models.Product, error) {
	products, err := s.products.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetMany(ctx, products); err != nil {
			s.logger.Warn("failed to warm product cache", zap.Error(err))
		}
	}
	return products, nil
}

func (s *Service) ByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	if category == AllCategories {
		return s.products.ListProducts(ctx, store.ProductFilter{})
	}
	return s.products.ListProducts(ctx, store.ProductFilter{Category: category})
}

func (s *Service) Create(ctx context.Context, req models.ProductRequest) ([]*models.Product, error) {
	if err := s.check(&req); err != nil {
		return nil, err
	}
	if err := s.products.CreateProduct(ctx, req.ToProduct()); err != nil {
		return nil, err
	}
	return s.List(ctx)
}

// Update replaces every field of an existing product.
func (s *Service) Update(ctx context.Context, id bson.ObjectID, req models.ProductRequest) ([]*models.Product, error) {
	if err := s.check(&req); err != nil {
		return nil, err
	}
	product, err := s.products.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	req.ApplyTo(product)
	if err := s.products.ReplaceProduct(ctx, product); err != nil {
		return nil, err
	}
	s.evict(ctx, id)
	return s.List(ctx)
}

// Delete requires an admin requester. Picture removal on the image host
// is best effort.
func (s *Service) Delete(ctx context.Context, id, requesterID bson.ObjectID) ([]*models.Product, error) {
	requester, err := s.users.FindUser(ctx, requesterID)
	if errors.Is(err, global.ErrNotFound) || (err == nil && !requester.IsAdmin) {
		return nil, global.Forbidden("You don't have permission")
	}
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return nil, err
	}
	s.evict(ctx, id)
	s.deletePictures(ctx, product)

	return s.List(ctx)
}

// Get returns a product with up to five others from the same category.
func (s *Service) Get(ctx context.Context, id bson.ObjectID) (*models.ProductDetail, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	similar, err := s.products.ListProducts(ctx, store.ProductFilter{
		Category:  product.Category,
		ExcludeID: product.ID,
		Limit:     similarLimit,
	})
	if err != nil {
		return nil, err
	}
	return &models.ProductDetail{Product: product, Similar: similar}, nil
}

// find reads through the cache. Concurrent misses for one id share a
// single store read.
func (s *Service) find(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	key := id.Hex()
	if s.cache != nil {
		product, err := s.cache.Get(ctx, key)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("product cache read failed", zap.String("product_id", key), zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		product, err := s.products.FindProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, product); err != nil {
				s.logger.Warn("product cache write failed", zap.String("product_id", key), zap.Error(err))
			}
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product).Clone(), nil
}

func (s *Service) check(req *models.ProductRequest) error {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return global.FromValidator(err)
	}
	if !req.Price.IsPositive() {
		return global.Validation("price must be positive")
	}
	return nil
}

func (s *Service) evict(ctx context.Context, id bson.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id.Hex()); err != nil {
		s.logger.Warn("product cache delete failed", zap.String("product_id", id.Hex()), zap.Error(err))
	}
}

func (s *Service) deletePictures(ctx context.Context, product *models.Product) {
	if s.images == nil {
		return
	}
	for _, picture := range product.Pictures {
		if picture.PublicID == "" {
			continue
		}
		if err := s.images.DeleteAsset(ctx, picture.PublicID); err != nil {
			s.logger.Warn("failed to delete product picture",
				zap.String("product_id", product.ID.Hex()),
				zap.String("public_id", picture.PublicID),
				zap.Error(err))
		}
	}
}
