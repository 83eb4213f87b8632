package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MinCategoryNameLen = 3
	MinProductNameLen  = 3
	MinProductPrice    = 1000
)

var ErrInvalidInput = errors.New("invalid input")

// ObjectStore is the slice of the bucket client the catalog needs for the
// product image lifecycle.
type ObjectStore interface {
	SignedUploadURL(ctx context.Context, objectName string) (string, error)
	RemoveByPublicURL(ctx context.Context, publicURL string) error
}

type SignedUpload struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

type Service interface {
	CreateCategory(ctx context.Context, name string) (*Category, error)
	GetCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name string) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProducts(ctx context.Context, categoryID uuid.UUID) ([]Product, error)
	UpdateProduct(ctx context.Context, product *Product) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	CreateImageUploadURL(ctx context.Context) (*SignedUpload, error)
}

type service struct {
	repo  Repository
	store ObjectStore
}

func NewService(repo Repository, store ObjectStore) Service {
	return &service{repo: repo, store: store}
}

func (s *service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	if len(name) < MinCategoryNameLen {
		return nil, fmt.Errorf("%w: category name must be at least %d characters", ErrInvalidInput, MinCategoryNameLen)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate category ID: %w", err)
	}

	category := &Category{ID: id, Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return nil, ErrCategoryExists
		}
		log.Error().Err(err).Msg("service: failed to create category in repository")
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}

	return category, nil
}

func (s *service) GetCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.GetCategories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch categories in repository")
		return nil, fmt.Errorf("service: failed to fetch categories: %w", err)
	}

	return categories, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, name string) (*Category, error) {
	if len(name) < MinCategoryNameLen {
		return nil, fmt.Errorf("%w: category name must be at least %d characters", ErrInvalidInput, MinCategoryNameLen)
	}

	category := &Category{ID: id, Name: name}
	err := s.repo.UpdateCategory(ctx, category)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryExists) {
			return nil, err
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to update category in repository")
		return nil, fmt.Errorf("service: failed to update category: %w", err)
	}

	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryInUse) {
			return err
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to delete category in repository")
		return fmt.Errorf("service: failed to delete category: %w", err)
	}

	return nil
}

func (s *service) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate product ID: %w", err)
	}
	product.ID = id

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Msg("service: failed to create product in repository")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	return product, nil
}

func (s *service) GetProducts(ctx context.Context, categoryID uuid.UUID) ([]Product, error) {
	products, err := s.repo.GetProducts(ctx, categoryID)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch products in repository")
		return nil, fmt.Errorf("service: failed to fetch products: %w", err)
	}

	return products, nil
}

// UpdateProduct replaces the product record and then cleans up the previous
// image object when the update pointed the product at a different one. The
// record change is already committed at that point, so a cleanup failure is
// logged and swallowed rather than failing the mutation.
func (s *service) UpdateProduct(ctx context.Context, product *Product) (*Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetProductByID(ctx, product.ID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", product.ID).Msg("service: failed to fetch product for update")
		return nil, fmt.Errorf("service: failed to fetch product for update: %w", err)
	}
	oldImageURL := existing.ImageURL

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", product.ID).Msg("service: failed to update product in repository")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	if oldImageURL != "" && oldImageURL != product.ImageURL {
		if err := s.store.RemoveByPublicURL(ctx, oldImageURL); err != nil {
			log.Warn().Err(err).Str("image_url", oldImageURL).Stringer("product_id", product.ID).
				Msg("service: failed to remove previous product image")
		}
	}

	return product, nil
}

// DeleteProduct removes the record first and the stored image second. Unlike
// the update path, an image cleanup failure here surfaces to the caller: the
// record is gone, so a leftover object means the catalog and the bucket
// disagree and someone has to know.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product for delete")
		return fmt.Errorf("service: failed to fetch product for delete: %w", err)
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product in repository")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}

	if existing.ImageURL != "" {
		if err := s.store.RemoveByPublicURL(ctx, existing.ImageURL); err != nil {
			log.Error().Err(err).Str("image_url", existing.ImageURL).Stringer("product_id", id).
				Msg("service: failed to remove product image after delete")
			return fmt.Errorf("service: failed to remove product image: %w", err)
		}
	}

	return nil
}

func (s *service) CreateImageUploadURL(ctx context.Context) (*SignedUpload, error) {
	objectName := fmt.Sprintf("%d.jpeg", time.Now().UnixMilli())

	url, err := s.store.SignedUploadURL(ctx, objectName)
	if err != nil {
		log.Error().Err(err).Str("object", objectName).Msg("service: failed to create signed upload URL")
		return nil, fmt.Errorf("service: failed to create signed upload URL: %w", err)
	}

	return &SignedUpload{URL: url, Path: objectName}, nil
}

func validateProduct(product *Product) error {
	if len(product.Name) < MinProductNameLen {
		return fmt.Errorf("%w: product name must be at least %d characters", ErrInvalidInput, MinProductNameLen)
	}
	if product.Price < MinProductPrice {
		return fmt.Errorf("%w: product price must be at least %d", ErrInvalidInput, MinProductPrice)
	}
	if product.CategoryID == uuid.Nil {
		return fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	return nil
}
