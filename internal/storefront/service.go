// Package storefront builds the page view models: home carousel, menu,
// product detail with related items and reviews.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/fjod/food-storefront/internal/backend"
	"github.com/fjod/food-storefront/internal/domain"
	"github.com/fjod/food-storefront/pkg/logger"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrReviewNotFound  = errors.New("review not found")
	ErrInvalidReview   = errors.New("invalid review")
)

// Notices shown in place of content the backend could not provide.
const (
	NoticeCatalogUnavailable = "The menu is temporarily unavailable. Please try again shortly."
	NoticeReviewsUnavailable = "Reviews could not be loaded."
	NoticeRelatedUnavailable = "Related dishes could not be loaded."
)

const (
	DefaultCarouselSize = 5
	DefaultRelatedLimit = 4
)

// Backend is the part of the catalog API the views read from.
type Backend interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id domain.ProductID) (domain.Product, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Product, error)
	ListReviews(ctx context.Context, productID domain.ProductID) ([]domain.Review, error)
	CreateReview(ctx context.Context, review domain.Review) (domain.Review, error)
	DeleteReview(ctx context.Context, id string) error
}

type Options struct {
	CarouselSize int
	RelatedLimit int
}

type Service struct {
	backend      Backend
	carouselSize int
	relatedLimit int
}

func NewService(b Backend, opts Options) *Service {
	s := &Service{
		backend:      b,
		carouselSize: opts.CarouselSize,
		relatedLimit: opts.RelatedLimit,
	}
	if s.carouselSize <= 0 {
		s.carouselSize = DefaultCarouselSize
	}
	if s.relatedLimit <= 0 {
		s.relatedLimit = DefaultRelatedLimit
	}
	return s
}

type HomeView struct {
	Carousel   []domain.Product `json:"carousel"`
	Categories []string         `json:"categories"`
	Notice     string           `json:"notice,omitempty"`
}

// Home shows featured products, or the first few products when none are featured.
func (s *Service) Home(ctx context.Context) HomeView {
	products, err := s.backend.ListProducts(ctx)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("home: list products failed")
		return HomeView{Carousel: []domain.Product{}, Categories: []string{}, Notice: NoticeCatalogUnavailable}
	}

	carousel := make([]domain.Product, 0, s.carouselSize)
	for _, p := range products {
		if p.Featured {
			carousel = append(carousel, p)
		}
	}
	if len(carousel) == 0 {
		carousel = append(carousel, products[:min(s.carouselSize, len(products))]...)
	}

	return HomeView{Carousel: carousel, Categories: Categories(products)}
}

type MenuView struct {
	Products   []domain.Product `json:"products"`
	Total      int              `json:"total"`
	Categories []string         `json:"categories"`
	Notice     string           `json:"notice,omitempty"`
}

func (s *Service) Menu(ctx context.Context, q MenuQuery) MenuView {
	products, err := s.backend.ListProducts(ctx)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("menu: list products failed")
		return MenuView{Products: []domain.Product{}, Categories: []string{}, Notice: NoticeCatalogUnavailable}
	}

	filtered := FilterProducts(products, q)
	SortProducts(filtered, q.Sort)
	return MenuView{
		Products:   filtered,
		Total:      len(filtered),
		Categories: Categories(products),
	}
}

type ProductView struct {
	Product       domain.Product   `json:"product"`
	Related       []domain.Product `json:"related"`
	Reviews       []domain.Review  `json:"reviews"`
	ReviewCount   int              `json:"review_count"`
	AverageRating float64          `json:"average_rating"`
	Notices       []string         `json:"notices,omitempty"`
}

// ProductDetail fails only when the product itself cannot be loaded.
func (s *Service) ProductDetail(ctx context.Context, id domain.ProductID) (ProductView, error) {
	product, err := s.Product(ctx, id)
	if err != nil {
		return ProductView{}, err
	}

	view := ProductView{
		Product: product,
		Related: []domain.Product{},
		Reviews: []domain.Review{},
	}
	log := logger.FromContext(ctx).With().Str("product_id", string(id)).Logger()

	if product.Category != "" {
		related, err := s.backend.ListByCategory(ctx, product.Category)
		if err != nil {
			log.Error().Err(err).Msg("product detail: related products failed")
			view.Notices = append(view.Notices, NoticeRelatedUnavailable)
		} else {
			view.Related = relatedProducts(related, id, s.relatedLimit)
		}
	}

	reviews, err := s.backend.ListReviews(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("product detail: reviews failed")
		view.Notices = append(view.Notices, NoticeReviewsUnavailable)
	} else {
		slices.SortStableFunc(reviews, func(a, b domain.Review) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
		view.Reviews = reviews
		view.ReviewCount = len(reviews)
		view.AverageRating = averageRating(reviews)
	}

	return view, nil
}

// Product loads one product, mapping a backend 404 to ErrProductNotFound.
func (s *Service) Product(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	product, err := s.backend.GetProduct(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

type ReviewInput struct {
	Author  string
	Rating  int
	Comment string
}

func (s *Service) AddReview(ctx context.Context, productID domain.ProductID, in ReviewInput) (domain.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return domain.Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidReview)
	}
	author := strings.TrimSpace(in.Author)
	if author == "" {
		return domain.Review{}, fmt.Errorf("%w: author is required", ErrInvalidReview)
	}

	if _, err := s.Product(ctx, productID); err != nil {
		return domain.Review{}, err
	}

	created, err := s.backend.CreateReview(ctx, domain.Review{
		ProductID: productID,
		Author:    author,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}
	return created, nil
}

func (s *Service) DeleteReview(ctx context.Context, reviewID string) error {
	err := s.backend.DeleteReview(ctx, reviewID)
	if errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrReviewNotFound, reviewID)
	}
	return err
}

func relatedProducts(products []domain.Product, exclude domain.ProductID, limit int) []domain.Product {
	out := make([]domain.Product, 0, limit)
	for _, p := range products {
		if p.ID == exclude {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}

// averageRating is rounded to one decimal; zero when there are no reviews.
func averageRating(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return math.Round(avg*10) / 10
}
