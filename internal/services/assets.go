package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"wardrobe-backend/internal/apperror"
	"wardrobe-backend/internal/metrics"
	"wardrobe-backend/internal/models"
	"wardrobe-backend/internal/storage"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

// ItemMetadata is the optional descriptive data a client sends with an upload
type ItemMetadata struct {
	Name  string
	Brand string // overrides the brand derived from the image host
	Price string
}

// AssetPipeline turns a source image URL into a stored, background-free
// image and the Item describing it.
type AssetPipeline struct {
	remover BackgroundRemover
	images  storage.ImageStore
	timeout time.Duration
	now     func() time.Time
}

// NewAssetPipeline creates a new asset pipeline
func NewAssetPipeline(remover BackgroundRemover, images storage.ImageStore, timeout time.Duration) *AssetPipeline {
	return &AssetPipeline{
		remover: remover,
		images:  images,
		timeout: timeout,
		now:     time.Now,
	}
}

// DeriveBrand guesses a brand token from the image host: the first label,
// or the second when the first is "www".
func DeriveBrand(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Hostname() == "" {
		return "", apperror.ValidationFailed("imageUrl", "imageUrl must be an absolute URL")
	}

	labels := strings.Split(strings.ToLower(u.Hostname()), ".")
	if labels[0] == "www" && len(labels) > 1 {
		return labels[1], nil
	}
	return labels[0], nil
}

// ImageFilename builds the stored name of a processed image
func ImageFilename(brand, category string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d.png", brand, category, at.UnixMilli())
}

// ValidateUpload checks the fields an upload needs before any work is done
func ValidateUpload(category, imageURL string) error {
	if category == "" {
		return apperror.ValidationFailed("category", "category is required")
	}
	if imageURL == "" {
		return apperror.ValidationFailed("imageUrl", "imageUrl is required")
	}
	if !models.IsCategory(category) {
		return apperror.InvalidCategory(category)
	}
	_, err := DeriveBrand(imageURL)
	return err
}

// ProcessUpload validates the request, removes the background and stores the
// result. Nothing is written when an error is returned.
func (p *AssetPipeline) ProcessUpload(ctx context.Context, category, imageURL string, meta ItemMetadata) (*models.Item, error) {
	if err := ValidateUpload(category, imageURL); err != nil {
		return nil, err
	}

	brand, err := DeriveBrand(imageURL)
	if err != nil {
		return nil, err
	}

	start := p.now()
	filename := ImageFilename(brand, category, start)

	if err := p.store(ctx, imageURL, filename); err != nil {
		metrics.RecordUpload(category, time.Since(start), false)
		return nil, err
	}
	metrics.RecordUpload(category, time.Since(start), true)

	if meta.Brand != "" {
		brand = meta.Brand
	}

	return &models.Item{
		ID:       xid.New().String(),
		Filename: filename,
		Name:     meta.Name,
		Brand:    brand,
		Price:    meta.Price,
		AddedAt:  p.now(),
	}, nil
}

func (p *AssetPipeline) store(ctx context.Context, imageURL, filename string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	body, err := p.remover.RemoveBackground(ctx, imageURL)
	if err != nil {
		return processingError("background removal failed", err)
	}
	defer body.Close()

	if err := p.images.Put(ctx, filename, body); err != nil {
		return processingError("failed to store processed image", err)
	}
	return nil
}

// Discard removes a stored image. Failures are logged and swallowed.
func (p *AssetPipeline) Discard(ctx context.Context, filename string) {
	if filename == "" {
		return
	}
	if err := p.images.Delete(ctx, filename); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Failed to delete image")
	}
}

func processingError(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		message += ": timed out"
	}
	return apperror.Processing(message, err)
}
