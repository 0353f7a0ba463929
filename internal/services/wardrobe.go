package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wardrobe-backend/internal/apperror"
	"wardrobe-backend/internal/models"
	"wardrobe-backend/internal/repository"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

// WardrobeService manages the garment categories and outfit collections
// embedded in each user record.
type WardrobeService struct {
	store         repository.UserStore
	assets        *AssetPipeline
	autoProvision bool
	locks         userLocks
	now           func() time.Time
}

// NewWardrobeService creates a new wardrobe service. With autoProvision set,
// write operations create unknown user ids on the fly; reads never do.
func NewWardrobeService(store repository.UserStore, assets *AssetPipeline, autoProvision bool) *WardrobeService {
	return &WardrobeService{
		store:         store,
		assets:        assets,
		autoProvision: autoProvision,
		now:           time.Now,
	}
}

// UploadRequest represents a request to add a garment from an image URL
type UploadRequest struct {
	Category string
	ImageURL string
	ItemMetadata
}

// FindOrCreate returns the user registered under email, creating it first if
// needed. Surrounding whitespace is not part of the address.
func (s *WardrobeService) FindOrCreate(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	unlock := s.locks.lock("email:" + email)
	defer unlock()

	user, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user, err = s.store.Create(ctx, email)
	if errors.Is(err, apperror.ErrConflict) {
		// Created concurrently by another process.
		return s.store.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("email", email).Msg("User created")
	return user, nil
}

// GetUser retrieves a user by ID
func (s *WardrobeService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, userID)
}

// Users lists every stored user
func (s *WardrobeService) Users(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Upload processes the image and files the resulting item under category.
// The item is only recorded once its image is fully stored; if recording
// fails the stored image is removed again.
func (s *WardrobeService) Upload(ctx context.Context, userID string, req UploadRequest) (*models.Item, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}
	if err := ValidateUpload(req.Category, req.ImageURL); err != nil {
		return nil, err
	}
	if !s.autoProvision {
		if _, err := s.store.FindByID(ctx, userID); err != nil {
			return nil, err
		}
	}

	item, err := s.assets.ProcessUpload(ctx, req.Category, req.ImageURL, req.ItemMetadata)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("image_url", req.ImageURL).Msg("Failed to process upload")
		return nil, err
	}

	if err := s.AddItem(ctx, userID, req.Category, *item); err != nil {
		s.assets.Discard(context.WithoutCancel(ctx), item.Filename)
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("category", req.Category).
		Str("filename", item.Filename).
		Msg("Item added")

	return item, nil
}

// AddItem appends item to the user's category list
func (s *WardrobeService) AddItem(ctx context.Context, userID, category string, item models.Item) error {
	if err := requireUserID(userID); err != nil {
		return err
	}
	if !models.IsCategory(category) {
		return apperror.InvalidCategory(category)
	}

	_, err := s.update(ctx, userID, true, func(u *models.User) error {
		list := u.Category(category)
		*list = append(*list, s.completeItem(item))
		return nil
	})
	return err
}

// ListItems returns all five category lists of the user
func (s *WardrobeService) ListItems(ctx context.Context, userID string) (*models.Items, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.Items{
		Tops:        user.Tops,
		Bottoms:     user.Bottoms,
		Shoes:       user.Shoes,
		Accessories: user.Accessories,
		Dresses:     user.Dresses,
	}, nil
}

// ListCategory returns one category list of user, never nil
func ListCategory(user *models.User, category string) ([]models.Item, error) {
	list := user.Category(category)
	if list == nil {
		return nil, apperror.InvalidCategory(category)
	}
	if *list == nil {
		return []models.Item{}, nil
	}
	return *list, nil
}

// RemoveItem deletes the item matching identifier by id or filename, then
// deletes its image. Image deletion failures are only logged.
func (s *WardrobeService) RemoveItem(ctx context.Context, userID, category, identifier string) (*models.Item, error) {
	if category == "" {
		return nil, apperror.ValidationFailed("category", "category is required")
	}
	if identifier == "" {
		return nil, apperror.ValidationFailed("itemId", "itemId is required")
	}
	if err := requireUserID(userID); err != nil {
		return nil, err
	}

	var removed models.Item
	_, err := s.update(ctx, userID, false, func(u *models.User) error {
		list := u.Category(category)
		if list == nil {
			return apperror.NotFound("category", category)
		}

		idx := indexOfItem(*list, identifier)
		if idx < 0 {
			return apperror.NotFound("item", identifier)
		}

		removed = (*list)[idx]
		*list = append((*list)[:idx], (*list)[idx+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.assets.Discard(ctx, removed.Filename)

	log.Info().
		Str("user_id", userID).
		Str("category", category).
		Str("item_id", removed.ID).
		Msg("Item removed")

	return &removed, nil
}

func indexOfItem(items []models.Item, identifier string) int {
	for i, it := range items {
		if it.ID == identifier || it.Filename == identifier {
			return i
		}
	}
	return -1
}

// AddOutfit appends outfit to the outfits or crushes collection. A missing id
// or date is filled in.
func (s *WardrobeService) AddOutfit(ctx context.Context, userID, collection string, outfit models.Outfit) (*models.Outfit, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}
	if !models.IsOutfitCollection(collection) {
		return nil, apperror.ValidationFailed("collection", fmt.Sprintf("unknown outfit collection %q", collection))
	}

	outfit = s.completeOutfit(outfit)
	_, err := s.update(ctx, userID, true, func(u *models.User) error {
		list := u.Collection(collection)
		*list = append(*list, outfit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &outfit, nil
}

// ListCrushes returns the user's crushes in their read shape
func (s *WardrobeService) ListCrushes(ctx context.Context, userID string) ([]models.CrushView, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.CrushView, 0, len(user.Crushes))
	for _, c := range user.Crushes {
		views = append(views, models.CrushView{Outfit: c.Pieces(), Date: c.Date})
	}
	return views, nil
}

// Seed appends raw entries to a collection of the user registered under
// email, creating the user if needed. Collection may be a garment category or
// an outfit collection.
func (s *WardrobeService) Seed(ctx context.Context, email, collection string, raw json.RawMessage) (*models.User, error) {
	if collection == "" {
		return nil, apperror.ValidationFailed("collection", "collection is required")
	}

	var apply func(u *models.User) error
	switch {
	case models.IsCategory(collection):
		var items []models.Item
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, apperror.ValidationFailed("items", "items must be a list of items")
		}
		apply = func(u *models.User) error {
			list := u.Category(collection)
			for _, it := range items {
				*list = append(*list, s.completeItem(it))
			}
			return nil
		}
	case models.IsOutfitCollection(collection):
		var outfits []models.Outfit
		if err := json.Unmarshal(raw, &outfits); err != nil {
			return nil, apperror.ValidationFailed("items", "items must be a list of outfits")
		}
		apply = func(u *models.User) error {
			list := u.Collection(collection)
			for _, o := range outfits {
				*list = append(*list, s.completeOutfit(o))
			}
			return nil
		}
	default:
		return nil, apperror.InvalidCategory(collection)
	}

	user, err := s.FindOrCreate(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, user.ID, false, apply)
}

// update loads the user under its lock, applies fn and saves the result.
// When provision is set and auto-provisioning is enabled an unknown id is
// created instead of reported as missing.
func (s *WardrobeService) update(ctx context.Context, userID string, provision bool, fn func(*models.User) error) (*models.User, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var (
		user *models.User
		err  error
	)
	if provision && s.autoProvision {
		user, err = s.store.EnsureExists(ctx, userID)
	} else {
		user, err = s.store.FindByID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	if err := fn(user); err != nil {
		return nil, err
	}

	user.UpdatedAt = s.now()
	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

func (s *WardrobeService) completeItem(it models.Item) models.Item {
	if it.ID == "" {
		it.ID = xid.New().String()
	}
	if it.AddedAt.IsZero() {
		it.AddedAt = s.now()
	}
	return it
}

func (s *WardrobeService) completeOutfit(o models.Outfit) models.Outfit {
	if o.ID == "" {
		o.ID = xid.New().String()
	}
	if o.Date.IsZero() {
		o.Date = s.now()
	}
	o.Date = crushDate(o.Date)
	return o
}

func requireUserID(userID string) error {
	if userID == "" {
		return apperror.ValidationFailed("id", "user id is required")
	}
	return nil
}
