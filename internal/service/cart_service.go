package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/cache"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidCartLine = errors.New("invalid cart line")

type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	sfg    singleflight.Group // Prevents cache stampede
	logger *zap.Logger

	// epoch advances on every invalidation. A cache fill whose read started
	// in an older epoch must not leave its lines behind.
	epoch atomic.Uint64
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, logger *zap.Logger) *CartService {
	return &CartService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *CartService) ListForOwner(ctx context.Context, email string) ([]domain.CartLine, error) {
	v, err, _ := s.sfg.Do(email, func() (interface{}, error) {
		lines, err := s.cache.Get(ctx, email)
		if err == nil {
			return lines, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.String("email", email), zap.Error(err))
		}

		started := s.epoch.Load()
		lines, err = s.repo.FindByOwner(ctx, email)
		if err != nil {
			return nil, err
		}

		go s.fillCache(email, lines, started)

		return lines, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.CartLine), nil
}

func (s *CartService) AddLine(ctx context.Context, line *domain.CartLine) (string, error) {
	line.OwnerEmail = strings.TrimSpace(line.OwnerEmail)
	if line.OwnerEmail == "" || line.MenuItemID == "" {
		return "", fmt.Errorf("%w: email and menuId are required", ErrInvalidCartLine)
	}
	if line.Price <= 0 {
		return "", fmt.Errorf("%w: price must be positive", ErrInvalidCartLine)
	}

	id, err := s.repo.Insert(ctx, line)
	if err != nil {
		s.logger.Error("repo insert cart line error", zap.Error(err))
		return "", err
	}

	s.invalidateCache(line.OwnerEmail)
	return id, nil
}

func (s *CartService) RemoveLine(ctx context.Context, id string) error {
	line, err := s.repo.DeleteOne(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrCartLineNotFound) {
			s.logger.Error("repo delete cart line error", zap.String("cart_line_id", id), zap.Error(err))
		}
		return err
	}

	s.invalidateCache(line.OwnerEmail)
	return nil
}

// PurgeLines deletes the given lines. Lines that no longer exist count as purged.
// The cache is cleared for every owner of a deleted line, which need not be
// the payer.
func (s *CartService) PurgeLines(ctx context.Context, payerEmail string, ids []string) (int64, error) {
	lines, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	deleted, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}

	owners := map[string]struct{}{payerEmail: {}}
	for _, l := range lines {
		owners[l.OwnerEmail] = struct{}{}
	}
	for email := range owners {
		if email != "" {
			s.invalidateCache(email)
		}
	}
	return deleted, nil
}

func (s *CartService) fillCache(email string, lines []domain.CartLine, started uint64) {
	if s.epoch.Load() != started {
		return
	}
	if err := s.cache.Set(context.Background(), email, lines); err != nil {
		s.logger.Warn("cache set error", zap.String("email", email), zap.Error(err))
		return
	}
	// An invalidation that landed while Set was in flight may have run its
	// Delete first.
	if s.epoch.Load() != started {
		s.deleteCached(email)
	}
}

func (s *CartService) invalidateCache(email string) {
	s.epoch.Add(1)
	s.deleteCached(email)
}

func (s *CartService) deleteCached(email string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, email); err != nil {
		s.logger.Warn("cache invalidate error", zap.String("email", email), zap.Error(err))
	}
}
