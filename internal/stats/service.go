// Package stats builds the admin dashboard figures.
package stats

import (
	"context"
	"sync"
	"time"

	"moneypro/internal/domain"
)

type Repository interface {
	PlatformStats(ctx context.Context) (*domain.PlatformStats, error)
}

// Service caches the aggregate for a short time since the query scans several tables.
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	cached   *domain.PlatformStats
	cachedAt time.Time
}

func NewService(repo Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

func (s *Service) Platform(ctx context.Context) (*domain.PlatformStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		return s.cached, nil
	}

	stats, err := s.repo.PlatformStats(ctx)
	if err != nil {
		return nil, err
	}
	s.cached, s.cachedAt = stats, s.now()
	return stats, nil
}
