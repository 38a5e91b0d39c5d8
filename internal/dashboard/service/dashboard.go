package service

import (
	"context"
	"sync"
	"time"

	"github.com/nexo/nexo-backend/internal/dashboard/repository"
	inventory "github.com/nexo/nexo-backend/internal/inventory/service"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// cacheTTL bounds staleness for orgs whose writes happen outside this
// process (bulk imports through another instance, manual DB fixes).
const cacheTTL = time.Minute

type cachedStats struct {
	stats    *repository.DashboardStats
	cachedAt time.Time
}

// DashboardService serves analytics snapshots with a per-org cache.
// Sale and import events invalidate the cache, the TTL is a backstop.
type DashboardService struct {
	repo   *repository.StatsRepository
	logger *logger.Logger

	mu    sync.RWMutex
	cache map[string]cachedStats
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(repo *repository.StatsRepository, log *logger.Logger) *DashboardService {
	return &DashboardService{
		repo:   repo,
		logger: log,
		cache:  map[string]cachedStats{},
	}
}

// Stats returns the dashboard aggregates for the active organization
func (s *DashboardService) Stats(ctx context.Context) (*repository.DashboardStats, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.cache[orgID]
	s.mu.RUnlock()
	if ok && time.Since(entry.cachedAt) < cacheTTL {
		return entry.stats, nil
	}

	stats, err := s.repo.Stats(ctx, inventory.LowStockThreshold)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[orgID] = cachedStats{stats: stats, cachedAt: time.Now()}
	s.mu.Unlock()

	return stats, nil
}

// Invalidate drops the cached snapshot for an organization
func (s *DashboardService) Invalidate(orgID string) {
	s.mu.Lock()
	delete(s.cache, orgID)
	s.mu.Unlock()

	s.logger.Debug().Str("organization_id", orgID).Msg("dashboard cache invalidated")
}
