package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/cooltech/internal/cache"
	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/models"
)

const (
	cacheKeyOUs       = "cooltech:listing:ous"
	cacheKeyDivisions = "cooltech:listing:divisions"
)

// directoryService implements the DirectoryService interface.
type directoryService struct {
	store  *db.Store
	cache  cache.Cache
	ttl    time.Duration
	policy Policy
	logger *zap.Logger
}

// NewDirectoryService creates a new DirectoryService. Listings are cached for
// ttl; a nil cache disables caching.
func NewDirectoryService(store *db.Store, c cache.Cache, ttl time.Duration, policy Policy, logger *zap.Logger) DirectoryService {
	if c == nil {
		c = cache.Nop{}
	}
	return &directoryService{store: store, cache: c, ttl: ttl, policy: policy, logger: logger}
}

// cached serves key from the cache or fills it with load. Cache failures are
// logged and bypassed.
func cached[T any](ctx context.Context, s *directoryService, key string, load func(context.Context) (T, error)) (T, error) {
	if raw, found, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("Listing cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
		s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
			s.logger.Warn("Listing cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

func (s *directoryService) ListOUs(ctx context.Context) ([]models.OUSummary, error) {
	return cached(ctx, s, cacheKeyOUs, s.loadOUs)
}

func (s *directoryService) ListDivisions(ctx context.Context) ([]models.DivisionSummary, error) {
	return cached(ctx, s, cacheKeyDivisions, s.loadDivisions)
}

func (s *directoryService) loadOUs(ctx context.Context) ([]models.OUSummary, error) {
	ous, err := s.store.OUs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OUs: %w", err)
	}
	divisions, err := s.store.Divisions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list divisions: %w", err)
	}
	names := make(map[string]string, len(divisions))
	for _, d := range divisions {
		names[d.ID] = d.Name
	}

	out := make([]models.OUSummary, 0, len(ous))
	for _, ou := range ous {
		summary := models.OUSummary{ID: ou.ID, Name: ou.Name, Divisions: make([]models.DivisionSummary, 0, len(ou.DivisionIDs))}
		for _, id := range ou.DivisionIDs {
			if name, ok := names[id]; ok {
				summary.Divisions = append(summary.Divisions, models.DivisionSummary{ID: id, Name: name})
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *directoryService) loadDivisions(ctx context.Context) ([]models.DivisionSummary, error) {
	divisions, err := s.store.Divisions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list divisions: %w", err)
	}
	out := make([]models.DivisionSummary, 0, len(divisions))
	for _, d := range divisions {
		out = append(out, models.DivisionSummary{ID: d.ID, Name: d.Name})
	}
	return out, nil
}

// OrgChart is never cached; employee membership changes too often.
func (s *directoryService) OrgChart(ctx context.Context, principal Principal) ([]models.OUStaff, error) {
	if r := s.policy.Evaluate(principal, ActionViewOrgChart, nil); !r.Allowed() {
		return nil, deniedError(r)
	}

	ous, err := s.store.OUs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OUs: %w", err)
	}
	divisions, err := s.store.Divisions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list divisions: %w", err)
	}
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	divisionByID := make(map[string]*models.Division, len(divisions))
	for _, d := range divisions {
		divisionByID[d.ID] = d
	}
	employeeByID := make(map[string]models.Employee, len(users))
	for _, u := range users {
		employeeByID[u.ID] = u.AsEmployee()
	}

	chart := make([]models.OUStaff, 0, len(ous))
	for _, ou := range ous {
		entry := models.OUStaff{OUID: ou.ID, OUName: ou.Name, Divisions: make([]models.DivisionStaff, 0, len(ou.DivisionIDs))}
		for _, id := range ou.DivisionIDs {
			d, ok := divisionByID[id]
			if !ok {
				continue
			}
			staff := models.DivisionStaff{DivisionID: d.ID, DivisionName: d.Name, Employees: make([]models.Employee, 0, len(d.EmployeeIDs))}
			for _, uid := range d.EmployeeIDs {
				if e, ok := employeeByID[uid]; ok {
					staff.Employees = append(staff.Employees, e)
				}
			}
			entry.Divisions = append(entry.Divisions, staff)
		}
		chart = append(chart, entry)
	}
	return chart, nil
}

func (s *directoryService) InvalidateListings(ctx context.Context) {
	if err := s.cache.Delete(ctx, cacheKeyOUs, cacheKeyDivisions); err != nil {
		s.logger.Warn("Listing cache invalidation failed", zap.Error(err))
	}
}
