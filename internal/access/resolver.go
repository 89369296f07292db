package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/keswickschool/budget-dashboard/internal/cache"
	"github.com/keswickschool/budget-dashboard/internal/core/events"
)

const directoryCachePrefix = "directory:"

const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
)

// DirectoryRepository is the lookup behind identity resolution.
type DirectoryRepository interface {
	FindByEmail(ctx context.Context, email string) (*DirectoryEntry, error)
}

// Resolver maps a caller identity to a role and data scope. Resolve is a
// total function: every identity yields exactly one grant and no failure
// mode escapes as an error. Unknown, empty and unreadable identities all
// deny; there is no privileged fallback.
type Resolver struct {
	repo     DirectoryRepository
	cache    *cache.Cache
	bus      *events.EventBus
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewResolver(repo DirectoryRepository, c *cache.Cache, bus *events.EventBus, cacheTTL time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		repo:     repo,
		cache:    c,
		bus:      bus,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, identity string) Grant {
	grant := r.lookup(ctx, identity)
	r.audit(ctx, grant)
	return grant
}

func (r *Resolver) lookup(ctx context.Context, identity string) Grant {
	if identity == "" {
		r.logger.Warn("empty identity, denying access")
		return DeniedGrant(identity)
	}

	var entry DirectoryEntry
	cacheKey := directoryCachePrefix + identity
	if !r.cache.Get(cacheKey, &entry) {
		found, err := r.repo.FindByEmail(ctx, identity)
		if err != nil {
			r.logger.Warn("directory lookup failed, denying access",
				"identity", identity,
				"error", err)
			return DeniedGrant(identity)
		}
		if found == nil {
			r.logger.Info("identity not in directory, denying access", "identity", identity)
			return DeniedGrant(identity)
		}
		entry = *found
		if err := r.cache.Put(cacheKey, entry, r.cacheTTL); err != nil {
			r.logger.Warn("directory cache write failed", "identity", identity, "error", err)
		}
	}

	if !entry.Active {
		r.logger.Info("identity inactive, denying access", "identity", identity)
		return DeniedGrant(identity)
	}

	return Grant{
		Identity:    identity,
		Role:        entry.Role,
		Divisions:   entry.Divisions,
		Departments: entry.Departments,
	}
}

// audit emits the access-log record. Failures here must never affect the
// resolved grant, so dispatch is asynchronous and errors stay inside the
// bus handlers.
func (r *Resolver) audit(ctx context.Context, grant Grant) {
	outcome := OutcomeGranted
	if grant.Denied() {
		outcome = OutcomeDenied
	}
	if r.bus != nil {
		r.bus.Publish(context.WithoutCancel(ctx), events.NewAccessResolvedEvent(grant.Identity, string(grant.Role), outcome))
	}
	r.logger.Info("access resolved",
		"identity", grant.Identity,
		"role", grant.Role,
		"outcome", outcome)
}
