// Package coordinator provides per-resource job locks and progress records with expiry.
//
// Both live in a Store shared by every process serving generation requests. When the
// store cannot be reached the coordinator degrades instead of failing: locks are granted
// without real exclusion and progress writes are dropped, each with a warning.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/pkg/metrics"
)

var (
	ErrLockHeld                = errors.New("resource is already being processed")
	ErrProgressNotFound        = errors.New("progress not found")
	ErrCoordinationUnavailable = errors.New("coordination store unavailable")
)

const (
	DefaultLockTTL     = time.Hour
	DefaultProgressTTL = 24 * time.Hour

	releaseTimeout = 5 * time.Second
)

type Config struct {
	KeyPrefix   string
	LockTTL     time.Duration
	ProgressTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		KeyPrefix:   "quiz",
		LockTTL:     DefaultLockTTL,
		ProgressTTL: DefaultProgressTTL,
	}
}

type Coordinator struct {
	store  Store
	config Config
	logger logger.ILogger
}

func New(store Store, config Config, log logger.ILogger) *Coordinator {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "quiz"
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.ProgressTTL <= 0 {
		config.ProgressTTL = DefaultProgressTTL
	}
	return &Coordinator{store: store, config: config, logger: log}
}

func (c *Coordinator) lockKey(resourceID string) string {
	return c.config.KeyPrefix + ":lock:" + resourceID
}

func (c *Coordinator) progressKey(resourceID string) string {
	return c.config.KeyPrefix + ":progress:" + resourceID
}

func (c *Coordinator) LockTTL() time.Duration {
	return c.config.LockTTL
}

// Guard owns one acquisition of a resource lock.
type Guard struct {
	c          *Coordinator
	resourceID string
	token      string
	degraded   bool
	once       sync.Once
}

func (g *Guard) ResourceID() string { return g.resourceID }

// Token identifies the owner; pass it to Resume to hand the lock to another goroutine or process.
func (g *Guard) Token() string { return g.token }

// Degraded reports whether this guard was granted without a reachable store.
func (g *Guard) Degraded() bool { return g.degraded }

// Release frees the lock at most once. It ignores cancellation of ctx so a disconnected
// caller still releases.
func (g *Guard) Release(ctx context.Context) {
	g.once.Do(func() {
		if g.degraded {
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()

		released, err := g.c.store.CompareAndDelete(ctx, g.c.lockKey(g.resourceID), g.token)
		switch {
		case err != nil:
			g.c.logger.Error("COORDINATOR", "Failed to release lock, it will expire on its own", map[string]interface{}{
				"resource_id": g.resourceID,
				"error":       err.Error(),
			})
		case !released:
			g.c.logger.Warn("COORDINATOR", "Lock already expired or taken over before release", map[string]interface{}{
				"resource_id": g.resourceID,
			})
		default:
			g.c.logger.Info("COORDINATOR", "Released lock", map[string]interface{}{"resource_id": g.resourceID})
		}
	})
}

// AcquireLock never waits: if another owner holds resourceID it returns ErrLockHeld at once.
// ttl <= 0 uses the configured lock TTL.
func (c *Coordinator) AcquireLock(ctx context.Context, resourceID string, ttl time.Duration) (*Guard, error) {
	if ttl <= 0 {
		ttl = c.config.LockTTL
	}
	token := uuid.NewString()

	ok, err := c.store.SetNX(ctx, c.lockKey(resourceID), token, ttl)
	if err != nil {
		metrics.LockAcquireTotal.WithLabelValues("degraded").Inc()
		c.logger.Warn("COORDINATOR", "Coordination store unavailable, proceeding without lock", map[string]interface{}{
			"resource_id": resourceID,
			"error":       err.Error(),
		})
		return &Guard{c: c, resourceID: resourceID, degraded: true}, nil
	}
	if !ok {
		metrics.LockAcquireTotal.WithLabelValues("held").Inc()
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, resourceID)
	}

	metrics.LockAcquireTotal.WithLabelValues("acquired").Inc()
	c.logger.Info("COORDINATOR", "Acquired lock", map[string]interface{}{
		"resource_id": resourceID,
		"ttl":         ttl.String(),
	})
	return &Guard{c: c, resourceID: resourceID, token: token}, nil
}

// Resume adopts a lock acquired elsewhere. An empty token yields a degraded guard.
func (c *Coordinator) Resume(resourceID, token string) *Guard {
	return &Guard{c: c, resourceID: resourceID, token: token, degraded: token == ""}
}

// IsLocked reports whether any owner currently holds resourceID.
func (c *Coordinator) IsLocked(ctx context.Context, resourceID string) (bool, error) {
	_, found, err := c.store.Get(ctx, c.lockKey(resourceID))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCoordinationUnavailable, err)
	}
	return found, nil
}

// SetProgress overwrites the record and restarts its retention window. Failures are logged,
// never returned.
func (c *Coordinator) SetProgress(ctx context.Context, resourceID string, p Progress) {
	p.Progress = clampPercent(p.Progress)
	data, err := json.Marshal(p)
	if err != nil {
		c.logger.Error("COORDINATOR", "Failed to encode progress", map[string]interface{}{
			"resource_id": resourceID,
			"error":       err.Error(),
		})
		return
	}

	if err := c.store.Set(ctx, c.progressKey(resourceID), string(data), c.config.ProgressTTL); err != nil {
		c.logger.Warn("COORDINATOR", "Coordination store unavailable, skipping progress update", map[string]interface{}{
			"resource_id": resourceID,
			"status":      p.Status,
			"error":       err.Error(),
		})
		return
	}

	c.logger.Debug("COORDINATOR", "Updated progress", map[string]interface{}{
		"resource_id": resourceID,
		"status":      p.Status,
		"progress":    p.Progress,
	})
}

// GetProgress is a pure read and needs no lock.
func (c *Coordinator) GetProgress(ctx context.Context, resourceID string) (*Progress, error) {
	raw, found, err := c.store.Get(ctx, c.progressKey(resourceID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCoordinationUnavailable, err)
	}
	if !found {
		return nil, ErrProgressNotFound
	}

	var p Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decoding progress for %s: %w", resourceID, err)
	}
	return &p, nil
}

func (c *Coordinator) DeleteProgress(ctx context.Context, resourceID string) error {
	if err := c.store.Del(ctx, c.progressKey(resourceID)); err != nil {
		return fmt.Errorf("%w: %v", ErrCoordinationUnavailable, err)
	}
	return nil
}

// Ping checks store connectivity.
func (c *Coordinator) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCoordinationUnavailable, err)
	}
	return nil
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
