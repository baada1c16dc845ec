package precompute

import (
	"context"
	"fmt"
	"novaReco/domain"
	"novaReco/pkg/logger"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ShopRecomputer runs a full shop pass.
type ShopRecomputer interface {
	RecomputeShop(ctx context.Context, shopDomain string) (Summary, error)
}

// Ack acknowledges an accepted recompute request. Coalesced is set when the
// request joined a pass that was already running for the shop.
type Ack struct {
	JobID      string    `json:"job_id"`
	ShopDomain string    `json:"shop_domain"`
	AcceptedAt time.Time `json:"accepted_at"`
	Coalesced  bool      `json:"coalesced"`
}

// Runner serializes shop passes: concurrent requests for one shop, whether
// from the scheduler or the admin trigger, share a single run.
type Runner struct {
	engine ShopRecomputer
	group  singleflight.Group

	mu      sync.Mutex
	running map[string]Ack

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(engine ShopRecomputer) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		engine:  engine,
		running: make(map[string]Ack),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Run recomputes the shop and blocks until the pass, possibly started by
// another caller, completes.
func (r *Runner) Run(ctx context.Context, shopDomain string) (Summary, error) {
	ch := r.group.DoChan(shopDomain, func() (interface{}, error) {
		return r.engine.RecomputeShop(ctx, shopDomain)
	})

	select {
	case <-ctx.Done():
		return Summary{ShopDomain: shopDomain}, fmt.Errorf("context error: %w", ctx.Err())
	case res := <-ch:
		summary, _ := res.Val.(Summary)
		return summary, res.Err
	}
}

// Trigger starts a shop pass in the background and returns at once.
func (r *Runner) Trigger(shopDomain string) (Ack, error) {
	if shopDomain == "" {
		return Ack{}, domain.NewValidationError("shop_domain", "is required")
	}
	if err := r.ctx.Err(); err != nil {
		return Ack{}, fmt.Errorf("runner stopped: %w", err)
	}

	r.mu.Lock()
	if ack, ok := r.running[shopDomain]; ok {
		r.mu.Unlock()
		ack.Coalesced = true
		return ack, nil
	}
	ack := Ack{
		JobID:      uuid.NewString(),
		ShopDomain: shopDomain,
		AcceptedAt: time.Now().UTC(),
	}
	r.running[shopDomain] = ack
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.running, shopDomain)
			r.mu.Unlock()
		}()

		summary, err := r.Run(r.ctx, shopDomain)
		if err != nil {
			logger.Error("triggered recompute failed", "job_id", ack.JobID, "shop", shopDomain, "error", err)
			return
		}
		logger.Info("triggered recompute done",
			"job_id", ack.JobID,
			"shop", shopDomain,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
		)
	}()

	return ack, nil
}

// Close cancels background passes and waits for them to return.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

// Wait blocks until every triggered pass has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
