package precompute

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"novaReco/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingEngine holds every pass until release is closed.
type blockingEngine struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingEngine) RecomputeShop(ctx context.Context, shopDomain string) (Summary, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
		return Summary{ShopDomain: shopDomain, Products: 1, Succeeded: 1}, nil
	case <-ctx.Done():
		return Summary{ShopDomain: shopDomain}, ctx.Err()
	}
}

func TestRunner_TriggerReturnsImmediatelyAndCoalesces(t *testing.T) {
	engine := &blockingEngine{release: make(chan struct{})}
	runner := NewRunner(engine)
	defer runner.Close()

	first, err := runner.Trigger(shop)
	require.NoError(t, err)
	assert.NotEmpty(t, first.JobID)
	assert.Equal(t, shop, first.ShopDomain)
	assert.False(t, first.Coalesced)

	second, err := runner.Trigger(shop)
	require.NoError(t, err)
	assert.Equal(t, first.JobID, second.JobID)
	assert.True(t, second.Coalesced)

	other, err := runner.Trigger("other.myshopify.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, other.JobID)

	close(engine.release)
	runner.Wait()

	assert.Equal(t, int32(2), engine.calls.Load())

	third, err := runner.Trigger(shop)
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, third.JobID)
	runner.Wait()
}

func TestRunner_RunSharesInFlightPass(t *testing.T) {
	engine := &blockingEngine{release: make(chan struct{})}
	runner := NewRunner(engine)
	defer runner.Close()

	_, err := runner.Trigger(shop)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return engine.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan Summary, 1)
	go func() {
		summary, err := runner.Run(context.Background(), shop)
		assert.NoError(t, err)
		done <- summary
	}()

	close(engine.release)
	summary := <-done
	assert.Equal(t, 1, summary.Succeeded)
	runner.Wait()
}

func TestRunner_Validation(t *testing.T) {
	runner := NewRunner(&blockingEngine{release: make(chan struct{})})
	defer runner.Close()

	_, err := runner.Trigger("")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRunner_CloseCancelsPasses(t *testing.T) {
	engine := &blockingEngine{release: make(chan struct{})}
	runner := NewRunner(engine)

	_, err := runner.Trigger(shop)
	require.NoError(t, err)
	runner.Close()

	_, err = runner.Trigger(shop)
	assert.Error(t, err)
}
