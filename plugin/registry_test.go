package plugin_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
)

type recorder struct {
	mu     sync.Mutex
	name   string
	events []string
	err    error
	delay  time.Duration
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) add(ev string) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) OnSaleCommitted(_ context.Context, s *sale.Sale) error {
	return r.add("sale:" + s.ID)
}

func (r *recorder) OnStockReceived(_ context.Context, rc *receipt.Receipt) error {
	return r.add("receipt:" + rc.ProductID)
}

func (r *recorder) OnLowStock(_ context.Context, a *alert.Alert) error {
	return r.add("low:" + a.ProductID)
}

func (r *recorder) OnCommitFailed(_ context.Context, op string, _ error) error {
	return r.add("failed:" + op)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// nameOnly implements no hooks.
type nameOnly struct{}

func (nameOnly) Name() string { return "name-only" }

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(&recorder{name: "a"}))
	require.Error(t, reg.Register(&recorder{name: "a"}))
	require.NoError(t, reg.Register(nameOnly{}))

	assert.Equal(t, 2, reg.Count())
	assert.NotNil(t, reg.Get("name-only"))
	assert.Nil(t, reg.Get("missing"))
}

func TestEmitDispatchesToImplementers(t *testing.T) {
	reg := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	require.NoError(t, reg.Register(rec))
	require.NoError(t, reg.Register(nameOnly{}))

	ctx := context.Background()
	reg.EmitSaleCommitted(ctx, &sale.Sale{ID: "s1"})
	reg.EmitStockReceived(ctx, &receipt.Receipt{ProductID: "p1"})
	reg.EmitLowStock(ctx, []*alert.Alert{{ProductID: "p1"}, {ProductID: "p2"}})
	reg.EmitCommitFailed(ctx, "commit_sale", errors.New("boom"))

	assert.Equal(t, []string{"sale:s1", "receipt:p1", "low:p1", "low:p2", "failed:commit_sale"}, rec.snapshot())
}

func TestHookErrorsAreLoggedNotPropagated(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reg := plugin.NewRegistry().WithLogger(logger)
	require.NoError(t, reg.Register(&recorder{name: "bad", err: errors.New("nope")}))

	reg.EmitSaleCommitted(context.Background(), &sale.Sale{ID: "s1"})

	assert.Contains(t, buf.String(), "plugin hook failed")
	assert.Contains(t, buf.String(), "OnSaleCommitted")
}

func TestHookTimeout(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reg := plugin.NewRegistry().WithLogger(logger).WithTimeout(10 * time.Millisecond)
	require.NoError(t, reg.Register(&recorder{name: "slow", delay: 200 * time.Millisecond}))

	start := time.Now()
	reg.EmitSaleCommitted(context.Background(), &sale.Sale{ID: "s1"})

	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Contains(t, buf.String(), "plugin timeout: slow")
}
