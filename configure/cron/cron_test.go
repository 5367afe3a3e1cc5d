package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gocrud/hostbridge/bridge"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runState struct {
	mu       sync.Mutex
	runs     int
	disposed int
}

func (s *runState) ran() {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
}

type unitOfWork struct {
	State *runState `di:""`
}

func (u *unitOfWork) Dispose() {
	u.State.mu.Lock()
	u.State.disposed++
	u.State.mu.Unlock()
}

type reportJob struct {
	Work *unitOfWork `di:""`
}

func (j *reportJob) Run(ctx context.Context) error {
	if _, ok := bridge.ProviderFromContext(ctx); !ok {
		return errors.New("no ambient scope")
	}
	j.Work.State.ran()
	return nil
}

func newTestProvider(t *testing.T, b *Builder) *bridge.Provider {
	t.Helper()
	sc := services.NewServiceCollection()
	services.AddInstance(sc, &runState{})
	services.AddScoped[*unitOfWork, *unitOfWork](sc)
	b.RegisterServices(sc)
	p := bridge.MustUseContainer(sc)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestAddJobWithDI_ScopePerRun(t *testing.T) {
	var seen []*unitOfWork
	b := NewBuilder().AddJobWithDI("@every 1h", "collect", func(ctx context.Context, w *unitOfWork) error {
		seen = append(seen, w)
		w.State.ran()
		return nil
	})
	p := newTestProvider(t, b)

	svc, err := b.build(p.ScopeFactory(), logging.Nop())
	require.NoError(t, err)

	require.True(t, svc.runNow("collect"))
	require.True(t, svc.runNow("collect"))

	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])

	state := services.MustGet[*runState](p)
	assert.Equal(t, 2, state.runs)
	assert.Equal(t, 2, state.disposed)
}

func TestAddScopedJob(t *testing.T) {
	b := AddScopedJob[*reportJob](NewBuilder(), "@every 1h", "report")
	p := newTestProvider(t, b)

	svc, err := b.build(p.ScopeFactory(), logging.Nop())
	require.NoError(t, err)
	require.True(t, svc.runNow("report"))

	state := services.MustGet[*runState](p)
	assert.Equal(t, 1, state.runs)
	assert.Equal(t, 1, state.disposed)
}

func TestAddJobWithDI_InvalidHandler(t *testing.T) {
	p := newTestProvider(t, NewBuilder())

	b := NewBuilder().AddJobWithDI("@every 1h", "bad", 42)
	_, err := b.build(p.ScopeFactory(), logging.Nop())
	assert.Error(t, err)

	b = NewBuilder().AddJobWithDI("@every 1h", "bad", func() int { return 1 })
	_, err = b.build(p.ScopeFactory(), logging.Nop())
	assert.Error(t, err)
}

func TestAddJob_InvalidSpec(t *testing.T) {
	p := newTestProvider(t, NewBuilder())

	b := NewBuilder().AddJob("not a spec", "bad", func() {})
	_, err := b.build(p.ScopeFactory(), logging.Nop())
	assert.Error(t, err)
}

func TestWithLocation_Invalid(t *testing.T) {
	p := newTestProvider(t, NewBuilder())

	b := NewBuilder().WithLocation("Nowhere/Invalid")
	_, err := b.build(p.ScopeFactory(), logging.Nop())
	assert.Error(t, err)
}

func TestService_StartStop(t *testing.T) {
	p := newTestProvider(t, NewBuilder())

	ran := make(chan struct{}, 1)
	b := NewBuilder().WithSeconds().AddJob("@every 1s", "tick", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	svc, err := b.build(p.ScopeFactory(), logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	cancel()
	require.NoError(t, <-done)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, svc.Stop(stopCtx))
}
