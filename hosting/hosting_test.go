package hosting_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/hostbridge/bridge"
	"github.com/gocrud/hostbridge/hosting"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingService struct{ err error }

func (f *failingService) Start(ctx context.Context) error { return f.err }
func (f *failingService) Stop(ctx context.Context) error  { return f.err }

type tickState struct {
	disposed atomic.Int32
}

type tickScope struct {
	State *tickState `di:""`
}

func (s *tickScope) Dispose() { s.State.disposed.Add(1) }

func TestManager_StartErrorIsReported(t *testing.T) {
	m := hosting.NewHostedServiceManager(logging.Nop())
	boom := errors.New("boom")
	m.Add(&failingService{err: boom})
	m.Add(hosting.NewBackgroundService("idle", logging.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := m.StartAll(ctx)
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("expected start error")
	}

	err := m.StopAll(context.Background())
	assert.ErrorIs(t, err, boom)
	m.Wait()
}

func TestBackgroundService_StopTwice(t *testing.T) {
	svc := hosting.NewBackgroundService("bg", logging.Nop())
	go func() { _ = svc.Start(context.Background()) }()

	require.NoError(t, svc.Stop(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, "bg", svc.Name())
}

func TestScopedTimedService_ScopePerTick(t *testing.T) {
	sc := services.NewServiceCollection()
	state := &tickState{}
	services.AddInstance(sc, state)
	services.AddScoped[*tickScope, *tickScope](sc)
	p := bridge.MustUseContainer(sc)
	defer p.Close()

	var seen atomic.Int32
	svc := hosting.NewScopedTimedService("tick", 10*time.Millisecond, p.ScopeFactory(),
		func(ctx context.Context, sp services.ServiceProvider) error {
			_, err := services.Get[*tickScope](sp)
			if err == nil {
				seen.Add(1)
			}
			return err
		}, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	require.Eventually(t, func() bool { return seen.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.GreaterOrEqual(t, state.disposed.Load(), int32(3))
	assert.Equal(t, seen.Load(), state.disposed.Load())
}
