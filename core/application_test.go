package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/hostbridge/config"
	"github.com/gocrud/hostbridge/hosting"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet() string
}

type englishGreeter struct {
	Env Environment `di:""`
}

func (g *englishGreeter) Greet() string { return "hello from " + g.Env.Name() }

type closeTracker struct {
	closed atomic.Bool
}

func (c *closeTracker) Close() error {
	c.closed.Store(true)
	return nil
}

type pinger struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (p *pinger) Start(ctx context.Context) error {
	p.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func (p *pinger) Stop(ctx context.Context) error {
	p.stopped.Store(true)
	return nil
}

type appSettings struct {
	Name string `json:"name"`
}

func newQuietBuilder() *ApplicationBuilder {
	return NewApplicationBuilder().
		ConfigureLogging(func(lb *logging.LoggingBuilder) {
			lb.SetMinimumLevel(logging.LogLevelError)
		})
}

func TestTryBuild_ResolvesServices(t *testing.T) {
	app, err := newQuietBuilder().
		UseEnvironment("staging").
		ConfigureServices(func(sc *services.ServiceCollection) {
			services.AddSingleton[greeter, *englishGreeter](sc)
		}).
		TryBuild()
	require.NoError(t, err)

	var g greeter
	app.GetService(&g)
	assert.Equal(t, "hello from staging", g.Greet())
	assert.True(t, app.Environment().IsStaging())

	_, err = services.Get[config.Configuration](app.Services())
	assert.NoError(t, err)
	_, err = services.Get[logging.LoggerFactory](app.Services())
	assert.NoError(t, err)
}

func TestTryBuild_Options(t *testing.T) {
	b := newQuietBuilder().ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
		cb.AddInMemory(map[string]any{"app": map[string]any{"name": "demo"}})
	})
	AddOptions[appSettings](b, "app")

	app, err := b.TryBuild()
	require.NoError(t, err)

	opt := services.MustGet[config.Option[appSettings]](app.Services())
	assert.Equal(t, "demo", opt.Value().Name)
}

func TestTryBuild_InvalidDescriptor(t *testing.T) {
	_, err := newQuietBuilder().
		ConfigureServices(func(sc *services.ServiceCollection) {
			sc.Add(services.Describe(services.TypeOf[greeter](), services.TypeOf[*closeTracker](), services.Singleton))
		}).
		TryBuild()
	assert.Error(t, err)
}

func TestTryBuild_HostedServiceFactoryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := newQuietBuilder().
		Configure(func(ctx *BuildContext) {
			ctx.AddHostedServiceFactory(func(services.ServiceProvider) (hosting.HostedService, error) {
				return nil, boom
			})
		}).
		TryBuild()
	assert.ErrorIs(t, err, boom)
}

func TestRunAsync_LifecycleAndDisposal(t *testing.T) {
	tracker := &closeTracker{}
	var taskRan atomic.Bool

	b := newQuietBuilder().
		ConfigureServices(func(sc *services.ServiceCollection) {
			services.AddSingletonFactory(sc, func(services.ServiceProvider) (*closeTracker, error) {
				return tracker, nil
			})
			hosting.AddHostedService[*pinger](sc)
		}).
		AddTask(func(ctx context.Context) error {
			taskRan.Store(true)
			<-ctx.Done()
			return nil
		}).
		UseShutdownTimeout(time.Second).
		UseVerification()

	app, err := b.TryBuild()
	require.NoError(t, err)

	hosted := services.MustGet[[]hosting.HostedService](app.Services())
	require.Len(t, hosted, 1)
	p := hosted[0].(*pinger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunAsync(ctx) }()

	require.Eventually(t, func() bool { return p.started.Load() && taskRan.Load() }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("application did not stop")
	}

	assert.True(t, p.stopped.Load())
	assert.True(t, tracker.closed.Load())
}

func TestRunAsync_StopAndServiceFailure(t *testing.T) {
	app, err := newQuietBuilder().TryBuild()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.RunAsync(context.Background()) }()
	require.NoError(t, app.Stop(context.Background()))
	require.NoError(t, app.Stop(context.Background()))
	assert.NoError(t, <-done)

	boom := errors.New("boom")
	app, err = newQuietBuilder().
		AddTask(func(ctx context.Context) error { return boom }).
		TryBuild()
	require.NoError(t, err)
	assert.ErrorIs(t, app.RunAsync(context.Background()), boom)
}

func TestEnvironment(t *testing.T) {
	assert.True(t, NewEnvironment("").IsDevelopment())
	assert.True(t, NewEnvironment(Production).IsProduction())

	t.Setenv(EnvironmentVariable, Staging)
	app, err := newQuietBuilder().TryBuild()
	require.NoError(t, err)
	assert.Equal(t, Staging, app.Environment().Name())
}

func TestRunAsync_CleanupsRunInReverseBeforeDisposal(t *testing.T) {
	tracker := &closeTracker{}
	var order []string

	app, err := newQuietBuilder().
		ConfigureServices(func(sc *services.ServiceCollection) {
			services.AddSingletonFactory(sc, func(services.ServiceProvider) (*closeTracker, error) {
				return tracker, nil
			})
		}).
		Configure(func(ctx *BuildContext) {
			ctx.SetCleanup("first", func() { order = append(order, "stale") })
			ctx.SetCleanup("second", func() { order = append(order, "second") })
			ctx.SetCleanup("first", func() {
				order = append(order, "first")
				assert.False(t, tracker.closed.Load())
			})
		}).
		TryBuild()
	require.NoError(t, err)
	services.MustGet[*closeTracker](app.Services())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.RunAsync(ctx))

	assert.Equal(t, []string{"second", "first"}, order)
	assert.True(t, tracker.closed.Load())
}
