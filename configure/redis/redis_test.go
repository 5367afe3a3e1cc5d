package redis_test

import (
	"testing"

	"github.com/gocrud/hostbridge/bridge"
	"github.com/gocrud/hostbridge/configure/redis"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cacheService 依赖默认 Redis 客户端的服务
type cacheService struct {
	Client *goredis.Client `di:""`
}

func TestRedisConfiguration(t *testing.T) {
	sc := services.NewServiceCollection()
	err := redis.NewBuilder().
		AddClient("default", nil).
		AddClient("queue", func(o *redis.RedisClientOptions) {
			o.Addr = "localhost:6380"
			o.DB = 2
		}).
		RegisterServices(sc, logging.Nop())
	require.NoError(t, err)
	services.AddScoped[*cacheService, *cacheService](sc)

	p := bridge.MustUseContainer(sc)

	scope := p.CreateScope(t.Context())
	defer scope.Dispose()

	svc := services.MustGet[*cacheService](scope.ServiceProvider())
	require.NotNil(t, svc.Client)
	assert.Equal(t, "localhost:6379", svc.Client.Options().Addr)

	factory := services.MustGet[*redis.RedisClientFactory](p)
	def, err := factory.Get("default")
	require.NoError(t, err)
	assert.Same(t, svc.Client, def)

	queue, err := factory.Get("queue")
	require.NoError(t, err)
	assert.Equal(t, 2, queue.Options().DB)
	again, _ := factory.Get("queue")
	assert.Same(t, queue, again)

	_, err = factory.Get("missing")
	assert.Error(t, err)

	assert.ElementsMatch(t, []string{"default", "queue"}, factory.Names())
	assert.NoError(t, p.Close())
}

func TestRedisConfiguration_NoDefaultClient(t *testing.T) {
	sc := services.NewServiceCollection()
	require.NoError(t, redis.NewBuilder().AddClient("cache", nil).RegisterServices(sc, logging.Nop()))

	p := bridge.MustUseContainer(sc)
	defer p.Close()

	_, err := services.Get[*goredis.Client](p)
	assert.Error(t, err)
}

func TestRedisBuilder_Errors(t *testing.T) {
	_, err := redis.NewBuilder().
		AddClient("invalid", func(o *redis.RedisClientOptions) { o.Addr = "" }).
		Build(logging.Nop())
	assert.Error(t, err)

	_, err = redis.NewBuilder().
		AddClient("duplicate", nil).
		AddClient("duplicate", nil).
		Build(logging.Nop())
	assert.ErrorContains(t, err, "already registered")
}
