package database_test

import (
	"testing"

	"github.com/gocrud/hostbridge/bridge"
	"github.com/gocrud/hostbridge/config"
	"github.com/gocrud/hostbridge/configure/database"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name string
}

type userService struct {
	Work *database.UnitOfWork `di:""`
}

func (s *userService) Create(t *testing.T, name string) {
	tx, err := s.Work.Tx(t.Context())
	require.NoError(t, err)
	require.NoError(t, tx.Create(&User{Name: name}).Error)
}

func newProvider(t *testing.T, dsn string) *bridge.Provider {
	t.Helper()
	sc := services.NewServiceCollection()
	err := database.NewBuilder(nil).
		Add("default", sqlite.Open(dsn), func(o *database.DatabaseOptions) {
			o.MaxOpenConns = 5
			o.AutoMigrate = []any{&User{}}
		}).
		RegisterServices(sc, logging.Nop())
	require.NoError(t, err)
	services.AddScoped[*userService, *userService](sc)

	p := bridge.MustUseContainer(sc)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func countUsers(t *testing.T, p *bridge.Provider) int64 {
	var n int64
	db := services.MustGet[*gorm.DB](p)
	require.NoError(t, db.Model(&User{}).Count(&n).Error)
	return n
}

func TestDatabase_DefaultInstance(t *testing.T) {
	p := newProvider(t, "file:default_instance?mode=memory&cache=shared")

	db := services.MustGet[*gorm.DB](p)
	named, err := database.Named(p, "default")
	require.NoError(t, err)
	assert.Same(t, db, named)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 5, sqlDB.Stats().MaxOpenConnections)

	_, err = database.Named(p, "missing")
	assert.Error(t, err)
}

func TestUnitOfWork_CommitAndRollbackOnDispose(t *testing.T) {
	p := newProvider(t, "file:unit_of_work?mode=memory&cache=shared")
	require.Equal(t, int64(0), countUsers(t, p))

	scope := p.CreateScope(t.Context())
	svc := services.MustGet[*userService](scope.ServiceProvider())
	svc.Create(t, "committed")
	require.NoError(t, svc.Work.Commit())
	scope.Dispose()
	assert.Equal(t, int64(1), countUsers(t, p))

	scope = p.CreateScope(t.Context())
	svc = services.MustGet[*userService](scope.ServiceProvider())
	svc.Create(t, "discarded")
	scope.Dispose()
	assert.Equal(t, int64(1), countUsers(t, p))

	_, err := svc.Work.Tx(t.Context())
	assert.ErrorIs(t, err, database.ErrUnitOfWorkCompleted)
}

func TestUnitOfWork_SharedWithinScope(t *testing.T) {
	p := newProvider(t, "file:shared_scope?mode=memory&cache=shared")

	scope := p.CreateScope(t.Context())
	defer scope.Dispose()

	a := services.MustGet[*database.UnitOfWork](scope.ServiceProvider())
	b := services.MustGet[*userService](scope.ServiceProvider())
	assert.Same(t, a, b.Work)

	_, err := services.Get[*database.UnitOfWork](p)
	assert.Error(t, err)
}

func TestDatabaseBuilder_FromConfig(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().
		AddInMemory(map[string]any{
			"db": map[string]any{
				"main": map[string]any{
					"driver":         "sqlite",
					"dsn":            "file:from_config?mode=memory&cache=shared",
					"max_open_conns": 3,
				},
			},
		}).
		Build()
	require.NoError(t, err)

	factory, err := database.NewBuilder(cfg).
		AddFromConfig("main", "db.main", nil).
		Build(logging.Nop())
	require.NoError(t, err)
	defer factory.Close()

	db, err := factory.Get("main")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)
}

func TestDatabaseBuilder_Errors(t *testing.T) {
	_, err := database.NewBuilder(nil).
		Add("invalid", nil, nil).
		Build(logging.Nop())
	assert.Error(t, err)

	_, err = database.NewBuilder(nil).
		Add("dup", sqlite.Open("file:a?mode=memory"), nil).
		Add("dup", sqlite.Open("file:b?mode=memory"), nil).
		Build(logging.Nop())
	assert.ErrorContains(t, err, "already configured")

	_, err = database.NewBuilder(nil).AddFromConfig("x", "db.x", nil).Build(logging.Nop())
	assert.Error(t, err)
}
