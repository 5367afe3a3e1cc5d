package di

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type Repo[T any] interface {
	Get() T
}

type memRepo[T any] struct{ n int }

func (*memRepo[T]) Get() T {
	var zero T
	return zero
}

type cachedRepo[T any] struct{ n int }

func (*cachedRepo[T]) Get() T {
	var zero T
	return zero
}

type user struct{ Name string }
type order struct{ ID int }

type userRepo struct{ n int }

func (*userRepo) Get() user { return user{Name: "fixed"} }

var (
	RepoDef       = OpenGeneric{Name: "Repo", Arity: 1}
	MemRepoDef    = OpenGeneric{Name: "memRepo", Arity: 1}
	CachedRepoDef = OpenGeneric{Name: "cachedRepo", Arity: 1}
)

// mapCloser 是测试用的 TypeCloser
type mapCloser struct {
	closed map[string]reflect.Type
	opened map[reflect.Type]struct {
		def  OpenGeneric
		args []reflect.Type
	}
}

func newMapCloser() *mapCloser {
	return &mapCloser{
		closed: make(map[string]reflect.Type),
		opened: make(map[reflect.Type]struct {
			def  OpenGeneric
			args []reflect.Type
		}),
	}
}

func (m *mapCloser) add(def OpenGeneric, t reflect.Type, args ...reflect.Type) *mapCloser {
	m.closed[fmt.Sprint(def, args)] = t
	m.opened[t] = struct {
		def  OpenGeneric
		args []reflect.Type
	}{def, args}
	return m
}

func (m *mapCloser) Close(def OpenGeneric, args []reflect.Type) (reflect.Type, bool) {
	t, ok := m.closed[fmt.Sprint(def, args)]
	return t, ok
}

func (m *mapCloser) Open(t reflect.Type) (OpenGeneric, []reflect.Type, bool) {
	e, ok := m.opened[t]
	return e.def, e.args, ok
}

func repoCloser() *mapCloser {
	u, o := TypeOf[user](), TypeOf[order]()
	return newMapCloser().
		add(RepoDef, TypeOf[Repo[user]](), u).
		add(RepoDef, TypeOf[Repo[order]](), o).
		add(MemRepoDef, TypeOf[*memRepo[user]](), u).
		add(MemRepoDef, TypeOf[*memRepo[order]](), o).
		add(CachedRepoDef, TypeOf[*cachedRepo[order]](), o)
}

func TestOpenGeneric_RequiresCloser(t *testing.T) {
	c := NewContainer()
	if err := c.RegisterOpenGeneric(RepoDef, MemRepoDef, ScopeSingleton); err != nil {
		t.Fatalf("RegisterOpenGeneric failed: %v", err)
	}
	if err := c.Build(); !errors.Is(err, ErrNoTypeCloser) {
		t.Errorf("expected ErrNoTypeCloser, got %v", err)
	}
}

func TestOpenGeneric_ArityMismatch(t *testing.T) {
	c := NewContainer(WithTypeCloser(repoCloser()))
	err := c.RegisterOpenGeneric(RepoDef, OpenGeneric{Name: "pair", Arity: 2}, ScopeSingleton)
	if !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("expected ErrInvalidRegistration, got %v", err)
	}
	err = c.RegisterCollection(RepoDef, CollectionItem{})
	if !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("expected ErrInvalidRegistration for empty collection item, got %v", err)
	}
}

func TestOpenGeneric_ClosesOnDemand(t *testing.T) {
	c := NewContainer(WithTypeCloser(repoCloser()))
	_ = c.RegisterOpenGeneric(RepoDef, MemRepoDef, ScopeScoped)
	mustBuild(t, c)

	s1 := c.CreateScope()
	s2 := c.CreateScope()
	defer s1.Dispose()
	defer s2.Dispose()

	r1 := MustResolve[Repo[user]](s1)
	if _, ok := r1.(*memRepo[user]); !ok {
		t.Fatalf("expected *memRepo[user], got %T", r1)
	}
	if r1 != MustResolve[Repo[user]](s1) {
		t.Errorf("scoped generic should be cached in the scope")
	}
	if r1 == MustResolve[Repo[user]](s2) {
		t.Errorf("scoped generic should differ across scopes")
	}
	if _, ok := MustResolve[Repo[order]](s1).(*memRepo[order]); !ok {
		t.Errorf("expected *memRepo[order]")
	}
}

func TestOpenGeneric_ClosedImplementationWins(t *testing.T) {
	c := NewContainer(WithTypeCloser(repoCloser()))
	_ = c.RegisterOpenGeneric(RepoDef, MemRepoDef, ScopeTransient)
	_ = c.AppendOpenGeneric(RepoDef, TypeOf[*userRepo](), ScopeSingleton)
	mustBuild(t, c)

	users := MustResolve[Repo[user]](c)
	if users.Get().Name != "fixed" {
		t.Errorf("closed implementation should be preferred for Repo[user]")
	}
	if users != MustResolve[Repo[user]](c) {
		t.Errorf("closed implementation should keep its singleton lifetime")
	}
	if _, ok := MustResolve[Repo[order]](c).(*memRepo[order]); !ok {
		t.Errorf("open mapping should serve Repo[order]")
	}
}

func TestOpenGeneric_MissingClosing(t *testing.T) {
	c := NewContainer(WithTypeCloser(repoCloser()))
	_ = c.RegisterOpenGeneric(RepoDef, CachedRepoDef, ScopeTransient)
	mustBuild(t, c)

	if _, err := c.Get(TypeOf[Repo[user]]()); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound when no closing exists, got %v", err)
	}
}

func TestOpenGeneric_Collection(t *testing.T) {
	c := NewContainer(WithTypeCloser(repoCloser()))
	err := c.RegisterCollection(RepoDef,
		CollectionItem{Open: MemRepoDef, Scope: ScopeScoped},
		CollectionItem{Open: CachedRepoDef, Scope: ScopeTransient},
		CollectionItem{Type: TypeOf[*userRepo](), Scope: ScopeSingleton},
	)
	if err != nil {
		t.Fatalf("RegisterCollection failed: %v", err)
	}
	mustBuild(t, c)

	s := c.CreateScope()
	defer s.Dispose()

	users := MustResolve[[]Repo[user]](s)
	if len(users) != 2 {
		t.Fatalf("expected memRepo[user] and userRepo, got %d", len(users))
	}
	if _, ok := users[0].(*memRepo[user]); !ok {
		t.Errorf("collection should keep registration order, got %T first", users[0])
	}
	if _, ok := users[1].(*userRepo); !ok {
		t.Errorf("closed member should be included, got %T", users[1])
	}

	orders := MustResolve[[]Repo[order]](s)
	if len(orders) != 2 {
		t.Fatalf("expected memRepo[order] and cachedRepo[order], got %d", len(orders))
	}

	again := MustResolve[[]Repo[order]](s)
	if orders[0] != again[0] {
		t.Errorf("scoped member should be shared within the scope")
	}
	if orders[1] == again[1] {
		t.Errorf("transient member should be recreated")
	}
}
