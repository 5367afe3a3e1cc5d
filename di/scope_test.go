package di

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type Plugin interface {
	Name() string
}

type pluginA struct{ n int }
type pluginB struct{ n int }

func (*pluginA) Name() string { return "a" }
func (*pluginB) Name() string { return "b" }

type requestState struct {
	ID int
}

type disposeRecorder struct {
	name string
	log  *[]string
	mu   *sync.Mutex
}

func (d *disposeRecorder) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	*d.log = append(*d.log, d.name)
}

func TestScoped_SameWithinScopeDistinctAcross(t *testing.T) {
	c := NewContainer()
	register(t, c, TypeOf[*requestState](), TypeOf[*requestState](), ScopeScoped)
	mustBuild(t, c)

	s1 := c.CreateScope()
	s2 := c.CreateScope()
	defer s1.Dispose()
	defer s2.Dispose()

	a1 := MustResolve[*requestState](s1)
	a2 := MustResolve[*requestState](s1)
	b1 := MustResolve[*requestState](s2)

	if a1 != a2 {
		t.Errorf("expected one instance per scope")
	}
	if a1 == b1 {
		t.Errorf("expected distinct instances across scopes")
	}

	// 释放 s1 不影响 s2
	if err := s1.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if b2 := MustResolve[*requestState](s2); b2 != b1 {
		t.Errorf("scope s2 should keep its instance after s1 is disposed")
	}
}

func TestScoped_FromRootRequiresActiveScope(t *testing.T) {
	c := NewContainer()
	register(t, c, TypeOf[*requestState](), TypeOf[*requestState](), ScopeScoped)
	mustBuild(t, c)

	if _, err := c.Get(TypeOf[*requestState]()); !errors.Is(err, ErrNoActiveScope) {
		t.Fatalf("expected ErrNoActiveScope, got %v", err)
	}

	s := c.BeginScope(context.Background())
	defer s.Dispose()

	fromCtx, err := c.GetWithContext(s.Context(), TypeOf[*requestState]())
	if err != nil {
		t.Fatalf("GetWithContext failed: %v", err)
	}
	if fromCtx != MustResolve[*requestState](s) {
		t.Errorf("ambient scope resolution should reuse the scope instance")
	}

	current, ok := ScopeFromContext(s.Context())
	if !ok || current != s {
		t.Errorf("scope context should carry the scope")
	}
}

type customLifestyle struct {
	s Scope
}

func (l *customLifestyle) CurrentScope(context.Context) (Scope, bool) {
	return l.s, l.s != nil
}

func TestScoped_CustomLifestyle(t *testing.T) {
	lifestyle := &customLifestyle{}
	c := NewContainer(WithScopedLifestyle(lifestyle))
	register(t, c, TypeOf[*requestState](), TypeOf[*requestState](), ScopeScoped)
	mustBuild(t, c)

	lifestyle.s = c.CreateScope()
	defer lifestyle.s.Dispose()

	v, err := c.Get(TypeOf[*requestState]())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != MustResolve[*requestState](lifestyle.s) {
		t.Errorf("root resolution should use the lifestyle's current scope")
	}
}

type captive struct {
	State *requestState `di:""`
}

func TestSingleton_CannotCaptureScoped(t *testing.T) {
	c := NewContainer()
	register(t, c, TypeOf[*requestState](), TypeOf[*requestState](), ScopeScoped)
	register(t, c, TypeOf[*captive](), TypeOf[*captive](), ScopeSingleton)
	mustBuild(t, c)

	s := c.CreateScope()
	defer s.Dispose()

	if _, err := s.Get(TypeOf[*captive]()); !errors.Is(err, ErrNoActiveScope) {
		t.Errorf("expected ErrNoActiveScope for singleton depending on scoped, got %v", err)
	}
}

func TestSingleton_SharedAcrossScopes(t *testing.T) {
	c := NewContainer()
	register(t, c, TypeOf[Adder](), TypeOf[*simpleAdder](), ScopeSingleton)
	mustBuild(t, c)

	s1 := c.CreateScope()
	s2 := c.CreateScope()
	defer s1.Dispose()
	defer s2.Dispose()

	root := MustResolve[Adder](c)
	if root != MustResolve[Adder](s1) || root != MustResolve[Adder](s2) {
		t.Errorf("singleton should be identical in every scope")
	}
}

type scopedRecorder struct{ disposeRecorder }

type transientRecorder struct{ disposeRecorder }

func TestScope_DisposeReleasesInReverseOrder(t *testing.T) {
	var log []string
	var mu sync.Mutex

	c := NewContainer()
	_ = c.RegisterFactory(TypeOf[*scopedRecorder](), func(Resolver) (any, error) {
		return &scopedRecorder{disposeRecorder{name: "scoped", log: &log, mu: &mu}}, nil
	}, ScopeScoped)
	_ = c.RegisterFactory(TypeOf[*transientRecorder](), func(Resolver) (any, error) {
		return &transientRecorder{disposeRecorder{name: "transient", log: &log, mu: &mu}}, nil
	}, ScopeTransient)
	mustBuild(t, c)

	s := c.CreateScope()
	_, _ = s.Get(TypeOf[*scopedRecorder]())
	_, _ = s.Get(TypeOf[*transientRecorder]())
	_, _ = s.Get(TypeOf[*scopedRecorder]())

	if err := s.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := s.Dispose(); err != nil {
		t.Fatalf("second Dispose should be a no-op: %v", err)
	}
	if !s.Disposed() {
		t.Errorf("Disposed should report true")
	}

	want := []string{"transient", "scoped"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("dispose order = %v, want %v", log, want)
	}

	if _, err := s.Get(TypeOf[*scopedRecorder]()); !errors.Is(err, ErrScopeDisposed) {
		t.Errorf("expected ErrScopeDisposed, got %v", err)
	}
	if _, err := c.GetWithContext(s.Context(), TypeOf[*scopedRecorder]()); !errors.Is(err, ErrScopeDisposed) {
		t.Errorf("expected ErrScopeDisposed through ambient scope, got %v", err)
	}
}

func TestScoped_ConcurrentResolutionCreatesOnce(t *testing.T) {
	var created int
	var mu sync.Mutex

	c := NewContainer()
	_ = c.RegisterFactory(TypeOf[*requestState](), func(Resolver) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		created++
		return &requestState{ID: created}, nil
	}, ScopeScoped)
	mustBuild(t, c)

	s := c.CreateScope()
	defer s.Dispose()

	var wg sync.WaitGroup
	results := make([]*requestState, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = MustResolve[*requestState](s)
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected 1 creation, got %d", created)
	}
	for _, r := range results {
		if r != results[0] {
			t.Fatalf("all goroutines should observe the same instance")
		}
	}
}

type scopedCollection struct {
	Plugins []Plugin `di:""`
}

func TestScoped_CollectionFactoryCachedPerScope(t *testing.T) {
	c := NewContainer(WithAllowOverriding(true))
	for _, impl := range []reflect.Type{TypeOf[*pluginA](), TypeOf[*pluginB]()} {
		_ = c.Register(TypeOf[Plugin](), impl, ScopeScoped)
		_ = c.Register(impl, impl, ScopeScoped)
	}
	_ = c.RegisterFactory(TypeOf[[]Plugin](), func(r Resolver) (any, error) {
		a, err := r.Get(TypeOf[*pluginA]())
		if err != nil {
			return nil, err
		}
		b, err := r.Get(TypeOf[*pluginB]())
		if err != nil {
			return nil, err
		}
		return []Plugin{a.(Plugin), b.(Plugin)}, nil
	}, ScopeScoped)
	register(t, c, TypeOf[*scopedCollection](), TypeOf[*scopedCollection](), ScopeTransient)
	mustBuild(t, c)

	s := c.CreateScope()
	defer s.Dispose()

	holder := MustResolve[*scopedCollection](s)
	again := MustResolve[[]Plugin](s)
	if len(holder.Plugins) != 2 || &holder.Plugins[0] != &again[0] {
		t.Errorf("scoped collection should be cached within the scope")
	}
	if MustResolve[Plugin](s) != holder.Plugins[1] {
		t.Errorf("contract should resolve to the last registration and share its instance")
	}
}
