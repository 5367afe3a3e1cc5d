package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Resolver 按类型解析实例。工厂函数收到的就是当前的 Resolver（根容器或作用域）。
type Resolver interface {
	// Get 检索请求类型的实例。
	Get(typ reflect.Type) (any, error)

	// Context 返回解析所处的上下文。
	Context() context.Context
}

// Container 是依赖注入容器的接口。
type Container interface {
	Resolver

	// Register 注册 service -> impl，impl 通过结构体字段注入创建。
	Register(service, impl reflect.Type, scope ScopeType) error

	// RegisterFactory 使用工厂函数注册服务。
	RegisterFactory(service reflect.Type, factory Factory, scope ScopeType) error

	// RegisterInstance 注册已创建的实例，容器不负责释放它。
	RegisterInstance(service reflect.Type, instance any, scope ScopeType) error

	// RegisterOpenGeneric 注册开放泛型契约到开放泛型实现的映射。
	RegisterOpenGeneric(service, impl OpenGeneric, scope ScopeType) error

	// AppendOpenGeneric 为开放泛型契约追加一个闭合实现。
	AppendOpenGeneric(service OpenGeneric, impl reflect.Type, scope ScopeType) error

	// RegisterCollection 为开放泛型契约注册集合成员。
	RegisterCollection(service OpenGeneric, items ...CollectionItem) error

	// Build 构建依赖图并进行验证。
	Build() error

	// Verify 尝试创建每个已注册服务一次。
	Verify() error

	// GetWithContext 检索实例，Scoped 服务从 ctx 的当前作用域解析。
	GetWithContext(ctx context.Context, typ reflect.Type) (any, error)

	// CreateScope 为作用域实例创建一个新作用域。
	CreateScope() Scope

	// BeginScope 创建新作用域，作用域的 Context() 以它为当前作用域。
	BeginScope(ctx context.Context) Scope

	// Close 释放容器拥有的单例。
	Close() error
}

// requester 是一次解析的发起方：根容器或某个作用域。
type requester interface {
	Resolver
	owner() *scope
	resolvePath(typ reflect.Type, path []int) (any, error)
}

// container 是具体的实现。
type container struct {
	mu     sync.RWMutex
	built  atomic.Bool
	closed atomic.Bool

	allowOverriding                bool
	resolveUnregisteredCollections bool
	lifestyle                      ScopedLifestyle
	closer                         TypeCloser

	services  map[reflect.Type]*producer
	byImpl    map[implKey]*producer
	producers []*producer    // 按 producer.id 索引
	order     []reflect.Type // 注册顺序

	openMappings map[OpenGeneric]openMapping
	openClosed   map[OpenGeneric][]closedImpl
	collections  map[OpenGeneric][]CollectionItem

	// 构建后按需闭合的泛型与集合
	lazy map[reflect.Type]*producer

	disposables []any

	// resolver 处理实例的创建
	resolver *resolver
	root     *rootResolver
}

// NewContainer 创建一个新的空容器。
func NewContainer(opts ...ContainerOption) Container {
	c := &container{
		lifestyle:    ContextLifestyle{},
		services:     make(map[reflect.Type]*producer),
		byImpl:       make(map[implKey]*producer),
		openMappings: make(map[OpenGeneric]openMapping),
		openClosed:   make(map[OpenGeneric][]closedImpl),
		collections:  make(map[OpenGeneric][]CollectionItem),
		lazy:         make(map[reflect.Type]*producer),
	}
	c.resolver = newResolver(c)
	c.root = &rootResolver{c: c, ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register 注册 service -> impl。
func (c *container) Register(service, impl reflect.Type, scope ScopeType) error {
	if service == nil || impl == nil {
		return fmt.Errorf("%w: nil type", ErrInvalidRegistration)
	}
	if !scope.valid() {
		return fmt.Errorf("%w: unknown scope %v", ErrInvalidRegistration, scope)
	}
	if !impl.AssignableTo(service) {
		return fmt.Errorf("%w: %v is not assignable to %v", ErrInvalidRegistration, impl, service)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built.Load() {
		return ErrContainerBuilt
	}
	p, err := c.implProducerLocked(impl, scope)
	if err != nil {
		return err
	}
	return c.setLocked(service, p)
}

// RegisterFactory 使用工厂函数注册服务。
func (c *container) RegisterFactory(service reflect.Type, factory Factory, scope ScopeType) error {
	if service == nil || factory == nil {
		return fmt.Errorf("%w: nil service type or factory", ErrInvalidRegistration)
	}
	if !scope.valid() {
		return fmt.Errorf("%w: unknown scope %v", ErrInvalidRegistration, scope)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built.Load() {
		return ErrContainerBuilt
	}
	p := &producer{kind: kindFactory, scope: scope, factory: factory}
	c.addProducerLocked(p)
	return c.setLocked(service, p)
}

// RegisterInstance 注册已创建的实例。
func (c *container) RegisterInstance(service reflect.Type, instance any, scope ScopeType) error {
	if service == nil {
		return fmt.Errorf("%w: nil service type", ErrInvalidRegistration)
	}
	if !scope.valid() {
		return fmt.Errorf("%w: unknown scope %v", ErrInvalidRegistration, scope)
	}
	if instance != nil && !reflect.TypeOf(instance).AssignableTo(service) {
		return fmt.Errorf("%w: instance %T is not assignable to %v", ErrInvalidRegistration, instance, service)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built.Load() {
		return ErrContainerBuilt
	}
	p := &producer{kind: kindValue, scope: scope, value: instance}
	c.addProducerLocked(p)
	return c.setLocked(service, p)
}

// RegisterOpenGeneric 注册开放泛型映射。
func (c *container) RegisterOpenGeneric(service, impl OpenGeneric, scope ScopeType) error {
	if service.Arity < 1 || service.Arity != impl.Arity {
		return fmt.Errorf("%w: arity mismatch between %s and %s", ErrInvalidRegistration, service, impl)
	}
	if !scope.valid() {
		return fmt.Errorf("%w: unknown scope %v", ErrInvalidRegistration, scope)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built.Load() {
		return ErrContainerBuilt
	}
	if _, exists := c.openMappings[service]; exists && !c.allowOverriding {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, service)
	}
	c.openMappings[service] = openMapping{impl: impl, scope: scope}
	return nil
}

// AppendOpenGeneric 为开放泛型契约追加闭合实现。
func (c *container) AppendOpenGeneric(service OpenGeneric, impl reflect.Type, scope ScopeType) error {
	if service.Arity < 1 || impl == nil {
		return fmt.Errorf("%w: invalid open generic %s or nil implementation", ErrInvalidRegistration, service)
	}
	if !scope.valid() {
		return fmt.Errorf("%w: unknown scope %v", ErrInvalidRegistration, scope)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built.Load() {
		return ErrContainerBuilt
	}
	c.openClosed[service] = append(c.openClosed[service], closedImpl{typ: impl, scope: scope})
	return nil
}

// RegisterCollection 为开放泛型契约注册集合成员，多次调用会追加。
func (c *container) RegisterCollection(service OpenGeneric, items ...CollectionItem) error {
	if service.Arity < 1 {
		return fmt.Errorf("%w: invalid open generic %s", ErrInvalidRegistration, service)
	}
	for _, item := range items {
		if (item.Type == nil) == item.Open.IsZero() {
			return fmt.Errorf("%w: collection item of %s must name exactly one implementation", ErrInvalidRegistration, service)
		}
		if !item.Open.IsZero() && item.Open.Arity != service.Arity {
			return fmt.Errorf("%w: arity mismatch between %s and %s", ErrInvalidRegistration, service, item.Open)
		}
		if !item.Scope.valid() {
			return fmt.Errorf("%w: unknown scope %v", ErrInvalidRegistration, item.Scope)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built.Load() {
		return ErrContainerBuilt
	}
	c.collections[service] = append(c.collections[service], items...)
	return nil
}

// Build 构建依赖图并进行验证。
func (c *container) Build() error {
	if c.built.Load() {
		return nil // 已构建
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 双重检查
	if c.built.Load() {
		return nil
	}

	if c.closer == nil && len(c.openMappings)+len(c.openClosed)+len(c.collections) > 0 {
		return ErrNoTypeCloser
	}

	// 依赖图和循环检测
	graph := newGraphBuilder(c.producers, func(t reflect.Type) (*producer, bool) {
		p, ok := c.services[t]
		return p, ok
	})
	if err := graph.validate(); err != nil {
		return err
	}

	// 标记为已构建。此后注册将失败，services 不再变化。
	c.built.Store(true)
	return nil
}

// Verify 在一个临时作用域中按注册顺序解析每个服务。
func (c *container) Verify() error {
	if !c.built.Load() {
		return ErrContainerNotBuilt
	}

	s := c.BeginScope(context.Background())
	defer s.Dispose()

	var errs []error
	for _, typ := range c.order {
		if _, err := s.Get(typ); err != nil {
			errs = append(errs, fmt.Errorf("di: verify %v: %w", typ, err))
		}
	}
	return errors.Join(errs...)
}

// Get 检索请求类型的实例。
func (c *container) Get(typ reflect.Type) (any, error) {
	return c.root.Get(typ)
}

// Context 根容器的上下文
func (c *container) Context() context.Context {
	return c.root.ctx
}

// GetWithContext 检索实例，Scoped 服务由 ScopedLifestyle 根据 ctx 找到当前作用域。
func (c *container) GetWithContext(ctx context.Context, typ reflect.Type) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return (&rootResolver{c: c, ctx: ctx}).Get(typ)
}

// CreateScope 为作用域实例创建一个新作用域。
func (c *container) CreateScope() Scope {
	return c.BeginScope(context.Background())
}

// BeginScope 创建新作用域。
func (c *container) BeginScope(ctx context.Context) Scope {
	return newScope(c, ctx)
}

// Close 按创建的逆序释放单例，重复调用无效果。
func (c *container) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	list := c.disposables
	c.disposables = nil
	c.mu.Unlock()

	return disposeAll(list)
}

func (c *container) resolve(req requester, typ reflect.Type, path []int) (any, error) {
	if !c.built.Load() {
		return nil, ErrContainerNotBuilt
	}
	if c.closed.Load() {
		return nil, ErrContainerClosed
	}

	p, err := c.producerFor(typ)
	if err != nil {
		return nil, err
	}
	return c.produce(req, p, path)
}

// produce 按 producer 的生命周期返回实例。
func (c *container) produce(req requester, p *producer, path []int) (any, error) {
	for _, id := range path {
		if id == p.id {
			return nil, fmt.Errorf("%w: %v", ErrCircularDependency, p)
		}
	}
	path = append(path[:len(path):len(path)], p.id)

	switch p.scope {
	case ScopeSingleton:
		// 单例始终以根容器创建，避免捕获某个作用域的实例
		p.singletonOnce.Do(func() {
			p.singletonInst, p.singletonErr = c.resolver.createInstance(c.root, p, path)
			if p.singletonErr == nil && p.kind != kindValue {
				c.track(p.singletonInst)
			}
		})
		return p.singletonInst, p.singletonErr

	case ScopeTransient:
		instance, err := c.resolver.createInstance(req, p, path)
		if err != nil {
			return nil, err
		}
		if s := req.owner(); s != nil && p.kind != kindValue {
			if err := s.track(instance); err != nil {
				return nil, err
			}
		}
		return instance, nil

	case ScopeScoped:
		if s := req.owner(); s != nil {
			return s.getScoped(p, path)
		}
		current, ok := c.lifestyle.CurrentScope(req.Context())
		if !ok {
			return nil, fmt.Errorf("%w: cannot resolve scoped %v from the root container", ErrNoActiveScope, p)
		}
		if s, ok := current.(*scope); ok && s.parent == c {
			if s.Disposed() {
				return nil, ErrScopeDisposed
			}
			return s.getScoped(p, path)
		}
		return nil, fmt.Errorf("%w: current scope belongs to another container", ErrNoActiveScope)
	}

	return nil, fmt.Errorf("di: 未知作用域 %v", p.scope)
}

// producerFor 查找类型的 producer，必要时闭合泛型。
func (c *container) producerFor(typ reflect.Type) (*producer, error) {
	// 构建后 services 不可变，可以无锁读取
	if p, ok := c.services[typ]; ok {
		return p, nil
	}

	c.mu.RLock()
	p, ok := c.lazy[typ]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.lazy[typ]; ok {
		return p, nil
	}
	p, err := c.materializeLocked(typ)
	if err != nil {
		return nil, err
	}
	c.lazy[typ] = p
	return p, nil
}

func (c *container) materializeLocked(typ reflect.Type) (*producer, error) {
	if c.closer != nil {
		if typ.Kind() == reflect.Slice {
			if def, args, ok := c.closer.Open(typ.Elem()); ok {
				if items, ok := c.collections[def]; ok {
					return c.openCollectionLocked(typ, items, args)
				}
			}
		}
		if def, args, ok := c.closer.Open(typ); ok {
			p, found, err := c.closeGenericLocked(typ, def, args)
			if found || err != nil {
				return p, err
			}
		}
	}

	if typ.Kind() == reflect.Slice && c.resolveUnregisteredCollections {
		p := &producer{kind: kindCollection, scope: ScopeTransient, sliceType: typ}
		c.addProducerLocked(p)
		return p, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, typ)
}

// closeGenericLocked 优先使用最后追加且匹配的闭合实现，其次使用开放映射。
func (c *container) closeGenericLocked(typ reflect.Type, def OpenGeneric, args []reflect.Type) (*producer, bool, error) {
	closed := c.openClosed[def]
	for i := len(closed) - 1; i >= 0; i-- {
		if closed[i].typ.AssignableTo(typ) {
			p, err := c.implProducerLocked(closed[i].typ, closed[i].scope)
			return p, true, err
		}
	}

	m, ok := c.openMappings[def]
	if !ok {
		return nil, false, nil
	}
	implType, ok := c.closer.Close(m.impl, args)
	if !ok {
		return nil, true, fmt.Errorf("%w: %s has no closing for %v", ErrServiceNotFound, m.impl, args)
	}
	if !implType.AssignableTo(typ) {
		return nil, true, fmt.Errorf("%w: %v is not assignable to %v", ErrInvalidRegistration, implType, typ)
	}
	p, err := c.implProducerLocked(implType, m.scope)
	return p, true, err
}

func (c *container) openCollectionLocked(sliceType reflect.Type, items []CollectionItem, args []reflect.Type) (*producer, error) {
	elem := sliceType.Elem()
	p := &producer{kind: kindCollection, scope: ScopeTransient, sliceType: sliceType}

	for _, item := range items {
		implType := item.Type
		if implType == nil {
			t, ok := c.closer.Close(item.Open, args)
			if !ok {
				continue
			}
			implType = t
		}
		if !implType.AssignableTo(elem) {
			continue
		}
		member, err := c.implProducerLocked(implType, item.Scope)
		if err != nil {
			return nil, err
		}
		p.members = append(p.members, member)
	}

	c.addProducerLocked(p)
	return p, nil
}

// implProducerLocked 返回 (impl, scope) 共享的结构体 producer。
func (c *container) implProducerLocked(impl reflect.Type, scope ScopeType) (*producer, error) {
	key := implKey{typ: impl, scope: scope}
	if p, ok := c.byImpl[key]; ok {
		return p, nil
	}

	if impl.Kind() == reflect.Interface {
		return nil, fmt.Errorf("%w: cannot construct interface %v", ErrInvalidRegistration, impl)
	}
	schema, err := analyzeStruct(impl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrInvalidRegistration, impl, err)
	}

	p := &producer{kind: kindStruct, scope: scope, implType: impl, schema: schema}
	c.addProducerLocked(p)
	c.byImpl[key] = p
	return p, nil
}

func (c *container) addProducerLocked(p *producer) {
	p.id = len(c.producers)
	c.producers = append(c.producers, p)
}

func (c *container) setLocked(service reflect.Type, p *producer) error {
	if _, exists := c.services[service]; exists {
		if !c.allowOverriding {
			return fmt.Errorf("%w: %v", ErrAlreadyRegistered, service)
		}
	} else {
		c.order = append(c.order, service)
	}
	c.services[service] = p
	return nil
}

func (c *container) producerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.producers)
}

func (c *container) track(instance any) {
	if !isDisposable(instance) {
		return
	}
	c.mu.Lock()
	c.disposables = append(c.disposables, instance)
	c.mu.Unlock()
}

// rootResolver 是根容器的解析入口，携带用于查找当前作用域的上下文。
type rootResolver struct {
	c   *container
	ctx context.Context
}

func (r *rootResolver) Get(typ reflect.Type) (any, error) {
	return r.c.resolve(r, typ, nil)
}

func (r *rootResolver) Context() context.Context {
	return r.ctx
}

func (r *rootResolver) owner() *scope {
	return nil
}

func (r *rootResolver) resolvePath(typ reflect.Type, path []int) (any, error) {
	return r.c.resolve(r, typ, path)
}
