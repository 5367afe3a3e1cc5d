package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type Box[T any] interface{ Value() T }

type memBox[T any] struct{ v T }

func (b *memBox[T]) Value() T { return b.v }

var BoxDef = NewGeneric("Box", 1)
var MemBoxDef = NewGeneric("memBox", 1)

func TestServiceCollection_PreservesOrder(t *testing.T) {
	sc := NewServiceCollection()
	AddSingleton[Greeter, *englishGreeter](sc)
	AddTransient[Greeter, englishGreeter](sc)
	AddInstance[string](sc, "value")

	descs := sc.Descriptors()
	require.Len(t, descs, 3)
	assert.Equal(t, Singleton, descs[0].Lifetime)
	assert.Equal(t, TypeOf[*englishGreeter](), descs[0].ImplementationType)
	assert.Equal(t, Transient, descs[1].Lifetime)
	assert.Equal(t, "value", descs[2].ImplementationInstance)
	assert.False(t, descs[2].HasImplementationType())
}

func TestServiceCollection_TryAdd(t *testing.T) {
	sc := NewServiceCollection()
	assert.True(t, sc.TryAdd(Describe(TypeOf[Greeter](), TypeOf[*englishGreeter](), Scoped)))
	assert.False(t, sc.TryAdd(Describe(TypeOf[Greeter](), TypeOf[englishGreeter](), Scoped)))
	assert.Equal(t, 1, sc.Len())
	assert.True(t, sc.Contains(TypeOf[Greeter]()))
	assert.False(t, sc.Contains(TypeOf[string]()))
}

func TestServiceCollection_DescriptorsIsSnapshot(t *testing.T) {
	sc := NewServiceCollection()
	AddInstance[int](sc, 1)
	snapshot := sc.Descriptors()
	AddInstance[int](sc, 2)
	assert.Len(t, snapshot, 1)
	assert.Equal(t, 2, sc.Len())
}

func TestTypeKey(t *testing.T) {
	open := Open(BoxDef)
	assert.True(t, open.IsGenericTypeDefinition())
	assert.Nil(t, open.Type())
	assert.Equal(t, "Box`1", open.String())

	closed := TypeOf[Box[int]]()
	assert.False(t, closed.IsGenericTypeDefinition())
	assert.Equal(t, reflect.TypeOf((*Box[int])(nil)).Elem(), closed.Type())
	assert.Equal(t, closed, KeyOf(closed.Type()))

	assert.True(t, TypeKey{}.IsZero())
	assert.Panics(t, func() { NewGeneric("bad", 0) })
}

func TestGenericRegistry(t *testing.T) {
	sc := NewServiceCollection()
	intType := reflect.TypeOf(0)
	strType := reflect.TypeOf("")

	require.NoError(t, RegisterClosing[Box[int]](sc, BoxDef, intType))
	require.NoError(t, RegisterClosing[Box[string]](sc, BoxDef, strType))
	require.NoError(t, RegisterClosing[*memBox[int]](sc, MemBoxDef, intType))
	// 重复声明相同闭合不报错
	require.NoError(t, RegisterClosing[Box[int]](sc, BoxDef, intType))

	closed, ok := sc.Generics().Close(BoxDef, []reflect.Type{strType})
	require.True(t, ok)
	assert.Equal(t, TypeOf[Box[string]]().Type(), closed)

	def, args, ok := sc.Generics().Open(TypeOf[*memBox[int]]().Type())
	require.True(t, ok)
	assert.Equal(t, MemBoxDef, def)
	assert.Equal(t, []reflect.Type{intType}, args)

	_, ok = sc.Generics().Close(MemBoxDef, []reflect.Type{strType})
	assert.False(t, ok)
	assert.Len(t, sc.Generics().Closings(BoxDef), 2)
}

func TestGenericRegistry_Errors(t *testing.T) {
	sc := NewServiceCollection()
	intType := reflect.TypeOf(0)

	err := RegisterClosing[Box[int]](sc, BoxDef, intType, intType)
	assert.True(t, errors.Is(err, ErrArityMismatch))

	require.NoError(t, RegisterClosing[Box[int]](sc, BoxDef, intType))
	err = RegisterClosing[Box[int]](sc, MemBoxDef, intType)
	assert.True(t, errors.Is(err, ErrClosingConflict))

	err = RegisterClosing[Box[string]](sc, BoxDef, intType)
	assert.True(t, errors.Is(err, ErrClosingConflict))
}

type mapProvider map[reflect.Type]any

func (m mapProvider) GetService(t reflect.Type) (any, error) {
	v, ok := m[t]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func TestGetHelpers(t *testing.T) {
	p := mapProvider{
		TypeOf[Greeter]().Type():   englishGreeter{},
		TypeOf[[]Greeter]().Type(): []Greeter{englishGreeter{}, englishGreeter{}},
		TypeOf[int]().Type():       "not an int",
	}

	g, err := Get[Greeter](p)
	require.NoError(t, err)
	assert.Equal(t, "hello", g.Greet())

	all, err := GetAll[Greeter](p)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = Get[int](p)
	assert.True(t, errors.Is(err, ErrUnexpectedType))

	assert.Panics(t, func() { MustGet[string](p) })
}

func TestFactoryHelpers(t *testing.T) {
	sc := NewServiceCollection()
	AddScopedFactory(sc, func(ServiceProvider) (Greeter, error) { return englishGreeter{}, nil })
	AddOpenGeneric(sc, BoxDef, MemBoxDef, Transient)
	AddClosedGeneric[*memBox[int]](sc, BoxDef, Scoped)

	descs := sc.Descriptors()
	require.Len(t, descs, 3)

	v, err := descs[0].ImplementationFactory(nil)
	require.NoError(t, err)
	assert.Equal(t, englishGreeter{}, v)
	assert.Equal(t, Scoped, descs[0].Lifetime)

	assert.True(t, descs[1].ServiceType.IsGenericTypeDefinition())
	assert.True(t, descs[1].ImplementationType.IsGenericTypeDefinition())
	assert.False(t, descs[2].ImplementationType.IsGenericTypeDefinition())
	assert.Equal(t, "ServiceLifetime(7)", ServiceLifetime(7).String())
}
