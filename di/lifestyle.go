package di

import "context"

type scopeKey struct{}

// WithScope 返回以 s 为当前作用域的上下文
func WithScope(ctx context.Context, s Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext 返回上下文中的当前作用域
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok && s != nil
}

// ScopedLifestyle 在没有显式作用域时为 Scoped 服务提供当前作用域。
// 返回 false 时解析失败并报告 ErrNoActiveScope，容器不会为此创建作用域。
type ScopedLifestyle interface {
	CurrentScope(ctx context.Context) (Scope, bool)
}

// ContextLifestyle 从 context.Context 中读取当前作用域
type ContextLifestyle struct{}

// CurrentScope 实现 ScopedLifestyle
func (ContextLifestyle) CurrentScope(ctx context.Context) (Scope, bool) {
	return ScopeFromContext(ctx)
}
