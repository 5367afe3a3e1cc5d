package di

import (
	"errors"
	"fmt"
	"io"
)

// Disposable 由作用域或容器在释放时调用。
// 同时支持 io.Closer 和 Dispose() error。
type Disposable interface {
	Dispose()
}

type errDisposable interface {
	Dispose() error
}

func isDisposable(v any) bool {
	switch v.(type) {
	case io.Closer, errDisposable, Disposable:
		return true
	}
	return false
}

func disposeAll(list []any) error {
	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		if err := dispose(list[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func dispose(v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("di: dispose %T panicked: %v", v, r)
		}
	}()

	switch d := v.(type) {
	case io.Closer:
		return d.Close()
	case errDisposable:
		return d.Dispose()
	case Disposable:
		d.Dispose()
	}
	return nil
}
