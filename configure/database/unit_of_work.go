package database

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
)

// ErrUnitOfWorkCompleted 事务已提交或回滚后再次使用
var ErrUnitOfWorkCompleted = errors.New("database: unit of work already completed")

// UnitOfWork 是作用域内共享的数据库事务。
// 事务在首次 Tx 时开启；作用域释放时若未提交则回滚。
type UnitOfWork struct {
	db *gorm.DB

	mu        sync.Mutex
	tx        *gorm.DB
	completed bool
}

// NewUnitOfWork 基于 db 创建工作单元
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Tx 返回当前事务，没有时开启
func (u *UnitOfWork) Tx(ctx context.Context) (*gorm.DB, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.completed {
		return nil, ErrUnitOfWorkCompleted
	}
	if u.tx == nil {
		tx := u.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return nil, tx.Error
		}
		u.tx = tx
	}
	return u.tx, nil
}

// Commit 提交事务；未开启事务时只标记完成
func (u *UnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.completed {
		return ErrUnitOfWorkCompleted
	}
	u.completed = true
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit().Error
}

// Rollback 回滚事务
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rollbackLocked()
}

func (u *UnitOfWork) rollbackLocked() error {
	if u.completed {
		return nil
	}
	u.completed = true
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback().Error
}

// Dispose 回滚未提交的事务
func (u *UnitOfWork) Dispose() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rollbackLocked()
}
