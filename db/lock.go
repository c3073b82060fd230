package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/models"

	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// toolLocks serializes units of work per tool id inside this process. It is
// only a complement to the row lock: across instances, SELECT ... FOR UPDATE
// on postgres is what keeps borrow/return ordered.
type toolLocks struct {
	mu sync.Mutex
	m  map[uint]*toolLock
}

type toolLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newToolLocks() *toolLocks { return &toolLocks{m: make(map[uint]*toolLock)} }

func (l *toolLocks) acquire(ctx context.Context, id uint) (func(), error) {
	l.mu.Lock()
	tl, ok := l.m[id]
	if !ok {
		tl = &toolLock{sem: semaphore.NewWeighted(1)}
		l.m[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	if err := tl.sem.Acquire(ctx, 1); err != nil {
		l.unref(id, tl)
		return nil, err
	}
	return func() {
		tl.sem.Release(1)
		l.unref(id, tl)
	}, nil
}

func (l *toolLocks) unref(id uint, tl *toolLock) {
	l.mu.Lock()
	tl.refs--
	if tl.refs == 0 {
		delete(l.m, id)
	}
	l.mu.Unlock()
}

var ErrToolBusy = apperr.New(apperr.Busy, "tool is busy, retry")

// WithToolLock runs fn as one unit of work that owns the given tool id.
// fn receives a Repo bound to the database transaction; returning an error
// rolls back every write made through it.
func (r *Repo) WithToolLock(ctx context.Context, toolID uint, fn func(tx *Repo) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	release, err := r.locks.acquire(lockCtx, toolID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrToolBusy
	}
	defer release()

	// sqlite serializes every unit of work on one connection; wait for it
	// within the same budget instead of queueing in the pool unbounded
	if r.writer != nil {
		if err := r.writer.Acquire(lockCtx, 1); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrToolBusy
		}
		defer r.writer.Release(1)
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.dialect == DriverPostgres {
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())).Error; err != nil {
				return err
			}
		}
		return fn(r.bind(tx))
	})
	return translate(err)
}

// LockTool loads a tool with an exclusive row lock. Returns nil when absent.
// Only meaningful inside WithToolLock.
func (r *Repo) LockTool(ctx context.Context, id uint) (*models.Tool, error) {
	var t models.Tool
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}
