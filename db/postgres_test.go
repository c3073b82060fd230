package db_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/lending"
	"rfid_tool_kiosk/models"
	"rfid_tool_kiosk/testing/testdb"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two Repos on separate pools behave like two kiosk processes: their
// in-process tool locks are independent, so only the row lock orders them.
func postgresInstances(t *testing.T, lockTimeout time.Duration) (*db.Repo, *db.Repo) {
	t.Helper()
	dsn := testdb.PostgresDSN(t)
	return db.NewRepo(testdb.OpenPostgres(t, dsn), lockTimeout),
		db.NewRepo(testdb.OpenPostgres(t, dsn), lockTimeout)
}

func TestPostgresBorrowSingleWinnerAcrossInstances(t *testing.T) {
	ctx := context.Background()
	a, b := postgresInstances(t, 5*time.Second)

	tool := testdb.Tool(t, a, "Hammer", "TOOL001")
	const n = 8
	students := make([]*models.Student, n)
	for i := range students {
		students[i] = testdb.Student(t, a, fmt.Sprintf("Student %d", i), fmt.Sprintf("10000000%02d", i), fmt.Sprintf("S%d", i))
	}
	engines := []*lending.Engine{
		lending.NewEngine(a, nil, zerolog.Nop()),
		lending.NewEngine(b, nil, zerolog.Nop()),
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = engines[i%2].Borrow(ctx, students[i].ID, tool.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err), err)
		assert.Equal(t, lending.MsgToolUnavailable, apperr.Message(err))
	}
	assert.Equal(t, 1, wins)

	got, err := b.FindToolByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToolBorrowed, got.Status)

	txs, err := b.ListTransactions(ctx, db.TransactionQuery{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestPostgresLockTimeoutIsBusy(t *testing.T) {
	ctx := context.Background()
	holder, waiter := postgresInstances(t, 200*time.Millisecond)
	tool := testdb.Tool(t, holder, "Hammer", "TOOL001")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.WithToolLock(ctx, tool.ID, func(tx *db.Repo) error {
			if _, err := tx.LockTool(ctx, tool.ID); err != nil {
				return err
			}
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	lockRow := func(tx *db.Repo) error {
		_, err := tx.LockTool(ctx, tool.ID)
		return err
	}

	began := time.Now()
	err := waiter.WithToolLock(ctx, tool.ID, lockRow)
	assert.Equal(t, apperr.Busy, apperr.KindOf(err), err)
	assert.Less(t, time.Since(began), 2*time.Second)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, waiter.WithToolLock(ctx, tool.ID, lockRow))
}

func TestPostgresOpenIndexBacksUpToolStatus(t *testing.T) {
	ctx := context.Background()
	a, b := postgresInstances(t, time.Second)
	s1 := testdb.Student(t, a, "Andi", "1000000001", "S1")
	s2 := testdb.Student(t, a, "Budi", "1000000002", "S2")
	tool := testdb.Tool(t, a, "Hammer", "TOOL001")

	// an open transaction the tool status does not reflect
	require.NoError(t, a.CreateTransaction(ctx, &models.Transaction{
		StudentID: s1.ID, StudentName: s1.Name,
		ToolID: tool.ID, ToolName: tool.Name,
		BorrowTime: time.Now().UTC(), Status: models.TxBorrowed,
	}))

	err := b.CreateTransaction(ctx, &models.Transaction{
		StudentID: s2.ID, StudentName: s2.Name,
		ToolID: tool.ID, ToolName: tool.Name,
		BorrowTime: time.Now().UTC(), Status: models.TxBorrowed,
	})
	assert.Equal(t, apperr.ConstraintViolation, apperr.KindOf(err))
	assert.Equal(t, "tool_id", apperr.FieldOf(err))

	_, err = lending.NewEngine(b, nil, zerolog.Nop()).Borrow(ctx, s2.ID, tool.ID)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, lending.MsgToolUnavailable, apperr.Message(err))

	got, err := b.FindToolByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToolAvailable, got.Status)
}
