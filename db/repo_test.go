package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/models"
	"rfid_tool_kiosk/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *db.Repo {
	t.Helper()
	return db.NewRepo(testdb.OpenSQLite(t), time.Second)
}

func TestStudentUniqueKeys(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	testdb.Student(t, repo, "Budi Santoso", "1234567890", "STUDENT001")

	err := repo.CreateStudent(ctx, &models.Student{Name: "Other", NIM: "1234567890", Email: "o@example.com", Phone: "1", RFIDUID: "STUDENT999"})
	require.Error(t, err)
	assert.Equal(t, apperr.ConstraintViolation, apperr.KindOf(err))
	assert.Equal(t, "nim", apperr.FieldOf(err))

	err = repo.CreateStudent(ctx, &models.Student{Name: "Other", NIM: "999", Email: "o@example.com", Phone: "1", RFIDUID: "STUDENT001"})
	require.Error(t, err)
	assert.Equal(t, "rfid_uid", apperr.FieldOf(err))
}

func TestStudentLookups(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	s := testdb.Student(t, repo, "Budi Santoso", "1234567890", "STUDENT001")

	got, err := repo.FindStudentByUID(ctx, "STUDENT001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)

	got, err = repo.FindStudentByNIM(ctx, "1234567890")
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = repo.FindStudentByUID(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.FindStudentByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateStudentAndPhoto(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	s := testdb.Student(t, repo, "Budi Santoso", "1234567890", "STUDENT001")

	err := repo.UpdateStudent(ctx, 999, map[string]any{"name": "x"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	data, mime, err := repo.StudentPhoto(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Empty(t, mime)

	require.NoError(t, repo.AttachStudentPhoto(ctx, s.ID, []byte{0xff, 0xd8, 0xff}, "image/jpeg"))
	data, mime, err = repo.StudentPhoto(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
	assert.Equal(t, "image/jpeg", mime)

	err = repo.AttachStudentPhoto(ctx, 999, []byte{1}, "image/png")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListStudents(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	a := testdb.Student(t, repo, "Citra Dewi", "2000000001", "C1")
	testdb.Student(t, repo, "Andi Wijaya", "2000000002", "C2")
	testdb.Student(t, repo, "Budi Santoso", "3000000003", "C3")
	require.NoError(t, repo.AttachStudentPhoto(ctx, a.ID, []byte{1, 2}, "image/png"))

	res, err := repo.ListStudents(ctx, "", 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	require.Len(t, res.Students, 2)
	assert.Equal(t, "Andi Wijaya", res.Students[0].Name)
	assert.Equal(t, "Budi Santoso", res.Students[1].Name)

	res, err = repo.ListStudents(ctx, "2000", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	res, err = repo.ListStudents(ctx, "citra", 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Students, 1)
	assert.True(t, res.Students[0].HasPhoto)
	assert.Nil(t, res.Students[0].PhotoData)
	assert.Equal(t, models.StudentPhotoURL(a.ID), res.Students[0].PhotoURL())
}

func TestCreateToolDefaultsAndName(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	tool := &models.Tool{Name: "  Hammer ", RFIDUID: "TOOL001"}
	require.NoError(t, repo.CreateTool(ctx, tool))
	assert.Equal(t, "Hammer", tool.Name)
	assert.Equal(t, models.DefaultCategory, tool.Category)
	assert.Equal(t, models.ToolAvailable, tool.Status)

	err := repo.CreateTool(ctx, &models.Tool{Name: "HAMMER", RFIDUID: "TOOL002"})
	assert.Equal(t, apperr.ConstraintViolation, apperr.KindOf(err))
	assert.Equal(t, "name", apperr.FieldOf(err))

	err = repo.CreateTool(ctx, &models.Tool{Name: "Wrench", RFIDUID: "TOOL001"})
	assert.Equal(t, "rfid_uid", apperr.FieldOf(err))

	got, err := repo.FindToolByUID(ctx, "TOOL001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tool.ID, got.ID)
}

func TestUpdateToolRejectsStatus(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	tool := testdb.Tool(t, repo, "Hammer", "TOOL001")

	err := repo.UpdateTool(ctx, tool.ID, map[string]any{"status": models.ToolBorrowed})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	require.NoError(t, repo.UpdateTool(ctx, tool.ID, map[string]any{"category": "Power Tools"}))
	got, err := repo.FindToolByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, "Power Tools", got.Category)
	assert.Equal(t, models.ToolAvailable, got.Status)

	err = repo.UpdateTool(ctx, 999, map[string]any{"name": "x"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestOneOpenTransactionPerTool(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	a := testdb.Student(t, repo, "Andi", "1000000001", "S1")
	b := testdb.Student(t, repo, "Budi", "1000000002", "S2")
	tool := testdb.Tool(t, repo, "Hammer", "TOOL001")

	open := func(s *models.Student) *models.Transaction {
		return &models.Transaction{
			StudentID: s.ID, StudentName: s.Name,
			ToolID: tool.ID, ToolName: tool.Name,
			BorrowTime: time.Now().UTC(), Status: models.TxBorrowed,
		}
	}

	first := open(a)
	require.NoError(t, repo.CreateTransaction(ctx, first))

	err := repo.CreateTransaction(ctx, open(b))
	require.Error(t, err)
	assert.Equal(t, apperr.ConstraintViolation, apperr.KindOf(err))
	assert.Equal(t, "tool_id", apperr.FieldOf(err))

	// once returned, the tool can be opened again
	require.NoError(t, repo.MarkTransactionReturned(ctx, first.ID, time.Now().UTC()))
	require.NoError(t, repo.CreateTransaction(ctx, open(b)))

	// returned transactions are immutable
	err = repo.MarkTransactionReturned(ctx, first.ID, time.Now().UTC())
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestTransactionForeignKeys(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	tool := testdb.Tool(t, repo, "Hammer", "TOOL001")

	err := repo.CreateTransaction(ctx, &models.Transaction{
		StudentID: 999, StudentName: "ghost",
		ToolID: tool.ID, ToolName: tool.Name,
		BorrowTime: time.Now().UTC(), Status: models.TxBorrowed,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	s := testdb.Student(t, repo, "Andi", "1000000001", "S1")
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	var ids []uint
	for i := 0; i < 4; i++ {
		tool := testdb.Tool(t, repo, "Tool "+string(rune('A'+i)), "T"+string(rune('A'+i)))
		tx := &models.Transaction{
			StudentID: s.ID, StudentName: s.Name,
			ToolID: tool.ID, ToolName: tool.Name,
			BorrowTime: base.AddDate(0, 0, i), Status: models.TxBorrowed,
		}
		require.NoError(t, repo.CreateTransaction(ctx, tx))
		ids = append(ids, tx.ID)
	}

	all, err := repo.ListTransactions(ctx, db.TransactionQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[3], all[0].ID)
	assert.Equal(t, ids[0], all[3].ID)

	limited, err := repo.ListTransactions(ctx, db.TransactionQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	start := base.AddDate(0, 0, 1)
	end := base.AddDate(0, 0, 2)
	ranged, err := repo.ListTransactions(ctx, db.TransactionQuery{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, ids[2], ranged[0].ID)
	assert.Equal(t, ids[1], ranged[1].ID)
}

func TestListToolsWithBorrowers(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	s := testdb.Student(t, repo, "Andi", "1000000001", "S1")
	wrench := testdb.Tool(t, repo, "Wrench", "TOOL002")
	hammer := testdb.Tool(t, repo, "Hammer", "TOOL001")

	borrowedAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tx := &models.Transaction{
		StudentID: s.ID, StudentName: s.Name,
		ToolID: wrench.ID, ToolName: wrench.Name,
		BorrowTime: borrowedAt, Status: models.TxBorrowed,
	}
	require.NoError(t, repo.CreateTransaction(ctx, tx))
	require.NoError(t, repo.SetToolStatus(ctx, wrench.ID, models.ToolBorrowed))

	rows, err := repo.ListToolsWithBorrowers(ctx, db.ToolsStatusQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, hammer.ID, rows[0].ID)
	assert.Nil(t, rows[0].BorrowerName)
	assert.Nil(t, rows[0].BorrowTime)
	assert.Nil(t, rows[0].BorrowerContact)

	assert.Equal(t, wrench.ID, rows[1].ID)
	assert.Equal(t, models.ToolBorrowed, rows[1].Status)
	require.NotNil(t, rows[1].BorrowerName)
	assert.Equal(t, "Andi", *rows[1].BorrowerName)
	require.NotNil(t, rows[1].BorrowerNIM)
	assert.Equal(t, "1000000001", *rows[1].BorrowerNIM)
	require.NotNil(t, rows[1].TransactionID)
	assert.Equal(t, tx.ID, *rows[1].TransactionID)
	require.NotNil(t, rows[1].BorrowTime)
	assert.True(t, borrowedAt.Equal(*rows[1].BorrowTime))

	private, err := repo.ListToolsWithBorrowers(ctx, db.ToolsStatusQuery{IncludePrivate: true})
	require.NoError(t, err)
	require.NotNil(t, private[1].BorrowerContact)
	require.NotNil(t, private[1].BorrowerEmail)
	assert.Equal(t, s.Email, *private[1].BorrowerEmail)
	require.NotNil(t, private[1].BorrowerPhotoURL)
	assert.Empty(t, *private[1].BorrowerPhotoURL)
	require.NotNil(t, private[0].BorrowerContact)
	assert.Nil(t, private[0].BorrowerEmail)

	paged, err := repo.ListToolsWithBorrowers(ctx, db.ToolsStatusQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, wrench.ID, paged[0].ID)
}

func TestWithToolLockRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	tool := testdb.Tool(t, repo, "Hammer", "TOOL001")

	boom := errors.New("boom")
	err := repo.WithToolLock(ctx, tool.ID, func(tx *db.Repo) error {
		locked, err := tx.LockTool(ctx, tool.ID)
		require.NoError(t, err)
		require.NotNil(t, locked)
		require.NoError(t, tx.SetToolStatus(ctx, tool.ID, models.ToolBorrowed))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.FindToolByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToolAvailable, got.Status)
}

func TestWithToolLockBusy(t *testing.T) {
	ctx := context.Background()
	repo := db.NewRepo(testdb.OpenSQLite(t), 50*time.Millisecond)
	tool := testdb.Tool(t, repo, "Hammer", "TOOL001")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.WithToolLock(ctx, tool.ID, func(*db.Repo) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := repo.WithToolLock(ctx, tool.ID, func(*db.Repo) error {
		t.Error("second unit of work must not run while the tool is held")
		return nil
	})
	assert.Equal(t, apperr.Busy, apperr.KindOf(err))

	close(release)
	require.NoError(t, <-done)

	// lock is free again
	require.NoError(t, repo.WithToolLock(ctx, tool.ID, func(*db.Repo) error { return nil }))
}

func TestWithToolLockSQLiteWaitIsBounded(t *testing.T) {
	ctx := context.Background()
	repo := db.NewRepo(testdb.OpenSQLite(t), 100*time.Millisecond)
	first := testdb.Tool(t, repo, "Hammer", "TOOL001")
	second := testdb.Tool(t, repo, "Saw", "TOOL002")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.WithToolLock(ctx, first.ID, func(tx *db.Repo) error {
			if _, err := tx.LockTool(ctx, first.ID); err != nil {
				return err
			}
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	// the only connection is held: another tool gets Busy after the timeout
	start := time.Now()
	err := repo.WithToolLock(ctx, second.ID, func(*db.Repo) error {
		t.Error("unit of work must not start while the connection is held")
		return nil
	})
	assert.Equal(t, apperr.Busy, apperr.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, repo.WithToolLock(ctx, second.ID, func(*db.Repo) error { return nil }))
}
