package lending_test

import (
	"context"
	"testing"
	"time"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupByUID(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	s := testdb.Student(t, f.repo, "Andi", "1000000001", "STUDENT001")
	tool := testdb.Tool(t, f.repo, "Hammer", "TOOL001")

	got, err := f.lookup.FindStudentByCardUID(ctx, "  STUDENT001 ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)

	missing, err := f.lookup.FindStudentByCardUID(ctx, "TOOL001")
	require.NoError(t, err)
	assert.Nil(t, missing)

	empty, err := f.lookup.FindStudentByCardUID(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	gotTool, err := f.lookup.FindToolByTagUID(ctx, "TOOL001")
	require.NoError(t, err)
	require.NotNil(t, gotTool)
	assert.Equal(t, tool.ID, gotTool.ID)
}

func TestLookupListTransactions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	s := testdb.Student(t, f.repo, "Andi", "1000000001", "S1")
	a := testdb.Tool(t, f.repo, "Hammer", "TOOL001")
	b := testdb.Tool(t, f.repo, "Wrench", "TOOL002")

	_, err := f.engine.Borrow(ctx, s.ID, a.ID)
	require.NoError(t, err)
	second, err := f.engine.Borrow(ctx, s.ID, b.ID)
	require.NoError(t, err)

	txs, err := f.lookup.ListTransactions(ctx, nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, second.ID, txs[0].ID)

	start := time.Now().Add(time.Hour)
	end := time.Now()
	_, err = f.lookup.ListTransactions(ctx, &start, &end, 0)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = f.lookup.ListToolsWithBorrowers(ctx, false, -1, 0)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}
