package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTransactions() []models.Transaction {
	borrowed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	returned := borrowed.Add(2 * time.Hour)
	return []models.Transaction{
		{ID: 2, StudentID: 1, StudentName: "Budi, S.T.", ToolID: 3, ToolName: "Hammer", BorrowTime: borrowed, Status: models.TxBorrowed},
		{ID: 1, StudentID: 1, StudentName: "Budi, S.T.", ToolID: 4, ToolName: "Wrench", BorrowTime: borrowed, ReturnTime: &returned, Status: models.TxReturned},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	f, err = ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "transactions_20240301_093000.xlsx", XLSX.Filename("transactions", at))
	assert.Equal(t, "text/csv; charset=utf-8", CSV.ContentType())
}

func TestWriteTransactionsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, CSV, sampleTransactions()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, transactionHeader, recs[0])
	assert.Equal(t, []string{"2", "1", "Budi, S.T.", "3", "Hammer", "2024-03-01T09:00:00Z", "", "borrowed"}, recs[1])
	assert.Equal(t, "2024-03-01T11:00:00Z", recs[2][6])
}

func TestWriteTransactionsXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, XLSX, sampleTransactions()))

	x, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer x.Close()

	rows, err := x.GetRows("Transactions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, transactionHeader, rows[0])
	assert.Equal(t, "Hammer", rows[1][4])
	assert.Equal(t, "returned", rows[2][7])
}

func TestWriteToolsStatusCSV(t *testing.T) {
	name, nim, email := "Budi", "1234567890", "budi@example.com"
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := []db.ToolStatusRow{
		{ID: 1, Name: "Hammer", RFIDUID: "TOOL001", Category: "Hand Tools", Status: models.ToolAvailable},
		{
			ID: 2, Name: "Wrench", RFIDUID: "TOOL002", Category: "Hand Tools", Status: models.ToolBorrowed,
			BorrowerName: &name, BorrowerNIM: &nim, BorrowTime: &at,
			BorrowerContact: &db.BorrowerContact{BorrowerEmail: &email},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteToolsStatus(&buf, CSV, rows))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"1", "Hammer", "TOOL001", "Hand Tools", "available", "", "", "", ""}, recs[1])
	assert.Equal(t, []string{"2", "Wrench", "TOOL002", "Hand Tools", "borrowed", "Budi", "1234567890", "budi@example.com", "2024-03-01T09:00:00Z"}, recs[2])
}
