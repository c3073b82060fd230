// Package report renders transaction history and tool status as CSV or XLSX
// downloads.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/models"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename is e.g. transactions_20240301_093000.xlsx.
func (f Format) Filename(base string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, at.UTC().Format("20060102_150405"), f)
}

var (
	transactionHeader = []string{"Transaction ID", "Student ID", "Student Name", "Tool ID", "Tool Name", "Borrow Time", "Return Time", "Status"}
	toolStatusHeader  = []string{"Tool ID", "Name", "RFID UID", "Category", "Status", "Borrower", "Borrower NIM", "Borrower Email", "Borrow Time"}
)

func transactionRecords(txs []models.Transaction) [][]string {
	out := make([][]string, 0, len(txs))
	for _, t := range txs {
		out = append(out, []string{
			uitoa(t.ID),
			uitoa(t.StudentID),
			t.StudentName,
			uitoa(t.ToolID),
			t.ToolName,
			stamp(&t.BorrowTime),
			stamp(t.ReturnTime),
			string(t.Status),
		})
	}
	return out
}

func toolStatusRecords(rows []db.ToolStatusRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		email := ""
		if r.BorrowerContact != nil {
			email = deref(r.BorrowerEmail)
		}
		out = append(out, []string{
			uitoa(r.ID),
			r.Name,
			r.RFIDUID,
			r.Category,
			string(r.Status),
			deref(r.BorrowerName),
			deref(r.BorrowerNIM),
			email,
			stamp(r.BorrowTime),
		})
	}
	return out
}

func WriteTransactions(w io.Writer, f Format, txs []models.Transaction) error {
	return write(w, f, "Transactions", transactionHeader, transactionRecords(txs))
}

func WriteToolsStatus(w io.Writer, f Format, rows []db.ToolStatusRow) error {
	return write(w, f, "Tools", toolStatusHeader, toolStatusRecords(rows))
}

func write(w io.Writer, f Format, sheet string, header []string, records [][]string) error {
	if f == XLSX {
		return writeXLSX(w, sheet, header, records)
	}
	return writeCSV(w, header, records)
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, sheet string, header []string, records [][]string) error {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	sw, err := x.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	bold, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return err
	}
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return x.Write(w)
}

func uitoa(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
