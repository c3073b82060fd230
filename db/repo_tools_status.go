package db

import (
	"context"
	"time"

	"rfid_tool_kiosk/models"
)

// ToolStatusRow is one tool plus its current open transaction, if any.
type ToolStatusRow struct {
	ID        uint              `json:"tool_id"`
	Name      string            `json:"name"`
	RFIDUID   string            `json:"rfid_uid"`
	Category  string            `json:"category"`
	Status    models.ToolStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Current open transaction (nullable)
	TransactionID *uint      `json:"transaction_id"`
	BorrowerID    *uint      `json:"borrower_id"`
	BorrowerName  *string    `json:"borrower_name"`
	BorrowerNIM   *string    `json:"borrower_nim"`
	BorrowTime    *time.Time `json:"borrow_time"`

	// admin only; nil keeps the keys out of the public view
	*BorrowerContact
}

type BorrowerContact struct {
	BorrowerEmail    *string `json:"borrower_email"`
	BorrowerPhotoURL *string `json:"borrower_photo_url"`
}

type ToolsStatusQuery struct {
	IncludePrivate bool
	Limit          int // 0 = all
	Offset         int
}

type toolStatusScan struct {
	ID               uint
	Name             string
	RFIDUID          string `gorm:"column:rfid_uid"`
	Category         string
	Status           models.ToolStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	TransactionID    *uint
	BorrowerID       *uint
	BorrowerName     *string
	BorrowerNIM      *string `gorm:"column:borrower_nim"`
	BorrowTime       *time.Time
	BorrowerEmail    *string
	BorrowerHasPhoto *bool
}

// ListToolsWithBorrowers left-joins each tool with its open transaction and
// the borrowing student. The one-open-per-tool index keeps this at one row per
// tool. borrower_name is the snapshot stored on the transaction.
func (r *Repo) ListToolsWithBorrowers(ctx context.Context, q ToolsStatusQuery) ([]ToolStatusRow, error) {
	qry := r.DB.WithContext(ctx).
		Table(models.ToolTable+" t").
		Select(`
			t.id, t.name, t.rfid_uid, t.category, t.status, t.created_at, t.updated_at,
			tx.id           AS transaction_id,
			tx.student_id   AS borrower_id,
			tx.student_name AS borrower_name,
			tx.borrow_time  AS borrow_time,
			s.nim           AS borrower_nim,
			s.email         AS borrower_email,
			CASE WHEN s.id IS NULL THEN NULL WHEN s.photo_data IS NOT NULL THEN 1 ELSE 0 END AS borrower_has_photo
		`).
		Joins("LEFT JOIN "+models.TransactionTable+" tx ON tx.tool_id = t.id AND tx.status = ?", models.TxBorrowed).
		Joins("LEFT JOIN " + models.StudentTable + " s ON s.id = tx.student_id").
		Order("t.name ASC, t.id ASC")

	if q.Offset > 0 {
		qry = qry.Offset(q.Offset)
	}
	if q.Limit > 0 {
		qry = qry.Limit(q.Limit)
	}

	var scanned []toolStatusScan
	if err := qry.Scan(&scanned).Error; err != nil {
		return nil, translate(err)
	}

	rows := make([]ToolStatusRow, 0, len(scanned))
	for _, s := range scanned {
		row := ToolStatusRow{
			ID:            s.ID,
			Name:          s.Name,
			RFIDUID:       s.RFIDUID,
			Category:      s.Category,
			Status:        s.Status,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
			TransactionID: s.TransactionID,
			BorrowerID:    s.BorrowerID,
			BorrowerName:  s.BorrowerName,
			BorrowerNIM:   s.BorrowerNIM,
			BorrowTime:    s.BorrowTime,
		}
		if q.IncludePrivate {
			contact := &BorrowerContact{BorrowerEmail: s.BorrowerEmail}
			if s.BorrowerHasPhoto != nil && s.BorrowerID != nil {
				url := ""
				if *s.BorrowerHasPhoto {
					url = models.StudentPhotoURL(*s.BorrowerID)
				}
				contact.BorrowerPhotoURL = &url
			}
			row.BorrowerContact = contact
		}
		rows = append(rows, row)
	}
	return rows, nil
}
