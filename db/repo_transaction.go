package db

import (
	"context"
	"errors"
	"time"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/models"

	"gorm.io/gorm"
)

// Transactions

func (r *Repo) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return translate(r.DB.WithContext(ctx).Create(t).Error)
}

func (r *Repo) FindTransactionByID(ctx context.Context, id uint) (*models.Transaction, error) {
	return firstTransaction(r.DB.WithContext(ctx).Where("id = ?", id))
}

// FindOpenTransaction returns the borrowed transaction for the pair, or nil.
func (r *Repo) FindOpenTransaction(ctx context.Context, studentID, toolID uint) (*models.Transaction, error) {
	return firstTransaction(r.DB.WithContext(ctx).
		Where("student_id = ? AND tool_id = ? AND status = ?", studentID, toolID, models.TxBorrowed).
		Order("borrow_time DESC"))
}

// FindOpenTransactionForTool returns the borrowed transaction on a tool, by anyone.
func (r *Repo) FindOpenTransactionForTool(ctx context.Context, toolID uint) (*models.Transaction, error) {
	return firstTransaction(r.DB.WithContext(ctx).
		Where("tool_id = ? AND status = ?", toolID, models.TxBorrowed))
}

func firstTransaction(q *gorm.DB) (*models.Transaction, error) {
	var t models.Transaction
	if err := q.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err)
	}
	return &t, nil
}

// MarkTransactionReturned closes an open transaction. The status guard keeps
// a returned transaction immutable.
func (r *Repo) MarkTransactionReturned(ctx context.Context, id uint, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TxBorrowed).
		Updates(map[string]any{
			"status":      models.TxReturned,
			"return_time": at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.Conflict, "no active borrow")
	}
	return nil
}

type TransactionQuery struct {
	Start *time.Time // inclusive, on borrow_time
	End   *time.Time // inclusive, on borrow_time
	Limit int        // 0 = no limit
}

// ListTransactions returns newest first by creation time.
func (r *Repo) ListTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Transaction{})
	if q.Start != nil {
		tx = tx.Where("borrow_time >= ?", q.Start.UTC())
	}
	if q.End != nil {
		tx = tx.Where("borrow_time <= ?", q.End.UTC())
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var out []models.Transaction
	if err := tx.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}
