package lending

import (
	"context"
	"strings"
	"time"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/models"
)

// Lookup is the read side used by the scan flow and the status screens.
// Reads take no locks and may be slightly stale.
type Lookup struct {
	repo *db.Repo
}

func NewLookup(repo *db.Repo) *Lookup { return &Lookup{repo: repo} }

// FindStudentByCardUID returns nil when no student holds the card.
func (l *Lookup) FindStudentByCardUID(ctx context.Context, uid string) (*models.Student, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, nil
	}
	return l.repo.FindStudentByUID(ctx, uid)
}

// FindToolByTagUID returns nil when no tool carries the tag.
func (l *Lookup) FindToolByTagUID(ctx context.Context, uid string) (*models.Tool, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, nil
	}
	return l.repo.FindToolByUID(ctx, uid)
}

func (l *Lookup) ListToolsWithBorrowers(ctx context.Context, includePrivate bool, limit, offset int) ([]db.ToolStatusRow, error) {
	if limit < 0 || offset < 0 {
		return nil, apperr.New(apperr.Validation, "limit and offset must not be negative")
	}
	return l.repo.ListToolsWithBorrowers(ctx, db.ToolsStatusQuery{
		IncludePrivate: includePrivate,
		Limit:          limit,
		Offset:         offset,
	})
}

// ListTransactions returns newest first, optionally bounded by borrow time
// (inclusive on both ends).
func (l *Lookup) ListTransactions(ctx context.Context, start, end *time.Time, limit int) ([]models.Transaction, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, apperr.New(apperr.Validation, "start must not be after end")
	}
	if limit < 0 {
		return nil, apperr.New(apperr.Validation, "limit must not be negative")
	}
	return l.repo.ListTransactions(ctx, db.TransactionQuery{Start: start, End: end, Limit: limit})
}
