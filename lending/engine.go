// Package lending holds the borrow/return state machine and the read-only
// lookups the kiosk runs before invoking it.
package lending

import (
	"context"
	"time"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/models"

	"github.com/rs/zerolog"
)

const (
	EventTransactionUpdate = "transaction_update"
	EventToolStatus        = "tool_status"
	EventRFIDScan          = "rfid_scan"
	EventSensorData        = "sensor_data"
)

// Stable user-facing messages.
const (
	MsgStudentNotFound = "student not found"
	MsgToolNotFound    = "tool not found"
	MsgToolUnavailable = "tool unavailable"
	MsgAlreadyBorrowed = "already borrowed by this student"
	MsgNoActiveBorrow  = "no active borrow"
)

// Notifier receives best-effort events after a transition commits.
type Notifier interface {
	Notify(eventType string, payload any)
}

type Engine struct {
	repo     *db.Repo
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(repo *db.Repo, notifier Notifier, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		notifier: notifier,
		log:      log.With().Str("component", "lending").Logger(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Borrow moves a tool from available to borrowed and opens a transaction
// for the student. Both writes commit together or not at all.
func (e *Engine) Borrow(ctx context.Context, studentID, toolID uint) (*models.Transaction, error) {
	var (
		created *models.Transaction
		tool    *models.Tool
	)
	err := e.repo.WithToolLock(ctx, toolID, func(tx *db.Repo) error {
		student, err := tx.FindStudentByID(ctx, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return apperr.New(apperr.NotFound, MsgStudentNotFound)
		}

		tool, err = tx.LockTool(ctx, toolID)
		if err != nil {
			return err
		}
		if tool == nil {
			return apperr.New(apperr.NotFound, MsgToolNotFound)
		}
		if tool.Status != models.ToolAvailable {
			return apperr.New(apperr.Conflict, MsgToolUnavailable)
		}

		open, err := tx.FindOpenTransaction(ctx, studentID, toolID)
		if err != nil {
			return err
		}
		if open != nil {
			return apperr.New(apperr.Conflict, MsgAlreadyBorrowed)
		}

		t := &models.Transaction{
			StudentID:   student.ID,
			StudentName: student.Name,
			ToolID:      tool.ID,
			ToolName:    tool.Name,
			BorrowTime:  e.now().UTC(),
			Status:      models.TxBorrowed,
		}
		if err := tx.CreateTransaction(ctx, t); err != nil {
			// the partial unique index fired: another open transaction exists
			if apperr.Is(err, apperr.ConstraintViolation) {
				return apperr.Wrap(apperr.Conflict, MsgToolUnavailable, err)
			}
			return err
		}
		if err := tx.SetToolStatus(ctx, tool.ID, models.ToolBorrowed); err != nil {
			return err
		}
		tool.Status = models.ToolBorrowed
		created = t
		return nil
	})
	if err != nil {
		e.logFailure(err, "borrow", studentID, toolID)
		return nil, err
	}

	e.log.Info().Uint("transaction_id", created.ID).Uint("student_id", studentID).Uint("tool_id", toolID).Msg("tool borrowed")
	e.notify(EventTransactionUpdate, map[string]any{
		"transaction_id": created.ID,
		"student_id":     created.StudentID,
		"tool_id":        created.ToolID,
		"status":         created.Status,
		"borrow_time":    created.BorrowTime,
	})
	e.notify(EventToolStatus, map[string]any{
		"tool_id": tool.ID,
		"name":    tool.Name,
		"status":  tool.Status,
	})
	return created, nil
}

type ReturnResult struct {
	TransactionID uint                     `json:"transaction_id"`
	Status        models.TransactionStatus `json:"status"`
	StudentID     uint                     `json:"student_id"`
	ToolID        uint                     `json:"tool_id"`
	ReturnTime    time.Time                `json:"return_time"`
}

// Return closes the student's open transaction on the tool and makes the
// tool available again.
func (e *Engine) Return(ctx context.Context, studentID, toolID uint) (*ReturnResult, error) {
	var (
		res  *ReturnResult
		tool *models.Tool
	)
	err := e.repo.WithToolLock(ctx, toolID, func(tx *db.Repo) error {
		var err error
		// an unknown tool has no open transaction either
		tool, err = tx.LockTool(ctx, toolID)
		if err != nil {
			return err
		}
		if tool == nil {
			return apperr.New(apperr.Conflict, MsgNoActiveBorrow)
		}

		open, err := tx.FindOpenTransaction(ctx, studentID, toolID)
		if err != nil {
			return err
		}
		if open == nil {
			return apperr.New(apperr.Conflict, MsgNoActiveBorrow)
		}

		at := e.now().UTC()
		if err := tx.MarkTransactionReturned(ctx, open.ID, at); err != nil {
			return err
		}
		if err := tx.SetToolStatus(ctx, tool.ID, models.ToolAvailable); err != nil {
			return err
		}
		tool.Status = models.ToolAvailable
		res = &ReturnResult{
			TransactionID: open.ID,
			Status:        models.TxReturned,
			StudentID:     studentID,
			ToolID:        toolID,
			ReturnTime:    at,
		}
		return nil
	})
	if err != nil {
		e.logFailure(err, "return", studentID, toolID)
		return nil, err
	}

	e.log.Info().Uint("transaction_id", res.TransactionID).Uint("student_id", studentID).Uint("tool_id", toolID).Msg("tool returned")
	e.notify(EventTransactionUpdate, map[string]any{
		"transaction_id": res.TransactionID,
		"student_id":     res.StudentID,
		"tool_id":        res.ToolID,
		"status":         res.Status,
		"return_time":    res.ReturnTime,
	})
	e.notify(EventToolStatus, map[string]any{
		"tool_id": tool.ID,
		"name":    tool.Name,
		"status":  tool.Status,
	})
	return res, nil
}

func (e *Engine) notify(event string, payload any) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(event, payload)
}

// business outcomes are expected flow; only unclassified failures are errors
func (e *Engine) logFailure(err error, op string, studentID, toolID uint) {
	var ev *zerolog.Event
	switch apperr.KindOf(err) {
	case apperr.Internal:
		ev = e.log.Error()
	case apperr.Busy:
		ev = e.log.Warn()
	default:
		ev = e.log.Debug()
	}
	ev.Err(err).Str("op", op).Uint("student_id", studentID).Uint("tool_id", toolID).Msg("lending operation failed")
}
