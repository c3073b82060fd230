package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"rfid_tool_kiosk/app"
	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/lending"

	"github.com/gin-gonic/gin"
)

const defaultTransactionLimit = 5

type KioskController struct{ *Srv }

func NewKioskController(s *Srv) *KioskController { return &KioskController{Srv: s} }

// GET /api/check_rfid
func (kc *KioskController) CheckRFID(c *gin.Context) {
	uid, ok, err := kc.Reader.CurrentTag(c.Request.Context())
	if err != nil {
		kc.fail(c, err)
		return
	}
	var out *string
	if ok {
		out = &uid
	}
	c.JSON(http.StatusOK, app.H{"uid": out, "detected": ok})
}

type scanRequest struct {
	RFIDUID string `json:"rfid_uid"`
}

func bindScan(c *gin.Context) (string, error) {
	var in scanRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		return "", invalid("invalid request body")
	}
	uid := strings.TrimSpace(in.RFIDUID)
	if uid == "" {
		return "", invalid("rfid_uid is required")
	}
	return uid, nil
}

// POST /api/scan_student
func (kc *KioskController) ScanStudent(c *gin.Context) {
	uid, err := bindScan(c)
	if err != nil {
		kc.fail(c, err)
		return
	}
	st, err := kc.Lookup.FindStudentByCardUID(c.Request.Context(), uid)
	if err != nil {
		kc.fail(c, err)
		return
	}
	if st == nil {
		kc.fail(c, apperr.New(apperr.NotFound, "student not registered"))
		return
	}
	kc.Notifier.Notify(lending.EventRFIDScan, map[string]any{"rfid_uid": uid, "kind": "student", "student_id": st.ID})
	c.JSON(http.StatusOK, st.View())
}

// POST /api/scan_tool
func (kc *KioskController) ScanTool(c *gin.Context) {
	uid, err := bindScan(c)
	if err != nil {
		kc.fail(c, err)
		return
	}
	tool, err := kc.Lookup.FindToolByTagUID(c.Request.Context(), uid)
	if err != nil {
		kc.fail(c, err)
		return
	}
	if tool == nil {
		kc.fail(c, apperr.New(apperr.NotFound, "tool not registered"))
		return
	}
	kc.Notifier.Notify(lending.EventRFIDScan, map[string]any{"rfid_uid": uid, "kind": "tool", "tool_id": tool.ID})
	c.JSON(http.StatusOK, tool)
}

type lendingRequest struct {
	StudentID json.Number `json:"student_id"`
	ToolID    json.Number `json:"tool_id"`
}

func bindLending(c *gin.Context) (studentID, toolID uint, err error) {
	var in lendingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		return 0, 0, invalid("invalid request body")
	}
	if studentID, err = recordID("student_id", in.StudentID); err != nil {
		return 0, 0, err
	}
	if toolID, err = recordID("tool_id", in.ToolID); err != nil {
		return 0, 0, err
	}
	return studentID, toolID, nil
}

// POST /api/borrow_tool
func (kc *KioskController) Borrow(c *gin.Context) {
	studentID, toolID, err := bindLending(c)
	if err != nil {
		kc.fail(c, err)
		return
	}
	tx, err := kc.Engine.Borrow(c.Request.Context(), studentID, toolID)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"transaction_id": tx.ID,
		"tool_id":        tx.ToolID,
		"student_id":     tx.StudentID,
		"borrow_time":    tx.BorrowTime,
		"status":         tx.Status,
	})
}

// POST /api/return_tool
func (kc *KioskController) Return(c *gin.Context) {
	studentID, toolID, err := bindLending(c)
	if err != nil {
		kc.fail(c, err)
		return
	}
	res, err := kc.Engine.Return(c.Request.Context(), studentID, toolID)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/tools_status?limit=&offset=
func (kc *KioskController) ToolsStatus(c *gin.Context) {
	kc.toolsStatus(c, false)
}

func (s *Srv) toolsStatus(c *gin.Context, private bool) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	rows, err := s.Lookup.ListToolsWithBorrowers(c.Request.Context(), private, limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /api/transactions?limit=&start=&end=
func (kc *KioskController) Transactions(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultTransactionLimit)
	if err != nil {
		kc.fail(c, err)
		return
	}
	start, err := timeQuery(c, "start", false)
	if err != nil {
		kc.fail(c, err)
		return
	}
	end, err := timeQuery(c, "end", true)
	if err != nil {
		kc.fail(c, err)
		return
	}
	txs, err := kc.Lookup.ListTransactions(c.Request.Context(), start, end, limit)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// GET /api/events streams notifications as server-sent events.
func (kc *KioskController) Events(c *gin.Context) {
	ch, cancel := kc.Hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
