package controllers

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"rfid_tool_kiosk/app"
	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/lending"
	"rfid_tool_kiosk/mail"
	"rfid_tool_kiosk/models"
	"rfid_tool_kiosk/report"

	"github.com/gin-gonic/gin"
)

type AdminController struct{ *Srv }

func NewAdminController(s *Srv) *AdminController { return &AdminController{Srv: s} }

// GET /api/admin/tools_status
func (ac *AdminController) ToolsStatus(c *gin.Context) {
	ac.toolsStatus(c, true)
}

// POST /api/admin/tools
func (ac *AdminController) CreateTool(c *gin.Context) {
	var in struct {
		Name     string `json:"name" binding:"required"`
		RFIDUID  string `json:"rfid_uid" binding:"required"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		ac.fail(c, bindError(err))
		return
	}
	tool := &models.Tool{
		Name:     clean(in.Name),
		RFIDUID:  strings.TrimSpace(in.RFIDUID),
		Category: clean(in.Category),
	}
	if tool.Name == "" || tool.RFIDUID == "" {
		ac.fail(c, invalid("name and rfid_uid are required"))
		return
	}
	if err := ac.Repo.CreateTool(c.Request.Context(), tool); err != nil {
		if apperr.Is(err, apperr.ConstraintViolation) {
			switch apperr.FieldOf(err) {
			case "name":
				err = &apperr.Error{Kind: apperr.ConstraintViolation, Message: "tool name already exists", Field: "name", Err: err}
			case "rfid_uid":
				err = &apperr.Error{Kind: apperr.ConstraintViolation, Message: "RFID tag already registered", Field: "rfid_uid", Err: err}
			}
		}
		ac.fail(c, err)
		return
	}
	ac.Notifier.Notify(lending.EventToolStatus, app.H{"tool_id": tool.ID, "name": tool.Name, "status": tool.Status})
	c.JSON(http.StatusCreated, tool)
}

// POST /api/admin/send_warning_email
func (ac *AdminController) SendWarningEmail(c *gin.Context) {
	var in struct {
		StudentName  string `json:"student_name" binding:"required"`
		StudentEmail string `json:"student_email" binding:"required,email"`
		ToolName     string `json:"tool_name" binding:"required"`
		BorrowDate   string `json:"borrow_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		ac.fail(c, bindError(err))
		return
	}
	borrowedAt, err := parseBorrowDate(in.BorrowDate)
	if err != nil {
		ac.fail(c, invalid("borrow_date must be RFC3339 or YYYY-MM-DD"))
		return
	}

	msg := mail.WarningMessage(mail.Warning{
		StudentName:  strings.TrimSpace(in.StudentName),
		StudentEmail: strings.TrimSpace(in.StudentEmail),
		ToolName:     strings.TrimSpace(in.ToolName),
		BorrowedAt:   borrowedAt,
	}, ac.now())

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()
	if err := ac.Mailer.Send(ctx, msg); err != nil {
		ac.Log.Warn().Err(err).Msg("warning email failed")
		ac.fail(c, apperr.Wrap(apperr.Internal, "failed to send email", err))
		return
	}
	ac.Log.Info().Msg("warning email sent")
	c.JSON(http.StatusOK, app.H{"sent": true})
}

func parseBorrowDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	// naive timestamps from the kiosk UI are UTC
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// GET /api/admin/transactions/export?format=csv|xlsx&start=&end=
func (ac *AdminController) ExportTransactions(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		ac.fail(c, invalid(err.Error()))
		return
	}
	start, err := timeQuery(c, "start", false)
	if err != nil {
		ac.fail(c, err)
		return
	}
	end, err := timeQuery(c, "end", true)
	if err != nil {
		ac.fail(c, err)
		return
	}
	txs, err := ac.Lookup.ListTransactions(c.Request.Context(), start, end, 0)
	if err != nil {
		ac.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteTransactions(&buf, format, txs); err != nil {
		ac.fail(c, err)
		return
	}
	ac.attach(c, format, "transactions", buf.Bytes())
}

// GET /api/admin/tools_status/export?format=csv|xlsx
func (ac *AdminController) ExportToolsStatus(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		ac.fail(c, invalid(err.Error()))
		return
	}
	rows, err := ac.Lookup.ListToolsWithBorrowers(c.Request.Context(), true, 0, 0)
	if err != nil {
		ac.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteToolsStatus(&buf, format, rows); err != nil {
		ac.fail(c, err)
		return
	}
	ac.attach(c, format, "tools_status", buf.Bytes())
}

func (ac *AdminController) attach(c *gin.Context, f report.Format, base string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+f.Filename(base, ac.now())+`"`)
	c.Data(http.StatusOK, f.ContentType(), data)
}
