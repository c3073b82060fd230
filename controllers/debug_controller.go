package controllers

import (
	"net/http"
	"strings"

	"rfid_tool_kiosk/app"

	"github.com/gin-gonic/gin"
)

// DebugController simulates the reader; only routed when DEBUG is on.
type DebugController struct{ *Srv }

func NewDebugController(s *Srv) *DebugController { return &DebugController{Srv: s} }

// GET /debug/scan?uid=
func (dc *DebugController) Scan(c *gin.Context) {
	uid := strings.TrimSpace(c.Query("uid"))
	if uid == "" {
		dc.fail(c, invalid("uid is required"))
		return
	}
	if err := dc.Reader.Present(c.Request.Context(), uid); err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"uid": uid})
}

// GET /debug/clear
func (dc *DebugController) Clear(c *gin.Context) {
	if err := dc.Reader.Clear(c.Request.Context()); err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"cleared": true})
}
