// controllers/srv.go
package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rfid_tool_kiosk/app"
	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/config"
	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/lending"
	"rfid_tool_kiosk/mail"
	"rfid_tool_kiosk/notify"
	"rfid_tool_kiosk/rfid"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Srv carries the dependencies every controller needs.
type Srv struct {
	Repo     *db.Repo
	Engine   *lending.Engine
	Lookup   *lending.Lookup
	Reader   rfid.Reader
	Hub      *notify.Hub
	Notifier *notify.Broadcaster
	Mailer   mail.Sender
	Cfg      config.Config
	Log      zerolog.Logger

	now func() time.Time
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:     a.Repo,
		Engine:   a.Engine,
		Lookup:   a.Lookup,
		Reader:   a.Reader,
		Hub:      a.Hub,
		Notifier: a.Notifier,
		Mailer:   a.Mailer,
		Cfg:      a.Config,
		Log:      a.Log,
		now:      time.Now,
	}
}

// --- helpers ---

// fail writes {kind, message} with the status for the error's kind.
// Unclassified errors are logged and answered with a generic message.
func (s *Srv) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	body := app.H{"kind": kind, "message": apperr.Message(err)}

	status := http.StatusInternalServerError
	switch kind {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict, apperr.ConstraintViolation, apperr.Validation:
		status = http.StatusBadRequest
	case apperr.Busy:
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "1")
		body["retryable"] = true
	default:
		s.Log.Error().Err(err).Str("request_id", c.GetString("requestID")).Str("path", c.FullPath()).Msg("request failed")
		body["message"] = "internal server error"
	}
	c.AbortWithStatusJSON(status, body)
}

func invalid(msg string) error { return apperr.New(apperr.Validation, msg) }

// recordID parses a client-supplied id: a JSON number or numeric string that
// is a positive integer.
func recordID(field string, n json.Number) (uint, error) {
	raw := strings.TrimSpace(n.String())
	if raw == "" {
		return 0, invalid(field + " is required")
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return 0, invalid(field + " must be a positive integer")
	}
	return uint(v), nil
}

// intQuery reads a non-negative int query param; absent means def.
func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, invalid(key + " must be a non-negative integer")
	}
	return v, nil
}

// timeQuery accepts RFC3339 or YYYY-MM-DD. A date-only end bound covers the
// whole day.
func timeQuery(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, invalid(key + " must be RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}
