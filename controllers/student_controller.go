package controllers

import (
	"html"
	"net/http"
	"strconv"
	"strings"

	"rfid_tool_kiosk/app"
	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/models"

	"github.com/gin-gonic/gin"
)

type StudentController struct{ *Srv }

func NewStudentController(s *Srv) *StudentController { return &StudentController{Srv: s} }

type registerRequest struct {
	Name    string `json:"name" binding:"required"`
	NIM     string `json:"nim" binding:"required,nim"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required"`
	RFIDUID string `json:"rfid_uid" binding:"required"`
}

func clean(s string) string { return html.EscapeString(strings.TrimSpace(s)) }

var duplicateMessages = map[string]string{
	"nim":      "NIM already registered",
	"rfid_uid": "RFID card already registered",
}

// POST /api/register
func (sc *StudentController) Register(c *gin.Context) {
	var in registerRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		sc.fail(c, bindError(err))
		return
	}
	st := &models.Student{
		Name:    clean(in.Name),
		NIM:     strings.TrimSpace(in.NIM),
		Email:   strings.TrimSpace(in.Email),
		Phone:   clean(in.Phone),
		RFIDUID: strings.TrimSpace(in.RFIDUID),
	}
	if st.Name == "" || st.Phone == "" || st.RFIDUID == "" {
		sc.fail(c, invalid("all fields are required"))
		return
	}

	ctx := c.Request.Context()
	if existing, err := sc.Repo.FindStudentByNIM(ctx, st.NIM); err != nil {
		sc.fail(c, err)
		return
	} else if existing != nil {
		sc.fail(c, apperr.Duplicate("nim", nil))
		return
	}
	if existing, err := sc.Repo.FindStudentByUID(ctx, st.RFIDUID); err != nil {
		sc.fail(c, err)
		return
	} else if existing != nil {
		sc.fail(c, apperr.Duplicate("rfid_uid", nil))
		return
	}

	if err := sc.Repo.CreateStudent(ctx, st); err != nil {
		sc.fail(c, err)
		return
	}
	if err := sc.Reader.Clear(ctx); err != nil {
		sc.Log.Warn().Err(err).Msg("clear reader after registration")
	}

	sc.Log.Info().Uint("student_id", st.ID).Msg("student registered")
	c.JSON(http.StatusCreated, app.H{"student_id": st.ID, "name": st.Name, "nim": st.NIM})
}

// fail for registration reports duplicates with field-specific messages.
func (sc *StudentController) fail(c *gin.Context, err error) {
	if apperr.Is(err, apperr.ConstraintViolation) {
		if msg, ok := duplicateMessages[apperr.FieldOf(err)]; ok {
			err = &apperr.Error{Kind: apperr.ConstraintViolation, Message: msg, Field: apperr.FieldOf(err), Err: err}
		}
	}
	sc.Srv.fail(c, err)
}

// GET /api/student/:id/photo
func (sc *StudentController) Photo(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		sc.fail(c, invalid("student id must be a positive integer"))
		return
	}
	data, mime, err := sc.Repo.StudentPhoto(c.Request.Context(), uint(id))
	if err != nil {
		sc.fail(c, err)
		return
	}
	if data == nil {
		sc.fail(c, apperr.New(apperr.NotFound, "photo not found"))
		return
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, mime, data)
}

// GET /api/admin/students?q=&page=&size=
func (sc *StudentController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := sc.Repo.ListStudents(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		sc.fail(c, err)
		return
	}
	views := make([]models.StudentView, 0, len(res.Students))
	for _, st := range res.Students {
		views = append(views, st.View())
	}
	c.JSON(http.StatusOK, app.H{
		"total":    res.Total,
		"students": views,
	})
}
