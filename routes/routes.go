package routes

import (
	"net/http"

	"rfid_tool_kiosk/app"
	"rfid_tool_kiosk/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	controllers.RegisterValidators()

	// controllers and shared middleware
	s := controllers.GetSrv(a)
	kiosk := controllers.NewKioskController(s)
	students := controllers.NewStudentController(s)
	admin := controllers.NewAdminController(s)

	cfg := a.Config
	adminMW := app.AdminPIN(cfg.AdminPIN)
	borrowRL := app.RateLimit(a.RDB, "lending", cfg.RateBorrowPerMin)
	registerRL := app.RateLimit(a.RDB, "register", cfg.RateRegisterPerMin)
	emailRL := app.RateLimit(a.RDB, "email", cfg.RateEmailPerMin)

	r.GET("/healthz", func(c *app.Ctx) {
		if err := a.Ping(c.Request.Context()); err != nil {
			a.Log.Warn().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, app.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, app.H{"ok": true})
	})

	// ------------------------------
	// kiosk
	// ------------------------------
	api := r.Group("/api")
	{
		api.GET("/check_rfid", kiosk.CheckRFID)
		api.POST("/scan_student", kiosk.ScanStudent)
		api.POST("/scan_tool", kiosk.ScanTool)
		api.POST("/borrow_tool", borrowRL, kiosk.Borrow)
		api.POST("/return_tool", borrowRL, kiosk.Return)
		api.GET("/tools_status", kiosk.ToolsStatus)  // ?limit=&offset=
		api.GET("/transactions", kiosk.Transactions) // ?limit=&start=&end=
		api.GET("/events", kiosk.Events)

		api.POST("/register", registerRL, students.Register)
		api.GET("/student/:id/photo", students.Photo)
	}

	// ------------------------------
	// admin (shared PIN)
	// ------------------------------
	adm := r.Group("/api/admin", adminMW)
	{
		adm.GET("/tools_status", admin.ToolsStatus)
		adm.GET("/tools_status/export", admin.ExportToolsStatus) // ?format=csv|xlsx
		adm.POST("/tools", admin.CreateTool)
		adm.GET("/students", students.List) // ?q=&page=&size=
		adm.POST("/send_warning_email", emailRL, admin.SendWarningEmail)
		adm.GET("/transactions/export", admin.ExportTransactions) // ?format=&start=&end=
	}

	if cfg.Debug {
		dbg := controllers.NewDebugController(s)
		r.GET("/debug/scan", dbg.Scan)
		r.GET("/debug/clear", dbg.Clear)
	}
}
