// Package server wires the HTTP surface: scanner ingestion, authenticated
// filtering and export, and the session login flow.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campustrack/internal/attendance"
	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/httpmiddleware"
	"campustrack/internal/metrics"
	"campustrack/internal/report"
	"campustrack/internal/session"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UserStore is the slice of the auth repository the login handler needs.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (*auth.User, error)
}

// Deps carries everything the router needs.
type Deps struct {
	Cfg        config.App
	Attendance *attendance.Service
	Users      UserStore
	Sessions   session.Store
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// Health probes; nil means "not configured", reported as healthy.
	DBHealthy    func(context.Context) bool
	RedisHealthy func(context.Context) bool
}

// Server handles HTTP requests.
type Server struct {
	deps Deps
}

// New builds the gin engine with all routes and middleware attached.
func New(deps Deps) *gin.Engine {
	s := &Server{deps: deps}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		deps.Logger.Error("panic recovered", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Endpoint not found"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.handleHealthz)

	limiter := httpmiddleware.NewTokenBucket(deps.Cfg.RateLimitPerMin, deps.Cfg.RateLimitPerMin)
	r.POST("/api/biometric/scan", limiter.GinMiddleware(), s.handleScan)

	r.POST("/login", s.handleLogin)

	protected := r.Group("/", auth.RequireSession(deps.Sessions))
	protected.POST("/logout", s.handleLogout)
	protected.POST("/api/attendance/filter", s.handleFilter)
	protected.POST("/api/attendance/download", s.handleDownload)
	protected.GET("/api/students", s.handleStudents)
	protected.GET("/api/dashboard/stats", s.handleDashboardStats)

	return r
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbOK, redisOK := true, true
	if s.deps.DBHealthy != nil {
		dbOK = s.deps.DBHealthy(ctx)
	}
	if s.deps.RedisHealthy != nil {
		redisOK = s.deps.RedisHealthy(ctx)
	}
	status := http.StatusOK
	if !dbOK || !redisOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "db": dbOK, "redis": redisOK})
}

// handleScan accepts raw scanner payloads. Scanner devices can't react to
// HTTP status codes, so every expected outcome is a 200 with a JSON body.
func (s *Server) handleScan(c *gin.Context) {
	var req attendance.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.deps.Metrics.RecordScan("invalid")
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid biometric data format"})
		return
	}

	res, err := s.deps.Attendance.RecordScan(c.Request.Context(), req)
	if errors.Is(err, attendance.ErrInvalidPayload) {
		s.deps.Metrics.RecordScan("invalid")
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid biometric data format"})
		return
	}
	if err != nil {
		s.deps.Logger.Error("scan ingestion failed", "card_id", req.CardID, "error", err)
		s.deps.Metrics.RecordScan("error")
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Failed to record attendance"})
		return
	}

	s.deps.Metrics.RecordScan(string(res.Outcome))
	switch res.Outcome {
	case attendance.OutcomeUnknownCard:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Student not found"})
	case attendance.OutcomeDuplicate:
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"message":       "Attendance already recorded",
			"duplicate":     true,
			"student_name":  res.StudentName,
			"previous_time": res.PreviousTime,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      "Attendance recorded successfully",
			"student_name": res.StudentName,
			"roll_number":  res.RollNumber,
			"scan_time":    res.ScanTime,
		})
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Username and password required"})
		return
	}

	user, err := s.deps.Users.UserByUsername(c.Request.Context(), username)
	if err != nil {
		s.deps.Logger.Error("login lookup failed", "username", username, "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Login failed"})
		return
	}
	if user == nil || !user.CheckPassword(password) {
		s.deps.Logger.Warn("failed login attempt", "username", username)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid username or password"})
		return
	}

	id, err := s.deps.Sessions.Create(c.Request.Context(), session.Session{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		s.deps.Logger.Error("session create failed", "username", username, "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Login failed"})
		return
	}

	c.SetCookie(auth.CookieName, id, int(s.deps.Cfg.SessionTTL/time.Second), "/", "", s.deps.Cfg.CookieSecure, true)
	s.deps.Logger.Info("user logged in", "username", username)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful"})
}

func (s *Server) handleLogout(c *gin.Context) {
	if id, err := c.Cookie(auth.CookieName); err == nil && id != "" {
		if err := s.deps.Sessions.Destroy(c.Request.Context(), id); err != nil {
			s.deps.Logger.Error("session destroy failed", "error", err)
		}
	}
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.deps.Cfg.CookieSecure, true)
	if sess, ok := auth.CurrentSession(c); ok {
		s.deps.Logger.Info("user logged out", "username", sess.Username)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

func (s *Server) handleFilter(c *gin.Context) {
	var req attendance.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	rows, _, err := s.deps.Attendance.Find(c.Request.Context(), req)
	var invalid *attendance.InvalidFilterError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid filter value for " + invalid.Field})
		return
	}
	if err != nil {
		s.deps.Logger.Error("filter query failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Failed to filter attendance data"})
		return
	}

	if rows == nil {
		rows = []attendance.RecordRow{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows, "count": len(rows)})
}

func (s *Server) handleDownload(c *gin.Context) {
	var req attendance.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	rows, filter, err := s.deps.Attendance.Find(c.Request.Context(), req)
	var invalid *attendance.InvalidFilterError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid filter value for " + invalid.Field})
		return
	}
	if err != nil {
		s.deps.Logger.Error("download query failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Failed to generate report"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No data found for the specified criteria"})
		return
	}

	buf, err := report.Excel(rows, filter)
	if err != nil {
		s.deps.Logger.Error("report generation failed", "rows", len(rows), "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Failed to generate report"})
		return
	}

	s.deps.Metrics.RecordReport()
	s.deps.Logger.Info("report generated", "rows", len(rows))
	c.Header("Content-Disposition", "attachment; filename="+report.Filename(time.Now()))
	c.Data(http.StatusOK, excelContentType, buf.Bytes())
}

func (s *Server) handleStudents(c *gin.Context) {
	students, err := s.deps.Attendance.Students(c.Request.Context())
	if err != nil {
		s.deps.Logger.Error("student listing failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Failed to fetch students"})
		return
	}

	data := make([]gin.H, 0, len(students))
	for _, st := range students {
		data = append(data, gin.H{
			"id":          st.ID,
			"name":        st.Name,
			"roll_number": st.RollNumber,
			"card_id":     st.CardID,
			"session":     st.Session,
			"campus":      st.Campus,
			"course":      st.Course,
			"year":        st.Year,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func (s *Server) handleDashboardStats(c *gin.Context) {
	stats, err := s.deps.Attendance.Dashboard(c.Request.Context())
	if err != nil {
		s.deps.Logger.Error("dashboard stats failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Failed to fetch dashboard stats"})
		return
	}
	if stats.RecentAttendance == nil {
		stats.RecentAttendance = []attendance.RecentScan{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// corsMiddleware allows the browser dashboard to call the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
