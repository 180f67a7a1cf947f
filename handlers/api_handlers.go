package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"attendance-server-go/attendance"
	"attendance-server-go/db"
	"attendance-server-go/export"
	"attendance-server-go/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// APIHandler holds the dependencies for API handlers. Every session call runs
// under mu so requests are applied one at a time, in arrival order.
type APIHandler struct {
	Repo    *db.ClassRepository
	Session *attendance.Session
	mu      sync.Mutex
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(repo *db.ClassRepository, session *attendance.Session) *APIHandler {
	return &APIHandler{
		Repo:    repo,
		Session: session,
	}
}

// RegisterRoutes mounts the API under /api
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/ping", PingHandler)
		api.GET("/classes", h.GetAllClasses)
		api.POST("/import/students", h.ImportStudents)

		session := api.Group("/session")
		session.GET("", h.GetStatus)
		session.DELETE("", h.CloseSession)
		session.POST("/class", h.OpenClass)
		session.PUT("/date", h.SelectDate)
		session.GET("/roster", h.GetRoster)
		session.PUT("/filter", h.FilterRoster)
		session.PUT("/rows/:slot/mark", h.ToggleMark)
		session.PUT("/rows/:slot/name", h.CommitName)
		session.POST("/save", h.SaveAttendance)
		session.GET("/export", h.ExportAttendance)
	}
}

// RecoveryHandler answers a panic with the generic refresh notice
func RecoveryHandler(c *gin.Context, recovered interface{}) {
	slog.Error("unexpected fault", "path", c.Request.URL.Path, "panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, attendance.UnexpectedNotice)
}

// fail converts an operation error into a notice response
func fail(c *gin.Context, err error) {
	notice := attendance.NoticeFor(err)
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, db.ErrQuotaExceeded):
		status = http.StatusInsufficientStorage
	case errors.Is(err, attendance.ErrUnsavedChanges):
		status = http.StatusConflict
	case errors.Is(err, db.ErrStorage), errors.Is(err, attendance.ErrExport):
		status = http.StatusInternalServerError
	case notice == attendance.UnexpectedNotice:
		status = http.StatusInternalServerError
	}
	slog.Warn("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	c.JSON(status, notice)
}

func slotParam(c *gin.Context) (int, error) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil || !models.ValidSlot(slot) {
		return 0, errors.Wrapf(attendance.ErrInvalidSlot, "slot %q", c.Param("slot"))
	}
	return slot, nil
}

type rosterResponse struct {
	attendance.Status
	Notice *attendance.Notice `json:"notice,omitempty"`
	Rows   []attendance.Row   `json:"rows"`
}

func (h *APIHandler) roster(rows []attendance.Row, notice *attendance.Notice) rosterResponse {
	return rosterResponse{Status: h.Session.Status(), Notice: notice, Rows: rows}
}

// --- Class Handlers ---

// GetAllClasses handles GET /api/classes
func (h *APIHandler) GetAllClasses(c *gin.Context) {
	classes, err := h.Repo.ListClasses(c.Request.Context())
	if err != nil {
		slog.Error("listing classes failed", "error", err)
		c.JSON(http.StatusInternalServerError, attendance.Notice{Level: attendance.LevelError, Message: "Failed to retrieve classes"})
		return
	}
	if classes == nil {
		// Return empty list instead of null for JSON consistency
		classes = []string{}
	}
	c.JSON(http.StatusOK, classes)
}

// --- Session Handlers ---

type openClassRequest struct {
	ClassName string `json:"className" binding:"required"`
	Discard   bool   `json:"discard"`
}

// OpenClass handles POST /api/session/class
func (h *APIHandler) OpenClass(c *gin.Context) {
	var req openClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(attendance.ErrNoClassSelected, err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ctx := c.Request.Context()
	if req.Discard {
		h.Session.Discard(ctx)
	}
	rows, err := h.Session.SelectClass(ctx, req.ClassName)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.roster(rows, nil))
}

type selectDateRequest struct {
	Date    string `json:"date"`
	Discard bool   `json:"discard"`
}

// SelectDate handles PUT /api/session/date
func (h *APIHandler) SelectDate(c *gin.Context) {
	var req selectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(attendance.ErrNoDateSelected, err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ctx := c.Request.Context()
	if req.Discard && h.Session.State() == attendance.Open {
		h.Session.Discard(ctx)
	}
	rows, err := h.Session.SelectDate(ctx, req.Date)
	if err != nil {
		fail(c, err)
		return
	}
	notice := attendance.LoadedNotice(req.Date)
	c.JSON(http.StatusOK, h.roster(rows, &notice))
}

// GetStatus handles GET /api/session
func (h *APIHandler) GetStatus(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.Session.Status())
}

// GetRoster handles GET /api/session/roster
func (h *APIHandler) GetRoster(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rows, err := h.Session.Rows()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.roster(rows, nil))
}

type filterRequest struct {
	Query string `json:"query"`
}

// FilterRoster handles PUT /api/session/filter
func (h *APIHandler) FilterRoster(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, attendance.Notice{Level: attendance.LevelError, Message: "Invalid request body"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	visible, err := h.Session.SetFilter(req.Query)
	if err != nil {
		fail(c, err)
		return
	}
	rows, err := h.Session.Rows()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visible": visible, "rows": rows})
}

type markRequest struct {
	Mark    string `json:"mark" binding:"required"`
	Checked *bool  `json:"checked"`
}

// ToggleMark handles PUT /api/session/rows/:slot/mark
func (h *APIHandler) ToggleMark(c *gin.Context) {
	slot, err := slotParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(attendance.ErrInvalidMark, err.Error()))
		return
	}
	mark, err := models.ParseMark(req.Mark)
	if err != nil {
		fail(c, errors.Wrap(attendance.ErrInvalidMark, err.Error()))
		return
	}
	checked := req.Checked == nil || *req.Checked

	h.mu.Lock()
	defer h.mu.Unlock()
	row, err := h.Session.ToggleMark(slot, mark, checked)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type nameRequest struct {
	Name string `json:"name"`
}

// CommitName handles PUT /api/session/rows/:slot/name
func (h *APIHandler) CommitName(c *gin.Context) {
	slot, err := slotParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, attendance.Notice{Level: attendance.LevelError, Message: "Invalid request body"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	row, err := h.Session.CommitName(slot, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"row":    row,
		"notice": attendance.Notice{Level: attendance.LevelSuccess, Message: "Student name updated"},
	})
}

// SaveAttendance handles POST /api/session/save
func (h *APIHandler) SaveAttendance(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.Session.Save(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, attendance.SavedNotice(h.Session.Date()))
}

// CloseSession handles DELETE /api/session
func (h *APIHandler) CloseSession(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.Query("discard") == "true" {
		h.Session.Discard(c.Request.Context())
	}
	if err := h.Session.Close(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Session.Status())
}

// ExportAttendance handles GET /api/session/export
func (h *APIHandler) ExportAttendance(c *gin.Context) {
	h.mu.Lock()
	fileName, rows, err := h.Session.Export()
	h.mu.Unlock()
	if err != nil {
		fail(c, err)
		return
	}

	buf, err := export.Workbook(rows)
	if err != nil {
		fail(c, errors.Wrap(attendance.ErrExport, err.Error()))
		return
	}
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(fileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// --- Import Handler ---

// ImportStudents handles POST /api/import/students
func (h *APIHandler) ImportStudents(c *gin.Context) {
	className := c.PostForm("className")
	if className == "" {
		fail(c, attendance.ErrNoClassSelected)
		return
	}

	// Get file from form data
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, attendance.Notice{Level: attendance.LevelError, Message: "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	slog.Info("received roster upload", "file", header.Filename, "class", className)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Session.HasUnsavedChanges() && h.Session.ClassName() == className {
		fail(c, attendance.ErrUnsavedChanges)
		return
	}
	res, err := h.Repo.ImportStudentsFromExcel(c.Request.Context(), file, className)
	if err != nil {
		if errors.Is(err, db.ErrQuotaExceeded) || errors.Is(err, db.ErrStorage) {
			fail(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, attendance.Notice{Level: attendance.LevelError, Message: "Failed to import students: " + err.Error()})
		return
	}
	// show the imported names if this class is open
	if h.Session.State() == attendance.Open && h.Session.ClassName() == className {
		h.Session.Discard(c.Request.Context())
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Import successful",
		"importedCount": res.Imported,
		"skippedCount":  res.Skipped,
		"className":     className,
	})
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
