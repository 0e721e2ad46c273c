package handler

import (
	"net/http"
	"strconv"

	"chronos/internal/model"
	"chronos/internal/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the dashboard read models
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates report handler
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// LateTasks lists late tasks
// @Summary Late task alerts
// @Tags reports
// @Produce json
// @Success 200 {array} model.LateTask
// @Router /api/v1/reports/late [get]
func (h *ReportHandler) LateTasks(c *gin.Context) {
	tasks, err := h.reports.LateTasks(c.Request.Context())
	if err != nil {
		respondError(c, "list late tasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// Timeline returns Gantt chart rows
// @Summary Timeline
// @Tags reports
// @Produce json
// @Param view query string false "employee (default) or task"
// @Param employee query []string false "Employee names"
// @Success 200 {object} model.Timeline
// @Router /api/v1/reports/timeline [get]
func (h *ReportHandler) Timeline(c *gin.Context) {
	view := model.TimelineView(c.DefaultQuery("view", string(model.TimelineByEmployee)))
	if view != model.TimelineByEmployee && view != model.TimelineByTask {
		c.JSON(http.StatusBadRequest, gin.H{"error": "view must be employee or task"})
		return
	}

	timeline, err := h.reports.Timeline(c.Request.Context(), model.TimelineQuery{
		View:      view,
		Employees: c.QueryArray("employee"),
	})
	if err != nil {
		respondError(c, "build timeline", err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// Performance returns the yearly performance summary
// @Summary Performance summary
// @Tags reports
// @Produce json
// @Param year query int false "Year, defaults to the latest year with data"
// @Success 200 {object} model.PerformanceReport
// @Router /api/v1/reports/performance [get]
func (h *ReportHandler) Performance(c *gin.Context) {
	year := 0
	if yearStr := c.Query("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil || y <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		year = y
	}

	report, err := h.reports.Performance(c.Request.Context(), year)
	if err != nil {
		respondError(c, "build performance summary", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DependencyOptions lists what a new task of the project can depend on
// @Summary Dependency options
// @Tags reports
// @Produce json
// @Param name path string true "Project name"
// @Success 200 {array} string
// @Router /api/v1/projects/{name}/dependencies [get]
func (h *ReportHandler) DependencyOptions(c *gin.Context) {
	options, err := h.reports.DependencyOptions(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, "list dependency options", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// SuggestStart proposes dates for a task following a dependency
// @Summary Suggest start date
// @Tags reports
// @Produce json
// @Param name path string true "Project name"
// @Param dependency query string true "Sub task the new task waits for"
// @Success 200 {object} model.StartSuggestion
// @Router /api/v1/projects/{name}/dependencies/suggest-start [get]
func (h *ReportHandler) SuggestStart(c *gin.Context) {
	suggestion, err := h.reports.SuggestStart(c.Request.Context(), c.Param("name"), c.Query("dependency"))
	if err != nil {
		respondError(c, "suggest start date", err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}
