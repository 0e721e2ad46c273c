package handler

import (
	"net/http"
	"strconv"

	"chronos/internal/model"
	"chronos/internal/service"
	"chronos/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles dashboard and task operations
type TaskHandler struct {
	tracker *service.TrackerService
}

// NewTaskHandler creates task handler
func NewTaskHandler(tracker *service.TrackerService) *TaskHandler {
	return &TaskHandler{tracker: tracker}
}

// Dashboard returns the whole dataset with fresh statuses
// @Summary Get dashboard data
// @Description Tasks, employees and projects with statuses derived for today
// @Tags dashboard
// @Produce json
// @Success 200 {object} model.Dataset
// @Router /api/v1/dashboard [get]
func (h *TaskHandler) Dashboard(c *gin.Context) {
	ds, err := h.tracker.Dataset(c.Request.Context())
	if err != nil {
		respondError(c, "load dashboard", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks":     ds.Rows,
		"employees": ds.Employees,
		"projects":  ds.Projects,
		"warnings":  ds.Warnings,
		"loaded_at": ds.LoadedAt,
		"today":     h.tracker.Today(),
	})
}

// Refresh reloads the dataset from the spreadsheet
// @Summary Refresh dataset
// @Tags dashboard
// @Produce json
// @Success 200 {object} model.Dataset
// @Router /api/v1/refresh [post]
func (h *TaskHandler) Refresh(c *gin.Context) {
	ds, err := h.tracker.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, "refresh dataset", err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// ListTasks lists tasks
// @Summary List tasks
// @Description Filter by employee (repeatable), project and status
// @Tags tasks
// @Produce json
// @Param employee query []string false "Employee names"
// @Param project query string false "Project name"
// @Param status query string false "Derived status"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter := model.TaskFilter{
		Employees: c.QueryArray("employee"),
		Project:   c.Query("project"),
		Status:    model.Status(c.Query("status")),
	}

	rows, err := h.tracker.Tasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "list tasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": rows, "total": len(rows)})
}

// CreateTasks creates one row per selected employee
// @Summary Create tasks
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body model.CreateTasksRequest true "Task template and employees"
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTasks(c *gin.Context) {
	var req model.CreateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnCtx(c.Request.Context(), "invalid create tasks request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	rows, err := h.tracker.AddTaskRows(c.Request.Context(), req.TaskTemplate, req.Employees)
	if err != nil {
		respondError(c, "create tasks", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": rows, "created": len(rows)})
}

// GetTask gets one task
// @Summary Get task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} model.TaskRow
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	row, err := h.tracker.Task(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get task", err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// UpdateTask edits progress, output and the issue log of a task
// @Summary Update task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body model.RowEdit true "Edit"
// @Success 200 {object} model.TaskRow
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var edit model.RowEdit
	if !bindEdit(c, &edit) {
		return
	}

	row, err := h.tracker.UpdateTask(c.Request.Context(), c.Param("id"), edit)
	if err != nil {
		respondError(c, "update task", err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteTask deletes a task
// @Summary Delete task
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 200 {object} model.TaskRow
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	row, err := h.tracker.DeleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "delete task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": row})
}

// UpdateRow edits the row at a position of the table
// @Summary Update row by position
// @Tags tasks
// @Accept json
// @Produce json
// @Param index path int true "Row index"
// @Param request body model.RowEdit true "Edit"
// @Success 200 {object} model.TaskRow
// @Router /api/v1/rows/{index} [put]
func (h *TaskHandler) UpdateRow(c *gin.Context) {
	index, ok := rowIndex(c)
	if !ok {
		return
	}
	var edit model.RowEdit
	if !bindEdit(c, &edit) {
		return
	}

	row, err := h.tracker.UpdateRow(c.Request.Context(), index, edit)
	if err != nil {
		respondError(c, "update row", err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteRow deletes the row at a position of the table
// @Summary Delete row by position
// @Tags tasks
// @Param index path int true "Row index"
// @Success 200 {object} model.TaskRow
// @Router /api/v1/rows/{index} [delete]
func (h *TaskHandler) DeleteRow(c *gin.Context) {
	index, ok := rowIndex(c)
	if !ok {
		return
	}

	row, err := h.tracker.DeleteRow(c.Request.Context(), index)
	if err != nil {
		respondError(c, "delete row", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": row})
}

func rowIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
		return 0, false
	}
	return index, true
}

func bindEdit(c *gin.Context, edit *model.RowEdit) bool {
	if err := c.ShouldBindJSON(edit); err != nil {
		logger.WarnCtx(c.Request.Context(), "invalid edit request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return false
	}
	switch edit.Mode {
	case "":
		edit.Mode = model.EditModeAppend
	case model.EditModeAppend, model.EditModeReplace:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be append or replace"})
		return false
	}
	return true
}
