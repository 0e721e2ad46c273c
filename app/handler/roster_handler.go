package handler

import (
	"net/http"

	"chronos/internal/model"
	"chronos/internal/service"

	"github.com/gin-gonic/gin"
)

// RosterHandler manages employees and projects
type RosterHandler struct {
	tracker *service.TrackerService
}

// NewRosterHandler creates roster handler
func NewRosterHandler(tracker *service.TrackerService) *RosterHandler {
	return &RosterHandler{tracker: tracker}
}

// ListEmployees lists employees
// @Summary List employees
// @Tags roster
// @Produce json
// @Success 200 {array} model.Employee
// @Router /api/v1/employees [get]
func (h *RosterHandler) ListEmployees(c *gin.Context) {
	ds, err := h.tracker.Dataset(c.Request.Context())
	if err != nil {
		respondError(c, "list employees", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": ds.Employees})
}

// AddEmployee adds an employee, a duplicate name is reported as not added
// @Summary Add employee
// @Tags roster
// @Accept json
// @Produce json
// @Param request body model.NameRequest true "Employee name"
// @Success 201 {object} model.Employee
// @Success 200 {object} map[string]interface{} "Already present"
// @Router /api/v1/employees [post]
func (h *RosterHandler) AddEmployee(c *gin.Context) {
	var req model.NameRequest
	if !bindName(c, &req) {
		return
	}

	emp, added, err := h.tracker.AddEmployee(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, "add employee", err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"added": false, "message": "employee already exists or name is empty"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": true, "employee": emp})
}

// RenameEmployee renames an employee, their tasks follow
// @Summary Rename employee
// @Tags roster
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param request body model.NameRequest true "New name"
// @Success 200 {object} model.Employee
// @Router /api/v1/employees/{id} [put]
func (h *RosterHandler) RenameEmployee(c *gin.Context) {
	var req model.NameRequest
	if !bindName(c, &req) {
		return
	}

	emp, err := h.tracker.RenameEmployee(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, "rename employee", err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// DeleteEmployee deletes an employee and all of their tasks
// @Summary Delete employee
// @Tags roster
// @Param name path string true "Employee name"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/employees/{name} [delete]
func (h *RosterHandler) DeleteEmployee(c *gin.Context) {
	name := c.Param("name")
	removed, err := h.tracker.DeleteEmployee(c.Request.Context(), name)
	if err != nil {
		respondError(c, "delete employee", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": name, "removed_tasks": removed})
}

// ListProjects lists projects
// @Summary List projects
// @Tags roster
// @Produce json
// @Success 200 {array} model.Project
// @Router /api/v1/projects [get]
func (h *RosterHandler) ListProjects(c *gin.Context) {
	ds, err := h.tracker.Dataset(c.Request.Context())
	if err != nil {
		respondError(c, "list projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": ds.Projects})
}

// AddProject adds a project
// @Summary Add project
// @Tags roster
// @Accept json
// @Produce json
// @Param request body model.NameRequest true "Project name"
// @Success 201 {object} model.Project
// @Router /api/v1/projects [post]
func (h *RosterHandler) AddProject(c *gin.Context) {
	var req model.NameRequest
	if !bindName(c, &req) {
		return
	}

	proj, added, err := h.tracker.AddProject(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, "add project", err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"added": false, "message": "project already exists or name is empty"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": true, "project": proj})
}

// RenameProject renames a project
// @Summary Rename project
// @Tags roster
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body model.NameRequest true "New name"
// @Success 200 {object} model.Project
// @Router /api/v1/projects/{id} [put]
func (h *RosterHandler) RenameProject(c *gin.Context) {
	var req model.NameRequest
	if !bindName(c, &req) {
		return
	}

	proj, err := h.tracker.RenameProject(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, "rename project", err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

// DeleteProject deletes a project and all of its tasks
// @Summary Delete project
// @Tags roster
// @Param name path string true "Project name"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/projects/{name} [delete]
func (h *RosterHandler) DeleteProject(c *gin.Context) {
	name := c.Param("name")
	removed, err := h.tracker.DeleteProject(c.Request.Context(), name)
	if err != nil {
		respondError(c, "delete project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": name, "removed_tasks": removed})
}

func bindName(c *gin.Context, req *model.NameRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return false
	}
	return true
}
