// internal/api/projects.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/middleware"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/service"
)

type createProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
}

type updateProjectRequest struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	Deadline      *time.Time `json:"deadline"`
	ClearDeadline bool       `json:"clearDeadline"`
}

type doneColumnRequest struct {
	ColumnID *uuid.UUID `json:"columnId"`
}

func (s *Server) handleListProjects(c *gin.Context) {
	wsID, ok := parseID(c, "id")
	if !ok {
		return
	}
	overviews, err := s.board.ListProjects(c.Request.Context(), middleware.Actor(c), wsID)
	if err != nil {
		respondError(c, err)
		return
	}
	if overviews == nil {
		overviews = []models.ProjectOverview{}
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": overviews})
}

func (s *Server) handleCreateProject(c *gin.Context) {
	wsID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req createProjectRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.board.CreateProject(c.Request.Context(), middleware.Actor(c), wsID, service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Deadline:    req.Deadline,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": p})
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := s.board.GetProject(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, detail)
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateProjectRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.board.UpdateProject(c.Request.Context(), middleware.Actor(c), id, service.ProjectUpdate{
		Name:          req.Name,
		Description:   req.Description,
		Deadline:      req.Deadline,
		ClearDeadline: req.ClearDeadline,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": p})
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteProject(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

func (s *Server) handleArchiveProject(c *gin.Context) {
	s.transitionProject(c, s.board.ArchiveProject)
}

func (s *Server) handleRestoreProject(c *gin.Context) {
	s.transitionProject(c, s.board.RestoreProject)
}

func (s *Server) handleCompleteProject(c *gin.Context) {
	s.transitionProject(c, s.board.CompleteProject)
}

type projectTransition func(ctx context.Context, actor, projectID uuid.UUID) (*models.Project, error)

func (s *Server) transitionProject(c *gin.Context, fn projectTransition) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := fn(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": p})
}

func (s *Server) handleSetDoneColumn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req doneColumnRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.board.SetDoneColumn(c.Request.Context(), middleware.Actor(c), id, req.ColumnID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": p})
}

func (s *Server) handleListActivities(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperror.NewValidation("ListActivities", "limit", "limit must be an integer"))
			return
		}
		limit = n
	}
	page, err := s.board.ListActivities(c.Request.Context(), middleware.Actor(c), id, c.Query("cursor"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

// handleCheckIntegrity is open to project members.
func (s *Server) handleCheckIntegrity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := s.board.AuthorizeProject(ctx, middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	report, err := s.board.CheckIntegrity(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"ok": report.OK(), "report": report})
}
