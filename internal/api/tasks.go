// internal/api/tasks.go
package api

import (
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

type createTaskRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	Assignees   []uuid.UUID        `json:"assignees"`
	Labels      []uuid.UUID        `json:"labels"`
	DueDate     *time.Time         `json:"dueDate"`
	Checklists  []models.Checklist `json:"checklists"`
}

// updateTaskRequest sets each present field wholesale. A null dueDate is
// indistinguishable from a missing one, hence clearDueDate.
type updateTaskRequest struct {
	Title        *string             `json:"title"`
	Description  *string             `json:"description"`
	DueDate      *time.Time          `json:"dueDate"`
	ClearDueDate bool                `json:"clearDueDate"`
	Checklists   *[]models.Checklist `json:"checklists"`
	Assignees    *[]uuid.UUID        `json:"assignees"`
	Labels       *[]uuid.UUID        `json:"labels"`
}

type moveTaskRequest struct {
	ColumnID uuid.UUID `json:"columnId" binding:"required"`
	Index    *int      `json:"index"`
}

type idsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type toggleRequest struct {
	Done bool `json:"done"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	columnID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req createTaskRequest
	if !bind(c, &req) {
		return
	}
	task, err := s.board.CreateTask(c.Request.Context(), middleware.Actor(c), columnID, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Assignees:   req.Assignees,
		Labels:      req.Labels,
		DueDate:     req.DueDate,
		Checklists:  req.Checklists,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.board.GetTask(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateTaskRequest
	if !bind(c, &req) {
		return
	}
	task, err := s.board.UpdateTask(c.Request.Context(), middleware.Actor(c), id, service.TaskUpdate{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Checklists:   req.Checklists,
		Assignees:    req.Assignees,
		Labels:       req.Labels,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteTask(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

func (s *Server) handleMoveTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req moveTaskRequest
	if !bind(c, &req) {
		return
	}
	task, err := s.board.MoveTask(c.Request.Context(), middleware.Actor(c), id, req.ColumnID, indexOrAppend(req.Index))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

type taskEdit func(c *gin.Context, actor, taskID uuid.UUID) (*models.Task, error)

// editTask runs a task edit and renders the resulting task.
func (s *Server) editTask(c *gin.Context, edit taskEdit) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := edit(c, middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// withParam parses a second path id before running fn.
func withParam(name string, fn func(c *gin.Context, actor, taskID, other uuid.UUID) (*models.Task, error)) taskEdit {
	return func(c *gin.Context, actor, taskID uuid.UUID) (*models.Task, error) {
		other, err := uuid.Parse(c.Param(name))
		if err != nil {
			return nil, apperror.NewValidation("", name, "invalid identifier")
		}
		return fn(c, actor, taskID, other)
	}
}

func (s *Server) handleSetAssignees(c *gin.Context) {
	s.editTask(c, func(c *gin.Context, actor, taskID uuid.UUID) (*models.Task, error) {
		var req idsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, apperror.NewValidation("", "body", err.Error())
		}
		return s.board.SetTaskAssignees(c.Request.Context(), actor, taskID, req.IDs)
	})
}

func (s *Server) handleAssignTask(c *gin.Context) {
	s.editTask(c, withParam("userId", func(c *gin.Context, actor, taskID, userID uuid.UUID) (*models.Task, error) {
		return s.board.AssignTask(c.Request.Context(), actor, taskID, userID)
	}))
}

func (s *Server) handleUnassignTask(c *gin.Context) {
	s.editTask(c, withParam("userId", func(c *gin.Context, actor, taskID, userID uuid.UUID) (*models.Task, error) {
		return s.board.UnassignTask(c.Request.Context(), actor, taskID, userID)
	}))
}

func (s *Server) handleSetLabels(c *gin.Context) {
	s.editTask(c, func(c *gin.Context, actor, taskID uuid.UUID) (*models.Task, error) {
		var req idsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, apperror.NewValidation("", "body", err.Error())
		}
		return s.board.SetTaskLabels(c.Request.Context(), actor, taskID, req.IDs)
	})
}

func (s *Server) handleLabelTask(c *gin.Context) {
	s.editTask(c, withParam("labelId", func(c *gin.Context, actor, taskID, labelID uuid.UUID) (*models.Task, error) {
		return s.board.LabelTask(c.Request.Context(), actor, taskID, labelID)
	}))
}

func (s *Server) handleUnlabelTask(c *gin.Context) {
	s.editTask(c, withParam("labelId", func(c *gin.Context, actor, taskID, labelID uuid.UUID) (*models.Task, error) {
		return s.board.UnlabelTask(c.Request.Context(), actor, taskID, labelID)
	}))
}

func (s *Server) handleToggleChecklistItem(c *gin.Context) {
	s.editTask(c, func(c *gin.Context, actor, taskID uuid.UUID) (*models.Task, error) {
		checklist, err := strconv.Atoi(c.Param("checklist"))
		if err != nil {
			return nil, apperror.NewValidation("", "checklist", "checklist must be an integer")
		}
		item, err := strconv.Atoi(c.Param("item"))
		if err != nil {
			return nil, apperror.NewValidation("", "item", "item must be an integer")
		}
		var req toggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, apperror.NewValidation("", "body", err.Error())
		}
		return s.board.ToggleChecklistItem(c.Request.Context(), actor, taskID, checklist, item, req.Done)
	})
}
