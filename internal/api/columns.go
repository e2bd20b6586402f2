// internal/api/columns.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gurkanbulca/kanboard/internal/middleware"
	"github.com/gurkanbulca/kanboard/internal/ordering"
)

type createColumnRequest struct {
	Title string `json:"title" binding:"required"`
	Index *int   `json:"index"`
}

type renameColumnRequest struct {
	Title string `json:"title" binding:"required"`
}

type positionRequest struct {
	Index *int `json:"index" binding:"required"`
}

// indexOrAppend maps a missing index to the end of the list.
func indexOrAppend(index *int) int {
	if index == nil {
		return ordering.Append
	}
	return *index
}

func (s *Server) handleCreateColumn(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req createColumnRequest
	if !bind(c, &req) {
		return
	}
	col, err := s.board.CreateColumn(c.Request.Context(), middleware.Actor(c), projectID, req.Title, indexOrAppend(req.Index))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"column": col})
}

func (s *Server) handleRenameColumn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req renameColumnRequest
	if !bind(c, &req) {
		return
	}
	col, err := s.board.RenameColumn(c.Request.Context(), middleware.Actor(c), id, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"column": col})
}

func (s *Server) handleReorderColumn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req positionRequest
	if !bind(c, &req) {
		return
	}
	order, err := s.board.ReorderColumn(c.Request.Context(), middleware.Actor(c), id, *req.Index)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"columnOrder": order})
}

func (s *Server) handleDeleteColumn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteColumn(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

func (s *Server) handleReorderTask(c *gin.Context) {
	columnID, ok := parseID(c, "id")
	if !ok {
		return
	}
	taskID, ok := parseID(c, "taskId")
	if !ok {
		return
	}
	var req positionRequest
	if !bind(c, &req) {
		return
	}
	order, err := s.board.ReorderTask(c.Request.Context(), middleware.Actor(c), columnID, taskID, *req.Index)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"taskOrder": order})
}
