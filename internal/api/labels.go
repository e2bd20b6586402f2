// internal/api/labels.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gurkanbulca/kanboard/internal/middleware"
	"github.com/gurkanbulca/kanboard/internal/service"
)

type createLabelRequest struct {
	Text  string `json:"text" binding:"required"`
	Color string `json:"color" binding:"required"`
}

type updateLabelRequest struct {
	Text  *string `json:"text"`
	Color *string `json:"color"`
}

func (s *Server) handleListLabels(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	labels, err := s.board.ListLabels(c.Request.Context(), middleware.Actor(c), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"labels": labels})
}

func (s *Server) handleCreateLabel(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req createLabelRequest
	if !bind(c, &req) {
		return
	}
	label, err := s.board.CreateLabel(c.Request.Context(), middleware.Actor(c), projectID, req.Text, req.Color)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"label": label})
}

func (s *Server) handleUpdateLabel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateLabelRequest
	if !bind(c, &req) {
		return
	}
	label, err := s.board.UpdateLabel(c.Request.Context(), middleware.Actor(c), id, service.LabelUpdate{Text: req.Text, Color: req.Color})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"label": label})
}

func (s *Server) handleDeleteLabel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteLabel(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}
