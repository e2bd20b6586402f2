// internal/api/comments.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gurkanbulca/kanboard/internal/middleware"
)

type commentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleListComments(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	comments, err := s.board.ListComments(c.Request.Context(), middleware.Actor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"comments": comments})
}

func (s *Server) handleAddComment(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bind(c, &req) {
		return
	}
	comment, err := s.board.AddComment(c.Request.Context(), middleware.Actor(c), taskID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"comment": comment})
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteComment(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}
