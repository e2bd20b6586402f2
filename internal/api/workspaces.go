// internal/api/workspaces.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/middleware"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/service"
)

type workspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

type memberRequest struct {
	Email string      `json:"email" binding:"required"`
	Role  models.Role `json:"role"`
}

type ownerRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
}

func (s *Server) handleListWorkspaces(c *gin.Context) {
	ws, err := s.board.ListWorkspaces(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"workspaces": ws})
}

func (s *Server) handleCreateWorkspace(c *gin.Context) {
	var req workspaceRequest
	if !bind(c, &req) {
		return
	}
	ws, err := s.board.CreateWorkspace(c.Request.Context(), middleware.Actor(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"workspace": ws})
}

func (s *Server) handleGetWorkspace(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ws, err := s.board.GetWorkspace(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"workspace": ws})
}

func (s *Server) handleDeleteWorkspace(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteWorkspace(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

// handleAddMember serves both member lists; kind picks the scope.
func (s *Server) handleAddMember(kind service.ScopeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req memberRequest
		if !bind(c, &req) {
			return
		}
		members, err := s.board.AddMember(c.Request.Context(), middleware.Actor(c), service.Scope{Kind: kind, ID: id}, req.Email, req.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"members": members})
	}
}

func (s *Server) handleRemoveMember(kind service.ScopeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		userID, ok := parseID(c, "userId")
		if !ok {
			return
		}
		if err := s.board.RemoveMember(c.Request.Context(), middleware.Actor(c), service.Scope{Kind: kind, ID: id}, userID); err != nil {
			respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusNoContent, nil)
	}
}

func (s *Server) handleTransferOwnership(kind service.ScopeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req ownerRequest
		if !bind(c, &req) {
			return
		}
		if err := s.board.TransferOwnership(c.Request.Context(), middleware.Actor(c), service.Scope{Kind: kind, ID: id}, req.UserID); err != nil {
			respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusNoContent, nil)
	}
}
