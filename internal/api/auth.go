// internal/api/auth.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/middleware"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/pkg/auth"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// userResponse is the public view of a user.
type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL, CreatedAt: u.CreatedAt}
}

type sessionResponse struct {
	User   userResponse    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	user, pair, err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, sessionResponse{User: newUserResponse(user), Tokens: pair})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	user, pair, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sessionResponse{User: newUserResponse(user), Tokens: pair})
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	pair, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tokens": pair})
}

// handleDeleteMe deletes the calling account.
func (s *Server) handleDeleteMe(c *gin.Context) {
	actor := middleware.Actor(c)
	if err := s.board.DeleteUser(c.Request.Context(), actor, actor); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}
