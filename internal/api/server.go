// internal/api/server.go

// Package api exposes the board service over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/middleware"
	"github.com/gurkanbulca/kanboard/internal/service"
)

// Server provides the HTTP handlers of the board.
type Server struct {
	engine *gin.Engine
	board  *service.BoardService
	auth   *service.AuthService
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(board *service.BoardService, auth *service.AuthService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestMetadata())
	router.Use(middleware.RequestLogger(logger))

	srv := &Server{
		engine: router,
		board:  board,
		auth:   auth,
		logger: logger,
	}
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/refresh", s.handleRefresh)
	}

	secured := api.Group("", middleware.RequireAuth(s.auth))

	workspaces := secured.Group("/workspaces")
	{
		workspaces.GET("", s.handleListWorkspaces)
		workspaces.POST("", s.handleCreateWorkspace)
		workspaces.GET("/:id", s.handleGetWorkspace)
		workspaces.DELETE("/:id", s.handleDeleteWorkspace)
		workspaces.GET("/:id/projects", s.handleListProjects)
		workspaces.POST("/:id/projects", s.handleCreateProject)
		workspaces.POST("/:id/members", s.handleAddMember(service.ScopeWorkspace))
		workspaces.DELETE("/:id/members/:userId", s.handleRemoveMember(service.ScopeWorkspace))
		workspaces.PUT("/:id/owner", s.handleTransferOwnership(service.ScopeWorkspace))
	}

	projects := secured.Group("/projects")
	{
		projects.GET("/:id", s.handleGetProject)
		projects.PATCH("/:id", s.handleUpdateProject)
		projects.DELETE("/:id", s.handleDeleteProject)
		projects.POST("/:id/archive", s.handleArchiveProject)
		projects.POST("/:id/restore", s.handleRestoreProject)
		projects.POST("/:id/complete", s.handleCompleteProject)
		projects.PUT("/:id/done-column", s.handleSetDoneColumn)
		projects.POST("/:id/members", s.handleAddMember(service.ScopeProject))
		projects.DELETE("/:id/members/:userId", s.handleRemoveMember(service.ScopeProject))
		projects.PUT("/:id/owner", s.handleTransferOwnership(service.ScopeProject))
		projects.POST("/:id/columns", s.handleCreateColumn)
		projects.GET("/:id/labels", s.handleListLabels)
		projects.POST("/:id/labels", s.handleCreateLabel)
		projects.GET("/:id/activities", s.handleListActivities)
		projects.GET("/:id/integrity", s.handleCheckIntegrity)
	}

	columns := secured.Group("/columns")
	{
		columns.PATCH("/:id", s.handleRenameColumn)
		columns.DELETE("/:id", s.handleDeleteColumn)
		columns.PUT("/:id/position", s.handleReorderColumn)
		columns.POST("/:id/tasks", s.handleCreateTask)
		columns.PUT("/:id/tasks/:taskId/position", s.handleReorderTask)
	}

	labels := secured.Group("/labels")
	{
		labels.PATCH("/:id", s.handleUpdateLabel)
		labels.DELETE("/:id", s.handleDeleteLabel)
	}

	tasks := secured.Group("/tasks")
	{
		tasks.GET("/:id", s.handleGetTask)
		tasks.PATCH("/:id", s.handleUpdateTask)
		tasks.DELETE("/:id", s.handleDeleteTask)
		tasks.PUT("/:id/move", s.handleMoveTask)
		tasks.PUT("/:id/assignees", s.handleSetAssignees)
		tasks.POST("/:id/assignees/:userId", s.handleAssignTask)
		tasks.DELETE("/:id/assignees/:userId", s.handleUnassignTask)
		tasks.PUT("/:id/labels", s.handleSetLabels)
		tasks.POST("/:id/labels/:labelId", s.handleLabelTask)
		tasks.DELETE("/:id/labels/:labelId", s.handleUnlabelTask)
		tasks.PUT("/:id/checklists/:checklist/items/:item", s.handleToggleChecklistItem)
		tasks.GET("/:id/comments", s.handleListComments)
		tasks.POST("/:id/comments", s.handleAddComment)
	}

	secured.DELETE("/comments/:id", s.handleDeleteComment)
	secured.GET("/me/tasks", s.handleListMyTasks)
	secured.DELETE("/users/me", s.handleDeleteMe)
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to a uuid.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperror.NewValidation("", name, "invalid identifier"))
		return uuid.Nil, false
	}
	return id, true
}

// bind decodes the JSON body into req.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperror.NewValidation("", "body", err.Error()))
		return false
	}
	return true
}

// respondError renders err with the status its kind maps to.
func respondError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperror.HTTPStatus(err), gin.H{"error": apperror.PayloadOf(err)})
	_ = c.Error(err)
}

func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
