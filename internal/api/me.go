// internal/api/me.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/middleware"
	"github.com/gurkanbulca/kanboard/internal/service"
)

// parseMyTasksFilter reads the My Tasks filter from the query string.
// Repeated projectId values select a project subset; times are RFC 3339.
func parseMyTasksFilter(c *gin.Context) (service.MyTasksFilter, error) {
	const op = "ListMyTasks"
	var f service.MyTasksFilter

	for _, raw := range c.QueryArray("projectId") {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apperror.NewValidation(op, "projectId", "invalid identifier")
		}
		f.ProjectIDs = append(f.ProjectIDs, id)
	}
	if raw := c.Query("labelId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apperror.NewValidation(op, "labelId", "invalid identifier")
		}
		f.LabelID = &id
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"dueFrom", &f.DueFrom}, {"dueTo", &f.DueTo}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, apperror.NewValidation(op, p.name, "must be an RFC 3339 timestamp")
		}
		*p.dst = &t
	}

	var err error
	if f.OverdueOnly, err = queryBool(c, "overdue"); err != nil {
		return f, apperror.NewValidation(op, "overdue", "must be a boolean")
	}
	if f.ThisWeek, err = queryBool(c, "thisWeek"); err != nil {
		return f, apperror.NewValidation(op, "thisWeek", "must be a boolean")
	}
	return f, nil
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func (s *Server) handleListMyTasks(c *gin.Context) {
	f, err := parseMyTasksFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	actor := middleware.Actor(c)
	tasks, err := s.board.ListMyTasks(c.Request.Context(), actor, actor, f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}
