// internal/api/server_test.go
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/repository"
	"github.com/gurkanbulca/kanboard/internal/service"
	"github.com/gurkanbulca/kanboard/pkg/activity"
	"github.com/gurkanbulca/kanboard/pkg/auth"
)

type testServer struct {
	t      *testing.T
	server *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	opts := service.DefaultOptions()
	opts.Logger = logger
	board := service.NewBoardService(repository.NewMemoryStore(), opts)
	tm := auth.NewTokenManager("access", "refresh", 15*time.Minute, time.Hour)
	authSvc := service.NewAuthService(board, tm, auth.NewPasswordManager(bcrypt.MinCost))
	return &testServer{t: t, server: New(board, authSvc, logger)}
}

// do sends a JSON request and decodes the response into out when given.
func (ts *testServer) do(method, path, token string, body any, out any) int {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

type errorBody struct {
	Error apperror.Payload `json:"error"`
}

type session struct {
	User   userResponse   `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (ts *testServer) register(name string) session {
	ts.t.Helper()
	var s session
	code := ts.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": name + "@example.com", "password": "Str0ngPass",
	}, &s)
	require.Equal(ts.t, http.StatusCreated, code)
	return s
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/healthz", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer(t)
	ada := ts.register("ada")
	assert.NotEmpty(t, ada.Tokens.AccessToken)

	var raw map[string]any
	ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "Str0ngPass"}, &raw)
	user := raw["user"].(map[string]any)
	assert.NotContains(t, user, "passwordHash")

	var e errorBody
	code := ts.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ada", "email": "ADA@example.com", "password": "Str0ngPass",
	}, &e)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, apperror.KindDuplicateEmail, e.Error.Kind)

	code = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "nope"}, &e)
	assert.Equal(t, http.StatusUnauthorized, code)

	var refreshed struct {
		Tokens auth.TokenPair `json:"tokens"`
	}
	code = ts.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": ada.Tokens.RefreshToken}, &refreshed)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, refreshed.Tokens.AccessToken)

	code = ts.do(http.MethodGet, "/api/workspaces", "", nil, &e)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperror.KindUnauthenticated, e.Error.Kind)
}

func TestBoardRoutes(t *testing.T) {
	ts := newTestServer(t)
	ada := ts.register("ada")
	bob := ts.register("bob")
	tok := ada.Tokens.AccessToken

	var ws struct {
		Workspace models.Workspace `json:"workspace"`
	}
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/workspaces", tok, gin.H{"name": "Acme"}, &ws))
	wsPath := "/api/workspaces/" + ws.Workspace.ID.String()

	var proj struct {
		Project models.Project `json:"project"`
	}
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, wsPath+"/projects", tok, gin.H{"name": "Launch"}, &proj))
	projPath := "/api/projects/" + proj.Project.ID.String()
	cols := proj.Project.ColumnOrder
	require.Len(t, cols, 3)

	var list struct {
		Projects []models.ProjectOverview `json:"projects"`
	}
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, wsPath+"/projects", tok, nil, &list))
	require.Len(t, list.Projects, 1)

	var e errorBody
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, projPath, bob.Tokens.AccessToken, nil, &e))
	assert.Equal(t, apperror.KindForbidden, e.Error.Kind)

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, wsPath+"/members", tok, gin.H{"email": "bob@example.com"}, nil))
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, projPath+"/members", tok, gin.H{"email": "bob@example.com"}, nil))

	var created struct {
		Task models.Task `json:"task"`
	}
	code := ts.do(http.MethodPost, "/api/columns/"+cols[0].String()+"/tasks", bob.Tokens.AccessToken, gin.H{
		"title":     "Write docs",
		"assignees": []uuid.UUID{bob.User.ID},
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	taskPath := "/api/tasks/" + created.Task.ID.String()

	var moved struct {
		Task models.Task `json:"task"`
	}
	require.Equal(t, http.StatusOK, ts.do(http.MethodPut, taskPath+"/move", tok, gin.H{"columnId": cols[1], "index": 0}, &moved))
	assert.Equal(t, cols[1], moved.Task.ColumnID)

	code = ts.do(http.MethodPut, taskPath+"/move", tok, gin.H{"columnId": cols[1], "index": -3}, &e)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperror.KindIndexOutOfRange, e.Error.Kind)

	var detail models.ProjectDetail
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, projPath, tok, nil, &detail))
	assert.Equal(t, 1, detail.Project.TaskStats.Total)
	assert.Equal(t, 1, detail.Project.TaskStats.ByColumn[cols[1]])
	require.Len(t, detail.Columns[1].Tasks, 1)

	var comment struct {
		Comment models.Comment `json:"comment"`
	}
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, taskPath+"/comments", bob.Tokens.AccessToken, gin.H{"content": "on it"}, &comment))

	var mine struct {
		Tasks []models.Task `json:"tasks"`
	}
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/me/tasks", bob.Tokens.AccessToken, nil, &mine))
	require.Len(t, mine.Tasks, 1)
	assert.Equal(t, created.Task.ID, mine.Tasks[0].ID)

	var page service.ActivityPage
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, projPath+"/activities?limit=2", tok, nil, &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, activity.CommentAdded, page.Items[0].Action)
	assert.Equal(t, activity.TaskMoved, page.Items[1].Action)
	require.NotEmpty(t, page.NextCursor)

	var next service.ActivityPage
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, projPath+"/activities?limit=2&cursor="+page.NextCursor, tok, nil, &next))
	require.NotEmpty(t, next.Items)
	assert.Equal(t, activity.TaskCreated, next.Items[0].Action)

	var report struct {
		OK bool `json:"ok"`
	}
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, projPath+"/integrity", tok, nil, &report))
	assert.True(t, report.OK)

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodDelete, "/api/columns/"+cols[1].String(), bob.Tokens.AccessToken, nil, nil))
	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/columns/"+cols[1].String(), tok, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, taskPath, tok, nil, nil))

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, projPath+"/archive", tok, nil, nil))
	code = ts.do(http.MethodPost, "/api/columns/"+cols[0].String()+"/tasks", tok, gin.H{"title": "late"}, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, apperror.KindProjectArchived, e.Error.Kind)
}

func TestValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	ada := ts.register("ada")
	tok := ada.Tokens.AccessToken

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		field  string
	}{
		{"bad id", http.MethodGet, "/api/projects/not-a-uuid", nil, http.StatusBadRequest, "id"},
		{"missing name", http.MethodPost, "/api/workspaces", gin.H{}, http.StatusBadRequest, "body"},
		{"bad limit", http.MethodGet, "/api/projects/" + uuid.NewString() + "/activities?limit=x", nil, http.StatusBadRequest, "limit"},
		{"bad due range", http.MethodGet, "/api/me/tasks?dueFrom=yesterday", nil, http.StatusBadRequest, "dueFrom"},
		{"unknown project", http.MethodGet, "/api/projects/" + uuid.NewString(), nil, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorBody
			assert.Equal(t, tt.status, ts.do(tt.method, tt.path, tok, tt.body, &e))
			assert.Equal(t, tt.field, e.Error.Field)
		})
	}
}

func TestDeleteMe(t *testing.T) {
	ts := newTestServer(t)
	ada := ts.register("ada")
	tok := ada.Tokens.AccessToken

	var ws struct {
		Workspace models.Workspace `json:"workspace"`
	}
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/workspaces", tok, gin.H{"name": "Acme"}, &ws))

	var e errorBody
	assert.Equal(t, http.StatusUnprocessableEntity, ts.do(http.MethodDelete, "/api/users/me", tok, nil, &e))
	assert.Equal(t, apperror.KindOwnerRemoval, e.Error.Kind)

	require.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/workspaces/"+ws.Workspace.ID.String(), tok, nil, nil))
	require.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/users/me", tok, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/workspaces", tok, nil, nil))
}
