// internal/app/app_test.go
package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/kanboard/internal/config"
	"github.com/gurkanbulca/kanboard/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("BOARD_DEFAULT_COLUMNS", "Backlog,Shipped")
	t.Setenv("BOARD_DEFAULT_DONE_COLUMN", "true")
	t.Setenv("BOARD_MAX_RETRIES", "7")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestBoardOptions(t *testing.T) {
	cfg := testConfig(t)
	opts := BoardOptions(cfg, nil)

	assert.Equal(t, []string{"Backlog", "Shipped"}, opts.DefaultColumns)
	assert.True(t, opts.DefaultDoneColumn)
	assert.Equal(t, 7, opts.MaxRetries)
	assert.Equal(t, cfg.Board.MaxActivityLimit, opts.MaxActivityLimit)
}

func TestBuildWithMemoryStore(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	board, err := Build(ctx, cfg, false, logger)
	require.NoError(t, err)
	defer board.Close()

	user, pair, err := board.Auth.Register(ctx, "Ada", "ada@example.com", "Str0ngPass")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	ws, err := board.Service.CreateWorkspace(ctx, user.ID, "Acme")
	require.NoError(t, err)
	p, err := board.Service.CreateProject(ctx, user.ID, ws.ID, service.ProjectInput{Name: "Launch"})
	require.NoError(t, err)
	require.Len(t, p.ColumnOrder, 2)
	require.NotNil(t, p.DoneColumnID)
	assert.Equal(t, p.ColumnOrder[1], *p.DoneColumnID)
}

func TestOpenCacheDisabled(t *testing.T) {
	cfg := testConfig(t)
	assert.Nil(t, OpenCache(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))))
}
