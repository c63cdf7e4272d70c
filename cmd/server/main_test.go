package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"totgame/internal/catalog"
	"totgame/internal/config"
)

func TestLoadCatalog(t *testing.T) {
	ctx := context.Background()

	builtin, err := loadCatalog(ctx, "")
	require.NoError(t, err)
	assert.Positive(t, builtin.Size(catalog.Truth))

	path := filepath.Join(t.TempDir(), "prompts.db")
	require.NoError(t, catalog.WriteSQLite(ctx, path, builtin))
	stored, err := loadCatalog(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, builtin.Size(catalog.Trick), stored.Size(catalog.Trick))
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Setenv("TOT_ADDR", "127.0.0.1:0")
	t.Setenv("PORT", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, zerolog.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
