package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/config"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])

	flag := root.PersistentFlags().Lookup("env-file")
	require.NotNil(t, flag)
	assert.Equal(t, ".env", flag.DefValue)
}

func TestRunMigrate_CreatesDatabase(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "nested", "spending.db")}

	require.NoError(t, runMigrate(context.Background(), cfg, logger))
	assert.Contains(t, buf.String(), "version=2")

	// Running again is a no-op.
	require.NoError(t, runMigrate(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestMigrateCommand_InvalidConfig(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	root := newRootCommand()
	root.SetArgs([]string{"migrate", "--env-file", ""})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	assert.Error(t, root.Execute())
}
