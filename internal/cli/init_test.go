package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/config"
	applog "spendwise/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SPENDWISE_CLI_TEST=from-dotenv\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("SPENDWISE_CLI_TEST", "")
	require.NoError(t, os.Unsetenv("SPENDWISE_CLI_TEST"))

	LoadEnvFile()
	assert.Equal(t, "from-dotenv", os.Getenv("SPENDWISE_CLI_TEST"))
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, applog.ComponentWorker)
	assert.Equal(t, applog.ComponentWorker, logger.Component())

	fallback := SetupLogger(&config.Config{LogLevel: "bogus", LogFormat: "text"}, applog.ComponentApp)
	assert.NotNil(t, fallback)
}

func TestGracefulShutdown(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Component: applog.ComponentApp})

	ctx, stop := GracefulShutdown(logger)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after SIGTERM")
	}
}

func TestGracefulShutdown_Stop(t *testing.T) {
	ctx, stop := GracefulShutdown(applog.Discard())
	stop()
	assert.Error(t, ctx.Err())
}
