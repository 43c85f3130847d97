package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	multaapi "github.com/Ftotnem/multa-tracker/multa/api"
	"github.com/Ftotnem/multa-tracker/multa/service"
	"github.com/Ftotnem/multa-tracker/multa/store/memstore"
	"github.com/Ftotnem/multa-tracker/shared/auth"
	"github.com/Ftotnem/multa-tracker/shared/feed"
)

func startServer(t *testing.T) string {
	t.Helper()
	st := memstore.New()
	bus := feed.NewLocalBus()
	log := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	h := multaapi.NewHandler(ctx, multaapi.Services{
		Teams:   service.NewTeamService(st, st, bus, log),
		Players: service.NewPlayerService(st, st, bus, log),
		Ledger:  service.NewLedgerService(st, st, bus, nil, log),
		Roster:  service.NewRosterService(st, st, bus, nil, log),
		Auth:    service.NewAuthService(st, st, auth.NewTokenIssuer("cli-test", time.Hour), log),
	}, multaapi.Options{}, log)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv.URL
}

// run executes one multactl invocation and returns its output lines.
func run(t *testing.T, configPath string, args ...string) ([]string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return strings.Split(strings.TrimSpace(out.String()), "\n"), err
}

func mustRun(t *testing.T, configPath string, args ...string) []string {
	t.Helper()
	lines, err := run(t, configPath, args...)
	require.NoError(t, err, strings.Join(lines, "\n"))
	return lines
}

func TestCLIRecordsMulta(t *testing.T) {
	url := startServer(t)
	configPath := filepath.Join(t.TempDir(), "multactl.yaml")

	mustRun(t, configPath, "--server", url, "signup", "kassier@club.lu", "--password", "geheim123")
	cfg, err := loadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, url, cfg.Server)
	assert.NotEmpty(t, cfg.Token)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	lines := mustRun(t, configPath, "--server", url, "teams", "create", "Erste", "blau")
	require.Len(t, lines, 2)
	assert.Equal(t, "Team was successfully added!", lines[0])
	teamID := lines[1]

	// signup stored the server, later calls find it in the config file.
	mustRun(t, configPath, "teams", "use", teamID)

	lines = mustRun(t, configPath, "players", "create", "Hans")
	assert.Equal(t, "Player was successfully added!", lines[0])
	hansID := lines[1]

	lines = mustRun(t, configPath, "multa", "add", hansID, "2,50")
	assert.Equal(t, "Multaaaaaa!", lines[0])
	assert.Equal(t, "Hans owes 2.50 (total 2.50)", lines[1])

	lines = mustRun(t, configPath, "multa", "pay", hansID, "1")
	assert.Equal(t, "Die Kasse dankt!", lines[0])

	roster := strings.Join(mustRun(t, configPath, "players", "list"), "\n")
	assert.Contains(t, roster, "Hans")
	assert.Contains(t, roster, "1.50")

	_, err = run(t, configPath, "multa", "add", hansID, "abc")
	assert.Error(t, err)

	mustRun(t, configPath, "logout")
	_, err = run(t, configPath, "whoami")
	assert.Error(t, err)
}

func TestCLIShowsServiceFailureText(t *testing.T) {
	url := startServer(t)
	configPath := filepath.Join(t.TempDir(), "multactl.yaml")
	mustRun(t, configPath, "--server", url, "signup", "kassier@club.lu", "--password", "geheim123")

	lines, err := run(t, configPath, "--server", url, "--team", "missing", "multa", "add", "p1", "5")
	require.Error(t, err)
	assert.Equal(t, "Oubocht! Multa nit notiert!", err.Error())
	assert.NotEmpty(t, lines)
}

func TestTeamRequired(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "multactl.yaml")
	_, err := run(t, configPath, "players", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no team selected")
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultServer, cfg.Server)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = loadConfig(path)
	assert.Error(t, err)
}
