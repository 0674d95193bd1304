package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/cohort"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/fixture"
	"github.com/tso500-cohort-explorer/internal/survival"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cohort.db")
	require.NoError(t, fixture.WriteSQLite(context.Background(), dbPath,
		fixture.Generate(fixture.Options{Patients: 20, Seed: 4})))

	configPath := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf("tabular:\n  driver: sqlite\n  sqlite_path: %s\ngraph:\n  driver: memory\n", dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o600))
	return configPath
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCmd(t, "resolve", "--config", configPath, "--filters", `{"sex":["female"]}`)
	require.NoError(t, err)

	var res cohort.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "sex=[female]", res.Key)
	assert.False(t, res.Degraded)
}

func TestResolveCommandRejectsInvalidFilters(t *testing.T) {
	configPath := writeTestConfig(t)

	_, err := runCmd(t, "resolve", "--config", configPath, "--filters", `{"age":{"min":90,"max":10}}`)

	assert.True(t, domain.IsValidationError(err))
}

func TestViewsCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCmd(t, "views", "--config", configPath)
	require.NoError(t, err)

	var body struct {
		Views cohort.Views `json:"views"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 20, body.Views.Summary.UniquePatients)
}

func TestSurvivalCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCmd(t, "survival", "--config", configPath, "--key", "sex")
	require.NoError(t, err)

	var est survival.Estimate
	require.NoError(t, json.Unmarshal([]byte(out), &est))
	assert.Equal(t, survival.KeySex, est.Key)

	_, err = runCmd(t, "survival", "--config", configPath, "--key", "stage")
	assert.ErrorIs(t, err, domain.ErrUnknownStratification)
}

func TestCheckCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCmd(t, "check", "--config", configPath)

	require.NoError(t, err)
	assert.Contains(t, out, "tabular (sqlite): ok")
	assert.Contains(t, out, "graph (memory): ok")
}

func TestCheckCommandMissingDatabase(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf("tabular:\n  sqlite_path: %s\n", filepath.Join(dir, "absent.db"))
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o600))

	_, err := runCmd(t, "check", "--config", configPath)

	assert.True(t, domain.IsConfigurationError(err))
}

func TestParseFiltersFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gene":"KRAS"}`), 0o600))

	set, err := parseFilters("@" + path)

	require.NoError(t, err)
	assert.Equal(t, "gene=KRAS", set.Key())
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	desktop := filepath.Join(dir, "desktop.json")
	binary := filepath.Join(dir, "mcp-server")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755))

	out, err := runCmd(t, "setup", "--desktop-config", desktop, "--binary", binary)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered tso500-cohort-explorer")

	out, err = runCmd(t, "setup", "status", "--desktop-config", desktop)
	require.NoError(t, err)
	assert.Contains(t, out, binary)
}
