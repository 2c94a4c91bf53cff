package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-registry/internal/model"
)

// writeTestConfig points the CLI at a fresh SQLite file in a temp dir.
func writeTestConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "registry.db")
	configPath = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
notifier:
  transport: memory
monitoring:
  prometheus_enabled: false
`, dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))
	return configPath, dbPath
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput, verbose, csvOutput = false, false, false
	searchTerm = ""
	addRequest = model.PatientRequest{}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when a command fails.
	require.NoError(t, closeRegistry())
	return out.String(), err
}

func TestSchemaInit(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "schema", "init")
	require.NoError(t, err)
	assert.Equal(t, "Database ready (sqlite "+dbPath+")\n", out)
	assert.FileExists(t, dbPath)

	out, err = runCLI(t, "--config", configPath, "schema", "init")
	require.NoError(t, err, "schema init is repeatable")
	assert.Contains(t, out, "Database ready")
}

func TestPatientCommands(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "patients", "add",
		"--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Registered Ada Lovelace: "), out)

	_, err = runCLI(t, "--config", configPath, "patients", "add",
		"--first-name", "Augusta", "--last-name", "King", "--email", "ada@example.com")
	require.Error(t, err, "duplicate email is rejected")

	out, err = runCLI(t, "--config", configPath, "--json", "patients", "list", "--search", "love")
	require.NoError(t, err)
	var patients []model.Patient
	require.NoError(t, json.Unmarshal([]byte(out), &patients), out)
	require.Len(t, patients, 1)
	assert.Equal(t, "Ada", patients[0].FirstName)
	assert.Equal(t, "ada@example.com", *patients[0].Email)

	out, err = runCLI(t, "--config", configPath, "query", "--csv", "SELECT first_name, last_name FROM patients")
	require.NoError(t, err)
	assert.Equal(t, "first_name,last_name\nAda,Lovelace\n", out)

	out, err = runCLI(t, "--config", configPath, "patients", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 1\n")

	id := patients[0].ID.String()
	out, err = runCLI(t, "--config", configPath, "patients", "delete", id)
	require.NoError(t, err)
	assert.Equal(t, "Deleted patient "+id+"\n", out)

	out, err = runCLI(t, "--config", configPath, "patients", "list")
	require.NoError(t, err)
	assert.Equal(t, "No patients found.\n", out)

	_, err = runCLI(t, "--config", configPath, "patients", "delete", "not-a-uuid")
	assert.EqualError(t, err, `invalid patient ID "not-a-uuid"`)
}
