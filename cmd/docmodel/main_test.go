package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
	"github.com/poiesic/docmodel/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// seedStore writes docs to a fresh on-disk store and returns its directory.
func seedStore(t *testing.T, docs ...core.Document) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "db")
	store, err := badger.OpenStore(dir, false)
	require.NoError(t, err)
	for _, doc := range docs {
		_, err := store.Insert(context.Background(), doc)
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())
	return dir
}

// run executes the CLI and returns its standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"docmodel", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestCountCommand(t *testing.T) {
	dir := seedStore(t,
		core.Document{"kind": "cat"},
		core.Document{"kind": "dog"},
		core.Document{"kind": "cat"},
	)

	out, err := run(t, "count", "--db", dir)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = run(t, "count", "--db", dir, "--filter", `{"kind":"cat"}`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, err = run(t, "count", "--db", dir, "--filter", `{bad json`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestFindCommand(t *testing.T) {
	dir := seedStore(t,
		core.Document{"_id": "a", "n": 3},
		core.Document{"_id": "b", "n": 1},
		core.Document{"_id": "c", "n": 2},
	)

	out, err := run(t, "find", "--db", dir, "--sort", "n:desc", "--limit", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first, second core.Document
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "a", first.ID())
	assert.Equal(t, "c", second.ID())

	out, err = run(t, "find", "--db", dir, "--filter", `{"n":{"$lt":2}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"_id":"b","n":1}`+"\n", out)

	_, err = run(t, "find", "--db", dir, "--sort", "n:sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sort direction")
}

func TestIndexCommands(t *testing.T) {
	dir := seedStore(t, core.Document{"email": "a@example.com"})

	_, err := run(t, "ensure-index", "--db", dir, "--field", "email", "--unique")
	require.NoError(t, err)
	_, err = run(t, "ensure-index", "--db", dir, "--field", "team")
	require.NoError(t, err)

	out, err := run(t, "indexes", "--db", dir)
	require.NoError(t, err)
	assert.Equal(t, "email\tunique\nteam\tindex\n", out)

	_, err = run(t, "remove-index", "--db", dir, "--field", "team")
	require.NoError(t, err)

	out, err = run(t, "indexes", "--db", dir)
	require.NoError(t, err)
	assert.Equal(t, "email\tunique\n", out)

	_, err = run(t, "ensure-index", "--db", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field")
}

func TestRemoveCommand(t *testing.T) {
	dir := seedStore(t,
		core.Document{"kind": "cat"},
		core.Document{"kind": "cat"},
		core.Document{"kind": "dog"},
	)

	out, err := run(t, "remove", "--db", dir, "--filter", `{"kind":"cat"}`)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = run(t, "remove", "--db", dir, "--filter", `{}`, "--multi")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, err = run(t, "remove", "--db", dir)
	require.Error(t, err, "remove requires an explicit filter")
}

func TestMigrateCommand(t *testing.T) {
	dir := seedStore(t,
		core.Document{"_id": "a", "plan": "free"},
		core.Document{"_id": "b", "plan": "pro"},
		core.Document{"_id": "c", "plan": "free"},
	)

	var out, progress bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &progress
	err := app.Run([]string{"docmodel", "--log-level", "error",
		"migrate", "--db", dir,
		"--filter", `{"plan":"free"}`,
		"--update", `{"$set":{"plan":"basic"}}`,
		"--batch-size", "1",
		"--retry-delay", "1ms",
	})
	require.NoError(t, err)
	assert.Equal(t, "2\n", out.String())
	assert.Contains(t, progress.String(), `msg="migration complete" updated=2`)

	count, err := run(t, "count", "--db", dir, "--filter", `{"plan":"basic"}`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", count)

	_, err = run(t, "migrate", "--db", dir, "--update", `{"$set":{"_id":"z"}}`, "--max-retries", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrCannotModifyID)

	_, err = run(t, "migrate", "--db", dir, "--update", `not json`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid update")
}

func TestParseSort(t *testing.T) {
	fields, err := parseSort([]string{"age", "name:desc", "city:ASC"})
	require.NoError(t, err)
	assert.Equal(t, []storage.SortField{
		{Field: "age"},
		{Field: "name", Desc: true},
		{Field: "city"},
	}, fields)

	_, err = parseSort([]string{":desc"})
	assert.Error(t, err)
}

func TestDbFlagRequired(t *testing.T) {
	_, err := run(t, "count")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
			{"WaRn", slog.LevelWarn},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
						assert.False(t, slog.Default().Enabled(context.Background(), tc.expected-1))
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}

		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
