package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/testutil"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func seedUsers(t *testing.T, path string) {
	t.Helper()
	testutil.SeedFile(t, path, "users",
		doc.Object{"_key": "u1", "name": "Ada", "age": 36},
		doc.Object{"_key": "u2", "name": "Bob", "age": 25},
		doc.Object{"_key": "u3", "name": "Cy", "age": 17},
	)
}

func TestCollectionsCommands(t *testing.T) {
	db := testutil.DBPath(t)

	out, _, err := execute(t, "--db", db, "collections", "list")
	require.NoError(t, err)
	assert.Equal(t, "No collections\n", out)

	out, _, err = execute(t, "--db", db, "collections", "create", "users")
	require.NoError(t, err)
	assert.Equal(t, "Created collection users\n", out)

	out, _, err = execute(t, "--db", db, "--format", "json", "collections", "create", "orders")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"name": "orders", "count": float64(0)}, resp.Data)

	testutil.SeedFile(t, db, "users", doc.Object{"name": "Ada"})

	out, _, err = execute(t, "--db", db, "collections", "list")
	require.NoError(t, err)
	assert.Regexp(t, `orders\s*\|\s*0`, out)
	assert.Regexp(t, `users\s*\|\s*1`, out)
	assert.Less(t, strings.Index(out, "orders"), strings.Index(out, "users"))

	out, _, err = execute(t, "--db", db, "--format", "json", "collections", "list")
	require.NoError(t, err)
	resp = decodeResponse(t, out)
	assert.Equal(t, []any{
		map[string]any{"name": "orders", "count": float64(0)},
		map[string]any{"name": "users", "count": float64(1)},
	}, resp.Data)

	out, _, err = execute(t, "--db", db, "collections", "drop", "users")
	require.NoError(t, err)
	assert.Equal(t, "Dropped collection users\n", out)
}

func TestCollectionsCommandErrors(t *testing.T) {
	db := testutil.DBPath(t)
	_, _, err := execute(t, "--db", db, "collections", "create", "users")
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
	}{
		{"duplicate", []string{"collections", "create", "users"}, ExitFailure, ErrCodeConflict},
		{"invalid name", []string{"collections", "create", "9lives"}, ExitFailure, ErrCodeInvalidInput},
		{"drop missing", []string{"collections", "drop", "ghosts"}, ExitFailure, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, err := execute(t, append([]string{"--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, errOut, "Error ["+tt.code+"]")
		})
	}
}

func TestOpenFailure(t *testing.T) {
	_, errOut, err := execute(t, "--db", filepath.Join(t.TempDir(), "missing", "dir", "test.db"), "collections", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
	assert.Contains(t, errOut, "Error ["+ErrCodeOpenFailed+"]")
}

func TestConfigFailure(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "docql.cue", "colour: \"red\"\n")
	out, _, err := execute(t, "--config", cfg, "--format", "json", "collections", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
}

func TestConfigDatabase(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")
	cfg := writeFile(t, dir, "docql.cue", "database: \""+filepath.ToSlash(db)+"\"\n")

	_, _, err := execute(t, "--config", cfg, "collections", "create", "users")
	require.NoError(t, err)
	assert.FileExists(t, db)
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	db := testutil.DBPath(t)

	t.Run("json array with create", func(t *testing.T) {
		file := writeFile(t, dir, "users.json", `[
			{"_key": "u1", "name": "Ada", "age": 36},
			{"_key": "u2", "name": "Bob", "age": 25},
			{}
		]`)
		out, _, err := execute(t, "--db", db, "import", "users", file, "--create")
		require.NoError(t, err)
		assert.Equal(t, "created: 2, updated: 0, ignored: 0, empty: 1, errors: 0\n", out)
	})

	t.Run("jsonl stream", func(t *testing.T) {
		file := writeFile(t, dir, "more.jsonl", "{\"_key\": \"u3\", \"name\": \"Cy\"}\n{\"_key\": \"u4\", \"name\": \"Dee\"}\n")
		out, _, err := execute(t, "--db", db, "--format", "json", "import", "users", file)
		require.NoError(t, err)
		resp := decodeResponse(t, out)
		assert.Equal(t, map[string]any{
			"created": float64(2), "errors": float64(0), "empty": float64(0),
			"updated": float64(0), "ignored": float64(0),
		}, resp.Data)
	})

	t.Run("yaml documents with update policy", func(t *testing.T) {
		file := writeFile(t, dir, "patch.yaml", "_key: u1\nage: 37\n---\n- _key: u5\n  name: Eve\n")
		out, _, err := execute(t, "--db", db, "import", "users", file, "--on-duplicate", "update")
		require.NoError(t, err)
		assert.Equal(t, "created: 1, updated: 1, ignored: 0, empty: 0, errors: 0\n", out)

		out, _, err = execute(t, "--db", db, "get", "users", "u1")
		require.NoError(t, err)
		assert.Contains(t, out, `"age":37,"name":"Ada"`)
	})

	t.Run("duplicate details", func(t *testing.T) {
		file := writeFile(t, dir, "dup.json", `[{"_key": "u2", "name": "Bob"}, {"_key": "u6", "name": "Fay"}]`)
		out, _, err := execute(t, "--db", db, "import", "users", file, "--details")
		require.NoError(t, err)
		assert.Contains(t, out, "created: 1, updated: 0, ignored: 0, empty: 0, errors: 1\n")
		assert.Contains(t, out, "at position 0:")
		assert.Contains(t, out, "unique constraint violated")
	})

	t.Run("complete rolls back", func(t *testing.T) {
		file := writeFile(t, dir, "all-or-nothing.json", `[{"_key": "u7"}, {"_key": "u1"}]`)
		out, _, err := execute(t, "--db", db, "--format", "json", "import", "users", file, "--complete")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		resp := decodeResponse(t, out)
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeImportFailed, resp.Error.Code)

		_, _, err = execute(t, "--db", db, "get", "users", "u7")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})

	t.Run("overwrite", func(t *testing.T) {
		file := writeFile(t, dir, "fresh.json", `{"_key": "only", "name": "Zed"}`)
		_, _, err := execute(t, "--db", db, "import", "users", file, "--overwrite")
		require.NoError(t, err)

		out, _, err := execute(t, "--db", db, "--format", "json", "collections", "list")
		require.NoError(t, err)
		resp := decodeResponse(t, out)
		assert.Equal(t, []any{map[string]any{"name": "users", "count": float64(1)}}, resp.Data)
	})
}

func TestImportCommandErrors(t *testing.T) {
	dir := t.TempDir()
	db := testutil.DBPath(t)
	good := writeFile(t, dir, "good.json", `[{"name": "Ada"}]`)

	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
	}{
		{"bad policy", []string{"import", "users", good, "--on-duplicate", "merge"}, ExitCommandError, ErrCodeInvalidInput},
		{"missing file", []string{"import", "users", filepath.Join(dir, "nope.json")}, ExitCommandError, ErrCodeInvalidInput},
		{"malformed json", []string{"import", "users", writeFile(t, dir, "bad.json", `[{"name":`)}, ExitCommandError, ErrCodeInvalidInput},
		{"not an object", []string{"import", "users", writeFile(t, dir, "scalar.yaml", "- 1\n")}, ExitCommandError, ErrCodeInvalidInput},
		{"missing collection", []string{"import", "users", good}, ExitFailure, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, err := execute(t, append([]string{"--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, errOut, "Error ["+tt.code+"]")
		})
	}
}

func TestImportStdin(t *testing.T) {
	db := testutil.DBPath(t)
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("- name: Ada\n- name: Bob\n"))
	cmd.SetArgs([]string{"--db", db, "import", "users", "-", "--create"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "created: 2, updated: 0, ignored: 0, empty: 0, errors: 0\n", out.String())
}

func TestGetCommand(t *testing.T) {
	db := testutil.DBPath(t)
	seedUsers(t, db)
	rev := doc.MustRevision(doc.Object{"name": "Ada", "age": int64(36)})

	out, _, err := execute(t, "--db", db, "get", "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"_key":"u1","_rev":"`+rev+`","age":36,"name":"Ada"}`+"\n", out)

	out, _, err = execute(t, "--db", db, "--format", "json", "get", "users", "u1")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, map[string]any{"_key": "u1", "_rev": rev, "age": float64(36), "name": "Ada"}, resp.Data)

	tests := []struct {
		name string
		args []string
	}{
		{"missing document", []string{"get", "users", "nobody"}},
		{"missing collection", []string{"get", "ghosts", "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, err := execute(t, append([]string{"--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, errOut, "Error ["+ErrCodeNotFound+"]")
		})
	}
}

const adultsYAML = `from: users
where: {ge: [{field: age}, {add: [9, 9]}]}
order_by: [{field: name}]
select: {name: {field: name}, next: {add: [{field: age}, 1]}}
`

func TestQueryCommand(t *testing.T) {
	dir := t.TempDir()
	db := testutil.DBPath(t)
	seedUsers(t, db)
	def := writeFile(t, dir, "adults.yaml", adultsYAML)

	t.Run("text table", func(t *testing.T) {
		out, _, err := execute(t, "--db", db, "query", def)
		require.NoError(t, err)
		assert.Regexp(t, `name\s*\|\s*next`, out)
		assert.Regexp(t, `Ada\s*\|\s*37`, out)
		assert.Regexp(t, `Bob\s*\|\s*26`, out)
		assert.NotContains(t, out, "Cy")
		assert.Less(t, strings.Index(out, "Ada"), strings.Index(out, "Bob"))
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, "--db", db, "--format", "json", "query", def)
		require.NoError(t, err)
		resp := decodeResponse(t, out)
		assert.Equal(t, []any{
			map[string]any{"name": "Ada", "next": float64(37)},
			map[string]any{"name": "Bob", "next": float64(26)},
		}, resp.Data)
	})

	t.Run("cue definition count", func(t *testing.T) {
		cue := writeFile(t, dir, "count.cue", "from: \"users\"\ncount: true\n")
		out, _, err := execute(t, "--db", db, "query", cue)
		require.NoError(t, err)
		assert.Equal(t, "3\n", out)
	})

	t.Run("no results", func(t *testing.T) {
		none := writeFile(t, dir, "none.yaml", "from: users\nwhere: {gt: [{field: age}, 100]}\n")
		out, _, err := execute(t, "--db", db, "query", none)
		require.NoError(t, err)
		assert.Equal(t, "(no results)\n", out)
	})
}

func TestQueryExplain(t *testing.T) {
	dir := t.TempDir()
	db := testutil.DBPath(t)
	def := writeFile(t, dir, "adults.yaml", adultsYAML)

	out, _, err := execute(t, "--db", db, "query", def, "--explain")
	require.NoError(t, err)
	assert.Contains(t, out, "original:  ")
	assert.Contains(t, out, "(9 + 9)")
	assert.Contains(t, out, "folded:    ")
	assert.Contains(t, out, "1 subtree(s) folded")
	assert.Contains(t, out, "sql:       SELECT")
	assert.Contains(t, out, `params:    [1, "users", 18]`)
	assert.Regexp(t, `hash:      [0-9a-f]{64}`, out)

	out, _, err = execute(t, "--db", db, "--format", "json", "query", def, "--explain")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	plan, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), plan["folded_count"])
	assert.Equal(t, []any{float64(1), "users", float64(18)}, plan["params"])
	assert.Contains(t, plan["folded"], "18")
}

func TestQueryCommandErrors(t *testing.T) {
	dir := t.TempDir()
	db := testutil.DBPath(t)
	seedUsers(t, db)

	tests := []struct {
		name     string
		file     string
		content  string
		exitCode int
		code     string
	}{
		{"unknown key", "typo.yaml", "from: users\nfilter: {}\n", ExitCommandError, ErrCodeInvalidInput},
		{"unknown operator", "op.yaml", "from: users\nwhere: {gte: [{field: age}, 1]}\n", ExitCommandError, ErrCodeInvalidInput},
		{"deferred failure", "mod.yaml", "from: users\nskip: {mod: [1, 0]}\n", ExitFailure, ErrCodeQueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := writeFile(t, dir, tt.file, tt.content)
			_, errOut, err := execute(t, "--db", db, "query", def)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, errOut, "Error ["+tt.code+"]")
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, errOut, err := execute(t, "--db", db, "query", filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, errOut, "failed to read query definition")
	})
}
