package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "docql", cmd.Use)
	assert.Contains(t, cmd.Long, "folded")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"collections"},
		{"collections", "list"},
		{"collections", "create"},
		{"collections", "drop"},
		{"import"},
		{"query"},
		{"get"},
		{"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestImportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	tests := []struct {
		flag string
		def  string
	}{
		{"create", "false"},
		{"overwrite", "false"},
		{"on-duplicate", "error"},
		{"complete", "false"},
		{"details", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := importCmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	queryCmd, _, err := cmd.Find([]string{"query"})
	require.NoError(t, err)

	explainFlag := queryCmd.Flags().Lookup("explain")
	require.NotNil(t, explainFlag)
	assert.Equal(t, "false", explainFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execute(t, "--format", "invalid", "collections", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSettings(t *testing.T) {
	dir := t.TempDir()

	t.Run("defaults", func(t *testing.T) {
		opts := &RootOptions{}
		cfg, err := opts.settings()
		require.NoError(t, err)
		assert.Equal(t, "docql.db", cfg.Database)
		assert.Equal(t, "uuidv7", cfg.KeyGenerator)
	})

	t.Run("config file", func(t *testing.T) {
		path := writeFile(t, dir, "docql.cue", "database: \"app.db\"\nstrict_folding: true\n")
		opts := &RootOptions{ConfigPath: path}
		cfg, err := opts.settings()
		require.NoError(t, err)
		assert.Equal(t, "app.db", cfg.Database)
		assert.True(t, cfg.StrictFolding)
	})

	t.Run("db flag overrides config", func(t *testing.T) {
		path := writeFile(t, dir, "override.cue", "database: \"app.db\"\n")
		opts := &RootOptions{ConfigPath: path, Database: "other.db"}
		cfg, err := opts.settings()
		require.NoError(t, err)
		assert.Equal(t, "other.db", cfg.Database)
	})

	t.Run("bad config", func(t *testing.T) {
		path := writeFile(t, dir, "bad.cue", "log_level: \"loud\"\n")
		opts := &RootOptions{ConfigPath: path}
		_, err := opts.settings()
		require.Error(t, err)
	})
}
