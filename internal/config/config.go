// Package config loads docql settings from CUE.
//
// A configuration is a docql.cue file (or a directory holding one CUE
// package) whose top-level fields are checked against the
// embedded #Config schema:
//
//	database:       "app.db"
//	log_level:      "debug"
//	strict_folding: true
//	key_generator:  "sequence"
//
// Omitted fields take the schema defaults.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// FileName is the configuration file looked for by default.
const FileName = "docql.cue"

//go:embed schema.cue
var schemaCUE string

// Config holds docql settings.
type Config struct {
	Database      string `json:"database"`
	LogLevel      string `json:"log_level"`
	StrictFolding bool   `json:"strict_folding"`
	KeyGenerator  string `json:"key_generator"`
}

// Error is a configuration error with its CUE source position, if known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := decode(cuecontext.New().CompileString("{}"))
	if err != nil {
		panic(fmt.Sprintf("config: default schema: %v", err))
	}
	return cfg
}

// Load reads the configuration at path, a CUE file or a directory.
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, &Error{Field: "path", Message: err.Error()}
	}

	ctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return Config{}, &Error{Field: "path", Message: "no CUE instances loaded from " + path}
		}
		if err := instances[0].Err; err != nil {
			return Config{}, formatCUEError(err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &Error{Field: "path", Message: err.Error()}
		}
		v = ctx.CompileBytes(data, cue.Filename(path))
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	slog.Debug("config loaded", "path", path, "database", cfg.Database)
	return cfg, nil
}

// decode unifies v with the schema, applies defaults and extracts the
// result.
func decode(v cue.Value) (Config, error) {
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	schema := v.Context().CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	if cfg.Database == "" {
		return Config{}, &Error{Field: "database", Message: "must not be empty", Pos: unified.LookupPath(cue.ParsePath("database")).Pos()}
	}
	return cfg, nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = path[len(path)-1]
	}
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &Error{Field: field, Message: first.Error(), Pos: positions[0]}
	}
	return &Error{Field: field, Message: first.Error()}
}
