package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

// EnvConfig holds defaults read from the environment. Flags win over it.
type EnvConfig struct {
	Rules    string `env:"PATCHCTL_RULES"`
	Engine   string `env:"PATCHCTL_ENGINE"`
	LogLevel string `env:"PATCHCTL_LOG_LEVEL" envDefault:"warn"`
	Color    string `env:"PATCHCTL_COLOR"     envDefault:"auto"`
}

func parseEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Color {
	case "auto", "always", "never":
	default:
		return EnvConfig{}, fmt.Errorf("parse env: PATCHCTL_COLOR must be auto, always or never, got %q", cfg.Color)
	}
	return cfg, nil
}

type MainConfig struct {
	Verbose bool `cli:"name=v aliases=verbose desc='log every registration and interception'"`

	Env  EnvConfig
	Main *cli.Command
}

func (cfg *MainConfig) logger(w io.Writer) (*slog.Logger, error) {
	level := slog.LevelWarn
	if err := level.UnmarshalText([]byte(cfg.Env.LogLevel)); err != nil {
		return nil, fmt.Errorf("%w: log level %q", cli.ErrUsage, cfg.Env.LogLevel)
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// useColor resolves PATCHCTL_COLOR; auto colours terminals only.
func (cfg *MainConfig) useColor(w io.Writer) bool {
	switch strings.ToLower(cfg.Env.Color) {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

type CheckConfig struct {
	*MainConfig

	Engine string `cli:"name=engine desc='default engine for rules that do not name one'"`
	Check  *cli.Command
}

type ReplayConfig struct {
	*MainConfig

	Rules  string `cli:"name=rules desc='rule file (default $PATCHCTL_RULES)'"`
	State  string `cli:"name=state desc='initial state as a JSON object file'"`
	Engine string `cli:"name=engine desc='default engine for rules that do not name one'"`
	Diff   bool   `cli:"name=diff desc='print a line diff of the state after each action'"`
	Replay *cli.Command
}
