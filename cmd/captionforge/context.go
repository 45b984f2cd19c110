package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lzhgus/captionforge/internal/config"
	"github.com/lzhgus/captionforge/internal/logging"
)

// commandContext lazily loads and caches configuration shared across
// subcommands, and builds a logger consistent with the CLI's --log-level
// and --verbose flags.
type commandContext struct {
	configFlag *string
	logLevel   *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevel *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		logLevel:   logLevel,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) resolvedLogLevel(cfg *config.Config) string {
	if c != nil && c.logLevel != nil {
		if trimmed := strings.TrimSpace(*c.logLevel); trimmed != "" {
			return trimmed
		}
	}
	if c != nil && c.verbose != nil && *c.verbose {
		return "debug"
	}
	if cfg != nil && strings.TrimSpace(cfg.LogLevel) != "" {
		return cfg.LogLevel
	}
	return "info"
}

func (c *commandContext) logDevelopment(cfg *config.Config) bool {
	return strings.ToLower(strings.TrimSpace(c.resolvedLogLevel(cfg))) == "debug"
}

// newCLILogger builds a logger for CLI output: console format unless the
// config requests json, always writing to stdout.
func (c *commandContext) newCLILogger(cfg *config.Config, component string) (*slog.Logger, error) {
	opts := logging.Options{
		Level:       c.resolvedLogLevel(cfg),
		Format:      cfg.LogFormat,
		OutputPaths: []string{"stdout"},
		Development: c.logDevelopment(cfg),
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if component != "" {
		logger = logger.With(logging.String("component", component))
	}
	return logger, nil
}
