package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"intohear/internal/config"
	"intohear/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	verboseFlag  *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		verboseFlag:  verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := loadDotEnv(); err != nil {
			c.configErr = err
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if level := c.resolvedLogLevel(); level != "" {
			cfg.Logging.Level = level
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger once, rotating and pruning the
// JSON log copy first.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		now := time.Now()
		rotated, rotateErr := logging.RotateLog(cfg.Paths.LogDir, cfg.LogMaxBytes(), now)
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		if rotateErr != nil {
			logging.WarnWithContext(logger, "log rotation failed; appending to active log", "log_rotation_failed",
				logging.Error(rotateErr),
				logging.String(logging.FieldErrorHint, "check paths.log_dir permissions"),
				logging.String(logging.FieldImpact, "the active log keeps growing"),
			)
		} else if rotated != "" {
			logger.Debug("log rotated", logging.String("path", rotated))
		}
		logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, now)
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) resolvedLogLevel() string {
	if c.verboseFlag != nil && *c.verboseFlag {
		return "debug"
	}
	if c.logLevelFlag != nil {
		level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		if level == "warning" {
			level = "warn"
		}
		return level
	}
	return ""
}

// loadDotEnv reads ./.env without overriding variables already set.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
