package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"emindy/internal/assist"
	"emindy/internal/catalog"
	"emindy/internal/config"
	"emindy/internal/logging"
	"emindy/internal/playerstate"
)

type commandContext struct {
	configFlag *string
	serverFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, serverFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// logger writes CLI diagnostics to stderr so command output stays clean.
func (c *commandContext) logger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.NewFromConfig(cfg, logging.WithStream("stderr"))
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) client() (*assist.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	clientCfg := assist.ConfigFrom(cfg)
	if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
		clientCfg.ServerURL = strings.TrimSpace(*c.serverFlag)
	}
	return assist.New(clientCfg, assist.WithLogger(c.logger()))
}

func (c *commandContext) catalog() (*catalog.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Load(cfg.Paths.CatalogFile)
}

func (c *commandContext) stateStore() (*playerstate.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return playerstate.NewStore(cfg.Paths.StateFile, c.logger()), nil
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
