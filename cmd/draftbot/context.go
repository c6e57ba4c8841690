package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"draftbot/internal/api"
	"draftbot/internal/config"
)

// commandContext loads the configuration at most once per invocation and
// hands out daemon API clients built from it.
type commandContext struct {
	configFlag *string

	load   sync.Once
	cfg    *config.Config
	cfgErr error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.load.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err == nil {
			err = cfg.EnsureDirectories()
		}
		if err != nil {
			c.cfgErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.cfg = cfg
	})
	return c.cfg, c.cfgErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// apiClient returns a client for the daemon API, or errDaemonUnreachable when
// api.bind is empty.
func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg.API.Bind, cfg.API.Token)
	if err != nil {
		return nil, fmt.Errorf("daemon api address: %w", err)
	}
	if client == nil {
		return nil, errDaemonUnreachable
	}
	return client, nil
}

var errDaemonUnreachable = errors.New("daemon api is disabled (set api.bind)")

// daemonDown reports whether err means no daemon answered.
func daemonDown(err error) bool {
	return errors.Is(err, errDaemonUnreachable) || api.IsUnavailable(err)
}

func wrapDaemonError(err error) error {
	if daemonDown(err) {
		return fmt.Errorf("connect to daemon: %w; start it with `draftbot run`", err)
	}
	return err
}

// shouldSkipConfig reports whether cmd or an ancestor loads configuration
// itself.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
