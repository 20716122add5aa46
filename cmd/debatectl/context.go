package main

import (
	"encoding/json"
	"sync"

	"energy-debates/internal/config"
	"energy-debates/internal/db"
	"energy-debates/internal/storage"

	"github.com/spf13/cobra"
)

// commandContext loads configuration and connections lazily so offline
// commands never touch the database.
type commandContext struct {
	loadConfig func() (*config.Config, error)

	cfgOnce sync.Once
	cfg     *config.Config
	cfgErr  error

	dbOnce sync.Once
}

func newCommandContext() *commandContext {
	return &commandContext{loadConfig: config.Load}
}

func (c *commandContext) config() (*config.Config, error) {
	c.cfgOnce.Do(func() {
		c.cfg, c.cfgErr = c.loadConfig()
	})
	return c.cfg, c.cfgErr
}

func (c *commandContext) database() (*config.Config, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	c.dbOnce.Do(func() {
		db.InitDB(cfg.DatabaseURL)
	})
	return cfg, nil
}

func (c *commandContext) blobs() (storage.BlobStore, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return storage.Open(cfg)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
