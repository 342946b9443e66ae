package server

import (
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/solstream/tipjar/api/handlers"
)

// VersionInfo contains build-time version information.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

type Config struct {
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	VersionInfo       VersionInfo

	// OperationRate limits mutating requests per IP. Zero disables limiting.
	OperationRate  rate.Limit
	OperationBurst int

	HandlersConfig handlers.Config
}

func (cfg *Config) Validate() error {
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if err := cfg.HandlersConfig.Validate(); err != nil {
		return err
	}
	return nil
}
