// Package debug starts the eino dev-ops server when it is enabled.
package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/config"
)

type EinoDebugger struct {
	config *config.Config
	log    zerolog.Logger
}

func NewEinoDebugger(cfg *config.Config, log zerolog.Logger) *EinoDebugger {
	return &EinoDebugger{
		config: cfg,
		log:    log.With().Str("component", "eino_debug").Logger(),
	}
}

// Initialize is a no-op unless EINO_DEBUG_ENABLED is set.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.config.EinoDebugEnabled {
		return nil
	}

	d.log.Info().Int("port", d.config.EinoDebugPort).Msg("initializing eino visual debug plugin")
	if err := devops.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.log.Info().Str("url", d.GetDebugURL()).Msg("eino debug server ready")
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.config.EinoDebugEnabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.EinoDebugPort)
}
