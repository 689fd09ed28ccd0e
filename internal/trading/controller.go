// Package trading runs the daily cycle: every agent converses with its
// model, its decisions are executed and its ledger is brought up to date.
package trading

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/config"
	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/internal/agents"
	"github.com/dyike/ValueArena/internal/broker"
	"github.com/dyike/ValueArena/internal/ledger"
	"github.com/dyike/ValueArena/internal/tools"
)

// AgentStatus is the per-agent line of a cycle summary.
type AgentStatus struct {
	Model   string  `json:"model"`
	Status  string  `json:"status"`
	Trades  int     `json:"trades"`
	Error   string  `json:"error,omitempty"`
	Outcome string  `json:"outcome,omitempty"`
	NAV     float64 `json:"nav,omitempty"`
}

// Controller runs the daily cycle for a roster of agents, one at a time.
type Controller struct {
	cfg      *config.Config
	ledgers  *ledger.Store
	brokers  *broker.Registry
	research tools.Researcher
	prices   broker.PriceSource
	driver   *agents.Driver
	now      func() time.Time
	log      zerolog.Logger
}

type ControllerOption func(*Controller)

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

func WithLogger(log zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = log
	}
}

func NewController(cfg *config.Config, ledgers *ledger.Store, brokers *broker.Registry,
	research tools.Researcher, prices broker.PriceSource, driver *agents.Driver, opts ...ControllerOption) *Controller {
	c := &Controller{
		cfg:      cfg,
		ledgers:  ledgers,
		brokers:  brokers,
		research: research,
		prices:   prices,
		driver:   driver,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "controller").Logger()
	return c
}

// RunDaily runs one cycle over roster in order. A fresh spend budget is
// opened for the cycle. Failures are reported per agent and never stop the
// remaining agents. Cancelling ctx does not cut the cycle short; every
// agent is still run and its ledger still updated.
func (c *Controller) RunDaily(ctx context.Context, roster []config.AgentConfig) []AgentStatus {
	ctx = context.WithoutCancel(ctx)
	budget := agents.NewBudget(c.cfg.MaxDailySpend)
	results := make([]AgentStatus, 0, len(roster))

	c.log.Info().Int("agents", len(roster)).Float64("budget", budget.Cap).Msg("daily cycle started")
	for _, agent := range roster {
		s := &agentSession{
			ctrl:   c,
			agent:  agent,
			budget: budget,
			log:    c.log.With().Str("agent", agent.ID).Logger(),
		}
		status := s.runWithRecovery(ctx)
		if status.Status == consts.Status_Error {
			c.log.Error().Str("agent", agent.ID).Str("error", status.Error).Msg("agent cycle failed")
		} else {
			c.log.Info().Str("agent", agent.ID).Int("trades", status.Trades).Float64("nav", status.NAV).Msg("agent cycle complete")
		}
		results = append(results, status)
	}
	c.log.Info().Float64("spent", budget.Spent).Msg("daily cycle finished")
	return results
}
