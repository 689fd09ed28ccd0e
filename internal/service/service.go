// Package service is the surface the HTTP server, the scheduler and the CLI
// share: portfolio reads, the daily cycle trigger and the leaderboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/config"
	"github.com/dyike/ValueArena/internal/agents"
	"github.com/dyike/ValueArena/internal/broker"
	"github.com/dyike/ValueArena/internal/dataflows"
	"github.com/dyike/ValueArena/internal/ledger"
	"github.com/dyike/ValueArena/internal/storage"
	"github.com/dyike/ValueArena/internal/trading"
	"github.com/dyike/ValueArena/models"
)

// Version is stamped at build time.
var Version = "dev"

var (
	ErrUnknownAgent  = errors.New("unknown agent")
	ErrCycleRunning  = errors.New("a daily cycle is already running")
	ErrUnknownCursor = errors.New("unknown trade history cursor")
)

type Service struct {
	cfg     *config.Config
	backend storage.Store
	ledgers *ledger.Store
	ctrl    *trading.Controller
	running sync.Mutex
	log     zerolog.Logger
}

// New wires every collaborator from cfg. A chat model that cannot be built
// is not fatal: each agent then reports the error in its cycle status.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Service, error) {
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger storage: %w", err)
	}
	ledgers := ledger.NewStore(backend,
		ledger.WithStartingCapital(cfg.StartingCapital),
		ledger.WithLogger(log),
	)

	research := dataflows.NewDataFlowInterface(cfg, log)
	brokers := broker.NewRegistry(cfg, research, log)

	chatModel, err := agents.NewChatModel(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("chat model unavailable, agent cycles will fail")
		chatModel = agents.Unavailable(err)
	}
	driver := agents.NewDriver(chatModel,
		agents.WithMaxTurns(cfg.MaxTurns),
		agents.WithMaxTokens(cfg.MaxTokensPerRun),
		agents.WithLogger(log),
	)
	ctrl := trading.NewController(cfg, ledgers, brokers, research, research, driver, trading.WithLogger(log))

	return NewWithController(cfg, backend, ledgers, ctrl, log), nil
}

// NewWithController assembles a Service from prebuilt parts.
func NewWithController(cfg *config.Config, backend storage.Store, ledgers *ledger.Store, ctrl *trading.Controller, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		backend: backend,
		ledgers: ledgers,
		ctrl:    ctrl,
		log:     log.With().Str("component", "service").Logger(),
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Agents() []config.AgentConfig {
	return s.cfg.Agents
}

// Portfolio returns the ledger of one configured agent. An agent that has
// never run gets a fresh ledger.
func (s *Service) Portfolio(ctx context.Context, id string) (*models.Ledger, error) {
	agent, ok := s.cfg.FindAgent(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	return s.load(ctx, agent), nil
}

// Portfolios returns every configured agent's ledger in roster order.
func (s *Service) Portfolios(ctx context.Context) ([]*models.Ledger, error) {
	out := make([]*models.Ledger, 0, len(s.cfg.Agents))
	for _, agent := range s.cfg.Agents {
		out = append(out, s.load(ctx, agent))
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, agent config.AgentConfig) *models.Ledger {
	l := s.ledgers.Load(ctx, agent.ID)
	if l.DisplayName == "" {
		l.DisplayName = agent.Display
	}
	return l
}

// RunDaily runs one cycle over the requested agents, or all of them. Only
// one cycle runs at a time.
func (s *Service) RunDaily(ctx context.Context, ids ...string) ([]trading.AgentStatus, error) {
	roster, err := s.cfg.SelectAgents(ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAgent, err)
	}
	if !s.running.TryLock() {
		return nil, ErrCycleRunning
	}
	defer s.running.Unlock()

	return s.ctrl.RunDaily(ctx, roster), nil
}

// Leaderboard ranks every configured agent by NAV.
func (s *Service) Leaderboard(ctx context.Context) ([]ledger.Performance, error) {
	ledgers, err := s.Portfolios(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Leaderboard(ledgers), nil
}

func (s *Service) SystemInfo() map[string]any {
	return map[string]any{
		"version":  Version,
		"go":       runtime.Version(),
		"agents":   len(s.cfg.Agents),
		"broker":   s.cfg.Broker,
		"storage":  s.cfg.StorageBackend,
		"provider": s.cfg.LLMProvider,
	}
}

func (s *Service) Close() error {
	return s.backend.Close()
}
