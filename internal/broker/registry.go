package broker

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/config"
)

// Registry hands out the broker an agent trades through: the shared
// Alpaca account, or one paper account per agent.
type Registry struct {
	mu      sync.Mutex
	shared  Broker
	prices  PriceSource
	capital float64
	paper   map[string]*Paper
}

func NewRegistry(cfg *config.Config, prices PriceSource, log zerolog.Logger) *Registry {
	r := &Registry{
		prices:  prices,
		capital: cfg.StartingCapital,
		paper:   make(map[string]*Paper),
	}
	if cfg.Broker == config.BrokerAlpaca {
		r.shared = NewAlpaca(AlpacaConfig{
			BaseURL:   cfg.AlpacaURL(),
			APIKey:    cfg.AlpacaAPIKey,
			SecretKey: cfg.AlpacaSecretKey,
		}, log)
	}
	return r
}

// NewStaticRegistry returns the same broker for every agent.
func NewStaticRegistry(b Broker) *Registry {
	return &Registry{shared: b, paper: make(map[string]*Paper)}
}

func (r *Registry) For(agentID string) Broker {
	if r.shared != nil {
		return r.shared
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.paper[agentID]
	if !ok {
		p = NewPaper(r.capital, r.prices)
		r.paper[agentID] = p
	}
	return p
}
