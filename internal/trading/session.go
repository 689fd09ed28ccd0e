package trading

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/config"
	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/internal/agents"
	"github.com/dyike/ValueArena/internal/broker"
	"github.com/dyike/ValueArena/internal/ledger"
	"github.com/dyike/ValueArena/internal/tools"
	"github.com/dyike/ValueArena/models"
)

// agentSession is one agent's pass through the daily cycle.
type agentSession struct {
	ctrl   *Controller
	agent  config.AgentConfig
	budget *agents.Budget
	log    zerolog.Logger

	ledger *models.Ledger
	broker broker.Broker
	today  string
	trades int
}

// runWithRecovery turns a panic anywhere in the session into an error
// status for this agent only.
func (s *agentSession) runWithRecovery(ctx context.Context) (status AgentStatus) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("agent cycle panicked")
			status = AgentStatus{
				Model:  s.agent.ID,
				Status: consts.Status_Error,
				Trades: s.trades,
				Error:  fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return s.run(ctx)
}

func (s *agentSession) run(ctx context.Context) AgentStatus {
	c := s.ctrl
	s.today = c.now().Format(consts.DateLayout)
	s.broker = c.brokers.For(s.agent.ID)

	s.ledger = c.ledgers.Load(ctx, s.agent.ID)
	if s.ledger.DisplayName == "" {
		s.ledger.DisplayName = s.agent.Display
	}
	if seeder, ok := s.broker.(broker.Seeder); ok {
		seeder.Seed(s.ledger.Cash, s.ledger.Positions)
	}

	msgs, err := agents.InitialMessages(ctx, s.ledger, s.today)
	if err != nil {
		return s.failed(err)
	}

	transcript := c.driver.Run(ctx, agents.Request{
		AgentID:  s.agent.ID,
		Model:    agents.ModelFor(c.cfg, s.agent.ID),
		Messages: msgs,
		Tools:    tools.NewGateway(c.research, s.broker, s.log),
		Budget:   s.budget,
	})

	decision := ParseDecision(transcript.Payload)
	if decision.ParseError != "" {
		s.log.Warn().Str("error", decision.ParseError).Msg("decision payload unreadable, using fallback")
	}

	for _, intent := range decision.Trades {
		s.execute(ctx, intent)
	}

	if ledger.AppendResearch(s.ledger, s.today, decision.ResearchNotes) {
		s.save(ctx)
	}

	nav := s.updateNAV(ctx)

	status := AgentStatus{
		Model:   s.agent.ID,
		Status:  consts.Status_Success,
		Trades:  s.trades,
		Outcome: transcript.Outcome,
		NAV:     nav,
	}
	if transcript.Err != nil {
		status.Status = consts.Status_Error
		status.Error = transcript.Err.Error()
	}
	return status
}

func (s *agentSession) failed(err error) AgentStatus {
	return AgentStatus{
		Model:  s.agent.ID,
		Status: consts.Status_Error,
		Trades: s.trades,
		Error:  err.Error(),
	}
}

// execute places one intent, applies the fill and records it. Every intent
// that reaches the broker, or is refused before it, leaves a trade record.
func (s *agentSession) execute(ctx context.Context, intent models.TradeIntent) {
	log := s.log.With().Str("action", intent.Action).Str("ticker", intent.Ticker).Logger()
	if err := intent.Validate(); err != nil {
		log.Warn().Err(err).Msg("ignoring malformed trade")
		return
	}

	// every sell needs a ledger position, whatever quantity was asked for
	var pos *models.Position
	if intent.Action == consts.ActionSell {
		if pos, _ = s.ledger.Position(intent.Ticker); pos == nil {
			log.Warn().Msg("sell without a position, skipping")
			s.record(ctx, intent, models.FillResult{Error: fmt.Sprintf("no %s position to sell", intent.Ticker)}, ledger.Effect{}, 0)
			return
		}
	}

	order := broker.Order{Ticker: intent.Ticker, Side: intent.Action}
	switch q, explicit := intent.ExplicitShares(); {
	case intent.IsSellAll():
		order.Quantity = pos.Shares
	case explicit:
		order.Quantity = q
	default:
		order.Notional = intent.Amount()
	}

	fill, err := s.broker.ExecuteTrade(ctx, order)
	if err != nil {
		log.Error().Err(err).Msg("order failed")
		s.record(ctx, intent, models.FillResult{Error: err.Error()}, ledger.Effect{}, 0)
		return
	}
	if fill.Failed() {
		log.Error().Str("error", fill.Error).Msg("order rejected")
		s.record(ctx, intent, *fill, ledger.Effect{}, 0)
		return
	}

	price := s.fillPrice(ctx, intent.Ticker, fill)
	eff := ledger.ApplyTrade(s.ledger.Positions, intent, price, s.today)
	if !eff.Applied {
		log.Warn().Str("reason", eff.Skipped).Msg("fill not applied to ledger")
		price = 0
	}
	ledger.Commit(s.ledger, eff)
	s.record(ctx, intent, *fill, eff, price)
}

// fillPrice prefers the broker's average fill price and falls back to a
// fresh quote for orders that were accepted but not yet filled.
func (s *agentSession) fillPrice(ctx context.Context, ticker string, fill *models.FillResult) float64 {
	if fill.FilledAvgPrice > 0 {
		return fill.FilledAvgPrice
	}
	if s.ctrl.prices == nil {
		return 0
	}
	px, err := s.ctrl.prices.LastPrice(ctx, ticker)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("no fill price and no quote")
		return 0
	}
	return px
}

func (s *agentSession) record(ctx context.Context, intent models.TradeIntent, result models.FillResult, eff ledger.Effect, price float64) {
	ledger.AppendTrade(s.ledger, ledger.NewTradeRecord(intent, result, eff.Quantity, price, s.ctrl.now()))
	s.trades++
	s.save(ctx)
}

// save persists the ledger. A failure is logged by the store and the
// session carries on with its in-memory copy.
func (s *agentSession) save(ctx context.Context) {
	_ = s.ctrl.ledgers.Save(ctx, s.ledger)
}

// updateNAV records today's NAV, read from the brokerage account unless the
// ledger is configured as the source or the account cannot be read.
func (s *agentSession) updateNAV(ctx context.Context) float64 {
	var nav float64
	if s.ctrl.cfg.NAVSource != config.NAVFromLedger {
		snap, err := s.broker.AccountSnapshot(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("account snapshot failed, computing nav from ledger")
		} else {
			ledger.Revalue(s.ledger, snapshotPrices(snap))
			nav = snap.TotalValue
		}
	}
	if nav <= 0 {
		s.markToMarket(ctx)
		nav = ledger.ComputeNAV(s.ledger)
	}

	ledger.UpdateNAV(s.ledger, s.today, nav)
	s.save(ctx)
	return nav
}

func (s *agentSession) markToMarket(ctx context.Context) {
	if s.ctrl.prices == nil {
		return
	}
	prices := make(map[string]float64, len(s.ledger.Positions))
	for _, p := range s.ledger.Positions {
		px, err := s.ctrl.prices.LastPrice(ctx, p.Ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", p.Ticker).Msg("quote failed, keeping last value")
			continue
		}
		prices[p.Ticker] = px
	}
	ledger.Revalue(s.ledger, prices)
}

func snapshotPrices(snap *models.AccountSnapshot) map[string]float64 {
	prices := make(map[string]float64, len(snap.Positions))
	for _, p := range snap.Positions {
		if p.Shares > 0 && p.MarketValue > 0 {
			prices[p.Ticker] = p.MarketValue / p.Shares
		}
	}
	return prices
}
