// Package ledger owns the per-agent portfolio record: loading and saving
// it, applying fills to positions and keeping the NAV history.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/internal/storage"
	"github.com/dyike/ValueArena/models"
)

const DefaultStartingCapital = 10000.0

type Store struct {
	backend         storage.Store
	startingCapital float64
	now             func() time.Time
	log             zerolog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithStartingCapital(capital float64) Option {
	return func(s *Store) {
		if capital > 0 {
			s.startingCapital = capital
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

func NewStore(backend storage.Store, opts ...Option) *Store {
	s := &Store{
		backend:         backend,
		startingCapital: DefaultStartingCapital,
		now:             time.Now,
		log:             zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Today() string {
	return s.now().Format(consts.DateLayout)
}

// Fresh returns a new ledger for id with nav_history seeded at today's date.
func (s *Store) Fresh(id string) *models.Ledger {
	return &models.Ledger{
		ModelID:         id,
		StartingCapital: s.startingCapital,
		Cash:            s.startingCapital,
		Positions:       []models.Position{},
		TradeHistory:    []models.TradeRecord{},
		ResearchLogs:    []models.ResearchLog{},
		NavHistory:      []models.NavPoint{{Date: s.Today(), NAV: s.startingCapital}},
	}
}

// Load never fails: an absent, unreadable or corrupt document degrades to a
// fresh ledger.
func (s *Store) Load(ctx context.Context, id string) *models.Ledger {
	data, err := s.backend.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return s.Fresh(id)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("agent", id).Msg("ledger read failed, starting fresh")
		return s.Fresh(id)
	}

	var l models.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		s.log.Warn().Err(err).Str("agent", id).Msg("ledger document corrupt, starting fresh")
		return s.Fresh(id)
	}
	s.normalize(id, &l)
	return &l
}

func (s *Store) normalize(id string, l *models.Ledger) {
	if l.ModelID == "" {
		l.ModelID = id
	}
	if l.StartingCapital <= 0 {
		l.StartingCapital = s.startingCapital
	}
	// documents written before cash was tracked
	if l.Cash == 0 && len(l.Positions) == 0 && len(l.TradeHistory) == 0 {
		l.Cash = l.StartingCapital
	}
	if l.Positions == nil {
		l.Positions = []models.Position{}
	}
	if l.TradeHistory == nil {
		l.TradeHistory = []models.TradeRecord{}
	}
	for i := range l.TradeHistory {
		if l.TradeHistory[i].ID == "" {
			l.TradeHistory[i].ID = legacyTradeID(l.ModelID, i, l.TradeHistory[i])
		}
	}
	if l.ResearchLogs == nil {
		l.ResearchLogs = []models.ResearchLog{}
	}
	l.NavHistory = normalizeNavHistory(l.NavHistory)
	if len(l.NavHistory) == 0 {
		l.NavHistory = []models.NavPoint{{Date: s.Today(), NAV: l.StartingCapital}}
	}
}

// legacyTradeID derives a stable id for a record written before trades
// carried one, so the same record keeps its id across loads.
func legacyTradeID(modelID string, idx int, t models.TradeRecord) string {
	name := fmt.Sprintf("%s/%d/%s/%s/%s", modelID, idx, t.Date, t.Action, t.Ticker)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Save writes the whole ledger. The error is logged here and also returned
// so the caller can decide whether it matters.
func (s *Store) Save(ctx context.Context, l *models.Ledger) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		s.log.Warn().Err(err).Str("agent", l.ModelID).Msg("ledger encode failed")
		return err
	}
	if err := s.backend.Put(ctx, l.ModelID, data); err != nil {
		s.log.Warn().Err(err).Str("agent", l.ModelID).Msg("ledger save failed")
		return err
	}
	return nil
}
