package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyike/ValueArena/consts"
)

// Shares is the requested share quantity of a trade intent. The model may
// send a number, a numeric string or the literal "ALL".
type Shares struct {
	All      bool
	Quantity float64
}

func (s Shares) MarshalJSON() ([]byte, error) {
	if s.All {
		return json.Marshal(consts.SharesAll)
	}
	return json.Marshal(s.Quantity)
}

func (s *Shares) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = Shares{}
		return nil
	}

	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("shares: %w", err)
		}
		raw = strings.TrimSpace(raw)
		if strings.EqualFold(raw, consts.SharesAll) {
			*s = Shares{All: true}
			return nil
		}
		q, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("shares: %q is neither %s nor a number", raw, consts.SharesAll)
		}
		*s = Shares{Quantity: q}
		return nil
	}

	var q float64
	if err := json.Unmarshal(data, &q); err != nil {
		return fmt.Errorf("shares: %w", err)
	}
	*s = Shares{Quantity: q}
	return nil
}

// TradeIntent is one entry of the "trades" list a model produces. It is
// never persisted as is; the controller turns it into a TradeRecord.
type TradeIntent struct {
	Action    string   `json:"action"`
	Ticker    string   `json:"ticker"`
	AmountUSD *float64 `json:"amount_usd,omitempty"`
	Shares    *Shares  `json:"shares,omitempty"`
	Thesis    string   `json:"thesis,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// Normalize upper-cases action and ticker.
func (t *TradeIntent) Normalize() {
	t.Action = strings.ToUpper(strings.TrimSpace(t.Action))
	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))
}

func (t TradeIntent) Validate() error {
	if t.Ticker == "" {
		return fmt.Errorf("trade has no ticker")
	}
	if t.Action != consts.ActionBuy && t.Action != consts.ActionSell {
		return fmt.Errorf("trade %s has unsupported action %q", t.Ticker, t.Action)
	}
	return nil
}

func (t TradeIntent) IsSellAll() bool {
	return t.Action == consts.ActionSell && t.Shares != nil && t.Shares.All
}

// Amount returns the requested dollar amount, 0 when none was given.
func (t TradeIntent) Amount() float64 {
	if t.AmountUSD == nil {
		return 0
	}
	return *t.AmountUSD
}

// ExplicitShares returns the requested share quantity when one was given as
// a number.
func (t TradeIntent) ExplicitShares() (float64, bool) {
	if t.Shares == nil || t.Shares.All || t.Shares.Quantity == 0 {
		return 0, false
	}
	return t.Shares.Quantity, true
}

// Decision is the structured payload an agent returns at the end of its
// conversation.
type Decision struct {
	Thinking      string        `json:"thinking,omitempty"`
	ResearchNotes string        `json:"research_notes,omitempty"`
	Trades        []TradeIntent `json:"trades"`

	// Set when the payload could not be parsed and a fallback was used.
	ParseError string `json:"-"`
}
