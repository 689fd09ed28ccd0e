// Package broker places orders and reads account state. Quantities are
// always share counts; a dollar amount is only sent as Notional.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/models"
)

var (
	ErrMissingCredentials = errors.New("broker credentials missing")
	ErrInvalidOrder       = errors.New("invalid order")
)

type Broker interface {
	ExecuteTrade(ctx context.Context, order Order) (*models.FillResult, error)
	AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error)
}

// Seeder is implemented by brokers whose state is derived from the ledger
// rather than held by a real account.
type Seeder interface {
	Seed(cash float64, positions []models.Position)
}

// PriceSource quotes the last market price of a symbol.
type PriceSource interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// Order is a market order. Quantity (shares) wins over Notional (dollars)
// when both are set.
type Order struct {
	Ticker   string
	Side     string
	Notional float64
	Quantity float64
}

func (o Order) Validate() error {
	if o.Ticker == "" {
		return fmt.Errorf("%w: no ticker", ErrInvalidOrder)
	}
	if o.Side != consts.ActionBuy && o.Side != consts.ActionSell {
		return fmt.Errorf("%w: side %q", ErrInvalidOrder, o.Side)
	}
	if o.Quantity <= 0 && o.Notional <= 0 {
		return fmt.Errorf("%w: %s %s has neither quantity nor amount", ErrInvalidOrder, o.Side, o.Ticker)
	}
	return nil
}

// ByQuantity reports whether the order is sized in shares.
func (o Order) ByQuantity() bool {
	return o.Quantity > 0
}
