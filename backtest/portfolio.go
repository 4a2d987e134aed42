package backtest

import (
	"math"
	"time"

	"rank-machine/models"
	"rank-machine/observability"
)

// negligibleShares is the share count below which a position is considered
// closed (float-noise threshold)
const negligibleShares = 0.01

// Portfolio holds the cash balance and open positions of exactly one backtest
// run. Runs never share a portfolio; the engine creates a fresh one per run.
type Portfolio struct {
	cash       float64
	positions  map[string]*models.Position
	totalValue float64
}

// NewPortfolio creates a portfolio holding only cash
func NewPortfolio(initialCapital float64) *Portfolio {
	return &Portfolio{
		cash:       initialCapital,
		positions:  make(map[string]*models.Position),
		totalValue: initialCapital,
	}
}

// Cash returns the current cash balance
func (p *Portfolio) Cash() float64 {
	return p.cash
}

// TotalValue returns cash plus the mark-to-market value of all positions, as
// of the last MarkToMarket call
func (p *Portfolio) TotalValue() float64 {
	return p.totalValue
}

// Position returns the open position for a ticker, or nil
func (p *Portfolio) Position(ticker string) *models.Position {
	return p.positions[ticker]
}

// Positions returns the open position set keyed by ticker
func (p *Portfolio) Positions() map[string]*models.Position {
	return p.positions
}

// HeldShares returns the share count held for a ticker (0 when not held)
func (p *Portfolio) HeldShares(ticker string) float64 {
	if pos, ok := p.positions[ticker]; ok {
		return pos.Shares
	}
	return 0
}

// MarkToMarket updates every held position to the given prices and recomputes
// the total portfolio value. Positions whose ticker is absent from the price
// map keep their previous mark.
func (p *Portfolio) MarkToMarket(prices map[string]float64) {
	positionsValue := 0.0
	for ticker, pos := range p.positions {
		if price, ok := prices[ticker]; ok {
			pos.UpdatePrice(price)
		}
		positionsValue += pos.CurrentValue
	}
	p.totalValue = p.cash + positionsValue
}

// ExecuteTrade executes a buy (positive shares) or sell (negative shares) at
// the given price and transaction cost rate.
//
// Buys that exceed available cash are silently downsized to what cash affords
// after the transaction cost; cash never goes negative. Sells are clamped to
// the held quantity (no shorting), and a position whose remainder falls to a
// negligible share count is removed. Returns nil when the trade would have no
// effect (nothing held to sell, or no cash left for any shares).
func (p *Portfolio) ExecuteTrade(ticker string, shares, price, costRate float64, date time.Time) *models.Trade {
	tradeValue := math.Abs(shares * price)
	transactionCost := tradeValue * costRate

	if shares > 0 {
		return p.executeBuy(ticker, shares, price, tradeValue, transactionCost, date)
	}
	return p.executeSell(ticker, -shares, price, costRate, date)
}

func (p *Portfolio) executeBuy(ticker string, shares, price, tradeValue, transactionCost float64, date time.Time) *models.Trade {
	totalCost := tradeValue + transactionCost
	if totalCost > p.cash {
		// Soft constraint: downsize to what cash affords after the cost of
		// the originally requested trade, rather than rejecting outright
		available := p.cash - transactionCost
		if available <= 0 {
			return nil
		}
		shares = available / price
		tradeValue = shares * price
		totalCost = tradeValue + transactionCost
	}

	p.cash -= totalCost

	if pos, ok := p.positions[ticker]; ok {
		// Volume-weighted average entry across the combined lot
		totalShares := pos.Shares + shares
		avgPrice := (pos.Shares*pos.AvgEntryPrice + shares*price) / totalShares
		pos.Shares = totalShares
		pos.AvgEntryPrice = avgPrice
		pos.EntryDate = date
		pos.UpdatePrice(price)
	} else {
		pos := &models.Position{
			Ticker:        ticker,
			Shares:        shares,
			AvgEntryPrice: price,
			EntryDate:     date,
		}
		pos.UpdatePrice(price)
		p.positions[ticker] = pos
	}

	observability.Debug("buy executed",
		"ticker", ticker,
		"shares", shares,
		"price", price,
		"cash_after", p.cash)

	return &models.Trade{
		Date:      date,
		Ticker:    ticker,
		Side:      models.TradeSideBuy,
		Shares:    shares,
		Price:     price,
		Value:     tradeValue,
		Cost:      transactionCost,
		CashAfter: p.cash,
	}
}

func (p *Portfolio) executeSell(ticker string, shares, price, costRate float64, date time.Time) *models.Trade {
	pos, ok := p.positions[ticker]
	if !ok {
		return nil
	}

	if shares > pos.Shares {
		shares = pos.Shares
	}

	tradeValue := shares * price
	transactionCost := tradeValue * costRate
	realizedReturn := 0.0
	if pos.AvgEntryPrice > 0 {
		realizedReturn = (price - pos.AvgEntryPrice) / pos.AvgEntryPrice
	}

	p.cash += tradeValue - transactionCost

	pos.Shares -= shares
	if pos.Shares <= negligibleShares {
		delete(p.positions, ticker)
	}

	observability.Debug("sell executed",
		"ticker", ticker,
		"shares", shares,
		"price", price,
		"cash_after", p.cash)

	return &models.Trade{
		Date:           date,
		Ticker:         ticker,
		Side:           models.TradeSideSell,
		Shares:         shares,
		Price:          price,
		Value:          tradeValue,
		Cost:           transactionCost,
		CashAfter:      p.cash,
		RealizedReturn: realizedReturn,
	}
}

// ClosePosition sells an entire position at the given price, returning the
// trade or nil when the ticker is not held
func (p *Portfolio) ClosePosition(ticker string, price, costRate float64, date time.Time) *models.Trade {
	pos, ok := p.positions[ticker]
	if !ok {
		return nil
	}
	return p.ExecuteTrade(ticker, -pos.Shares, price, costRate, date)
}
