package lots

import (
	"math"
	"strings"
)

const (
	DefaultSuffix  = "F"
	DefaultLotSize = 100
)

// Resolver maps between the venue's two tradable instruments for one
// underlying: the round-lot symbol and the fractional symbol, which is the
// round-lot symbol with a fixed suffix appended.
type Resolver struct {
	suffix  string
	lotSize float64
}

func New(suffix string, lotSize float64) *Resolver {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if lotSize <= 0 {
		lotSize = DefaultLotSize
	}
	return &Resolver{suffix: suffix, lotSize: lotSize}
}

func (r *Resolver) LotSize() float64 {
	return r.lotSize
}

func (r *Resolver) IsFractional(symbol string) bool {
	return len(symbol) > len(r.suffix) && strings.HasSuffix(symbol, r.suffix)
}

// Base returns the round-lot symbol behind a fractional identifier.
// Non-fractional symbols are returned unchanged.
func (r *Resolver) Base(symbol string) string {
	if !r.IsFractional(symbol) {
		return symbol
	}
	return strings.TrimSuffix(symbol, r.suffix)
}

// Fractional returns the fractional symbol for a round-lot identifier.
// Fractional symbols are returned unchanged.
func (r *Resolver) Fractional(symbol string) string {
	if r.IsFractional(symbol) {
		return symbol
	}
	return symbol + r.suffix
}

// Split decomposes a fractional holding into full round lots and the
// odd-lot remainder: Lots*lotSize + Remainder == volume, 0 <= Remainder < lotSize.
type Split struct {
	Lots      float64
	Remainder float64
}

func (r *Resolver) Split(volume float64) Split {
	if volume <= 0 {
		return Split{}
	}
	lots := math.Floor(volume / r.lotSize)
	return Split{Lots: lots, Remainder: volume - lots*r.lotSize}
}

// SellOrder is one leg of a liquidation plan.
type SellOrder struct {
	Symbol string
	Volume float64
}

// SellPlan decomposes a fractional position into up to two sell legs: the
// round-lot multiples on the base symbol and the remainder on the fractional
// symbol itself. A single close-position call is invalid once holdings are
// fractional, hence the split.
func (r *Resolver) SellPlan(symbol string, volume float64) []SellOrder {
	split := r.Split(volume)
	plan := make([]SellOrder, 0, 2)
	if split.Lots > 0 {
		plan = append(plan, SellOrder{Symbol: r.Base(symbol), Volume: split.Lots * r.lotSize})
	}
	if split.Remainder > 0 {
		plan = append(plan, SellOrder{Symbol: symbol, Volume: split.Remainder})
	}
	return plan
}
