// Package history provides the per-symbol rolling price window.
package history

import (
	"sort"

	"github.com/aristath/darwin-agent/internal/domain"
)

// Buffer is a fixed-capacity FIFO window of observed prices per symbol.
// Histories are created lazily on first observation - there is no error
// path for unknown symbols.
type Buffer struct {
	capacity int
	series   map[string][]domain.PricePoint
}

// New creates a buffer holding at most capacity points per symbol.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		capacity: capacity,
		series:   make(map[string][]domain.PricePoint),
	}
}

// Capacity returns the per-symbol window capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Append pushes a price point, evicting the oldest entry once capacity is
// exceeded.
func (b *Buffer) Append(p domain.PricePoint) {
	points := append(b.series[p.Symbol], p)
	if len(points) > b.capacity {
		points = points[len(points)-b.capacity:]
	}
	b.series[p.Symbol] = points
}

// Len returns the number of points currently held for a symbol.
func (b *Buffer) Len(symbol string) int {
	return len(b.series[symbol])
}

// Window returns the most recent length points for a symbol.
// ok is false when fewer than length points exist (window not ready).
func (b *Buffer) Window(symbol string, length int) ([]domain.PricePoint, bool) {
	points := b.series[symbol]
	if length <= 0 || len(points) < length {
		return nil, false
	}
	return points[len(points)-length:], true
}

// Prices returns the most recent length prices for a symbol as a plain
// float slice, for feeding into the feature engine.
func (b *Buffer) Prices(symbol string, length int) ([]float64, bool) {
	window, ok := b.Window(symbol, length)
	if !ok {
		return nil, false
	}

	prices := make([]float64, len(window))
	for i, p := range window {
		prices[i] = p.Price
	}
	return prices, true
}

// Last returns the most recent point for a symbol, if any.
func (b *Buffer) Last(symbol string) (domain.PricePoint, bool) {
	points := b.series[symbol]
	if len(points) == 0 {
		return domain.PricePoint{}, false
	}
	return points[len(points)-1], true
}

// TickUp reports whether the last observed move for the symbol was upward.
// Used as an entry confirmation to avoid buying mid-collapse.
func (b *Buffer) TickUp(symbol string) bool {
	points := b.series[symbol]
	if len(points) < 2 {
		return false
	}
	return points[len(points)-1].Price > points[len(points)-2].Price
}

// Symbols returns all observed symbols in deterministic order.
func (b *Buffer) Symbols() []string {
	symbols := make([]string, 0, len(b.series))
	for symbol := range b.series {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Series exports the full underlying window map for snapshotting.
func (b *Buffer) Series() map[string][]domain.PricePoint {
	return b.series
}

// Restore replaces the buffer contents from a snapshot, trimming any series
// longer than the configured capacity.
func (b *Buffer) Restore(series map[string][]domain.PricePoint) {
	b.series = make(map[string][]domain.PricePoint, len(series))
	for symbol, points := range series {
		if len(points) > b.capacity {
			points = points[len(points)-b.capacity:]
		}
		b.series[symbol] = points
	}
}
