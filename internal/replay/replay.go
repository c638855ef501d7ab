// Package replay drives an engine from a recorded CSV tick file for
// offline evaluation. Fills are simulated instantly at the tick price, so
// a replay exercises the full decision/fill loop without an execution
// collaborator.
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/engine"
	"github.com/rs/zerolog"
)

// Driver replays CSV ticks through an engine.
//
// File format, one row per symbol observation:
//
//	tick,symbol,price[,change24h[,liquidity[,volume]]]
//
// Consecutive rows sharing a tick value form one OnPriceUpdate call.
// Optional columns may be left empty.
type Driver struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// New creates a replay driver.
func New(eng *engine.Engine, log zerolog.Logger) *Driver {
	return &Driver{
		engine: eng,
		log:    log.With().Str("component", "replay").Logger(),
	}
}

// Run replays the file to completion. Returns the number of ticks driven.
func (d *Driver) Run(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // optional trailing columns

	var (
		ticks       int
		currentTick string
		batch       = make(map[string]domain.PricePoint)
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ticks++
		d.step(batch)
		batch = make(map[string]domain.PricePoint)
	}

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ticks, fmt.Errorf("failed to read replay file at line %d: %w", line, err)
		}
		if len(record) < 3 {
			d.log.Warn().Int("line", line).Msg("Skipping short replay row")
			continue
		}
		if line == 1 && record[0] == "tick" {
			continue // header row
		}

		if record[0] != currentTick {
			flush()
			currentTick = record[0]
		}

		point, err := parsePoint(record)
		if err != nil {
			d.log.Warn().Int("line", line).Err(err).Msg("Skipping malformed replay row")
			continue
		}
		batch[point.Symbol] = point
	}
	flush()

	state := d.engine.State()
	d.log.Info().
		Int("ticks", ticks).
		Float64("balance", state.Balance).
		Float64("exposure", state.TotalExposure()).
		Int("open_positions", len(state.Positions)).
		Msg("Replay complete")

	return ticks, nil
}

// step runs one tick and simulates the fill for any emitted decision at
// the symbol's tick price.
func (d *Driver) step(prices map[string]domain.PricePoint) {
	decision := d.engine.OnPriceUpdate(prices)
	if decision == nil {
		return
	}

	point, ok := prices[decision.Symbol]
	if !ok {
		return
	}
	d.engine.OnTradeExecuted(decision.Symbol, decision.Side, decision.Amount, point.Price)
}

// parsePoint converts one CSV row into a PricePoint. Empty optional
// columns stay nil.
func parsePoint(record []string) (domain.PricePoint, error) {
	price, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("bad price %q: %w", record[2], err)
	}

	point := domain.PricePoint{
		Symbol: record[1],
		Price:  price,
	}

	if len(record) > 3 && record[3] != "" {
		if v, err := strconv.ParseFloat(record[3], 64); err == nil {
			point.Change24h = &v
		}
	}
	if len(record) > 4 && record[4] != "" {
		if v, err := strconv.ParseFloat(record[4], 64); err == nil {
			point.Liquidity = &v
		}
	}
	if len(record) > 5 && record[5] != "" {
		if v, err := strconv.ParseFloat(record[5], 64); err == nil {
			point.Volume = &v
		}
	}

	return point, nil
}
