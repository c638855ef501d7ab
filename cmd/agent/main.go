// Command agent runs one Darwin arena strategy instance: it wires the
// configuration, journal database, risk policy and engine together, resumes
// from the last snapshot when one exists, and either replays a recorded
// tick file or waits for a driver process.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/darwin-agent/internal/config"
	"github.com/aristath/darwin-agent/internal/database"
	"github.com/aristath/darwin-agent/internal/engine"
	"github.com/aristath/darwin-agent/internal/feedback"
	"github.com/aristath/darwin-agent/internal/features"
	"github.com/aristath/darwin-agent/internal/journal"
	"github.com/aristath/darwin-agent/internal/positions"
	"github.com/aristath/darwin-agent/internal/replay"
	"github.com/aristath/darwin-agent/internal/risk"
	"github.com/aristath/darwin-agent/internal/scanner"
	"github.com/aristath/darwin-agent/internal/statestore"
	"github.com/aristath/darwin-agent/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("policy", cfg.Policy).
		Str("sizer", cfg.Sizer).
		Int("window", cfg.WindowSize).
		Float64("balance", cfg.InitialBalance).
		Msg("Agent starting")

	db, err := database.New(database.Config{
		Path:    cfg.JournalPath(),
		Profile: database.ProfileLedger,
		Name:    "journal",
	})
	if err != nil {
		return fmt.Errorf("failed to open journal database: %w", err)
	}
	defer db.Close()

	repo := journal.NewRepository(db.Conn())
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate journal: %w", err)
	}

	policy, err := buildPolicy(cfg, log)
	if err != nil {
		return err
	}
	sizer, err := buildSizer(cfg)
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	eng := engine.New(engineConfig(cfg), policy, sizer, rng, repo, log)

	store := statestore.New(cfg.SnapshotPath())
	snapshot, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snapshot != nil {
		eng.Restore(snapshot.State, snapshot.History)
		log.Info().
			Time("saved_at", snapshot.SavedAt).
			Int64("tick", snapshot.State.Tick).
			Float64("balance", snapshot.State.Balance).
			Msg("Resumed from snapshot")
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SnapshotCron, func() {
		if err := store.Save(eng.State(), eng.History().Series()); err != nil {
			log.Warn().Err(err).Msg("Periodic snapshot failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}
	if _, err := scheduler.AddFunc("@every 1h", func() {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Msg("WAL checkpoint failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule checkpoint job: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.ReplayFile != "" {
		driver := replay.New(eng, log)
		ticks, err := driver.Run(cfg.ReplayFile)
		if err != nil {
			return fmt.Errorf("replay failed after %d ticks: %w", ticks, err)
		}
	} else {
		// No replay file: stay up until signalled. Ticks arrive through a
		// driver process embedding this engine; the binary on its own only
		// maintains snapshots and the journal.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log.Info().Msg("No replay file configured, waiting for shutdown signal")
		<-ctx.Done()
	}

	if err := store.Save(eng.State(), eng.History().Series()); err != nil {
		log.Warn().Err(err).Msg("Final snapshot failed")
	}
	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Final WAL checkpoint failed")
	}

	log.Info().
		Int64("tick", eng.State().Tick).
		Float64("balance", eng.State().Balance).
		Msg("Agent stopped")
	return nil
}

// engineConfig maps the flat environment configuration onto the engine's
// component configs.
func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		InitialBalance: cfg.InitialBalance,
		WindowSize:     cfg.WindowSize,
		Features: features.Config{
			MinWindow:  cfg.WindowSize,
			RSIPeriod:  cfg.RSIPeriod,
			ERLookback: cfg.ERLookback,
			BollingerK: cfg.BollingerK,
		},
		Scanner: scanner.Config{
			ZScoreEntry:      cfg.ZScoreEntry,
			RSIMax:           cfg.RSIMax,
			EfficiencyMax:    cfg.EfficiencyMax,
			MinCoefVariation: cfg.MinCoefVariation,
			SlopeFilter:      cfg.SlopeFilter,
			RequireTickUp:    cfg.RequireTickUp,
			Shuffle:          cfg.Shuffle,
			BoostRelax:       cfg.BoostRelax,
		},
		Limits: positions.Limits{
			MaxConcurrent:           cfg.MaxConcurrent,
			CooldownTicks:           cfg.CooldownTicks,
			MaxSymbolExposurePct:    cfg.MaxSymbolExposurePct,
			MaxPortfolioExposurePct: cfg.MaxPortfolioExposurePct,
		},
		Reflection: feedback.ReflectionConfig{
			ExcellentPct: cfg.ExcellentPct,
			AveragePct:   cfg.AveragePct,
		},
		BoostSizingMultiplier: cfg.BoostSizingMultiplier,
	}
}

// buildPolicy constructs the configured risk policy.
func buildPolicy(cfg *config.Config, log zerolog.Logger) (risk.Policy, error) {
	switch cfg.Policy {
	case "bracket":
		return risk.NewBracketPolicy(risk.BracketConfig{
			StopLossPct:   cfg.StopLossPct,
			TakeProfitPct: cfg.TakeProfitPct,
			TrailingPct:   cfg.TrailingPct,
			MaxHoldTicks:  cfg.MaxHoldTicks,
			VolScaled:     cfg.VolScaled,
			VolMultiplier: cfg.VolMultiplier,
		}, log), nil
	case "averaging":
		return risk.NewAveragingPolicy(risk.AveragingConfig{
			MinProfitFloor:  cfg.MinProfitFloor,
			ProfitDecay:     cfg.ProfitDecay,
			MinProfitFinal:  cfg.MinProfitFinal,
			AddDrawdownStep: cfg.AddDrawdownStep,
			MaxDCALevels:    cfg.MaxDCALevels,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown risk policy %q", cfg.Policy)
	}
}

// buildSizer constructs the configured sizer.
func buildSizer(cfg *config.Config) (risk.Sizer, error) {
	switch cfg.Sizer {
	case "fixed_usd":
		return &risk.FixedUSDSizer{Amount: cfg.FixedUSD}, nil
	case "percent_balance":
		return &risk.PercentBalanceSizer{Percent: cfg.PercentBalance}, nil
	case "vol_inverse":
		return &risk.VolInverseSizer{RiskBudget: cfg.RiskBudget, MaxNotional: cfg.MaxNotional}, nil
	case "geometric":
		return &risk.GeometricSizer{Base: cfg.GeoBase, Multiplier: cfg.GeoMultiplier}, nil
	default:
		return nil, fmt.Errorf("unknown sizer %q", cfg.Sizer)
	}
}
