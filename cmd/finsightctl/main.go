// Command finsightctl is a thin operational CLI for finsight: running
// the maintenance sweep once, importing a broker statement into a
// portfolio snapshot, and printing a portfolio's current stats. It is
// not a server; the cache/store/provider wiring it does here is the
// same wiring a long-running process would do, just for one operation
// before exiting.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/archive"
	"github.com/aristath/finsight/internal/broker"
	"github.com/aristath/finsight/internal/cache"
	"github.com/aristath/finsight/internal/config"
	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/fx"
	"github.com/aristath/finsight/internal/maintenance"
	"github.com/aristath/finsight/internal/metrics"
	"github.com/aristath/finsight/internal/portfolio"
	"github.com/aristath/finsight/internal/provider"
	"github.com/aristath/finsight/internal/store"
	"github.com/aristath/finsight/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "maintain":
		err = runMaintain(args)
	case "import":
		err = runImport(args)
	case "stats":
		err = runStats(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "finsightctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  finsightctl maintain [-data-dir dir]
  finsightctl import -broker trading212|vanguard -file path [-portfolio id] [-data-dir dir]
  finsightctl stats [-portfolio id] [-data-dir dir]`)
}

// app bundles the dependencies every subcommand needs. Built the same
// way a server's DI container would, just scoped to one process run.
type app struct {
	cfg      *config.Config
	st       *store.SQLiteStore
	snapshot *cache.SnapshotCache
	analytic *analytics.Service
	conv     *fx.Converter
	pf       *portfolio.Service
}

func newApp(dataDir string) (*app, func(), error) {
	var override []string
	if dataDir != "" {
		override = []string{dataDir}
	}
	cfg, err := config.Load(override...)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)

	st, err := store.Open(filepath.Join(cfg.DataDir, "finsight.db"), log)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	snapCache, err := cache.New(st.DB(), log)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("open snapshot cache: %w", err)
	}

	prov := provider.NewClient(log)
	an := analytics.NewService(st, prov, log)
	conv := fx.NewConverter(st, log)
	pf := portfolio.NewService(an, conv, log)

	a := &app{cfg: cfg, st: st, snapshot: snapCache, analytic: an, conv: conv, pf: pf}
	cleanup := func() { st.Close() }
	return a, cleanup, nil
}

func snapshotKey(portfolioID string) string { return "portfolio:" + portfolioID }

func (a *app) loadPortfolio(id string) (*portfolio.Portfolio, error) {
	raw, err := a.snapshot.Get(snapshotKey(id))
	if err != nil {
		if errors.Is(err, domain.NewError(domain.ErrMissingData, "", nil)) {
			return portfolio.New(id, domain.Currency("USD"), a.cfg.RiskFreeRate, a.cfg.ReferenceAsset), nil
		}
		return nil, fmt.Errorf("load portfolio snapshot: %w", err)
	}
	var p portfolio.Portfolio
	if err := msgpack.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode portfolio snapshot: %w", err)
	}
	return &p, nil
}

func (a *app) savePortfolio(p *portfolio.Portfolio) error {
	raw, err := msgpack.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode portfolio snapshot: %w", err)
	}
	return a.snapshot.Set(snapshotKey(p.Name), raw, cache.DefaultTTL)
}

func runMaintain(args []string) error {
	fs := flag.NewFlagSet("maintain", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "override data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, cleanup, err := newApp(*dataDir)
	if err != nil {
		return err
	}
	defer cleanup()

	log := logger.New(logger.Config{Level: a.cfg.LogLevel, Pretty: a.cfg.DevMode})

	pruneJob := maintenance.NewPruneBarsJob(a.st, log)
	if err := pruneJob.Run(); err != nil {
		return fmt.Errorf("prune bars: %w", err)
	}

	if a.cfg.S3Bucket == "" {
		fmt.Println("maintenance: bars pruned (archive sweep skipped, no bucket configured)")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	awsCfg, err := archive.LoadConfig(ctx, a.cfg.S3Region, "", "")
	if err != nil {
		return fmt.Errorf("load archive config: %w", err)
	}
	arc := archive.New(awsCfg, a.cfg.S3Bucket, log)

	noCandidates := func() (map[string][]byte, error) { return nil, nil }
	sweepJob := maintenance.NewArchiveSweepJob(arc, a.snapshot, noCandidates, log)
	if err := sweepJob.Run(); err != nil {
		return fmt.Errorf("archive sweep: %w", err)
	}

	fmt.Println("maintenance: bars pruned, archive sweep complete")
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	brokerName := fs.String("broker", "", "trading212 or vanguard")
	file := fs.String("file", "", "path to the statement file")
	portfolioID := fs.String("portfolio", "main", "portfolio id")
	dataDir := fs.String("data-dir", "", "override data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" || *brokerName == "" {
		return fmt.Errorf("-broker and -file are required")
	}

	a, cleanup, err := newApp(*dataDir)
	if err != nil {
		return err
	}
	defer cleanup()

	var rows []broker.ImportRow
	switch *brokerName {
	case "trading212":
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("open statement: %w", err)
		}
		defer f.Close()
		rows, err = broker.ParseTrading212CSV(f)
		if err != nil {
			return fmt.Errorf("parse trading212 statement: %w", err)
		}
	case "vanguard":
		rows, err = broker.ParseVanguardXLSX(*file)
		if err != nil {
			return fmt.Errorf("parse vanguard statement: %w", err)
		}
	default:
		return fmt.Errorf("unknown broker %q", *brokerName)
	}

	p, err := a.loadPortfolio(*portfolioID)
	if err != nil {
		return err
	}

	lock := a.pf.Lock(*portfolioID)
	lock.Lock()
	defer lock.Unlock()

	if err := broker.Apply(a.pf, p, rows); err != nil {
		return fmt.Errorf("apply statement rows: %w", err)
	}
	if err := a.savePortfolio(p); err != nil {
		return err
	}

	fmt.Printf("imported %d rows into portfolio %q (cash=%.2f, holdings=%d)\n", len(rows), p.Name, p.Cash, len(p.Holdings))
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	portfolioID := fs.String("portfolio", "main", "portfolio id")
	dataDir := fs.String("data-dir", "", "override data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, cleanup, err := newApp(*dataDir)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := a.loadPortfolio(*portfolioID)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Level: a.cfg.LogLevel, Pretty: a.cfg.DevMode})
	metricsSvc := metrics.NewService(a.analytic, log)

	today := time.Now().UTC()
	tar, err := metricsSvc.BuildReturns(p, today)
	if err != nil {
		return fmt.Errorf("build returns: %w", err)
	}

	value, err := a.pf.Value(p, today)
	if err != nil {
		return fmt.Errorf("compute portfolio value: %w", err)
	}

	perf := metrics.Performance(tar, 0, 0)
	risk := metrics.Risk(tar, nil, p.RiskFreeRate, value, 0, 0)

	out := struct {
		Portfolio   string                    `json:"portfolio"`
		Value       float64                   `json:"value"`
		Cash        float64                   `json:"cash"`
		Holdings    int                       `json:"holdings"`
		Performance metrics.PerformanceMetrics `json:"performance"`
		Risk        metrics.RiskMetrics        `json:"risk"`
	}{
		Portfolio:   p.Name,
		Value:       value,
		Cash:        p.Cash,
		Holdings:    len(p.Holdings),
		Performance: perf,
		Risk:        risk,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
