package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"ledgercore/blockcodec"
	"ledgercore/core"
	"ledgercore/erasummary"
	"ledgercore/metrics"
	"ledgercore/pipeline"
	"ledgercore/pkg/config"
	"ledgercore/scheduler"
	"ledgercore/store/archive"
	"ledgercore/store/index"
	"ledgercore/store/state"
	"ledgercore/store/wal"
	"ledgercore/visitor"
)

func buildLogger(cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	lv, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lv)
	log.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		log.SetOutput(f)
	}
	return log, nil
}

// mainnetEras is a placeholder era summary good enough to drive the
// scheduler in a single-era development deployment; production deployments
// supply the full per-era table from genesis configuration instead.
func mainnetEras() *erasummary.Summary {
	return erasummary.New([]erasummary.Era{
		{
			ProtocolVersion: 9,
			EpochLength:     432000,
			SlotLength:      1,
			StartSlot:       0,
			StartEpoch:      0,
			StartUnix:       1506203091,
		},
	})
}

func runSupervisor(ctx context.Context, cfg *config.Config) error {
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	walStore, err := wal.Open(cfg.Storage.WALPath, log)
	if err != nil {
		return err
	}
	defer walStore.Close()

	stateStore, err := state.Open(cfg.Storage.StatePath, log)
	if err != nil {
		return err
	}
	defer stateStore.Close()

	indexStore, err := index.Open(cfg.Storage.IndexPath, log)
	if err != nil {
		return err
	}
	defer indexStore.Close()

	archiveStore, err := archive.Open(cfg.Storage.ArchivePath, log)
	if err != nil {
		return err
	}
	defer archiveStore.Close()

	coll := metrics.New(log)
	metricsSrv := coll.StartServer(":9090")
	defer func() { _ = coll.Shutdown(ctx, metricsSrv) }()

	cursor, found, err := stateStore.ReadCursor()
	if err != nil {
		return err
	}
	if !found {
		cursor = core.Origin()
	}

	var stopEpoch *core.Epoch
	if cfg.Sync.StopEpoch >= 0 {
		e := core.Epoch(cfg.Sync.StopEpoch)
		stopEpoch = &e
	}

	eras := mainnetEras()
	sched := scheduler.New(eras, cfg.Sync.StabilityWindow, cursor, stopEpoch)

	// resolveOutput has no live UTXO value store to consult yet: the index
	// keeps only (tag, key) -> TxoRef rows, not the output bytes an input
	// needs to compute its reversing deltas. Wiring a real chain-sync feed
	// depends on the same missing piece, so both stay stubbed here.
	resolveOutput := func(ref core.TxoRef) (*blockcodec.TxOutput, bool, error) {
		return nil, false, nil
	}

	stores := pipeline.Stores{State: stateStore, Index: indexStore, Archive: archiveStore, WAL: walStore}
	p := pipeline.New(stores, eras, cfg.Sync.StabilityWindow, 0, log, visitor.ResolveOutput(resolveOutput))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	feed := func(ctx context.Context) (scheduler.Block, bool, error) {
		<-ctx.Done()
		return scheduler.Block{}, false, ctx.Err()
	}

	log.WithField("cursor", cursor).Info("indexer ready; upstream feed not yet wired to a concrete chain-sync client")
	if err := p.Run(ctx, sched, feed); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
