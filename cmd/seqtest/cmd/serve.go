package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	seqgrpc "github.com/blockberries/seqtest/grpc"
	"github.com/blockberries/seqtest/local"
	"github.com/blockberries/seqtest/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference sequencer and serve it over gRPC",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&dataDir, "data-dir", "", "pebble data directory (default in-memory)")
	f.StringVar(&metricsAddr, "metrics", "", "serve prometheus metrics on this address")
	f.IntVar(&maxTxPerBlock, "max-tx-per-block", 0, "transactions per block (default 20)")
	f.IntVar(&mempoolSize, "mempool-size", 0, "mempool capacity (default 10000)")
}

func serve(ctx context.Context) error {
	reg, err := builtins()
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.DataDir != "" {
		st, err = store.Open(cfg.DataDir)
	} else {
		st, err = store.OpenMemory()
	}
	if err != nil {
		return err
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	engine, err := local.New(reg,
		local.WithConfig(cfg.Engine()),
		local.WithStore(st),
		local.WithLogger(logger.Named("engine")),
		local.WithRegisterer(registry),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	seqgrpc.NewGRPCServer(engine,
		seqgrpc.WithBlockTime(cfg.BlockTime),
		seqgrpc.WithServerLogger(logger.Named("grpc")),
	).Register(gs)

	g, gctx := errgroup.WithContext(ctx)
	engine.Start()
	g.Go(func() error {
		return gs.Serve(lis)
	})
	var metrics *http.Server
	if cfg.Metrics != "" {
		metrics = &http.Server{
			Addr:              cfg.Metrics,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := metrics.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		gs.GracefulStop()
		if metrics != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metrics.Shutdown(sctx)
		}
		return nil
	})

	color.Green("sequencer listening on %s (block time %s, programs: %v)", lis.Addr(), cfg.BlockTime, reg.Names())
	logger.Info("Sequencer started",
		zap.Stringer("addr", lis.Addr()),
		zap.Duration("blockTime", cfg.BlockTime),
		zap.String("dataDir", cfg.DataDir))
	return g.Wait()
}
