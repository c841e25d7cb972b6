// Command coinindex builds the spending index from a Bitcoin Core node and serves transaction views over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btclog"
	"github.com/goodnatureofminers/coinindex/internal/metrics"
	btcdrpc "github.com/goodnatureofminers/coinindex/internal/pkg/btcd/rpcclient"
	"github.com/goodnatureofminers/coinindex/internal/transport"
	"github.com/goodnatureofminers/coinindex/internal/utxo/bitcoin"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
	chrepo "github.com/goodnatureofminers/coinindex/internal/utxo/repository/clickhouse"
	leveldbrepo "github.com/goodnatureofminers/coinindex/internal/utxo/repository/leveldb"
	"github.com/goodnatureofminers/coinindex/internal/utxo/service/query"
	"github.com/goodnatureofminers/coinindex/internal/utxo/service/scanner"
	grpcMiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcZap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpcRecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpcCtxTags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	grpcPrometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	backendLevelDB    = "leveldb"
	backendClickHouse = "clickhouse"
)

type config struct {
	IndexBackend  string        `long:"index-backend" env:"COININDEX_INDEX_BACKEND" description:"index store backend" choice:"leveldb" choice:"clickhouse" default:"leveldb"`
	IndexPath     string        `long:"index-path" env:"COININDEX_INDEX_PATH" description:"LevelDB index directory" default:"txs.db"`
	ClickhouseDSN string        `long:"clickhouse-dsn" env:"COININDEX_CLICKHOUSE_DSN" description:"ClickHouse DSN for the clickhouse backend"`
	MigrationsDir string        `long:"migrations-dir" env:"COININDEX_MIGRATIONS_DIR" description:"apply ClickHouse migrations from this directory on start"`
	Network       model.Network `long:"network" env:"COININDEX_NETWORK" description:"network name" default:"mainnet"`
	RPCURL        string        `long:"rpc-url" env:"COININDEX_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser       string        `long:"rpc-user" env:"COININDEX_RPC_USER" description:"Bitcoin RPC username"`
	RPCPassword   string        `long:"rpc-password" env:"COININDEX_RPC_PASSWORD" description:"Bitcoin RPC password"`
	RPCRPS        int           `long:"rpc-rps" env:"COININDEX_RPC_RPS" description:"max RPC requests per second, 0 disables the limit" default:"0"`
	RPCWorkers    int           `long:"rpc-workers" env:"COININDEX_RPC_WORKERS" description:"parallel block fetches" default:"8"`
	RPCPrefetch   int           `long:"rpc-prefetch" env:"COININDEX_RPC_PREFETCH" description:"blocks fetched ahead of the scanner" default:"32"`
	HTTPAddr      string        `long:"http-addr" env:"COININDEX_HTTP_ADDR" description:"address for the transaction API" default:"127.0.0.1:1337"`
	GRPCAddr      string        `long:"grpc-addr" env:"COININDEX_GRPC_ADDR" description:"address for the gRPC health service" default:":8000"`
	MetricsAddr   string        `long:"metrics-addr" env:"COININDEX_METRICS_ADDR" description:"address for metrics server" default:":2112"`
	Restart       bool          `short:"r" long:"restart" env:"COININDEX_RESTART" description:"ignore the stored checkpoint and scan from genesis"`
	Follow        bool          `long:"follow" env:"COININDEX_FOLLOW" description:"keep indexing new blocks after reaching the tip"`
	PollInterval  time.Duration `long:"poll-interval" env:"COININDEX_POLL_INTERVAL" description:"wait between tip checks in follow mode" default:"10s"`
	ZMQBlockAddr  string        `long:"zmq-block-addr" env:"COININDEX_ZMQ_BLOCK_ADDR" description:"zmqpubhashblock endpoint that wakes the follower early"`
	Dev           bool          `long:"dev" env:"COININDEX_DEV" description:"allow cross-origin requests to the HTTP API"`
}

// indexStore is the union of what the scanner writes and the query engine reads.
type indexStore interface {
	scanner.IndexStore
	query.IndexStore
	Close() error
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("coinindex failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open index store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close index store", zap.Error(err))
		}
	}()

	btcdrpc.UseLogger(logger, btclog.LevelInfo)
	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	rpc := btcdrpc.NewObservedClient(rpcClient, metrics.NewRPCClient(cfg.Network), cfg.RPCRPS)
	reader := bitcoin.NewChainReader(rpc, cfg.RPCWorkers, cfg.RPCPrefetch)

	decoder, err := bitcoin.NewScriptDecoder(cfg.Network)
	if err != nil {
		return fmt.Errorf("init script decoder: %w", err)
	}

	health := transport.NewScannerHealth()
	scan, err := scanner.NewService(reader, store, metrics.NewScanner(cfg.Network), health, logger)
	if err != nil {
		return err
	}
	engine, err := query.NewEngine(reader, store, decoder, metrics.NewQuery(), logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runScanner(gctx, cfg, scan, logger)
	})
	g.Go(func() error {
		router := transport.NewRouter(transport.NewTxHandler(engine, logger), cfg.Dev)
		return serveHTTP(gctx, "api", newHTTPServer(cfg.HTTPAddr, router), logger)
	})
	g.Go(func() error {
		return serveGRPC(gctx, cfg.GRPCAddr, health, logger)
	})
	g.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		return serveHTTP(gctx, "metrics", newHTTPServer(cfg.MetricsAddr, mux), logger)
	})
	return g.Wait()
}

func openStore(cfg config, logger *zap.Logger) (indexStore, error) {
	switch cfg.IndexBackend {
	case backendClickHouse:
		if cfg.ClickhouseDSN == "" {
			return nil, errors.New("ClickHouse DSN is required for the clickhouse backend")
		}
		if cfg.MigrationsDir != "" {
			if err := chrepo.Migrate(cfg.ClickhouseDSN, cfg.MigrationsDir, logger.Named("migrations")); err != nil {
				return nil, err
			}
		}
		return chrepo.NewRepository(cfg.ClickhouseDSN, metrics.NewIndexStore(backendClickHouse))
	case backendLevelDB, "":
		logger.Info("opening leveldb index", zap.String("path", cfg.IndexPath))
		return leveldbrepo.Open(cfg.IndexPath, metrics.NewIndexStore(backendLevelDB))
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

// runScanner indexes to the tip once, or keeps following it. A finished one-shot scan leaves the
// servers running so the index stays queryable.
func runScanner(ctx context.Context, cfg config, scan *scanner.Service, logger *zap.Logger) error {
	if !cfg.Follow {
		next, err := scan.Run(ctx, cfg.Restart)
		if err != nil {
			if stopped(ctx, err) {
				return nil
			}
			return fmt.Errorf("scan stopped at block %d: %w", next, err)
		}
		logger.Info("index is complete", zap.Uint64("next_height", next))
		return nil
	}

	newBlock, err := startBlockSignal(ctx, cfg.ZMQBlockAddr, logger)
	if err != nil {
		return err
	}
	if err := scan.Follow(ctx, cfg.Restart, cfg.PollInterval, newBlock); err != nil && !stopped(ctx, err) {
		return err
	}
	return nil
}

// stopped reports whether err is only the shutdown of ctx.
func stopped(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
}

func serveHTTP(ctx context.Context, name string, srv *http.Server, logger *zap.Logger) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down http server", zap.String("server", name))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown http server", zap.String("server", name), zap.Error(err))
		}
	}()

	logger.Info("starting http server", zap.String("server", name), zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

func serveGRPC(ctx context.Context, addr string, health *transport.ScannerHealth, logger *zap.Logger) error {
	grpcZap.ReplaceGrpcLoggerV2(logger)
	chain := []grpc.UnaryServerInterceptor{
		grpcRecovery.UnaryServerInterceptor(),
		grpcCtxTags.UnaryServerInterceptor(),
		grpcPrometheus.UnaryServerInterceptor,
		grpcZap.UnaryServerInterceptor(logger),
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcMiddleware.ChainUnaryServer(chain...)),
		grpc.StreamInterceptor(grpcMiddleware.ChainStreamServer(
			grpcRecovery.StreamServerInterceptor(),
			grpcCtxTags.StreamServerInterceptor(),
			grpcPrometheus.StreamServerInterceptor,
			grpcZap.StreamServerInterceptor(logger),
		)),
	)
	healthpb.RegisterHealthServer(grpcServer, health.Server())
	grpcPrometheus.EnableHandlingTimeHistogram()
	grpcPrometheus.Register(grpcServer)

	socket, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down gRPC server")
		health.Shutdown()
		grpcServer.GracefulStop()
	}()

	logger.Info("starting gRPC server", zap.String("addr", addr))
	if err := grpcServer.Serve(socket); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	return rpcclient.New(&rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
}
