// Package main provides the arena server binary: a line-oriented TCP room server
// that runs either chat rooms or two-player turn-based combat rooms.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/admin"
	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/frontend/handlers"
	"github.com/cory-johannsen/arena/internal/frontend/tcp"
	"github.com/cory-johannsen/arena/internal/game/room"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

var (
	flagConfig string
	flagMode   string
)

var rootCmd = &cobra.Command{
	Use:   "arenaserver [host:port]",
	Short: "Line-oriented TCP room server for chat and two-player combat",
	Long: `arenaserver accepts TCP clients, asks each for a room name and a username,
and admits them to a shared room. In chat mode every line is relayed to the
other peers. In combat mode two players take turns sending attack payloads
until one of them runs out of hit points.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "path to configuration file (defaults plus ARENA_* environment when empty)")
	flags.StringVar(&flagMode, "mode", "", "room protocol override: chat or combat")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("arenaserver: %v", err)
	}
}

func loadConfig(args []string) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	if len(args) == 1 {
		if err := cfg.SetBindAddr(args[0]); err != nil {
			return config.Config{}, err
		}
	}
	if flagMode != "" {
		cfg.Server.Mode = flagMode
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting arena server",
		zap.String("addr", cfg.Listener.Addr()),
		zap.String("mode", cfg.Server.Mode),
	)

	defaults := room.RulesFromConfig(cfg)
	var opts []room.Option

	if cfg.Room.PresetsDir != "" {
		presets, err := room.LoadPresets(cfg.Room.PresetsDir)
		if err != nil {
			return fmt.Errorf("loading room presets: %w", err)
		}
		resolved, err := room.ResolvePresets(presets, defaults)
		if err != nil {
			return err
		}
		opts = append(opts, room.WithPresets(resolved))
		logger.Info("room presets loaded",
			zap.String("dir", cfg.Room.PresetsDir),
			zap.Int("count", len(resolved)),
		)
	}

	lifecycle := server.NewLifecycle(logger)

	var matches admin.MatchLister
	var healthChecks []admin.HTTPOption
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		repo := postgres.NewMatchRepository(pool.DB())
		matches = repo
		opts = append(opts, room.WithRecorder(repo))
		healthChecks = append(healthChecks, admin.WithHealthCheck("postgres", func(ctx context.Context) error {
			return pool.Health(ctx, 2*time.Second)
		}))

		stop := make(chan struct{})
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				<-stop
				return nil
			},
			StopFn: func() {
				close(stop)
				pool.Close()
			},
		})
	}

	registry := room.NewRegistry(defaults, logger, opts...)
	handler := handlers.NewRoomHandler(registry, logger)
	acceptor := tcp.NewAcceptor(cfg.Listener, handler, logger)

	lifecycle.Add("tcp", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	if cfg.Admin.Enabled {
		svc := admin.NewService(registry, matches, logger)
		addAdminServices(lifecycle, cfg.Admin, svc, healthChecks, logger)
	}

	logger.Info("arena server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("capacity", defaults.Capacity),
	)

	return lifecycle.Run(ctx)
}

func addAdminServices(lifecycle *server.Lifecycle, cfg config.AdminConfig, svc *admin.Service, checks []admin.HTTPOption, logger *zap.Logger) {
	grpcServer := admin.NewGRPCServer(svc, logger)
	lifecycle.Add("admin-grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GRPCAddr(), err)
			}
			logger.Info("admin gRPC listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: grpcServer.GracefulStop,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           admin.NewRouter(svc, logger, checks...),
		ReadHeaderTimeout: 5 * time.Second,
	}
	lifecycle.Add("admin-http", &server.FuncService{
		StartFn: func() error {
			logger.Info("admin HTTP listening", zap.String("addr", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Warn("admin HTTP shutdown", zap.Error(err))
			}
		},
	})
}
