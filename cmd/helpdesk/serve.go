package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gotrs-io/gotrs-helpdesk/internal/api"
	"github.com/gotrs-io/gotrs-helpdesk/internal/config"
	"github.com/gotrs-io/gotrs-helpdesk/internal/database"
	"github.com/gotrs-io/gotrs-helpdesk/internal/middleware"
	"github.com/gotrs-io/gotrs-helpdesk/internal/sequence"
	"github.com/gotrs-io/gotrs-helpdesk/internal/services/scheduler"
	"github.com/gotrs-io/gotrs-helpdesk/internal/tickets"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ticket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWatchedConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db != nil && cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, a.db); err != nil {
			return err
		}
	}

	config.OnChange(func(c *config.Config) {
		a.alloc.SetDebug(c.Logging.Debug)
	})

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repo := a.ticketRepository()
	svc := tickets.NewService(repo, a.alloc,
		tickets.WithLogger(a.logger),
		tickets.WithSequence(cfg.Ticket.SequenceName, a.ticketFormat()),
		tickets.WithRetryPolicy(sequence.RetryPolicy{
			MaxAttempts:    cfg.Ticket.CreateRetry.MaxAttempts,
			InitialBackoff: cfg.Ticket.CreateRetry.InitialBackoff,
			MaxBackoff:     cfg.Ticket.CreateRetry.MaxBackoff,
		}),
		tickets.WithNotifier(tickets.NewLogNotifier(a.logger, cfg.Ticket.AdminEmail)),
	)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := []api.RouterOption{
		api.WithRouterLogger(a.logger),
		api.WithVersion(version),
	}
	if a.db != nil {
		opts = append(opts, api.WithHealthCheck("database", a.db.PingContext))
	}
	if a.redis != nil {
		opts = append(opts, api.WithHealthCheck("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, api.WithMetrics(a.registry, middleware.NewHTTPMetrics(a.registry)))
	}
	router := api.NewRouter(svc, opts...)

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Printf("🚀 Helpdesk %s listening on %s (sequence store: %s)", version, srv.Addr, cfg.Sequence.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewService(a.alloc, repo,
			scheduler.WithLogger(a.logger),
			scheduler.WithRegisterer(a.registry),
			scheduler.WithSequenceAudit(cfg.Ticket.SequenceName, cfg.Scheduler.AuditSchedule),
		)
		g.Go(func() error { return sched.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Println("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
