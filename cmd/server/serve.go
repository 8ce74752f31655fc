package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	jwttoken "corpauth/internal/jwt_token"
	"corpauth/internal/platform/httpserver"
	"corpauth/internal/presence/discord"
	"corpauth/internal/reconcile"
	"corpauth/internal/transport/chat"
	httptransport "corpauth/internal/transport/http"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot, the reconciliation schedule and the admin API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.AdminJWTSecret == "" {
		return errors.New("auth.admin_jwt_secret is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.logger

	var chatOpts []chat.Option
	if cfg.RateLimit.ClaimAttempts > 0 {
		guard, err := a.claimGuard()
		if err != nil {
			return err
		}
		chatOpts = append(chatOpts, chat.WithClaimGuard(guard))
	}
	bot := discord.NewBot(a.session, cfg.Discord.GuildID, a.worker, chat.NewHandler(a.linking, log, chatOpts...),
		discord.WithPrefix(cfg.Discord.CommandPrefix),
		discord.WithBotLogger(log),
	)
	bot.Attach(ctx, a.session)
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	scheduler, err := reconcile.NewScheduler(cfg.Reconcile.Interval, func() {
		a.worker.SubmitPass("scheduler")
	}, log)
	if err != nil {
		return err
	}

	health := map[string]httptransport.HealthCheck{}
	if a.redis != nil {
		health["redis"] = a.redis.Health
	}
	if a.producer != nil {
		health["kafka"] = a.producer.Ping
	}
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Admin:     httptransport.NewAdminHandler(a.linking, a.worker, log),
		Validator: jwttoken.NewJWTServiceAdapter(adminTokenService(cfg.Auth)),
		Denied:    deniedAuditor{audit: a.audit},
		Gatherer:  a.registry,
		Metrics:   a.metrics,
		Health:    health,
		Logger:    log,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting corpauth", "addr", cfg.Server.Addr, "guild_id", cfg.Discord.GuildID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Warn("scheduler did not stop cleanly", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	scheduler.Start()
	a.worker.SubmitPass("startup")

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
