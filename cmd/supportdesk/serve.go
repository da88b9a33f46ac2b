package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/supportdesk/internal/api"
	"github.com/MikeSquared-Agency/supportdesk/internal/auth"
	"github.com/MikeSquared-Agency/supportdesk/internal/config"
	"github.com/MikeSquared-Agency/supportdesk/internal/conversations"
	"github.com/MikeSquared-Agency/supportdesk/internal/hermes"
	"github.com/MikeSquared-Agency/supportdesk/internal/plugins"
	"github.com/MikeSquared-Agency/supportdesk/internal/secrets"
	"github.com/MikeSquared-Agency/supportdesk/internal/slack"
	"github.com/MikeSquared-Agency/supportdesk/internal/vapi"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			setupLogging(cfg.LogLevel, os.Stdout)
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	slog.Info("supportdesk starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Slack is optional; escalations are still recorded without it.
	var notifier conversations.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, escalations will not be posted")
	}

	a, err := buildApp(ctx, cfg, db, hermesClient, notifier)
	if err != nil {
		return err
	}

	sm, err := secrets.NewFromRegion(cfg.AWSRegion)
	if err != nil {
		return err
	}
	pluginSvc := plugins.NewService(db, sm, vapi.NewClient(cfg.VapiBaseURL), hermesClient, slog.Default())
	if err := hermesClient.QueueSubscribe(hermes.SubjectSecretsUpsert, "supportdesk", pluginSvc.HandleUpsertSecret(ctx)); err != nil {
		return err
	}

	go a.sessions.RunJanitor(ctx, cfg.SessionSweepInterval)

	srv := api.NewServer(cfg.Port, api.Deps{
		Sessions:      a.sessions,
		Conversations: a.conversations,
		Knowledge:     a.knowledge,
		LiveCalls:     a.livecalls,
		Plugins:       pluginSvc,
		Auth: auth.New(auth.Config{
			Issuer:          cfg.ClerkIssuer,
			JWKSURL:         cfg.ClerkJWKSURL,
			DevToken:        cfg.DevToken,
			DevOrganization: cfg.DevOrganization,
		}),
	}, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if err := hermesClient.Publish(hermes.SubjectAgentRegistered, hermes.AgentRegistered{
		Name:      a.agent.Name(),
		Model:     a.modelName,
		Tools:     a.toolNames,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("supportdesk ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	if err := hermesClient.Drain(); err != nil {
		slog.Warn("nats drain", "error", err)
	}
	slog.Info("supportdesk stopped")
	return nil
}
