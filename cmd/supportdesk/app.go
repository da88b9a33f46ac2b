package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/MikeSquared-Agency/supportdesk/internal/agent"
	"github.com/MikeSquared-Agency/supportdesk/internal/agent/tools"
	"github.com/MikeSquared-Agency/supportdesk/internal/anthropic"
	"github.com/MikeSquared-Agency/supportdesk/internal/config"
	"github.com/MikeSquared-Agency/supportdesk/internal/conversations"
	"github.com/MikeSquared-Agency/supportdesk/internal/extractor"
	"github.com/MikeSquared-Agency/supportdesk/internal/gemini"
	"github.com/MikeSquared-Agency/supportdesk/internal/knowledge"
	"github.com/MikeSquared-Agency/supportdesk/internal/livecalls"
	"github.com/MikeSquared-Agency/supportdesk/internal/sessions"
	"github.com/MikeSquared-Agency/supportdesk/internal/store"
)

type publisher interface {
	Publish(subject string, data any) error
}

// llm is a chat model that can also transcribe uploaded documents.
type llm interface {
	agent.Model
	extractor.Transcriber
}

// app holds the services shared by serve and mcp.
type app struct {
	store         *store.Store
	agent         *agent.Agent
	modelName     string
	toolNames     []string
	sessions      *sessions.Service
	conversations *conversations.Service
	knowledge     *knowledge.Service
	livecalls     *livecalls.Service
}

// buildApp wires the domain services. pub and notifier may be nil.
func buildApp(ctx context.Context, cfg config.Config, db *store.Store, pub publisher, notifier conversations.Notifier) (*app, error) {
	gclient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, "")
	if err != nil {
		return nil, fmt.Errorf("gemini client (required for embeddings): %w", err)
	}
	embedder := gemini.NewEmbedder(gclient, cfg.EmbeddingModel)

	model, modelName, err := chooseModel(cfg, gclient)
	if err != nil {
		return nil, err
	}
	slog.Info("llm ready", "provider", cfg.LLMProvider, "model", modelName)

	profile, err := config.LoadAgentProfile(cfg.AgentProfilePath)
	if err != nil {
		return nil, err
	}

	a := agent.New(model, db, agent.Options{
		Name:         profile.Name,
		Instructions: profile.Instructions,
		MaxSteps:     profile.MaxSteps,
		HistoryLimit: profile.HistoryLimit,
	}, slog.Default())

	sess := sessions.NewService(db, cfg.SessionTTL, slog.Default())
	convs := conversations.NewService(db, a, sess, conversations.Options{
		Greeting:  profile.Greeting,
		Publisher: pub,
		Notifier:  notifier,
	}, slog.Default())
	kb := knowledge.NewService(db, extractor.New(model, slog.Default()), embedder, pub, slog.Default())

	agentTools := []agent.Tool{
		tools.NewSearch(convs, kb, model),
		tools.NewEscalate(convs, a),
		tools.NewResolve(convs, a),
	}
	a.Register(agentTools...)
	names := make([]string, 0, len(agentTools))
	for _, t := range agentTools {
		names = append(names, t.Spec().Name)
	}

	return &app{
		store:         db,
		agent:         a,
		modelName:     modelName,
		toolNames:     names,
		sessions:      sess,
		conversations: convs,
		knowledge:     kb,
		livecalls:     livecalls.NewService(db, pub, slog.Default()),
	}, nil
}

func chooseModel(cfg config.Config, gclient *genai.Client) (llm, string, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return gemini.NewModel(gclient, cfg.Model), cfg.Model, nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, "", errors.New("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
		return anthropic.NewModel(anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)), cfg.AnthropicModel, nil
	default:
		return nil, "", fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("database connected")
	return db, nil
}
