package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"draftbot/internal/approval"
	"draftbot/internal/config"
	"draftbot/internal/daemon"
	"draftbot/internal/journal"
	"draftbot/internal/logging"
	"draftbot/internal/outcome"
	"draftbot/internal/pipeline"
	"draftbot/internal/preflight"
	"draftbot/internal/publish"
	"draftbot/internal/schedule"
	"draftbot/internal/services/discord"
	"draftbot/internal/services/homeassistant"
	"draftbot/internal/watcher"
	"draftbot/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// NoPipeline disables the content schedule even when configured.
	NoPipeline bool
}

// Run starts the draftbot daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.RequireDaemon(); err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := logging.NewStreamHub(4096)
	logger, err := logging.NewFromConfig(cfg, hub)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if failed := preflight.Failed(preflight.Directories(cfg)); len(failed) > 0 {
		for _, r := range failed {
			logger.Error("directory check failed",
				logging.Event("preflight_failed"),
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "create the folder or fix its permissions"),
			)
		}
		return fmt.Errorf("%d directory checks failed", len(failed))
	}
	logConfigSnapshot(logger, cfg)

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open journal", logging.Error(err))
		return err
	}

	rt, err := assemble(signalCtx, cfg, store, logger, opts)
	if err != nil {
		_ = store.Close()
		return err
	}

	d, err := daemon.New(cfg, store, logger, rt.manager,
		daemon.WithServices(rt.services...),
		daemon.WithLogStream(hub),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if restored, err := rt.manager.Restore(signalCtx); err != nil {
		logging.WarnWithContext(logger, "pending approvals not restored", "restore_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "drafts announced before the restart must be approved again"),
		)
	} else if restored > 0 {
		logger.Info("pending approvals restored",
			logging.Event("approvals_restored"),
			logging.Int("count", restored),
		)
	}

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return err
		}
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.Event("daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check the Discord token, drafts folder, and journal access"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("draftbot daemon shutting down",
		logging.Event("daemon_shutdown"),
	)
	return nil
}

type runtime struct {
	manager  *workflow.Manager
	services []daemon.Service
}

// assemble wires the collaborators around the workflow manager. Services are
// returned in start order.
func assemble(ctx context.Context, cfg *config.Config, store *journal.Store, logger *slog.Logger, opts Options) (*runtime, error) {
	tts := homeassistant.NewClient(homeassistant.Config{
		BaseURL:        cfg.HomeAssistant.URL,
		Token:          cfg.HomeAssistant.Token,
		EntityID:       cfg.HomeAssistant.TTSEntityID,
		Language:       cfg.HomeAssistant.TTSLanguage,
		MaxChars:       cfg.HomeAssistant.MaxChars,
		AudioDir:       cfg.Paths.AudioDir,
		TimeoutSeconds: cfg.HomeAssistant.TimeoutSeconds,
	}, homeassistant.WithLogger(logger))

	session, err := discord.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	announcer := discord.NewPublisher(cfg, session, logger)
	gateway := discord.NewGateway(cfg, session, logger)
	drafts := watcher.New(cfg, store, logger)

	publisher := publish.New(cfg, publish.NewMediumClient(cfg, nil), logger)
	finalizer := outcome.New(cfg, logger, outcome.WithPublisher(publisher))

	table := approval.NewTable(cfg.ApprovalSettle())
	manager := workflow.NewManager(cfg, table, workflow.Deps{
		Synthesizer: tts,
		Announcer:   announcer,
		Finalizer:   finalizer,
		Journal:     store,
		Drafts:      drafts,
		Reactions:   gateway,
	}, logger)

	gateway.OnReady(func(botID string) {
		go func() {
			if n := manager.CatchUp(ctx, botID); n > 0 {
				logger.Info("offline reactions applied",
					logging.Event("reactions_caught_up"),
					logging.Int("count", n),
				)
			}
		}()
	})

	services := []daemon.Service{
		{
			Name:  "discord",
			Start: gateway.Open,
			Stop:  func() { _ = gateway.Close() },
			Health: func() workflow.ComponentHealth {
				if gateway.BotUserID() == "" {
					return workflow.UnhealthyComponent("discord", "waiting for gateway ready")
				}
				return workflow.HealthyComponent("discord")
			},
		},
		{
			Name:  "watcher",
			Start: drafts.Start,
			Stop:  drafts.Stop,
		},
	}

	if cfg.Pipeline.Enabled && !opts.NoPipeline {
		if err := cfg.RequireLLM(); err != nil {
			logging.WarnWithContext(logger, "content schedule disabled", "pipeline_disabled",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set llm.api_key or OPENAI_API_KEY"),
			)
		} else {
			gen := pipeline.NewGenerator(cfg, pipeline.NewClient(cfg), logger)
			sched := schedule.New(cfg, gen, store, logger)
			services = append(services, daemon.Service{
				Name:  "schedule",
				Start: sched.Start,
				Stop:  sched.Stop,
				Health: func() workflow.ComponentHealth {
					if _, err := sched.Status(); err != nil {
						return workflow.UnhealthyComponent("schedule", err.Error())
					}
					return workflow.HealthyComponent("schedule")
				},
			})
		}
	}

	return &runtime{manager: manager, services: services}, nil
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.Event("config_snapshot"),
		logging.String("drafts_dir", cfg.Paths.DraftsDir),
		logging.String("approved_dir", cfg.Paths.ApprovedDir),
		logging.String("channel_id", cfg.Discord.ChannelID),
		logging.String("tts_entity", cfg.HomeAssistant.TTSEntityID),
		logging.Duration("settle", cfg.ApprovalSettle()),
		logging.Bool("pipeline_enabled", cfg.Pipeline.Enabled),
		logging.Bool("medium_enabled", cfg.Medium.Enabled),
		logging.String("api_bind", cfg.API.Bind),
	)
}
