package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/config"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/daemon"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipelines and HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}
}

func runDaemon(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := sessions.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		return err
	}

	manager, err := workflow.NewManager(cfg, store, events.NewHub(cfg.Events.Buffer), logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create workflow: %w", err)
	}

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("ischool daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}
