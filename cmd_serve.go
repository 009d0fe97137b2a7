package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aiwolfdial/studybuddy/core"
	"github.com/aiwolfdial/studybuddy/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(config)
	if config.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT)
	defer stop()

	oracle, err := service.NewOracleFromConfig(ctx, config)
	if err != nil {
		return err
	}
	schedule, err := service.NewScheduleStoreFromConfig(config)
	if err != nil {
		return err
	}
	grades := service.NewSheetsGradeSource(config, os.Getenv("SHEETS_API_KEY"))
	server := core.NewServer(*config, oracle, schedule, grades)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("サーバを停止します", "cause", context.Cause(ctx))
		return nil
	})
	return g.Wait()
}

