package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"winterstudy-backend/internal/common"
	"winterstudy-backend/internal/logic"
)

var (
	configPath  string
	statsOpenID string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "studyd",
		Short:        "寒假学习打卡后端",
		SilenceUsage: true,
		RunE:         runServeCmd,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE:  runServeCmd,
	})
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "迁移旧版本的打卡记录和个人资料",
		RunE:  runMigrateCmd,
	})
	return rootCmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer common.SyncLogger()
	cfg.Print()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 启动定时任务调度器
	if cfg.Reminder.Enabled {
		hour, minute, _ := cfg.Reminder.Clock()
		logic.StartScheduler(ctx, svc, hour, minute)
	}

	// 启动Gin路由
	gin.SetMode(cfg.Server.GinMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           logic.SetupRouter(svc, cfg.Server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		common.Sugar.Infof("Starting server on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	common.Sugar.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer common.SyncLogger()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	n, err := svc.MigrateAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrated %d clients\n", n)
	return nil
}
