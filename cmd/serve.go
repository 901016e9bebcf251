package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git-browser-web/internal/application"
	"git-browser-web/internal/infrastructure/prefs"
	httpapi "git-browser-web/internal/interfaces/http"
	"git-browser-web/internal/interfaces/http/handlers"
	"git-browser-web/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newServeCmd(rt *app, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(rt)
		},
	}
	cmd.Flags().String("addr", "", "监听地址，例如 :8080")
	cmd.Flags().String("mode", "", "gin 运行模式: debug, release, test")
	_ = v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("mode", cmd.Flags().Lookup("mode"))
	return cmd
}

func serve(rt *app) error {
	cfg := rt.cfg
	gin.SetMode(cfg.GetMode())

	if err := rt.prefs.Watch(); err != nil {
		logger.Warn("无法监听偏好文件", zap.String("path", cfg.GetPrefsPath()), zap.Error(err))
	}
	stopReloads := make(chan struct{})
	defer close(stopReloads)
	go logReloads(rt.prefs, stopReloads)

	var opts []application.Option
	if rt.cache != nil {
		opts = append(opts, application.WithCache(rt.cache))
	}
	service := application.NewExplorerService(cfg, rt.client, rt.prefs, opts...)
	defer service.Close()

	router := httpapi.NewRouter(
		handlers.NewExplorerHandler(service, rt.client),
		handlers.NewProfileHandler(rt.prefs),
	)

	server := &http.Server{
		Addr:              cfg.GetAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("启动服务", zap.String("addr", cfg.GetAddr()), zap.String("mode", cfg.GetMode()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigint)

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("启动 Gin 服务失败", zap.Error(err))
			return err
		}
		return nil
	case <-sigint:
	}

	logger.Info("正在关闭服务")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("关闭服务失败", zap.Error(err))
		return err
	}
	return nil
}

// logReloads 偏好文件被外部修改后记录新的登录状态和主题
func logReloads(store *prefs.Store, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-store.Reloaded():
			profile, signedIn := store.Profile()
			logger.Info("偏好已更新",
				zap.Bool("signed_in", signedIn),
				zap.String("username", profile.Username),
				zap.String("theme", prefs.EffectiveTheme(store.Theme())))
		}
	}
}
