package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"git-browser-web/internal/infrastructure/cache"
	"git-browser-web/internal/infrastructure/github"
	"git-browser-web/internal/infrastructure/prefs"
	"git-browser-web/pkg/config"
	"git-browser-web/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app 命令共享的依赖，在 PersistentPreRunE 中初始化
type app struct {
	cfg    *config.Config
	prefs  *prefs.Store
	cache  *cache.BlobCache
	client *github.Client
}

// close 释放缓存数据库等资源
func (r *app) close() {
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			logger.Warn("关闭缓存失败", zap.Error(err))
		}
	}
	if r.prefs != nil {
		_ = r.prefs.Close()
	}
	logger.Sync()
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	rt := &app{}
	v := viper.New()

	root := &cobra.Command{
		Use:           "git-browser",
		Short:         "Browse GitHub repositories from a web UI or the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(v, cmd.Name() == "serve")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "config.yaml", "配置文件路径")
	flags.String("log-level", "", "日志级别: debug, info, warn, error")
	flags.String("token", "", "GitHub access token")
	flags.String("api-base-url", "", "GitHub API 地址")
	flags.Bool("cache", false, "启用 blob 缓存")

	v.SetEnvPrefix("GITBROWSER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range []string{"config", "log-level", "token", "api-base-url", "cache"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newServeCmd(rt, v),
		newTreeCmd(rt),
		newCatCmd(rt),
		newBranchesCmd(rt),
	)
	return root
}

// setup 加载配置文件，再用命令行参数和 GITBROWSER_* 环境变量覆盖
func (r *app) setup(v *viper.Viper, server bool) error {
	path := v.GetString("config")
	cfg, err := config.LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return fmt.Errorf("加载配置文件失败: %w", err)
	}
	applyOverrides(cfg, v, server)
	r.cfg = cfg

	if err := logger.Init(cfg.GetLogLevel(), cfg.GetLogOutputPath()); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	r.prefs, err = prefs.Open(cfg.GetPrefsPath())
	if err != nil {
		return err
	}

	opts := []github.Option{github.WithTokenSource(r.prefs)}
	if cfg.IsCacheEnabled() {
		r.cache, err = cache.Open(cfg.GetCachePath())
		if err != nil {
			return err
		}
		opts = append(opts, github.WithCache(r.cache))
	}
	r.client = github.NewClient(cfg, opts...)
	return nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper, server bool) {
	if s := v.GetString("log-level"); s != "" {
		cfg.Logging.Level = s
	} else if !server && cfg.Logging.Level == "" {
		// 命令行工具默认只输出警告
		cfg.Logging.Level = "warn"
	}
	if s := v.GetString("token"); s != "" {
		cfg.Github.Token = s
	}
	if s := v.GetString("api-base-url"); s != "" {
		cfg.Github.APIBaseURL = s
	}
	if v.IsSet("cache") && v.GetBool("cache") {
		cfg.Cache.Enabled = true
	}
	if s := v.GetString("addr"); s != "" {
		cfg.Server.Addr = s
	}
	if s := v.GetString("mode"); s != "" {
		cfg.Server.Mode = s
	}
}
