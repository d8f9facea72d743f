package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/palemoky/shswrite/internal/config"
	"github.com/palemoky/shswrite/internal/logger"
	"github.com/palemoky/shswrite/internal/server"
)

// flags 命令行参数，只有显式设置（或来自环境变量）的才会覆盖配置文件
type flags struct {
	configPath string
	host       string
	port       int
	publicURL  string
	logLevel   string
	logFormat  string
	redis      bool
	nats       bool
}

func main() {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("读取 .env 失败")
	}

	if err := newCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("服务器启动失败")
	}
}

func newCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var f flags

	cmd := &cobra.Command{
		Use:     "shswrite-server",
		Short:   "三人协作打字游戏服务器",
		Args:    cobra.ExactArgs(0),
		Version: server.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fl.StringVarP(&f.configPath, "config", "c", "configs/config.yaml", "配置文件路径 (env: SHSWRITE_CONFIG)")
	fl.StringVarP(&f.host, "host", "b", "", "监听地址 (env: SHSWRITE_HOST)")
	fl.IntVarP(&f.port, "port", "p", 0, "监听端口 (env: SHSWRITE_PORT)")
	fl.StringVar(&f.publicURL, "public-url", "", "二维码中的加入地址 (env: SHSWRITE_PUBLIC_URL)")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别 (env: SHSWRITE_LOG_LEVEL)")
	fl.StringVar(&f.logFormat, "log-format", "", "日志格式 console|json (env: SHSWRITE_LOG_FORMAT)")
	fl.BoolVar(&f.redis, "redis", false, "启用 Redis 对局记录 (env: SHSWRITE_REDIS)")
	fl.BoolVar(&f.nats, "nats", false, "启用 NATS 对局事件 (env: SHSWRITE_NATS)")

	fl.VisitAll(func(pf *pflag.Flag) {
		_ = v.BindPFlag(pf.Name, pf)
		_ = v.BindEnv(pf.Name)
		if !pf.Changed && v.IsSet(pf.Name) {
			_ = fl.Set(pf.Name, fmt.Sprintf("%v", v.Get(pf.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("shswrite-server {{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// loadConfig 加载配置文件，并用显式设置的参数覆盖
func loadConfig(fl *pflag.FlagSet, f *flags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}

	if fl.Changed("host") {
		cfg.Server.Host = f.host
	}
	if fl.Changed("port") {
		cfg.Server.Port = f.port
	}
	if fl.Changed("public-url") {
		cfg.Server.PublicURL = f.publicURL
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fl.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if fl.Changed("redis") {
		cfg.Redis.Enabled = f.redis
	}
	if fl.Changed("nats") {
		cfg.NATS.Enabled = f.nats
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("创建服务器失败: %w", err)
	}

	// 优雅关闭
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("🎮 打字游戏服务器启动中...")
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		_ = srv.Shutdown()
		return err
	case <-ctx.Done():
		log.Info().Msg("正在关闭服务器...")
		if err := srv.Shutdown(); err != nil {
			return err
		}
		return <-errCh
	}
}
