package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/palemoky/shswrite/internal/config"
	"github.com/palemoky/shswrite/internal/logger"
	"github.com/palemoky/shswrite/internal/protocol/codec"
	"github.com/palemoky/shswrite/internal/sound"
	"github.com/palemoky/shswrite/internal/transport"
	"github.com/palemoky/shswrite/internal/ui"
	"github.com/palemoky/shswrite/internal/ui/model"
)

type flags struct {
	server    string
	encoding  string
	soundsDir string
	noSound   bool
	logDir    string
}

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "启动客户端时出错: %v\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var f flags

	cmd := &cobra.Command{
		Use:   "shswrite",
		Short: "三人协作打字游戏终端客户端",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := validateEncoding(f.encoding); err != nil {
				return err
			}
			return run(&f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.server, "server", "s", "localhost:1780", "服务器地址，host:port 或完整的 ws:// 地址 (env: SHSWRITE_SERVER)")
	fl.StringVarP(&f.encoding, "encoding", "e", codec.NameJSON, "消息编码 json|protobuf (env: SHSWRITE_ENCODING)")
	fl.StringVar(&f.soundsDir, "sounds", "", "音效目录，缺失的音效使用内置提示音 (env: SHSWRITE_SOUNDS)")
	fl.BoolVar(&f.noSound, "no-sound", false, "关闭音效 (env: SHSWRITE_NO_SOUND)")
	fl.StringVar(&f.logDir, "log-dir", "", "日志目录，默认 ~/.shswrite (env: SHSWRITE_LOG_DIR)")

	fl.VisitAll(func(pf *pflag.Flag) {
		_ = v.BindPFlag(pf.Name, pf)
		_ = v.BindEnv(pf.Name)
		if !pf.Changed && v.IsSet(pf.Name) {
			_ = fl.Set(pf.Name, fmt.Sprintf("%v", v.Get(pf.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

func validateEncoding(name string) error {
	switch strings.ToLower(name) {
	case codec.NameJSON, codec.NameProtobuf:
		return nil
	default:
		return fmt.Errorf("unsupported encoding %q", name)
	}
}

// serverURL 将 host:port 补全为 WebSocket 地址
func serverURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return fmt.Sprintf("ws://%s/ws", addr)
}

func run(f *flags) error {
	// 终端界面占用标准输出，日志写入文件
	if err := logger.InitFile(f.logDir); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
	}
	defer logger.Close()

	sounds := sound.NewSoundManager()
	if !f.noSound {
		go func() {
			if err := sounds.Init(f.soundsDir); err != nil {
				log.Warn().Err(err).Msg("音效初始化失败")
			}
		}()
	}
	defer sounds.Close()

	c := transport.NewClient(serverURL(f.server), transport.WithCodec(codec.ForName(f.encoding)))
	defer c.Close()

	m := ui.NewOnlineModel(c, model.WithSoundManager(sounds))

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("客户端异常退出")
		return err
	}
	return nil
}
