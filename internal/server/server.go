package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/config"
	"github.com/palemoky/shswrite/internal/events"
	"github.com/palemoky/shswrite/internal/game/phrase"
	"github.com/palemoky/shswrite/internal/game/registry"
	"github.com/palemoky/shswrite/internal/game/session"
	"github.com/palemoky/shswrite/internal/server/broadcast"
	"github.com/palemoky/shswrite/internal/server/handler"
	"github.com/palemoky/shswrite/internal/server/storage"
	"github.com/palemoky/shswrite/internal/types"
)

// Version 构建版本，发布时通过 -ldflags 注入
var Version = "dev"

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	clock       clockwork.Clock
	store       *storage.RedisStore
	publisher   *events.Publisher
	sync        *broadcast.Synchronizer
	handler     *handler.Handler
	httpServer  *http.Server
	startedAt   time.Time
	upgrader    websocket.Upgrader

	// 后台任务（限流清理、统计日志）的生命周期
	bgCtx    context.Context
	bgCancel context.CancelFunc

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	inputLimiter   *InputLimiter
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex
}

var _ types.ServerInterface = (*Server)(nil)

type serverOptions struct {
	redis   *redis.Client
	clock   clockwork.Clock
	phrases phrase.Provider
}

// Option 服务器选项
type Option func(*serverOptions)

// WithRedisClient 使用已有的 Redis 客户端（测试中注入 miniredis）
func WithRedisClient(rdb *redis.Client) Option {
	return func(o *serverOptions) { o.redis = rdb }
}

// WithClock 注入时钟
func WithClock(c clockwork.Clock) Option {
	return func(o *serverOptions) { o.clock = c }
}

// WithPhraseProvider 替换文本来源
func WithPhraseProvider(p phrase.Provider) Option {
	return func(o *serverOptions) { o.phrases = p }
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	o := serverOptions{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	policy, err := cfg.Game.Policy()
	if err != nil {
		return nil, err
	}

	maxConnections := cfg.Server.MaxConnections
	if maxConnections <= 0 {
		maxConnections = 1
	}

	s := &Server{
		config:    cfg,
		clock:     o.clock,
		startedAt: o.clock.Now(),
		// 初始化安全组件
		rateLimiter: newRateLimiter(
			o.clock,
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		inputLimiter: newInputLimiter(
			o.clock,
			cfg.Security.MessageLimit.MaxPerSecond,
			cfg.Security.MessageLimit.CommandsPerSecond,
		),
		ipFilter:       NewIPFilter(cfg.Security.BlockedIPs...),
		// 初始化连接控制
		maxConnections: maxConnections,
		semaphore:      make(chan struct{}, maxConnections),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
		// 消息都很小，压缩只会增加 CPU 开销
		EnableCompression: false,
	}

	var observers []types.RoundObserver

	if cfg.Redis.Enabled {
		rdb := o.redis
		if rdb == nil {
			rdb = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}

		s.store = storage.NewRedisStore(rdb,
			storage.WithKeyPrefix(cfg.Redis.KeyPrefix),
			storage.WithRoundTTL(cfg.Redis.RoundTTLDuration()),
		)
		observers = append(observers, s.store)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("🗄️ 已启用 Redis 对局记录")
	}

	if cfg.NATS.Enabled {
		pub, err := events.Connect(events.Config{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWaitDuration(),
			Clock:         o.clock,
		})
		if err != nil {
			s.closeBackends()
			return nil, err
		}
		s.publisher = pub
		observers = append(observers, pub)
		log.Info().Str("url", cfg.NATS.URL).Str("prefix", cfg.NATS.SubjectPrefix).Msg("📣 已启用 NATS 对局事件")
	}

	phrases := o.phrases
	if phrases == nil {
		phrases = phrase.NewRandomProvider(cfg.Game.Phrases)
	}

	reg := registry.New(registry.WithMaxNicknameLength(cfg.Game.MaxNicknameLength))
	sess := session.New(reg, phrases,
		session.WithClock(o.clock),
		session.WithPolicy(policy),
	)
	s.sync = broadcast.New(reg, sess,
		broadcast.WithObservers(observers...),
		broadcast.WithAutoReset(!cfg.Game.DisableAutoReset),
	)

	// 初始化消息处理器
	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server: s,
		Sync:   s.sync,
	})

	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())

	log.Info().
		Int("conn_per_sec", cfg.Security.RateLimit.MaxPerSecond).
		Int("cursor_per_sec", cfg.Security.MessageLimit.MaxPerSecond).
		Int("cmd_per_sec", cfg.Security.MessageLimit.CommandsPerSecond).
		Int("max_connections", maxConnections).
		Strs("typists", cfg.Game.TypistRoles).
		Strs("starters", cfg.Game.StarterRoles).
		Msg("🔒 安全与游戏配置")

	return s, nil
}

// Handler 返回包含全部路由的 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start 启动服务器，阻塞直到监听结束
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve 在给定的 listener 上提供服务
func (s *Server) Serve(ln net.Listener) error {
	// 启动后台任务
	go s.rateLimiter.RunCleanup(s.bgCtx)
	go s.monitorStats(s.bgCtx)

	log.Info().Str("addr", ln.Addr().String()).Int("cpus", runtime.NumCPU()).Str("version", Version).
		Msgf("🚀 服务器启动在 ws://%s/ws", ln.Addr())

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GetOnlineCount 获取在线人数
func (s *Server) GetOnlineCount() int {
	return s.sync.Online()
}

// Store 对局存储，未启用 Redis 时为 nil
func (s *Server) Store() *storage.RedisStore {
	return s.store
}
