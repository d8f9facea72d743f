package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/palemoky/shswrite/internal/server/storage"
)

const (
	qrSize                  = 320 // 手机扫码友好的尺寸
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// HealthResponse /health 响应
type HealthResponse struct {
	Status      string  `json:"status"`
	Online      int     `json:"online"`
	Phase       string  `json:"phase"`
	Maintenance bool    `json:"maintenance"`
	Redis       string  `json:"redis"`
	Uptime      float64 `json:"uptime_seconds"`
}

// VersionResponse /version 响应
type VersionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// LeaderboardResponse /leaderboard 响应
type LeaderboardResponse struct {
	Day     string                      `json:"day,omitempty"`
	Total   int64                       `json:"total_rounds"`
	Entries []*storage.LeaderboardEntry `json:"entries"`
}

// routes 注册 HTTP 路由并包裹 CORS 中间件
func (s *Server) routes() http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/ws", s.handleWebSocket)
	router.GET("/health", s.handleHealth)
	router.GET("/version", s.handleVersion)
	router.GET("/leaderboard", s.handleLeaderboard)
	router.GET("/qr", s.handleQR)

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.Security.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := HealthResponse{
		Status:      "ok",
		Online:      s.GetOnlineCount(),
		Phase:       s.sync.Phase().String(),
		Maintenance: s.IsMaintenanceMode(),
		Redis:       "disabled",
		Uptime:      s.clock.Since(s.startedAt).Seconds(),
	}
	if resp.Maintenance {
		resp.Status = "maintenance"
	}

	if s.store != nil {
		resp.Redis = "ok"
		if err := s.store.Ping(r.Context()); err != nil {
			resp.Redis = "error"
			resp.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleVersion 版本信息
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   Version,
		GoVersion: runtime.Version(),
	})
}

// handleLeaderboard 最快完成排行榜，?day=today 或 YYYY-MM-DD 查看单日榜
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.store == nil {
		http.Error(w, "leaderboard disabled", http.StatusServiceUnavailable)
		return
	}

	limit := defaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	ctx := r.Context()
	resp := LeaderboardResponse{}

	var err error
	switch day := r.URL.Query().Get("day"); day {
	case "":
		resp.Entries, err = s.store.Fastest(ctx, limit)
	default:
		t := s.clock.Now().UTC()
		if day != "today" {
			t, err = time.Parse(time.DateOnly, day)
			if err != nil {
				http.Error(w, "invalid day", http.StatusBadRequest)
				return
			}
		}
		resp.Day = t.Format(time.DateOnly)
		resp.Entries, err = s.store.FastestOn(ctx, t, limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("读取排行榜失败")
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}

	if resp.Total, err = s.store.TotalRounds(ctx); err != nil {
		log.Error().Err(err).Msg("读取对局总数失败")
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	if resp.Entries == nil {
		resp.Entries = []*storage.LeaderboardEntry{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleQR 生成加入地址的二维码 PNG
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	png, err := qrcode.Encode(s.joinURL(r), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// joinURL 配置的公开地址，未配置时按请求推断 WebSocket 地址
func (s *Server) joinURL(r *http.Request) string {
	if s.config.Server.PublicURL != "" {
		return s.config.Server.PublicURL
	}

	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		scheme = "wss"
	}
	return scheme + "://" + r.Host + "/ws"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("写入响应失败")
	}
}
