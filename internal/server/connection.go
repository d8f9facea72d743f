package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/protocol/codec"
)

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// 获取真实客户端IP
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Info().Str("ip", clientIP).Msg("🔧 维护模式，拒绝新连接")
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	// IP 过滤检查
	if !s.ipFilter.IsAllowed(clientIP) {
		log.Warn().Str("ip", clientIP).Msg("🚫 IP 被过滤器拒绝")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// 来源验证
	if !s.originChecker.Check(r) {
		log.Warn().Str("origin", r.Header.Get("Origin")).Str("ip", clientIP).Msg("🚫 来源验证失败")
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	// 速率限制检查
	if !s.rateLimiter.Allow(clientIP) {
		log.Warn().Str("ip", clientIP).Msg("🚫 请求过于频繁")
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	// 连接数限制检查，信号量在连接关闭时归还
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Warn().Int("max", s.maxConnections).Str("ip", clientIP).Msg("🚫 达到最大连接数限制")
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-s.semaphore
		log.Debug().Err(err).Str("ip", clientIP).Msg("WebSocket 升级失败")
		return
	}

	c := codec.ForName(r.URL.Query().Get("encoding"))
	client := NewClient(s, conn, c)
	client.IP = clientIP

	// 写协程先启动，加入时的 player_id 与快照才能及时发出
	go client.WritePump()
	s.handler.OnConnect(client)

	log.Info().Str("player", client.GetID()).Str("ip", clientIP).Str("encoding", c.Name()).Msg("✅ 玩家已连接")

	go client.ReadPump()
}
