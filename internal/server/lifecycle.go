package server

import (
	"context"
	"errors"
	"runtime"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/protocol"
)

// monitorStats 定期记录服务器状态
func (s *Server) monitorStats(ctx context.Context) {
	interval := s.config.Server.StatsIntervalDuration()
	if interval <= 0 {
		return
	}

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.logStats()
		}
	}
}

func (s *Server) logStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	log.Info().
		Int("online", s.GetOnlineCount()).
		Str("phase", s.sync.Phase().String()).
		Int("goroutines", runtime.NumGoroutine()).
		Int("active_conns", len(s.semaphore)).
		Int("max_conns", s.maxConnections).
		Float64("mem_mb", float64(m.Alloc)/1024/1024).
		Msg("📊 [监控]")
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接与新的一局
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	already := s.maintenanceMode
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	if already {
		return
	}

	s.sync.Broadcast(protocol.NewNoticeMessage(protocol.TitleNotice, protocol.ErrorMessages[protocol.ErrCodeServerMaintenance]))
	log.Info().Msg("🔧 进入维护模式：停止新连接和新对局")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 优雅关闭：通知玩家、关闭连接、停止 HTTP 服务并释放后端连接
func (s *Server) GracefulShutdown(ctx context.Context) error {
	s.EnterMaintenanceMode()

	// 关闭所有客户端连接，WritePump 会先把已排队的通知发出去
	s.sync.CloseAll()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	s.bgCancel()

	// 等待进行中的对局事件写完
	done := make(chan struct{})
	go func() {
		s.sync.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("⚠️ 等待对局事件超时")
	}
	s.sync.Close()

	if err := s.closeBackends(); err != nil {
		errs = append(errs, err)
	}

	log.Info().Msg("服务器已关闭")
	return errors.Join(errs...)
}

// Shutdown 使用配置的超时优雅关闭
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeoutDuration())
	defer cancel()
	return s.GracefulShutdown(ctx)
}

// closeBackends 关闭 Redis 与 NATS
func (s *Server) closeBackends() error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
