package transport

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/logger"
)

// StartHeartbeat 启动心跳检测
func (c *Client) StartHeartbeat() {
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if c.IsConnected() {
					_ = c.Ping()
				}
			case <-c.quit:
				return
			}
		}
	}()
}

// tryReconnect 尝试重连。服务器不保留会话，重连后会分配新的玩家身份
func (c *Client) tryReconnect() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			c.reconnecting.Store(false)
		}
	}()

	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	// 指数退避重连策略
	backoff := reconnectInterval

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		log.Info().Int("attempt", attempt).Int("max", maxReconnectAttempts).Msg("🔄 尝试重连")

		select {
		case <-time.After(backoff):
		case <-c.quit:
			return
		}

		// 计算下一次退避时间 (最大 30 秒)
		backoff = min(backoff*2, 30*time.Second)

		l, err := c.dial()
		if err != nil {
			log.Debug().Err(err).Msg("重连失败")
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = l.conn.Close()
			return
		}
		c.link = l
		c.mu.Unlock()

		c.start(l)
		log.Info().Msg("✅ 重连成功")
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
		return
	}

	// 重连失败
	log.Warn().Msg("❌ 重连失败，已达最大尝试次数")
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}
