package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/logger"
	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/protocol/codec"
	"github.com/palemoky/shswrite/internal/types"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	// 发送缓冲区大小
	sendBufferSize = 256

	// 指令超限次数超过该值后断开连接
	maxCommandOverruns = 5
)

// Client 代表一个 WebSocket 连接
type Client struct {
	IP string // 客户端 IP 地址

	server *Server
	conn   *websocket.Conn
	codec  codec.Codec
	send   chan []byte

	mu      sync.RWMutex
	id      string
	closed  bool
	release sync.Once
}

var _ types.ClientInterface = (*Client)(nil)

// NewClient 创建新客户端，身份由同步器在加入时分配
func NewClient(s *Server, conn *websocket.Conn, c codec.Codec) *Client {
	return &Client{
		server: s,
		conn:   conn,
		codec:  c,
		send:   make(chan []byte, sendBufferSize),
	}
}

// GetID 玩家 ID
func (c *Client) GetID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// SetID 设置玩家 ID
func (c *Client) SetID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("player", c.GetID()).Msg("读取错误")
			}
			return
		}

		id := c.GetID()
		msg := codec.GetMessage()
		if err := c.codec.DecodeInto(data, msg); err != nil {
			log.Debug().Err(err).Str("player", id).Msg("消息解析错误，已丢弃")
			codec.PutMessage(msg)
			continue
		}

		// 按消息类型限流
		switch c.server.inputLimiter.Allow(id, msg.Type) {
		case InputThrottled:
			codec.PutMessage(msg)
			continue
		case InputRejected:
			codec.PutMessage(msg)
			if c.server.inputLimiter.Overruns(id) > maxCommandOverruns {
				log.Warn().Str("player", id).Str("ip", c.IP).Msg("🚫 客户端因多次超速被断开连接")
				return
			}
			log.Debug().Str("player", id).Str("ip", c.IP).Msg("⚠️ 客户端指令过于频繁")
			c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeRateLimit))
			continue
		}

		// 交给处理器处理
		c.server.handler.Handle(c, msg)
		codec.PutMessage(msg)
	}
}

// WritePump 向 WebSocket 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端，不阻塞；缓冲区满时关闭连接
func (c *Client) SendMessage(msg *protocol.Message) {
	data, err := c.codec.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(msg.Type)).Msg("消息编码错误")
		return
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	full := false
	select {
	case c.send <- data:
	default:
		full = true
	}
	c.mu.RUnlock()

	if full {
		log.Warn().Str("player", c.GetID()).Msg("客户端发送缓冲区已满，断开连接")
		c.Close()
	}
}

// handleDisconnect 处理断开连接
func (c *Client) handleDisconnect() {
	c.server.handler.OnDisconnect(c)
	c.server.inputLimiter.RemoveClient(c.GetID())
	c.Close()
	c.releaseSlot()
}

// releaseSlot 归还连接信号量
func (c *Client) releaseSlot() {
	c.release.Do(func() { <-c.server.semaphore })
}

// Close 关闭发送通道，WritePump 随后发送关闭帧
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Closed 连接是否已关闭
func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
