package transport

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/logger"
	"github.com/palemoky/shswrite/internal/protocol"
)

// readPump 从服务器读取消息
func (c *Client) readPump(l *link) {
	defer c.handleReadExit(l)

	c.setupPongHandler(l.conn)

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		msg := &protocol.Message{}
		if err := c.codec.DecodeInto(data, msg); err != nil {
			log.Debug().Err(err).Msg("消息解析错误")
			continue
		}

		c.processMessage(msg)
	}
}

func (c *Client) handleReadExit(l *link) {
	if r := recover(); r != nil {
		logger.LogPanic(r)
	}
	close(l.stop)
	_ = l.conn.Close()

	if c.isClosed() {
		return
	}
	if c.autoReconnect && !c.reconnecting.Load() {
		go c.tryReconnect()
		return
	}
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}

func (c *Client) setupPongHandler(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		log.Debug().Err(err).Msg("连接异常断开")
		if c.OnError != nil {
			c.OnError(err)
		}
	}
}

func (c *Client) processMessage(msg *protocol.Message) {
	c.handleInternalMessage(msg)

	select {
	case c.receive <- msg:
	default:
		log.Warn().Str("type", string(msg.Type)).Msg("接收缓冲区已满，丢弃消息")
	}
}

// handleInternalMessage 记录身份与延迟
func (c *Client) handleInternalMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgPlayerID:
		if payload, err := protocol.ParsePayload[protocol.PlayerIDPayload](msg); err == nil {
			c.setIdentity(payload.ID, payload.Nickname)
		}
	case protocol.MsgPong:
		if payload, err := protocol.ParsePayload[protocol.PongPayload](msg); err == nil {
			c.latency.Store(time.Now().UnixMilli() - payload.ClientTimestamp)
		}
	}
}

// writePump 向服务器写入消息
func (c *Client) writePump(l *link) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		_ = l.conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message := <-l.send:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-l.stop:
			return
		case <-c.quit:
			return
		}
	}
}
