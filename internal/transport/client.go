package transport

import (
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 心跳检测间隔
	heartbeatInterval = 5 * time.Second
	// 最大重连次数
	maxReconnectAttempts = 5
	// 首次重连间隔，之后指数退避
	reconnectInterval = 1 * time.Second
	// 缓冲区大小
	bufferSize = 256
)

var (
	// ErrClosed 连接已关闭
	ErrClosed = errors.New("connection closed")
	// ErrBufferFull 发送缓冲区已满
	ErrBufferFull = errors.New("send buffer full")
)

// link 一条底层连接及其发送队列，重连时整体替换
type link struct {
	conn *websocket.Conn
	send chan []byte
	stop chan struct{} // readPump 退出时关闭
}

// Client WebSocket 客户端
type Client struct {
	ServerURL string

	codec   codec.Codec
	dialer  *websocket.Dialer
	receive chan *protocol.Message
	quit    chan struct{}

	// 回调
	OnError     func(error) // 错误回调
	OnClose     func()      // 关闭回调（重连失败或服务器关闭）
	OnReconnect func()      // 重连成功回调

	mu       sync.RWMutex
	link     *link
	closed   bool
	playerID string
	nickname string

	latency       atomic.Int64
	reconnecting  atomic.Bool
	autoReconnect bool
}

// Option 客户端选项
type Option func(*Client)

// WithCodec 指定编码，protobuf 时通过 ?encoding=protobuf 告知服务器
func WithCodec(c codec.Codec) Option {
	return func(cl *Client) { cl.codec = c }
}

// WithAutoReconnect 断线后是否自动重连
func WithAutoReconnect(enabled bool) Option {
	return func(cl *Client) { cl.autoReconnect = enabled }
}

// NewClient 创建客户端
func NewClient(serverURL string, opts ...Option) *Client {
	c := &Client{
		ServerURL:     serverURL,
		codec:         codec.ForName(codec.NameJSON),
		dialer:        &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		receive:       make(chan *protocol.Message, bufferSize),
		quit:          make(chan struct{}),
		autoReconnect: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect 连接服务器
func (c *Client) Connect() error {
	l, err := c.dial()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = l.conn.Close()
		return ErrClosed
	}
	c.link = l
	c.mu.Unlock()

	c.start(l)
	return nil
}

// dialURL 在服务器地址上附加编码参数
func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", err
	}
	if c.codec.Binary() {
		q := u.Query()
		q.Set("encoding", c.codec.Name())
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) dial() (*link, error) {
	target, err := c.dialURL()
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.Dial(target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &link{
		conn: conn,
		send: make(chan []byte, bufferSize),
		stop: make(chan struct{}),
	}, nil
}

// start 启动读写协程
func (c *Client) start(l *link) {
	go c.readPump(l)
	go c.writePump(l)
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.link == nil {
		return ErrClosed
	}

	select {
	case c.link.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Receive 消息通道，重连后仍然有效
func (c *Client) Receive() <-chan *protocol.Message {
	return c.receive
}

// Done 客户端关闭后关闭
func (c *Client) Done() <-chan struct{} {
	return c.quit
}

// ReceiveWithTimeout 带超时接收消息
func (c *Client) ReceiveWithTimeout(timeout time.Duration) (*protocol.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.receive:
		return msg, nil
	case <-timer.C:
		return nil, errors.New("receive timeout")
	case <-c.quit:
		return nil, ErrClosed
	}
}

// Close 关闭连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.quit)
	if c.link != nil {
		_ = c.link.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = c.link.conn.Close()
	}
}

// IsConnected 是否已连接
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.link != nil
}

// PlayerID 服务器分配的玩家 ID
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// Nickname 服务器分配的昵称
func (c *Client) Nickname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname
}

// GetLatency 获取当前延迟（毫秒）
func (c *Client) GetLatency() int64 {
	return c.latency.Load()
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}

func (c *Client) setIdentity(id, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
	c.nickname = nickname
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
