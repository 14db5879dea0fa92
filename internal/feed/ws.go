package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"swarm/internal/decision"
	"swarm/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	defaultMaxRetries   = 5
	defaultRetryDelay   = 5 * time.Second
	defaultPingInterval = 20 * time.Second
	defaultPongWait     = 10 * time.Second
	defaultHandshake    = 10 * time.Second
	writeWait           = 5 * time.Second
)

var ErrNotConnected = errors.New("feed: not connected")

type WSConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
}

func (c WSConfig) withDefaults() WSConfig {
	out := c
	out.URL = strings.TrimSpace(out.URL)
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = defaultHandshake
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = defaultMaxRetries
	}
	if out.RetryDelay < 0 {
		out.RetryDelay = 0
	} else if out.RetryDelay == 0 {
		out.RetryDelay = defaultRetryDelay
	}
	if out.PingInterval <= 0 {
		out.PingInterval = defaultPingInterval
	}
	return out
}

// Registration 是连接建立后发给撮合端的 agent_register 内容。
type Registration struct {
	AgentID         string  `json:"agent_id"`
	Name            string  `json:"name"`
	Personality     string  `json:"personality"`
	StartingCapital float64 `json:"starting_capital"`
}

// WSClient 同时承担行情订阅与下单通道，一个 agent 一条连接。
type WSClient struct {
	cfg    WSConfig
	reg    Registration
	state  *State
	dialer *websocket.Dialer
	log    logger.Scope

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewWSClient(cfg WSConfig, reg Registration, state *State) *WSClient {
	final := cfg.withDefaults()
	if state == nil {
		state = NewState()
	}
	return &WSClient{
		cfg:   final,
		reg:   reg,
		state: state,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: final.HandshakeTimeout,
		},
		log: logger.For(reg.Name),
	}
}

func (c *WSClient) State() *State { return c.state }

func (c *WSClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Connect 拨号并注册，失败时按固定间隔重试，重试耗尽返回最后一次错误。
func (c *WSClient) Connect(ctx context.Context) error {
	if c.cfg.URL == "" {
		return fmt.Errorf("feed: ws url is required")
	}
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		c.log.Infof("attempting connection (%d/%d)...", attempt, c.cfg.MaxRetries)
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			if err = c.register(); err == nil {
				c.log.Infof("connected and registered")
				return nil
			}
			c.drop(conn)
		}
		lastErr = err
		c.log.Warnf("connection attempt %d failed: %v", attempt, err)
		if attempt == c.cfg.MaxRetries {
			break
		}
		if !sleepWithContext(ctx, c.cfg.RetryDelay) {
			return ctx.Err()
		}
	}
	c.log.Errorf("failed to connect after %d attempts", c.cfg.MaxRetries)
	return fmt.Errorf("feed: connect %s: %w", c.cfg.URL, lastErr)
}

func (c *WSClient) register() error {
	return c.send(map[string]any{
		"type":             "agent_register",
		"agent_id":         c.reg.AgentID,
		"name":             c.reg.Name,
		"personality":      c.reg.Personality,
		"starting_capital": c.reg.StartingCapital,
	})
}

// Run 读取推送直到 ctx 结束或连接断开。ctx 结束返回 nil，连接错误原样上抛。
func (c *WSClient) Run(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-runCtx.Done()
		_ = conn.Close()
	}()
	go c.pingLoop(runCtx, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.drop(conn)
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warnf("connection closed by server")
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		if err := c.state.Apply(raw); err != nil {
			c.log.Warnf("drop message: %v", err)
		}
	}
}

func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(defaultPongWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Warnf("ping failed: %v", err)
				_ = conn.Close()
				return
			}
		}
	}
}

// PlaceOrder 发送 add_order。只保证消息写出，不跟踪成交。
func (c *WSClient) PlaceOrder(ctx context.Context, o decision.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(map[string]any{
		"type":      "add_order",
		"symbol_id": o.InstrumentID,
		"side":      string(o.Side),
		"orderType": string(o.Kind),
		"price":     o.Price,
		"quantity":  o.Quantity,
		"agent_id":  o.AgentID,
	})
}

// RequestPortfolio 请求撮合端推送一次 portfolio_update。
func (c *WSClient) RequestPortfolio(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(map[string]any{
		"type":     "get_portfolio",
		"agent_id": c.reg.AgentID,
	})
}

func (c *WSClient) send(msg map[string]any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("feed: write %v: %w", msg["type"], err)
	}
	return nil
}

// drop 只清理 conn 本身；重连后旧读循环退出时不会误伤新连接。
func (c *WSClient) drop(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// Close 主动断开连接，可重复调用。
func (c *WSClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return conn.Close()
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
