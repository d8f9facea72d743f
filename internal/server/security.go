package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// 连接记录闲置多久后被清理
const idleRecordTTL = 10 * time.Minute

// RateLimiter 按 IP 限制新连接速率，超限后封禁一段时间
//
// 每个 IP 两个令牌桶：秒级桶容量为 maxPerSecond，分钟级桶容量为 maxPerMinute。
type RateLimiter struct {
	ips   map[string]*ipBuckets
	mu    sync.RWMutex
	clock clockwork.Clock

	perSecond       int
	perMinute       int
	banDuration     time.Duration
	cleanupInterval time.Duration
}

type ipBuckets struct {
	second      *rate.Limiter
	minute      *rate.Limiter
	lastSeen    time.Time
	bannedUntil time.Time
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	return newRateLimiter(clockwork.NewRealClock(), maxPerSecond, maxPerMinute, banDuration)
}

func newRateLimiter(clock clockwork.Clock, maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	return &RateLimiter{
		ips:             make(map[string]*ipBuckets),
		clock:           clock,
		perSecond:       maxPerSecond,
		perMinute:       maxPerMinute,
		banDuration:     banDuration,
		cleanupInterval: 5 * time.Minute,
	}
}

// Allow 消耗一次连接配额；封禁中或超限时返回 false，超限会触发封禁
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	b, ok := rl.ips[ip]
	if !ok {
		b = &ipBuckets{
			second: rate.NewLimiter(rate.Limit(rl.perSecond), rl.perSecond),
			minute: rate.NewLimiter(rate.Every(time.Minute)*rate.Limit(rl.perMinute), rl.perMinute),
		}
		rl.ips[ip] = b
	}
	b.lastSeen = now

	if now.Before(b.bannedUntil) {
		return false
	}
	if b.second.AllowN(now, 1) && b.minute.AllowN(now, 1) {
		return true
	}

	b.bannedUntil = now.Add(rl.banDuration)
	log.Warn().Str("ip", ip).Dur("ban", rl.banDuration).Msg("⚠️ IP 因请求过于频繁被暂时封禁")
	return false
}

// IsBanned 检查 IP 是否被封禁
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, ok := rl.ips[ip]
	return ok && rl.clock.Now().Before(b.bannedUntil)
}

// RunCleanup 定期清理闲置记录，直到 ctx 结束
func (rl *RateLimiter) RunCleanup(ctx context.Context) {
	ticker := rl.clock.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for ip, b := range rl.ips {
		if now.Sub(b.lastSeen) > idleRecordTTL && !now.Before(b.bannedUntil) {
			delete(rl.ips, ip)
		}
	}
}

// --- 来源验证 ---

// OriginChecker 来源验证器
type OriginChecker struct {
	allowedOrigins map[string]bool
	allowAll       bool
}

// NewOriginChecker 创建来源验证器，"*" 表示允许所有来源
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{
		allowedOrigins: make(map[string]bool),
	}

	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			return oc
		}
		oc.allowedOrigins[strings.ToLower(origin)] = true
	}

	return oc
}

// Check 检查来源是否允许
func (oc *OriginChecker) Check(r *http.Request) bool {
	return oc.Allowed(r.Header.Get("Origin"))
}

// Allowed 检查来源字符串，空来源（本地客户端）总是允许
func (oc *OriginChecker) Allowed(origin string) bool {
	if oc.allowAll || origin == "" {
		return true
	}
	return oc.allowedOrigins[strings.ToLower(origin)]
}

// AllowAll 是否允许所有来源
func (oc *OriginChecker) AllowAll() bool {
	return oc.allowAll
}

// --- IP 黑名单 ---

// IPFilter IP 过滤器
type IPFilter struct {
	whitelist map[string]bool // 白名单
	blacklist map[string]bool // 黑名单
	mu        sync.RWMutex
}

// NewIPFilter 创建 IP 过滤器
func NewIPFilter(blocked ...string) *IPFilter {
	f := &IPFilter{
		whitelist: make(map[string]bool),
		blacklist: make(map[string]bool),
	}
	for _, ip := range blocked {
		f.blacklist[ip] = true
	}
	return f
}

// AddToWhitelist 添加到白名单
func (f *IPFilter) AddToWhitelist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whitelist[ip] = true
}

// AddToBlacklist 添加到黑名单
func (f *IPFilter) AddToBlacklist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blacklist[ip] = true
}

// RemoveFromBlacklist 从黑名单移除
func (f *IPFilter) RemoveFromBlacklist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blacklist, ip)
}

// IsAllowed 检查 IP 是否允许
func (f *IPFilter) IsAllowed(ip string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	// 如果有白名单且不在白名单中，拒绝
	if len(f.whitelist) > 0 && !f.whitelist[ip] {
		return false
	}
	return !f.blacklist[ip]
}

// --- 辅助函数 ---

// GetClientIP 获取客户端真实 IP
func GetClientIP(r *http.Request) string {
	// 检查代理头
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// 取第一个 IP（最原始的客户端）
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
