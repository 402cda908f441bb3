package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== GenRateLimiter 生成限流器 ====================

// GenRateLimiter 生成请求限流器
// 防止前端重复点击把付费生成接口打爆
type GenRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// 全局限流器实例
var globalLimiter = &GenRateLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *GenRateLimiter {
	return globalLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行并更新最后执行时间
// key: 限流键，如 "client:1.2.3.4:image"
// interval: 冷却间隔
func (r *GenRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *GenRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成工具 ====================

// GenerateKey 生成按客户端+内容类型的限流 Key
func GenerateKey(clientIP, contentType string) string {
	return fmt.Sprintf("client:%s:%s", clientIP, contentType)
}

// ==================== 默认限流间隔 ====================

// DefaultGenerateInterval 直接生成接口的默认冷却时间
// 生成一次图片/视频本身要几十秒，更短的间隔没有意义
const DefaultGenerateInterval = 10 * time.Second
