package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dujiao-next/redemption/internal/models"
)

const defaultCodeCacheTTL = 30 * time.Second

// CodeSnapshot 兑换码查询快照，仅用于事务外的预查询，不作为资格判定依据
type CodeSnapshot struct {
	ID      uint   `json:"id"`
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	OwnerID *uint  `json:"owner_id,omitempty"`
}

// CodeCache 以码值为键的查询缓存
type CodeCache struct {
	ttl time.Duration
}

// NewCodeCache 创建兑换码缓存
func NewCodeCache(ttlSeconds int) *CodeCache {
	ttl := defaultCodeCacheTTL
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &CodeCache{ttl: ttl}
}

func codeLookupKey(code string) string {
	return fmt.Sprintf("code:lookup:%s", code)
}

// Get 读取快照，未命中或缓存未启用时返回 nil
func (c *CodeCache) Get(ctx context.Context, code string) (*CodeSnapshot, error) {
	if c == nil || code == "" {
		return nil, nil
	}
	var snapshot CodeSnapshot
	hit, err := GetJSON(ctx, codeLookupKey(code), &snapshot)
	if err != nil || !hit {
		return nil, err
	}
	return &snapshot, nil
}

// Set 写入快照
func (c *CodeCache) Set(ctx context.Context, code *models.Code) error {
	if c == nil || code == nil || code.ID == 0 {
		return nil
	}
	return SetJSON(ctx, codeLookupKey(code.Code), CodeSnapshot{
		ID:      code.ID,
		Code:    code.Code,
		Kind:    code.Kind,
		OwnerID: code.OwnerID,
	}, c.ttl)
}

// Invalidate 删除快照（管理端修改或删除后调用）
func (c *CodeCache) Invalidate(ctx context.Context, code string) error {
	if c == nil || code == "" {
		return nil
	}
	return Del(ctx, codeLookupKey(code))
}
