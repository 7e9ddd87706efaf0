package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/redemption/internal/cache"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/queue"

	"github.com/hibiken/asynq"
)

const notificationDedupeTTL = 10 * time.Minute

// NotificationEvent 业务事件通知
type NotificationEvent struct {
	EventType string
	BizType   string
	BizID     uint
	UserID    uint
	Data      map[string]interface{}
}

// Notifier 通知分发方，调用方不关心结果
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent)
}

// NotificationSink 实际投递通道（邮件、IM 等由外部系统实现）
type NotificationSink interface {
	Deliver(ctx context.Context, payload queue.NotificationDispatchPayload) error
}

// notificationDeduper 分发去重占位，投递失败时需释放以便任务重试
type notificationDeduper interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisNotificationDeduper struct{}

func (redisNotificationDeduper) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return cache.SetNX(ctx, key, "1", ttl)
}

func (redisNotificationDeduper) Release(ctx context.Context, key string) error {
	return cache.Del(ctx, key)
}

// NotificationService 通知入队与分发
type NotificationService struct {
	queueClient *queue.Client
	sink        NotificationSink
	dedupe      notificationDeduper
}

// NewNotificationService 创建通知服务，sink 为空时仅记录日志
func NewNotificationService(queueClient *queue.Client, sink NotificationSink) *NotificationService {
	return &NotificationService{queueClient: queueClient, sink: sink, dedupe: redisNotificationDeduper{}}
}

// Notify 入队通知任务，失败只记日志，不影响业务结果
func (s *NotificationService) Notify(ctx context.Context, event NotificationEvent) {
	if s == nil {
		return
	}
	payload := queue.NotificationDispatchPayload{
		EventType:  strings.TrimSpace(event.EventType),
		BizType:    strings.TrimSpace(event.BizType),
		BizID:      event.BizID,
		UserID:     event.UserID,
		OccurredAt: time.Now().Unix(),
		Data:       event.Data,
	}
	if s.queueClient == nil || !s.queueClient.Enabled() {
		logger.Ctx(ctx).Debugw("notify_skipped_queue_disabled", "event_type", payload.EventType, "biz_id", payload.BizID)
		return
	}
	if err := s.queueClient.EnqueueNotificationDispatch(payload, asynq.MaxRetry(5)); err != nil {
		logger.Ctx(ctx).Warnw("notify_enqueue_failed",
			"event_type", payload.EventType,
			"biz_type", payload.BizType,
			"biz_id", payload.BizID,
			"error", err,
		)
	}
}

// Dispatch 处理通知分发任务，同一事件在去重窗口内只投递一次；投递失败释放去重键，交由队列重试
func (s *NotificationService) Dispatch(ctx context.Context, payload queue.NotificationDispatchPayload) error {
	if s == nil {
		return nil
	}
	key := notificationDedupeKey(payload)
	acquired, err := s.dedupe.Acquire(ctx, key, notificationDedupeTTL)
	if err != nil {
		logger.Ctx(ctx).Warnw("notify_dedupe_failed", "event_type", payload.EventType, "error", err)
	} else if !acquired {
		return nil
	}
	if s.sink == nil {
		logger.Ctx(ctx).Infow("notification_dispatched",
			"event_type", payload.EventType,
			"biz_type", payload.BizType,
			"biz_id", payload.BizID,
			"user_id", payload.UserID,
		)
		return nil
	}
	if err := s.sink.Deliver(ctx, payload); err != nil {
		if acquired {
			if releaseErr := s.dedupe.Release(ctx, key); releaseErr != nil {
				logger.Ctx(ctx).Warnw("notify_dedupe_release_failed", "event_type", payload.EventType, "error", releaseErr)
			}
		}
		return err
	}
	return nil
}

func notificationDedupeKey(payload queue.NotificationDispatchPayload) string {
	return fmt.Sprintf("notification:dedupe:%s:%s:%d",
		strings.ToLower(payload.EventType),
		strings.ToLower(payload.BizType),
		payload.BizID,
	)
}
