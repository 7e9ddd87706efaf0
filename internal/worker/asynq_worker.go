package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/provider"
	"github.com/dujiao-next/redemption/internal/queue"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskRewardExpire, c.handleRewardExpire)
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
}

func (c *Consumer) handleRewardExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_reward_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.RewardExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reward_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.RewardID == 0 {
		logger.Debugw("worker_reward_expire_skip_invalid_payload", "reward_id", payload.RewardID)
		return nil
	}
	if c.RewardManager == nil {
		logger.Warnw("worker_reward_expire_skip_manager_nil", "reward_id", payload.RewardID)
		return nil
	}
	expired, err := c.RewardManager.ExpireOne(ctx, payload.RewardID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			logger.Debugw("worker_reward_expire_skip_not_found", "reward_id", payload.RewardID)
			return nil
		case service.IsTransient(err):
			logger.Warnw("worker_reward_expire_transient", "reward_id", payload.RewardID, "error", err)
			return err
		default:
			logger.Warnw("worker_reward_expire_failed", "reward_id", payload.RewardID, "error", err)
			return err
		}
	}
	if !expired {
		// 奖励已应用、已取消或期限被延长，任务作废即可
		logger.Debugw("worker_reward_expire_skip_not_due", "reward_id", payload.RewardID)
	}
	return nil
}

func (c *Consumer) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.EventType == "" {
		logger.Debugw("worker_notification_dispatch_skip_invalid_payload", "biz_id", payload.BizID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_dispatch_skip_service_nil", "event_type", payload.EventType)
		return nil
	}
	if err := c.NotificationService.Dispatch(ctx, payload); err != nil {
		logger.Warnw("worker_notification_dispatch_failed",
			"event_type", payload.EventType,
			"biz_type", payload.BizType,
			"biz_id", payload.BizID,
			"error", err,
		)
		return err
	}
	return nil
}
