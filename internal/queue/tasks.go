package queue

import (
	"encoding/json"

	"github.com/dujiao-next/redemption/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDispatch 通知分发任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
	// TaskRewardExpire 奖励到期任务
	TaskRewardExpire = constants.TaskRewardExpire
)

// NotificationDispatchPayload 通知分发任务载荷
type NotificationDispatchPayload struct {
	EventType  string                 `json:"event_type"`
	BizType    string                 `json:"biz_type"`
	BizID      uint                   `json:"biz_id"`
	UserID     uint                   `json:"user_id,omitempty"`
	OccurredAt int64                  `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// RewardExpirePayload 奖励到期任务载荷
type RewardExpirePayload struct {
	RewardID uint `json:"reward_id"`
}

// NewNotificationDispatchTask 创建通知分发任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

// NewRewardExpireTask 创建奖励到期任务
func NewRewardExpireTask(payload RewardExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRewardExpire, body), nil
}
