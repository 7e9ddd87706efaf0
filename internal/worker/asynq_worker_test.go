package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/provider"
	"github.com/dujiao-next/redemption/internal/queue"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_consumer_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.MigrateDB(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.Config{
		Referral: config.ReferralConfig{
			CodeLength:      8,
			MaxMintAttempts: 8,
			UniqueReferee:   true,
			Rewards:         config.DefaultReferralRewards(),
		},
	}
	container, err := provider.NewContainerWithDB(cfg, db, nil)
	if err != nil {
		t.Fatalf("build container failed: %v", err)
	}
	return NewConsumer(container), db
}

func seedActiveReward(t *testing.T, db *gorm.DB, expiresAt time.Time) *models.ReferralReward {
	t.Helper()
	now := time.Now().UTC()
	reward := &models.ReferralReward{
		ReferralID:    1,
		BeneficiaryID: 7,
		Role:          constants.RewardBeneficiaryReferrer,
		Kind:          constants.RewardKindCredit,
		Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		CurrencyCode:  constants.CurrencyDefault,
		Status:        constants.RewardStatusActive,
		ExpiresAt:     &expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(reward).Error; err != nil {
		t.Fatalf("seed reward failed: %v", err)
	}
	return reward
}

func rewardExpireTask(t *testing.T, rewardID uint) *asynq.Task {
	t.Helper()
	task, err := queue.NewRewardExpireTask(queue.RewardExpirePayload{RewardID: rewardID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleRewardExpireMarksDueReward(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	reward := seedActiveReward(t, db, time.Now().UTC().Add(-time.Minute))

	if err := consumer.handleRewardExpire(context.Background(), rewardExpireTask(t, reward.ID)); err != nil {
		t.Fatalf("handle reward expire failed: %v", err)
	}
	var stored models.ReferralReward
	if err := db.First(&stored, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if stored.Status != constants.RewardStatusExpired || stored.ExpiredAt == nil {
		t.Fatalf("expected expired reward, got status=%s expired_at=%v", stored.Status, stored.ExpiredAt)
	}
}

func TestHandleRewardExpireLeavesFutureReward(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	reward := seedActiveReward(t, db, time.Now().UTC().Add(time.Hour))

	if err := consumer.handleRewardExpire(context.Background(), rewardExpireTask(t, reward.ID)); err != nil {
		t.Fatalf("handle reward expire failed: %v", err)
	}
	var stored models.ReferralReward
	if err := db.First(&stored, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if stored.Status != constants.RewardStatusActive {
		t.Fatalf("future reward must stay active, got %s", stored.Status)
	}
}

func TestHandleRewardExpireSkipsInvalidPayload(t *testing.T) {
	consumer, _ := setupConsumerTest(t)

	if err := consumer.handleRewardExpire(context.Background(), rewardExpireTask(t, 0)); err != nil {
		t.Fatalf("zero id should be skipped: %v", err)
	}
	if err := consumer.handleRewardExpire(context.Background(), rewardExpireTask(t, 404)); err != nil {
		t.Fatalf("missing reward should be skipped: %v", err)
	}
	bad := asynq.NewTask(queue.TaskRewardExpire, []byte("{"))
	if err := consumer.handleRewardExpire(context.Background(), bad); err == nil {
		t.Fatalf("expected unmarshal error")
	}

	var nilConsumer *Consumer
	if err := nilConsumer.handleRewardExpire(context.Background(), nil); err != nil {
		t.Fatalf("nil consumer should be a no-op: %v", err)
	}
}

func TestHandleNotificationDispatchWithoutSink(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	body, err := json.Marshal(queue.NotificationDispatchPayload{
		EventType: constants.NotificationEventCodeRedeemed,
		BizType:   constants.NotificationBizTypeRedemption,
		BizID:     3,
	})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskNotificationDispatch, body)
	if err := consumer.handleNotificationDispatch(context.Background(), task); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	empty := asynq.NewTask(queue.TaskNotificationDispatch, []byte(`{"biz_id":1}`))
	if err := consumer.handleNotificationDispatch(context.Background(), empty); err != nil {
		t.Fatalf("payload without event type should be skipped: %v", err)
	}
}

func TestSweepIntervalFallback(t *testing.T) {
	if got := sweepInterval(config.RewardConfig{}); got != defaultRewardSweepInterval {
		t.Fatalf("expected default interval, got %s", got)
	}
	if got := sweepInterval(config.RewardConfig{SweepIntervalSeconds: 30}); got != 30*time.Second {
		t.Fatalf("expected 30s interval, got %s", got)
	}
	if _, err := NewService(&config.QueueConfig{Enabled: false}, config.RewardConfig{}, &Consumer{}); err == nil {
		t.Fatalf("disabled queue should not build a worker")
	}
}
