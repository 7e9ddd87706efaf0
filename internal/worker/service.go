package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultRewardSweepInterval = 5 * time.Minute

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, rewardCfg config.RewardConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: sweepInterval(rewardCfg),
	}, nil
}

func sweepInterval(cfg config.RewardConfig) time.Duration {
	if cfg.SweepIntervalSeconds <= 0 {
		return defaultRewardSweepInterval
	}
	return time.Duration(cfg.SweepIntervalSeconds) * time.Second
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.RewardManager != nil {
		go s.runRewardSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runRewardSweepLoop 兜底扫描到期奖励，覆盖延迟任务丢失或队列积压的情况
func (s *Service) runRewardSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.RewardManager == nil {
		return
	}
	runOnce := func() {
		count, err := s.consumer.RewardManager.ExpireDue(ctx)
		if err != nil {
			logger.Warnw("worker_reward_sweep_failed", "error", err)
			return
		}
		if count > 0 {
			logger.Infow("worker_reward_sweep_done", "expired", count)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
