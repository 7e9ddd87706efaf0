package provider

import (
	"errors"
	"fmt"

	"github.com/dujiao-next/redemption/internal/authz"
	"github.com/dujiao-next/redemption/internal/cache"
	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/queue"
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	CodeCache   *cache.CodeCache

	// Repositories
	CodeRepo       repository.CodeRepository
	RedemptionRepo repository.RedemptionRepository
	ReferralRepo   repository.ReferralRepository
	RewardRepo     repository.RewardRepository
	WalletRepo     repository.WalletRepository

	// Services
	AuthzService          *authz.Service
	TxRunner              *service.TxRunner
	NotificationService   *service.NotificationService
	WalletService         *service.WalletService
	RedemptionCoordinator *service.RedemptionCoordinator
	ReferralCodeMinter    *service.ReferralCodeMinter
	RewardManager         *service.RewardLifecycleManager
	CodeAdminService      *service.CodeAdminService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c, err := NewContainerWithDB(cfg, models.DB, queueClient)
	if err != nil {
		logger.Errorw("provider_init_services_failed", "error", err)
		panic(err)
	}
	return c
}

// NewContainerWithDB 使用指定数据库连接组装容器，不触碰全局 Redis 与队列初始化
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		CodeCache:   cache.NewCodeCache(cfg.Cache.CodeTTLSeconds),
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	if err := c.initServices(db); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.CodeRepo = repository.NewCodeRepository(db)
	c.RedemptionRepo = repository.NewRedemptionRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.RewardRepo = repository.NewRewardRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
}

func (c *Container) initServices(db *gorm.DB) error {
	authzService, err := authz.NewService(db)
	if err != nil {
		return fmt.Errorf("init authz failed: %w", err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap builtin roles failed: %w", err)
	}
	c.AuthzService.SetSuperAdmins(c.Config.Authz.SuperAdminIDs)
	if err := c.AuthzService.SyncAdminRoles(c.Config.Authz.AdminRoles); err != nil {
		return fmt.Errorf("sync admin roles failed: %w", err)
	}

	policy, err := service.NewRewardPolicy(c.Config.Referral.Rewards)
	if err != nil {
		return fmt.Errorf("load referral reward rules failed: %w", err)
	}

	c.TxRunner = service.NewTxRunner(db, c.Config.Database.LockTimeoutMS)
	c.NotificationService = service.NewNotificationService(c.QueueClient, nil)
	c.WalletService = service.NewWalletService(c.WalletRepo)
	c.RedemptionCoordinator = service.NewRedemptionCoordinator(
		c.TxRunner,
		c.CodeRepo,
		c.RedemptionRepo,
		c.ReferralRepo,
		c.RewardRepo,
		service.RedemptionCoordinatorOptions{
			UniqueReferee: c.Config.Referral.UniqueReferee,
			Policy:        policy,
			CodeCache:     c.CodeCache,
			Notifier:      c.NotificationService,
		},
	)
	c.RewardManager = service.NewRewardLifecycleManager(
		c.TxRunner,
		c.ReferralRepo,
		c.RewardRepo,
		service.DefaultRewardAppliers(c.WalletService),
		c.NotificationService,
		c.QueueClient,
		c.Config.Reward.SweepBatchSize,
	)
	c.RedemptionCoordinator.SetRewardHook(c.RewardManager)
	c.ReferralCodeMinter = service.NewReferralCodeMinter(
		c.TxRunner,
		c.CodeRepo,
		c.CodeCache,
		c.Config.Referral.CodeLength,
		c.Config.Referral.MaxMintAttempts,
	)
	c.CodeAdminService = service.NewCodeAdminService(c.TxRunner, c.CodeRepo, c.CodeCache)
	return nil
}

// Close 释放队列客户端与 Redis 连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
