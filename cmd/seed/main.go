package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/provider"
	"github.com/dujiao-next/redemption/internal/service"
)

func main() {
	var referrerID uint
	flag.UintVar(&referrerID, "referrer", 1, "为该用户生成演示邀请码，0 表示跳过")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 种子数据不投递队列任务
	container, err := provider.NewContainerWithDB(cfg, models.DB, nil)
	if err != nil {
		stdLog.Fatalf("Failed to build container: %v", err)
	}
	defer func() { _ = container.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()
	monthLater := now.AddDate(0, 1, 0)
	codes := []service.CreateCodeInput{
		{Code: "SAVE10", Kind: constants.CodeKindDiscount, Name: "通用九折"},
		{Code: "WELCOME5", Kind: constants.CodeKindDiscount, Name: "新人立减", PerUserUsageLimit: models.IntPtr(1)},
		{Code: "FLASH100", Kind: constants.CodeKindDiscount, Name: "限量秒杀", GlobalUsageLimit: models.IntPtr(100), PerUserUsageLimit: models.IntPtr(1), ValidFrom: &now, ValidUntil: &monthLater},
		{Code: "PAUSED01", Kind: constants.CodeKindDiscount, Name: "已停用示例", IsActive: boolPtr(false)},
	}
	for _, input := range codes {
		code, err := container.CodeAdminService.Create(ctx, input)
		switch {
		case errors.Is(err, service.ErrCodeExists):
			stdLog.Printf("Code already exists: %s", input.Code)
		case err != nil:
			stdLog.Printf("Failed to create code %s: %v", input.Code, err)
		default:
			stdLog.Printf("Created code: %s (status=%s)", code.Code, code.Status)
		}
	}

	if referrerID == 0 {
		return
	}
	referral, created, err := container.ReferralCodeMinter.Mint(ctx, referrerID, service.MintOptions{})
	if err != nil {
		stdLog.Fatalf("Failed to mint referral code: %v", err)
	}
	if created {
		stdLog.Printf("Minted referral code %s for user %d", referral.Code, referrerID)
	} else {
		stdLog.Printf("User %d already owns referral code %s", referrerID, referral.Code)
	}
}

func boolPtr(v bool) *bool {
	return &v
}
