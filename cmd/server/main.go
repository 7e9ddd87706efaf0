package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/dujiao-next/redemption/internal/app"
	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/tracing"

	"github.com/gin-gonic/gin"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(mode)

	config.LoadDotEnv()
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	checkSecret(cfg.Server.Mode, "admin_jwt", cfg.AdminJWT.SecretKey)
	checkSecret(cfg.Server.Mode, "user_jwt", cfg.UserJWT.SecretKey)

	if err := tracing.Init(cfg.Tracing.ToTracingConfig(version)); err != nil {
		stdLog.Printf("警告: 链路追踪初始化失败，已降级为空实现: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			stdLog.Printf("链路追踪关闭失败: %v", err)
		}
	}()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// checkSecret release 模式下弱密钥直接退出，其余模式仅告警
func checkSecret(mode, name, secret string) {
	if !isWeakSecret(secret) {
		return
	}
	if mode == "release" {
		logger.StdLogger().Fatalf("%s secret 过弱或仍为默认值，请在生产环境中配置强随机密钥", name)
	}
	logger.StdLogger().Printf("警告: %s secret 过弱或仍为默认值，建议在生产环境中更换", name)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, marker := range []string{"change-me", "change-in-production", "your-secret-key"} {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

func printStartupBanner(mode string) {
	fmt.Println(ansiCyan + ansiBold + "Redemption Engine " + version + ansiReset)
	fmt.Println(ansiDim + "discount codes / referral rewards / mode=" + mode + ansiReset)
	fmt.Println(ansiDim + strings.Repeat("-", 48) + ansiReset)
}
