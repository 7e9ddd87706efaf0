package app

import (
	"errors"

	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/provider"
	"github.com/dujiao-next/redemption/internal/router"
	"github.com/dujiao-next/redemption/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !validMode(mode) {
		return nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)

	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// all 模式下队列未启用时只跑 API，到期奖励依赖读取时惰性处理
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, cfg.Reward, consumer)
		switch {
		case err == nil:
			services = append(services, workerService)
		case mode == ModeAll:
			logger.Warnw("app_worker_skipped", "error", err)
		default:
			return nil, err
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...).OnShutdown(container.Close), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
