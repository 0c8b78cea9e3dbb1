package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/feynman-go/proctor/authoring"
	"github.com/feynman-go/proctor/chat"
	"github.com/feynman-go/proctor/config"
	"github.com/feynman-go/proctor/coordinator"
	"github.com/feynman-go/proctor/emit"
	"github.com/feynman-go/proctor/health"
	"github.com/feynman-go/proctor/router"
	"github.com/feynman-go/proctor/server/opsrv"
	"github.com/feynman-go/proctor/session"
	"github.com/feynman-go/proctor/syncrun"
	"github.com/feynman-go/proctor/telegram"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := buildLogger(cfg.LogPath)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	adminChat := chat.ChannelID(cfg.AdminChat)
	workerChat := chat.ChannelID(cfg.WorkerChat)

	tr := telegram.New(cfg.Token, telegram.Option{
		Logger:      logger.Named("telegram"),
		WorkerChat:  workerChat,
		WorkerTopic: cfg.WorkerTopic,
	})

	store := session.NewStore()
	dialogue := authoring.NewDialogue()

	burst := int(cfg.SendRate)
	if burst < 1 {
		burst = 1
	}
	emitter := emit.New(tr, workerChat, adminChat, store, emit.Option{
		Logger:  logger.Named("emit"),
		Limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), burst),
	})

	rt := router.New(store, dialogue, emitter, adminChat, workerChat, router.Option{
		Logger:  logger.Named("router"),
		Variant: cfg.Variant(),
	})

	co := coordinator.New(tr, rt, coordinator.Option{
		Logger:  logger.Named("coordinator"),
		Workers: cfg.Workers,
	})

	reg := prometheus.NewRegistry()
	router.MustRegisterMetrics(reg)
	emit.MustRegisterMetrics(reg)
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "proctor_sessions",
		Help: "Sessions held in the registry.",
	}, func() float64 {
		return float64(store.Len())
	}))

	board := health.NewBoard()
	reporter := board.Reporter("coordinator")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runners := []func(ctx context.Context){
		func(ctx context.Context) {
			reporter.ReportStatus("running", health.StatusUp)
			co.Run(ctx)
			reporter.ReportStatus("stopped", health.StatusDown)
		},
	}
	if cfg.OpsAddr != "" {
		ops := opsrv.New(cfg.OpsAddr, reg, opsrv.Option{
			Logger: logger.Named("opsrv"),
			Board:  board,
		})
		runners = append(runners, ops.Run)
	}

	logger.Info("proctor starting",
		zap.Int64("adminChat", cfg.AdminChat),
		zap.Int64("workerChat", cfg.WorkerChat),
		zap.Int64("workerTopic", cfg.WorkerTopic))
	syncrun.Run(ctx, runners...)
	logger.Info("proctor stopped")
}

func buildLogger(logPath string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if logPath != "" {
		zapCfg.OutputPaths = []string{logPath}
		zapCfg.ErrorOutputPaths = []string{logPath}
	}
	return zapCfg.Build()
}
