// Package opsrv serves the operational HTTP surface: prometheus metrics and
// a health summary.
package opsrv

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/feynman-go/proctor/health"
	"github.com/feynman-go/proctor/syncrun"
	"github.com/feynman-go/proctor/syncrun/prob"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const _closeDuration = 3 * time.Second

type Instance struct {
	srv    *http.Server
	pb     *prob.Prob
	logger *zap.Logger
	board  *health.Board
}

type Option struct {
	Logger *zap.Logger
	Board  *health.Board
}

func New(addr string, gatherer prometheus.Gatherer, option Option) *Instance {
	if option.Logger == nil {
		option.Logger = zap.L()
	}

	ins := &Instance{
		logger: option.Logger,
		board:  option.Board,
	}

	sm := http.NewServeMux()
	sm.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	sm.HandleFunc("/health", ins.serveHealth)

	ins.srv = &http.Server{Addr: addr, Handler: sm}
	ins.pb = prob.New(ins.run)
	return ins
}

func (ins *Instance) Start() {
	ins.pb.Start()
}

func (ins *Instance) Run(ctx context.Context) {
	ins.pb.Start()
	select {
	case <-ctx.Done():
		closeCtx, cancel := context.WithTimeout(context.Background(), _closeDuration)
		defer cancel()
		if err := ins.pb.StopAndWait(closeCtx); err != nil {
			ins.logger.Error("stop ops server", zap.Error(err))
		}
	case <-ins.pb.Stopped():
	}
}

func (ins *Instance) CloseWithContext(ctx context.Context) error {
	return ins.pb.StopAndWait(ctx)
}

func (ins *Instance) run(ctx context.Context) {
	syncrun.Run(ctx, func(ctx context.Context) {
		ins.logger.Info("ops server listening", zap.String("addr", ins.srv.Addr))
		err := ins.srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			ins.logger.Error("ops server stopped", zap.Error(err))
		}
	}, func(ctx context.Context) {
		<-ctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), _closeDuration)
		defer cancel()
		if err := ins.srv.Shutdown(closeCtx); err != nil {
			ins.logger.Error("shut down ops server", zap.Error(err))
		}
	})
}

func (ins *Instance) serveHealth(w http.ResponseWriter, r *http.Request) {
	if ins.board == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if !ins.board.Up() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(ins.board.Summaries()); err != nil {
		ins.logger.Warn("encode health summary", zap.Error(err))
	}
}
