package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/service/delivery"
	"parcel-dispatch/internal/service/dispatch"
)

// Runner runs the HTTP server
type Runner struct {
	runFn func(*dig.Container) error
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run}
}

// MustRun starts the HTTP server using the provided DI container
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, context.Canceled):
		_ = container.Invoke(func(logger logx.Logger) {
			logger.Info("shutdown requested, exiting")
		})
	case errors.Is(err, context.DeadlineExceeded):
		_ = container.Invoke(func(logger logx.Logger) {
			logger.Error("startup aborted: startup timeout exceeded")
		})
	default:
		panic(err)
	}
}

func run(container *dig.Container) error {
	return container.Invoke(appRun)
}

type runIn struct {
	dig.In

	Ctx         context.Context
	Logger      logx.Logger
	Pool        *pgxpool.Pool
	Server      *http.Server
	Pprof       *http.Server `name:"pprof_server" optional:"true"`
	Deliveries  *delivery.Service
	Broadcasts  *dispatch.Broadcaster
	Interval    sweepInterval
	NotifyClose notifyCloser
}

func appRun(in runIn) error {
	startServer(in.Server, in.Logger)
	startPprof(in.Pprof, in.Logger)
	stopSweep := startSweepLoop(in.Ctx, in.Deliveries, time.Duration(in.Interval), in.Logger)

	<-in.Ctx.Done()
	in.Logger.Info("shutting down parcel-dispatch")

	stopSweep()
	gracefulShutdown(in.Server, in.Logger, 15*time.Second)
	closeResources(in)
	return in.Ctx.Err()
}

func startServer(server *http.Server, logger logx.Logger) {
	go func() {
		logger.Info("parcel-dispatch listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", logx.Any("err", err))
		}
	}()
}

func startPprof(server *http.Server, logger logx.Logger) {
	if server == nil {
		return
	}
	go func() {
		logger.Info("pprof listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("pprof listen error", logx.Any("err", err))
		}
	}()
}

// startSweepLoop periodically restarts broadcasts for deliveries that never
// got a driver. Returns a stop function that waits for the loop to exit.
func startSweepLoop(ctx context.Context, deliveries *delivery.Service, every time.Duration, logger logx.Logger) func() {
	if every <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := deliveries.SweepStalled(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					logger.Error("sweep stalled failed", logx.Any("err", err))
					continue
				}
				if n > 0 {
					logger.Info("stalled broadcasts restarted", logx.Int("count", n))
				}
			}
		}
	}()
	return func() { <-done }
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.Any("err", err))
	}
}

func closeResources(in runIn) {
	if in.Pprof != nil {
		if err := in.Pprof.Close(); err != nil {
			logCloseError(in.Logger, "pprof close error", err)
		}
	}
	if err := in.Server.Close(); err != nil {
		logCloseError(in.Logger, "server close error", err)
	}
	in.Broadcasts.Close()
	if in.NotifyClose != nil {
		if err := in.NotifyClose(); err != nil {
			logCloseError(in.Logger, "notifier close error", err)
		}
	}
	if in.Pool != nil {
		in.Pool.Close()
	}
}

func logCloseError(logger logx.Logger, msg string, err error) {
	logger.Warn(msg, logx.Any("err", err))
}
