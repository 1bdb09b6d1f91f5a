package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/koolihub/koolihub/internal/adapters/nats"
	"github.com/koolihub/koolihub/internal/adapters/postgres"
	"github.com/koolihub/koolihub/internal/core/usecases"
	"github.com/koolihub/koolihub/internal/pkg/config"
	"github.com/koolihub/koolihub/internal/pkg/logging"
	"github.com/koolihub/koolihub/internal/pkg/telemetry"
	"github.com/koolihub/koolihub/internal/workflows"
)

// refunder settles cancellation refunds: it turns booking.cancelled events
// into RefundWorkflow runs and executes them.
func main() {
	cfg, err := config.Load("koolihub-refunder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	refunds := usecases.NewRefundService(postgres.NewBookingRepo(db), postgres.NewRefundRepo(db))

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RefundWorkflow)
	w.RegisterActivity(&workflows.RefundActivities{Refunds: refunds})
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	nc, err := natsadapter.Connect(cfg.NATS.URL, cfg.Telemetry.ServiceName)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer nc.Close()

	sub, err := natsadapter.NewSubscriber(nc)
	if err != nil {
		log.Fatalf("subscriber: %v", err)
	}
	defer sub.Close()

	if err := sub.SubscribeBookingCancellations(ctx, workflows.CancellationHandler(c, cfg.Temporal.TaskQueue)); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("refund worker started", "task_queue", cfg.Temporal.TaskQueue)
	<-worker.InterruptCh()
	slog.Info("refund worker stopping")
}
