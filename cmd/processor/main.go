package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"

	"github.com/censys/rssi-agg/pkg/config"
	"github.com/censys/rssi-agg/pkg/processing"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)

	configPath := flag.String("config", os.Getenv("RSSI_CONFIG"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := processing.OpenSink(ctx, cfg.Sink)
	if err != nil {
		log.Fatalf("open sink: %v", err)
	}
	defer closeSink()

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		log.Fatalf("pubsub client: %v", err)
	}
	defer client.Close()

	var dlqPublisher processing.DLQPublisher
	if cfg.PubSub.DLQTopicID != "" {
		dlqPublisher = processing.NewPubSubDLQPublisher(client.Topic(cfg.PubSub.DLQTopicID))
	} else {
		dlqPublisher = &processing.NoopDLQPublisher{}
	}

	sub := client.Subscription(cfg.PubSub.SubscriptionID)
	sub.ReceiveSettings.NumGoroutines = cfg.PubSub.WorkerCount
	sub.ReceiveSettings.MaxOutstandingMessages = cfg.PubSub.MaxOutstanding

	log.Printf("processor started project=%s subscription=%s workers=%d sink=%s",
		cfg.PubSub.ProjectID, cfg.PubSub.SubscriptionID, cfg.PubSub.WorkerCount, cfg.Sink.Backend)

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if processing.HandleMessage(ctx, sink, dlqPublisher, msg, cfg.Export.Count) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil {
		log.Fatalf("subscription receive ended: %v", err)
	}
}
