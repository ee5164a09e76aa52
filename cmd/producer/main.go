// Command producer publishes one notification.requested event, standing in
// for the post, comment and follow services during local development.
package main

import (
	"context"
	"flag"
	"time"

	mqcontracts "chattrix/contracts/mq"
	"chattrix/pkg/config"
	"chattrix/pkg/logger"
	"chattrix/pkg/mq"
	"chattrix/pkg/trace"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	var (
		recipient = flag.String("recipient", "", "recipient user id (required)")
		sender    = flag.String("sender", "", "sender user id")
		kind      = flag.String("type", "system", "like, comment, follow, message or system")
		content   = flag.String("content", "", "notification text")
		postID    = flag.String("post", "", "related post id")
		eventID   = flag.String("event-id", "", "dedup key; random when empty")
	)
	flag.Parse()

	log := logger.NewLogger()
	defer log.Sync()

	if *recipient == "" {
		log.Fatal("-recipient is required")
	}
	if *eventID == "" {
		*eventID = uuid.NewString()
	}

	cfgMap, err := config.LoadConfig(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	var cfg struct {
		MQ config.MQConfig `yaml:"mq"`
	}
	if err := config.Decode(cfgMap, &cfg); err != nil {
		log.Fatal("Failed to decode config", zap.Error(err))
	}
	config.OverrideMQFromEnv(&cfg.MQ)

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = trace.WithContext(ctx, trace.GenerateTraceID())

	payload := mqcontracts.NotificationRequestedPayload{
		EventID:   *eventID,
		Recipient: *recipient,
		Sender:    *sender,
		Type:      *kind,
		Content:   *content,
		PostID:    *postID,
		CreatedAt: time.Now().UTC(),
	}
	if err := publisher.Publish(ctx, mqcontracts.RoutingKeyNotificationRequested, payload); err != nil {
		log.Fatal("Failed to publish event", zap.Error(err))
	}

	logger.WithTrace(ctx, log).Info("Event published",
		zap.String("routing_key", mqcontracts.RoutingKeyNotificationRequested),
		zap.String("event_id", *eventID),
		zap.String("recipient", *recipient),
		zap.Bool("connected", publisher.IsConnected()),
	)
}
