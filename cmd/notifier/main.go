package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vanzzsky/wa-autoorder/internal/billing"
	"github.com/vanzzsky/wa-autoorder/internal/config"
	kafkax "github.com/vanzzsky/wa-autoorder/internal/kafka"
	"github.com/vanzzsky/wa-autoorder/internal/notify"
	"github.com/vanzzsky/wa-autoorder/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Redis:       rdb,
		Sender:      notify.NewSender(cfg.WASendURL),
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")

	cSettled := kafkax.NewConsumer(cfg.KafkaBrokers, group, billing.TopicPaymentSettled, workers)
	cPaid := kafkax.NewConsumer(cfg.KafkaBrokers, group, billing.TopicOrderPaid, workers)

	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, billing.TopicPaymentSettled, workers)
		if err := cSettled.Start(ctx, svc.HandlePaymentSettled); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()
	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, billing.TopicOrderPaid, workers)
		if err := cPaid.Start(ctx, svc.HandleOrderPaid); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
