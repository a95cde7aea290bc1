package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vanzzsky/wa-autoorder/internal/billing"
	"github.com/vanzzsky/wa-autoorder/internal/bot"
	"github.com/vanzzsky/wa-autoorder/internal/catalog"
	"github.com/vanzzsky/wa-autoorder/internal/config"
	"github.com/vanzzsky/wa-autoorder/internal/httpx"
	kafkax "github.com/vanzzsky/wa-autoorder/internal/kafka"
	"github.com/vanzzsky/wa-autoorder/internal/ledger"
	"github.com/vanzzsky/wa-autoorder/internal/postgres"
	"github.com/vanzzsky/wa-autoorder/internal/redisx"
	"github.com/vanzzsky/wa-autoorder/internal/tripay"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: settlement & order saldo (dua topic berbeda)
	pSettled := kafkax.NewProducer(cfg.KafkaBrokers, billing.TopicPaymentSettled, 1024)
	pSettled.Start(ctx)
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, billing.TopicOrderPaid, 1024)
	pPaid.Start(ctx)

	// Gateway client
	gateway := tripay.NewClient(
		cfg.TripayBaseURL,
		cfg.TripayAPIKey,
		cfg.TripayPrivateKey,
		cfg.TripayMerchantCode,
		cfg.TripayQRISMethod,
		cfg.PublicBaseURL+"/payment/callback",
		cfg.PublicBaseURL+"/payment/return",
	)

	// Store, katalog, service
	store := ledger.NewPGStore(db)
	cat := catalog.NewPGRepo(db)
	svc := &billing.Service{
		Store:       store,
		Catalog:     cat,
		Gateway:     gateway,
		SettledPub:  pSettled,
		PaidPub:     pPaid,
		ServiceName: cfg.ServiceName,
		MinTopup:    cfg.MinTopup,
	}
	b := &bot.Handler{Billing: svc, Catalog: cat, Store: store, Redis: rdb}

	// Router
	router := httpx.NewRouter()
	(&httpx.CallbackHandler{Billing: svc, Redis: rdb, Secret: cfg.CallbackSecret}).Register(router)
	(&httpx.WebhookHandler{Bot: b, Store: store, Catalog: cat}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pSettled.Close() // tutup inbox -> flush & close writer
	pPaid.Close()
	cancel() // stop producer loop
	pSettled.WaitClosed()
	pPaid.WaitClosed()
}
