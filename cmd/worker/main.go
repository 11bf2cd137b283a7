package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agentdock/agentdock-be/internal/core/jobs"
	"github.com/agentdock/agentdock-be/internal/core/notification"
	"github.com/agentdock/agentdock-be/internal/core/whatsapp"
	"github.com/agentdock/agentdock-be/internal/repositories"
	"github.com/agentdock/agentdock-be/internal/shared/config"
	"github.com/agentdock/agentdock-be/internal/shared/database"
	"github.com/agentdock/agentdock-be/internal/shared/utils"
)

func main() {
	utils.InitLogger()

	cfg := config.LoadConfig()
	log.Println("🚀 Starting worker")

	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	tenantRepo := repositories.NewTenantRepo(db.GORM)
	orderRepo := repositories.NewOrderRepo(db.GORM)
	handoffRepo := repositories.NewHandoffRepo(db.GORM)

	// The worker shares the WhatsApp session store with the API; owner
	// SLA alerts go out over the same paired number.
	var notifier *notification.Notifier
	waService, err := whatsapp.NewService(cfg.WhatsAppStoreURL)
	if err == nil && waService.Connect() == nil {
		notifier = notification.NewNotifier(waService)
		defer waService.Disconnect()
	} else {
		log.Println("⚠️ WhatsApp unavailable, SLA alerts will be log-only")
	}

	sweeper := jobs.NewSLASweeper(tenantRepo, orderRepo, handoffRepo, notifier)

	c := cron.New()
	if _, err := c.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		sweeper.Sweep(ctx)
	}); err != nil {
		log.Fatalf("❌ Failed to schedule SLA sweep: %v", err)
	}
	c.Start()
	log.Println("⏰ SLA sweeper scheduled (every 5 minutes)")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("🛑 Shutting down worker...")
	<-c.Stop().Done()
}
