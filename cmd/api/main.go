package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/agentdock/agentdock-be/internal/core/agent"
	"github.com/agentdock/agentdock-be/internal/core/events"
	"github.com/agentdock/agentdock-be/internal/core/kb"
	"github.com/agentdock/agentdock-be/internal/core/llm"
	"github.com/agentdock/agentdock-be/internal/core/notification"
	"github.com/agentdock/agentdock-be/internal/core/whatsapp"
	"github.com/agentdock/agentdock-be/internal/handlers"
	"github.com/agentdock/agentdock-be/internal/models"
	"github.com/agentdock/agentdock-be/internal/repositories"
	"github.com/agentdock/agentdock-be/internal/shared/config"
	"github.com/agentdock/agentdock-be/internal/shared/database"
	"github.com/agentdock/agentdock-be/internal/shared/utils"
)

// @title AgentDock API
// @version 1.0
// @description Multi-tenant conversational agent backend for small businesses
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	utils.InitLogger()

	// Load config
	cfg := config.LoadConfig()
	log.Printf("🚀 Starting api on port %s", cfg.Port)

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init repositories (use GORM instance)
	tenantRepo := repositories.NewTenantRepo(db.GORM)
	customerRepo := repositories.NewCustomerRepo(db.GORM)
	messageRepo := repositories.NewMessageRepo(db.GORM)
	stateRepo := repositories.NewStateRepo(db.GORM)
	serviceRepo := repositories.NewServiceRepo(db.GORM)
	appointmentRepo := repositories.NewAppointmentRepo(db.GORM)
	orderRepo := repositories.NewOrderRepo(db.GORM)
	complaintRepo := repositories.NewComplaintRepo(db.GORM)
	handoffRepo := repositories.NewHandoffRepo(db.GORM)
	cacheRepo := repositories.NewCacheRepo(db.GORM)
	traceRepo := repositories.NewTraceRepo(db.GORM)
	knowledgeRepo := repositories.NewKnowledgeRepo(db.GORM)
	retriever := kb.NewRetriever(db.GORM)

	// Init completion gateway
	if len(cfg.GroqAPIKeys) == 0 {
		log.Println("⚠️ GROQ_API_KEYS is empty, replies will degrade")
	}
	gateway := llm.NewGateway(cfg.GroqAPIKeys, cfg.LlamaModel, cfg.FallbackModel)
	log.Printf("🤖 Completion models: %s (fallback: %s)", cfg.LlamaModel, cfg.FallbackModel)

	// Init WhatsApp service
	waService, err := whatsapp.NewService(cfg.WhatsAppStoreURL)
	if err != nil {
		log.Fatalf("❌ Failed to init WhatsApp service: %v", err)
	}

	// Init event broadcaster and owner notifications
	broadcaster := events.NewBroadcaster()
	notifier := notification.NewNotifier(waService)

	// Init agent engine
	executor := agent.NewExecutor(agent.ExecutorDeps{
		Services:     serviceRepo,
		Appointments: appointmentRepo,
		Orders:       orderRepo,
		Complaints:   complaintRepo,
		Handoffs:     handoffRepo,
		Customers:    customerRepo,
		Tenants:      tenantRepo,
		Notifier:     notifier,
		Broadcaster:  broadcaster,
		OrderSLA:     time.Duration(cfg.OrderSLAMinutes) * time.Minute,
		HandoffSLA:   time.Duration(cfg.HandoffSLAMinutes) * time.Minute,
	})
	engine := agent.NewEngine(agent.EngineDeps{
		Gateway:     gateway,
		Retriever:   retriever,
		Executor:    executor,
		Customers:   customerRepo,
		Messages:    messageRepo,
		States:      stateRepo,
		Cache:       cacheRepo,
		Traces:      traceRepo,
		Broadcaster: broadcaster,
	})

	// Connect WhatsApp and route inbound messages to the engine. All
	// traffic on the paired device belongs to the tenant that registered
	// the device's own number; the sender is always the customer.
	go func() {
		if err := waService.Connect(); err != nil {
			log.Printf("⚠️ WhatsApp connect failed: %v (QR endpoint still available)", err)
			return
		}
		tenant, err := resolveInboundTenant(tenantRepo, waService.PairedNumber())
		if err != nil {
			log.Printf("⚠️ No tenant for the paired WhatsApp number: %v", err)
			return
		}
		tenantID := tenant.ID
		err = waService.StartListening(func(ctx context.Context, fromPhone, pushName, text string) (string, error) {
			// Re-read the tenant so profile edits apply immediately.
			tenant, err := tenantRepo.GetByID(tenantID)
			if err != nil {
				return "", err
			}
			return engine.HandleTurn(ctx, tenant, pushName, fromPhone, text)
		})
		if err != nil {
			log.Printf("⚠️ WhatsApp listener failed: %v", err)
			return
		}
		go waService.StartKeepAlive(context.Background())
	}()

	// Init handlers
	chatHandler := handlers.NewChatHandler(engine, tenantRepo)
	tenantHandler := handlers.NewTenantHandler(tenantRepo, appointmentRepo, orderRepo, complaintRepo, handoffRepo, traceRepo)
	knowledgeHandler := handlers.NewKnowledgeHandler(tenantRepo, knowledgeRepo, retriever, broadcaster)
	eventsHandler := handlers.NewEventsHandler(broadcaster)
	whatsappHandler := handlers.NewWhatsAppHandler(waService)
	healthHandler := handlers.NewHealthHandler(db)

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "AgentDock API",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New())

	// Health check
	app.Get("/health", healthHandler.Check)

	// Demo chat route
	app.Post("/demo/chat", chatHandler.DemoChat)

	// Tenant routes
	app.Post("/tenants", tenantHandler.Create)
	app.Get("/tenants/:id", tenantHandler.Get)
	app.Patch("/tenants/:id/profile", tenantHandler.UpdateProfile)
	app.Get("/tenants/:id/appointments", tenantHandler.Appointments)
	app.Get("/tenants/:id/orders", tenantHandler.Orders)
	app.Get("/tenants/:id/complaints", tenantHandler.Complaints)
	app.Get("/tenants/:id/handoffs", tenantHandler.Handoffs)
	app.Get("/tenants/:id/traces", tenantHandler.Traces)

	// Knowledge routes
	app.Put("/tenants/:id/knowledge", knowledgeHandler.Upload)
	app.Get("/tenants/:id/knowledge", knowledgeHandler.GetRaw)

	// Event stream
	app.Get("/tenants/:id/events", eventsHandler.Stream)

	// WhatsApp routes
	app.Get("/whatsapp/qr", whatsappHandler.GetQRCode)
	app.Get("/whatsapp/status", whatsappHandler.Status)

	log.Printf("✅ api running at :%s", cfg.Port)
	log.Printf("🔗 QR Endpoint: http://localhost:%s/whatsapp/qr", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// resolveInboundTenant maps the paired device's own WhatsApp number to
// the tenant that registered it. A fresh install that has not set
// whatsapp_number yet falls back to the sole registered tenant.
func resolveInboundTenant(tenants repositories.TenantRepo, pairedNumber string) (*models.Tenant, error) {
	if pairedNumber != "" {
		if tenant, err := tenants.GetByWhatsAppNumber(pairedNumber); err == nil {
			return tenant, nil
		}
	}
	all, err := tenants.List()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.New("no tenants registered")
	}
	return &all[0], nil
}
