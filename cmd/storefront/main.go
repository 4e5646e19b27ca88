package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelieforma/storefront/internal/api/handlers"
	"github.com/atelieforma/storefront/internal/api/middleware"
	"github.com/atelieforma/storefront/internal/config"
	"github.com/atelieforma/storefront/internal/health"
	"github.com/atelieforma/storefront/internal/metrics"
	repository "github.com/atelieforma/storefront/internal/repositories"
	service "github.com/atelieforma/storefront/internal/services"
	"github.com/atelieforma/storefront/internal/tracing"
	"github.com/atelieforma/storefront/pkg/sendgrid"
	"github.com/atelieforma/storefront/pkg/whatsapp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Tracing setup
	shutdownTracing, err := tracing.Setup(context.Background(), cfg)
	if err != nil {
		slog.Error("❌ Error setting up tracing", "error", err.Error())
		os.Exit(1)
	}

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", "error", err.Error())
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", "error", err.Error())
		os.Exit(1)
	}

	jwtKey := []byte(cfg.Security.JWTKey)
	rateLimitRepo := repository.NewRateLimitRepo(redisClient, cfg)
	cartRepo := repository.NewCartRepo(redisClient)
	catalogNotifier := repository.NewCatalogNotifier(redisClient, cfg.Catalog.Channel)

	var emailSender service.EmailSender
	if cfg.SendGrid.APIKey != "" {
		emailSender = sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	}

	whatsappClient := whatsapp.NewClient(cfg.Checkout.WhatsAppNumber)

	userService := service.NewUserService(repos.User, rateLimitRepo, jwtKey, cfg.Security.TokenTTL)
	userHandler := handlers.NewUserHandler(userService)
	productService := service.NewProductService(repos.Product, catalogNotifier)
	catalogService := service.NewCatalogService(repos.Product, catalogNotifier, cfg.Catalog.FetchTimeout)
	productHandler := handlers.NewProductHandler(productService, catalogService)
	cartService := service.NewCartService(cartRepo, repos.Product)
	cartHandler := handlers.NewCartHandler(cartService)
	orderService := service.NewOrderService(repos.Order, repos.Product, repos.User, emailSender)
	orderHandler := handlers.NewOrderHandler(orderService)
	checkoutService := service.NewCheckoutService(cartService, userService, orderService, whatsappClient, cfg.Checkout.PixKey)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)

	// keep the catalog snapshot fresh while the server runs
	unwatch, err := catalogService.Watch(context.Background())
	if err != nil {
		slog.Error("❌ Error subscribing to catalog updates", "error", err.Error())
		os.Exit(1)
	}
	defer unwatch()

	healthHandler, err := health.NewHealthHandler(cfg)
	if err != nil {
		slog.Error("❌ Error setting up health checks", "error", err.Error())
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("POST /api/v1/users/register", userHandler.Register())
	routerMux.HandleFunc("POST /api/v1/users/login", userHandler.Login())
	routerMux.HandleFunc("GET /api/v1/users/profile", authMiddleware.Authenticate(userHandler.Profile()))
	routerMux.HandleFunc("POST /api/v1/users/addresses", authMiddleware.Authenticate(userHandler.AddAddress()))
	routerMux.HandleFunc("GET /api/v1/users/addresses", authMiddleware.Authenticate(userHandler.ListAddresses()))
	routerMux.HandleFunc("GET /api/v1/products", productHandler.ListProducts())
	routerMux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())
	routerMux.HandleFunc("POST /api/v1/products", authMiddleware.Authenticate(productHandler.CreateProduct()))
	routerMux.HandleFunc("PUT /api/v1/products/{id}", authMiddleware.Authenticate(productHandler.UpdateProduct()))
	routerMux.HandleFunc("GET /api/v1/cart", authMiddleware.Authenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/cart/items", authMiddleware.Authenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/v1/cart/items/{productId}", authMiddleware.Authenticate(cartHandler.UpdateQuantity()))
	routerMux.HandleFunc("DELETE /api/v1/cart/items/{productId}", authMiddleware.Authenticate(cartHandler.RemoveItem()))
	routerMux.HandleFunc("DELETE /api/v1/cart", authMiddleware.Authenticate(cartHandler.ClearCart()))
	routerMux.HandleFunc("POST /api/v1/checkout", authMiddleware.Authenticate(checkoutHandler.Begin()))
	routerMux.HandleFunc("GET /api/v1/checkout", authMiddleware.Authenticate(checkoutHandler.Status()))
	routerMux.HandleFunc("POST /api/v1/checkout/shipping", authMiddleware.Authenticate(checkoutHandler.SubmitShipping()))
	routerMux.HandleFunc("POST /api/v1/checkout/payment", authMiddleware.Authenticate(checkoutHandler.ChoosePayment()))
	routerMux.HandleFunc("POST /api/v1/checkout/confirm", authMiddleware.Authenticate(checkoutHandler.Confirm()))
	routerMux.HandleFunc("GET /api/v1/orders/{id}", authMiddleware.Authenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("GET /api/v1/orders", authMiddleware.Authenticate(orderHandler.ListOrders()))
	routerMux.HandleFunc("PATCH /api/v1/orders/{id}/status", authMiddleware.Authenticate(orderHandler.UpdateOrderStatus()))
	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "storefront")

	// Setup http server
	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.Any("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("⚠️ Tracing shutdown encountered an issue", slog.String("error", err.Error()))
	}
}
