package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/username/finledger/backend/src/categorization"
	"github.com/username/finledger/backend/src/config"
	"github.com/username/finledger/backend/src/handlers"
	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/parsers"
	"github.com/username/finledger/backend/src/parsers/schemacsv"
	"github.com/username/finledger/backend/src/processors"
	"github.com/username/finledger/backend/src/services"
	"github.com/username/finledger/backend/src/signatures"
	"github.com/username/finledger/backend/src/storage"
	"github.com/username/finledger/backend/src/synthesis"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("FinLedger backend server starting...")

	if err := os.MkdirAll(config.Cfg.DataDir, 0o755); err != nil {
		logger.L.Error("Failed to create data directory", "path", config.Cfg.DataDir, "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(config.Cfg.RawFilesDir, 0o755); err != nil {
		logger.L.Error("Failed to create raw files directory", "path", config.Cfg.RawFilesDir, "error", err)
		os.Exit(1)
	}

	sigs, err := signatures.Load(config.Cfg.FileSignaturesPath)
	if err != nil {
		logger.L.Error("Failed to load file signatures", "path", config.Cfg.FileSignaturesPath, "error", err)
		os.Exit(1)
	}

	parserRegistry := parsers.NewRegistry()
	parserRegistry.Register(".csv", schemacsv.NewReader())

	ledgerStore := storage.NewLedgerStore(config.Cfg.DataDir)
	ruleStore := storage.NewRuleStore(config.Cfg.DataDir)
	pairStore := storage.NewPairStore(config.Cfg.DataDir)
	amountOverrideStore := storage.NewAmountOverrideStore(config.Cfg.DataDir)
	instanceOverrideStore := storage.NewInstanceOverrideStore(config.Cfg.DataDir)
	balanceEntryStore := storage.NewBalanceEntryStore(config.Cfg.DataDir)
	registryStore := storage.NewAccountRegistryStore(config.Cfg.DataDir)
	fileSummaryStore := storage.NewFileSummaryStore(config.Cfg.DataDir)

	ruleService := categorization.NewRuleService(ruleStore, pairStore, amountOverrideStore, instanceOverrideStore)
	synthEngine := synthesis.NewEngine(registryStore, balanceEntryStore)
	rateClient := processors.NewRateClient(config.Cfg.ExchangeRateBaseURL, config.Cfg.ExchangeRateTimeout)

	pipelineService := services.NewPipelineService(
		ledgerStore, fileSummaryStore, sigs, parserRegistry, ruleService, synthEngine, config.Cfg.RawFilesDir)
	fileService := services.NewFileService(fileSummaryStore, sigs, parserRegistry, config.Cfg.RawFilesDir)
	balanceService := services.NewBalanceService(balanceEntryStore, registryStore, rateClient)

	pipelineHandler := handlers.NewPipelineHandler(pipelineService)
	ledgerHandler := handlers.NewLedgerHandler(pipelineService)
	mappingHandler := handlers.NewMappingHandler(ruleService, pipelineService)
	overrideHandler := handlers.NewOverrideHandler(ruleService)
	balanceHandler := handlers.NewBalanceHandler(balanceService)
	uploadHandler := handlers.NewUploadHandler(fileService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "FinLedger Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/pipeline/ingest", pipelineHandler.HandleIngest)
		r.Post("/pipeline/categorize", pipelineHandler.HandleCategorize)
		r.Post("/pipeline/synthesize", pipelineHandler.HandleSynthesize)
		r.Post("/pipeline/refresh", pipelineHandler.HandleRefresh)

		r.Get("/ledger", ledgerHandler.HandleGetLedger)
		r.Get("/ledger/uncategorized", ledgerHandler.HandleUncategorized)

		r.Get("/rules", mappingHandler.HandleListRules)
		r.Post("/rules", mappingHandler.HandleCreateRule)
		r.Delete("/rules/{ruleID}", mappingHandler.HandleDeleteRule)
		r.Get("/rules/test", mappingHandler.HandleTestRule)
		r.Get("/pairs", mappingHandler.HandleListPairs)

		r.Get("/overrides/amount", overrideHandler.HandleListAmountOverrides)
		r.Post("/overrides/amount", overrideHandler.HandleSetAmountOverride)
		r.Delete("/overrides/amount", overrideHandler.HandleRemoveAmountOverride)
		r.Get("/overrides/instance", overrideHandler.HandleListInstanceOverrides)
		r.Post("/overrides/instance", overrideHandler.HandleSetInstanceOverride)
		r.Delete("/overrides/instance", overrideHandler.HandleRemoveInstanceOverride)

		r.Get("/balances", balanceHandler.HandleListEntries)
		r.Post("/balances", balanceHandler.HandleAddEntry)
		r.Delete("/balances", balanceHandler.HandleRemoveEntry)
		r.Get("/accounts", balanceHandler.HandleListAccounts)
		r.Put("/accounts/category-source", balanceHandler.HandleUpdateCategorySource)

		r.Get("/files", uploadHandler.HandleListFiles)
		r.Post("/upload", uploadHandler.HandleUpload)
		r.Delete("/files/{fileName}", uploadHandler.HandleDeleteFile)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
