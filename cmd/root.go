package cmd

import (
	"context"
	"os"
	"time"

	coreconfig "github.com/AzielCF/az-smartfilter/core/config"
	coreDB "github.com/AzielCF/az-smartfilter/core/database"
	domainHealth "github.com/AzielCF/az-smartfilter/domains/health"
	domainSearch "github.com/AzielCF/az-smartfilter/domains/search"
	domainShop "github.com/AzielCF/az-smartfilter/domains/shop"
	filterApp "github.com/AzielCF/az-smartfilter/filterengine/application"
	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/AzielCF/az-smartfilter/filterengine/providers"
	filterRepo "github.com/AzielCF/az-smartfilter/filterengine/repository"
	"github.com/AzielCF/az-smartfilter/infrastructure/valkey"
	"github.com/AzielCF/az-smartfilter/pkg/bgworker"
	"github.com/AzielCF/az-smartfilter/pkg/crypto"
	"github.com/AzielCF/az-smartfilter/pkg/utils"
	taxonomyApp "github.com/AzielCF/az-smartfilter/taxonomy/application"
	"github.com/AzielCF/az-smartfilter/taxonomy/infrastructure/shopify"
	taxonomyRepo "github.com/AzielCF/az-smartfilter/taxonomy/repository"
	uiRest "github.com/AzielCF/az-smartfilter/ui/rest"
	"github.com/AzielCF/az-smartfilter/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db       *gorm.DB
	vkClient *valkey.Client

	shopRepo     *taxonomyRepo.ShopGormRepository
	queryLogRepo *taxonomyRepo.QueryLogGormRepository
	taxonomySvc  *taxonomyApp.Service
	bgPool       *bgworker.Pool

	// Usecase
	searchUsecase domainSearch.ISearchUsecase
	shopUsecase   domainShop.IShopUsecase
	healthUsecase domainHealth.IHealthUsecase

	stopBackground context.CancelFunc
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-smartfilter",
	Short: "Natural-language storefront filters",
	Long: `Translates shopper search text into storefront filter parameters,
grounded in each shop's catalog vocabulary.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")
	if _, err := coreconfig.LoadConfig(); err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initApp)
}

func initFlags() {
	cfg := coreconfig.Global

	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.Port,
		"port", "p",
		cfg.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&cfg.App.Debug,
		"debug", "d",
		cfg.App.Debug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&cfg.App.BasicAuth,
		"basic-auth", "b",
		cfg.App.BasicAuth,
		"basic auth credential for the admin API | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.BasePath,
		"base-path", "",
		cfg.App.BasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/smartfilter"`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&cfg.App.TrustedProxies,
		"trusted-proxies", "",
		cfg.App.TrustedProxies,
		`trusted proxy IP ranges for reverse proxy deployments | example: --trusted-proxies="10.0.0.0/8,172.16.0.0/12"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Database.Driver,
		"db-driver", "",
		cfg.Database.Driver,
		`database driver sqlite or postgres | example: --db-driver=postgres`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Database.Name,
		"db-name", "",
		cfg.Database.Name,
		`sqlite file path or postgres database name | example: --db-name="storages/smartfilter.db"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.AI.Provider,
		"ai-provider", "",
		cfg.AI.Provider,
		`model provider openai or gemini | example: --ai-provider=gemini`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.AI.Model,
		"ai-model", "",
		cfg.AI.Model,
		`model used to resolve filters | example: --ai-model=gpt-4o-mini`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&cfg.Worker.Size,
		"workers", "",
		cfg.Worker.Size,
		`number of background workers | example: --workers=8`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&cfg.Worker.QueueSize,
		"worker-queue-size", "",
		cfg.Worker.QueueSize,
		`queue size per background worker | example: --worker-queue-size=512`,
	)

	// coreconfig.Global is nil until root's init runs.
	mcpCmd.Flags().StringVar(&cfg.MCP.Port, "mcp-port", cfg.MCP.Port, "Port for the SSE MCP server")
	mcpCmd.Flags().StringVar(&cfg.MCP.Host, "host", cfg.MCP.Host, "Host for the SSE MCP server")
}

func initApp() {
	cfg := coreconfig.Global
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.WithFields(logrus.Fields(coreconfig.GetAllSettings())).Debug("[CONFIG] Loaded settings")

	ctx := context.Background()

	if err := crypto.SetSecret(cfg.Security.SecretKey); err != nil {
		logrus.Fatalf("[CONFIG] invalid APP_SECRET_KEY: %v", err)
	}
	if !crypto.Enabled() {
		logrus.Warn("[CONFIG] APP_SECRET_KEY is empty, shop access tokens are stored unencrypted")
	}

	var err error
	db, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[DB] %v", err)
	}

	shopRepo = taxonomyRepo.NewShopGormRepository(db)
	if err := shopRepo.Init(ctx); err != nil {
		logrus.Fatalf("[DB] failed to init shop repository: %v", err)
	}
	queryLogRepo = taxonomyRepo.NewQueryLogGormRepository(db)
	if err := queryLogRepo.Init(ctx); err != nil {
		logrus.Fatalf("[DB] failed to init query log repository: %v", err)
	}

	bgCtx, cancel := context.WithCancel(ctx)
	stopBackground = cancel

	cache, limiter := initStores(bgCtx, cfg)

	catalog := shopify.NewCatalogSource(shopify.Config{
		APIVersion:        cfg.Catalog.ShopifyAPIVersion,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
	})
	taxonomySvc = taxonomyApp.NewService(shopRepo, catalog,
		taxonomyApp.WithMaxAge(cfg.Taxonomy.MaxAge),
		taxonomyApp.WithRetryBackoff(cfg.Taxonomy.RetryBackoff),
	)

	bgPool = bgworker.GetGlobalPool()
	uiRest.SetBackgroundPool(bgPool)

	shopUsecase = usecase.NewShopService(shopRepo, queryLogRepo, taxonomySvc, cache)
	healthUsecase = usecase.NewHealthService(db, vkClient, bgPool)
	healthUsecase.StartPeriodicChecks(bgCtx, usecase.DefaultHealthInterval)

	provider, err := providers.New(ctx, cfg.AI.Provider, cfg.APIKey(), cfg.AI.BaseURL)
	if err != nil {
		// Admin and sync commands still work without a model.
		logrus.WithError(err).Warn("[AI] Provider not configured, storefront search is disabled")
		return
	}
	logrus.Infof("[AI] Using %s provider with model %s", provider.Name(), cfg.AI.Model)

	resolver := filterApp.NewResolver(provider, cfg.AI.Model, cfg.AI.Timeout)
	searchUsecase = usecase.NewSearchService(shopRepo, queryLogRepo, taxonomySvc, resolver, cache, limiter, bgPool, usecase.SearchOptions{
		RateLimitMax:    cfg.RateLimit.Max,
		RateLimitWindow: cfg.RateLimit.Window,
		QueryMaxLength:  cfg.App.QueryMaxLength,
	})
}

// initStores picks the shared Valkey backends when enabled and falls back to in-process ones.
func initStores(ctx context.Context, cfg *coreconfig.Config) (filterDomain.IQueryCache, filterDomain.IRateLimiter) {
	if cfg.Database.ValkeyEnabled {
		client, err := valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err == nil {
			vkClient = client
			logrus.Infof("[VALKEY] Connected to %s, using shared cache and rate limiter", cfg.Database.ValkeyAddress)
			return filterRepo.NewValkeyQueryCache(client, cfg.Cache.TTL), filterRepo.NewValkeyRateLimiter(client)
		}
		logrus.WithError(err).Warn("[VALKEY] Connection failed, falling back to in-memory stores")
	}

	limiter := filterRepo.NewMemoryRateLimiter()
	limiter.StartCleanup(ctx, cfg.RateLimit.SweepInterval)
	return filterRepo.NewMemoryQueryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL), limiter
}

// requireSearch stops commands that serve shoppers when no model is configured.
func requireSearch() {
	if searchUsecase == nil {
		logrus.Fatalln("[AI] No usable AI provider. Set AI_PROVIDER and OPENAI_API_KEY or GEMINI_API_KEY.")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of background work and connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	bgworker.StopGlobalPool()
	if stopBackground != nil {
		stopBackground()
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if err := coreDB.Close(); err != nil {
		logrus.WithError(err).Warn("[DB] Close failed")
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
