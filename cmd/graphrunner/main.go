// Package main is the entry point for the graphrunner server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ahartwell/graphrunner/pkg/api"
	"github.com/ahartwell/graphrunner/pkg/config"
	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/registry"
	"github.com/ahartwell/graphrunner/pkg/runtime"
	"github.com/ahartwell/graphrunner/pkg/services"
	"github.com/ahartwell/graphrunner/pkg/storage"
	"github.com/ahartwell/graphrunner/pkg/utils"
)

var (
	// Command-line flags
	configPath = flag.String("config", "", "Path to config file")
	version    = flag.Bool("version", false, "Print version information")
)

// Version information
const (
	AppVersion = "0.1.0"
	AppName    = "graphrunner"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	// Parse command-line flags
	flag.Parse()

	// Print version information if requested
	if *version {
		fmt.Printf("%s version %s\n", AppName, AppVersion)
		return
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the application
	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start the application in a goroutine
	errCh := make(chan error)
	go func() {
		errCh <- app.Start()
	}()

	// Wait for interrupt signal or error
	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Application failed: %v", err)
		}
	case <-stop:
		log.Println("Shutting down gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			log.Fatalf("Error during shutdown: %v", err)
		}
	}
}

// loadConfig loads the configuration from the specified path or creates a default one
func loadConfig() (*config.Config, error) {
	var cfg *config.Config

	// If a config path is specified, load it
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", *configPath, err)
		}
	} else {
		// Otherwise, look for a config file in standard locations
		locations := []string{
			"./config.json",
			"./configs/config.json",
			filepath.Join(os.Getenv("HOME"), ".graphrunner", "config.json"),
			"/etc/graphrunner/config.json",
		}

		for _, path := range locations {
			if loadedCfg, err := config.LoadConfig(path); err == nil {
				cfg = loadedCfg
				break
			}
		}

		// If no config file is found, create a default one
		if cfg == nil {
			cfg = config.DefaultConfig()

			// Save the default config to the user's home directory
			defaultPath := filepath.Join(os.Getenv("HOME"), ".graphrunner", "config.json")
			if err := config.SaveConfig(cfg, defaultPath); err != nil {
				return nil, fmt.Errorf("failed to save default config: %w", err)
			}

			fmt.Printf("Created default configuration at %s\n", defaultPath)
		}
	}

	// Override with environment variables if present
	overrideConfigFromEnv(cfg)

	// Generate a random JWT secret if not set
	if cfg.Auth.JWTSecret == "" {
		secret, err := generateRandomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.Auth.JWTSecret = secret
	}

	return cfg, nil
}

// overrideConfigFromEnv overrides configuration values from environment variables
func overrideConfigFromEnv(cfg *config.Config) {
	// Server configuration
	if host := os.Getenv("GRAPHRUNNER_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("GRAPHRUNNER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	// Storage configuration
	if storageType := os.Getenv("GRAPHRUNNER_STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}

	// DynamoDB configuration
	if region := os.Getenv("GRAPHRUNNER_DYNAMODB_REGION"); region != "" {
		cfg.Storage.DynamoDB.Region = region
	}
	if endpoint := os.Getenv("GRAPHRUNNER_DYNAMODB_ENDPOINT"); endpoint != "" {
		cfg.Storage.DynamoDB.Endpoint = endpoint
	}
	if tablePrefix := os.Getenv("GRAPHRUNNER_DYNAMODB_TABLE_PREFIX"); tablePrefix != "" {
		cfg.Storage.DynamoDB.TablePrefix = tablePrefix
	}

	// PostgreSQL configuration
	if host := os.Getenv("GRAPHRUNNER_POSTGRES_HOST"); host != "" {
		cfg.Storage.Postgres.Host = host
	}
	if port := os.Getenv("GRAPHRUNNER_POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Storage.Postgres.Port = p
		}
	}
	if database := os.Getenv("GRAPHRUNNER_POSTGRES_DATABASE"); database != "" {
		cfg.Storage.Postgres.Database = database
	}
	if user := os.Getenv("GRAPHRUNNER_POSTGRES_USER"); user != "" {
		cfg.Storage.Postgres.User = user
	}
	if password := os.Getenv("GRAPHRUNNER_POSTGRES_PASSWORD"); password != "" {
		cfg.Storage.Postgres.Password = password
	}
	if sslMode := os.Getenv("GRAPHRUNNER_POSTGRES_SSL_MODE"); sslMode != "" {
		cfg.Storage.Postgres.SSLMode = sslMode
	}

	// Redis configuration
	if address := os.Getenv("GRAPHRUNNER_REDIS_ADDRESS"); address != "" {
		cfg.Storage.Redis.Address = address
	}
	if password := os.Getenv("GRAPHRUNNER_REDIS_PASSWORD"); password != "" {
		cfg.Storage.Redis.Password = password
	}
	if db := os.Getenv("GRAPHRUNNER_REDIS_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			cfg.Storage.Redis.DB = d
		}
	}

	// Auth configuration
	if jwtSecret := os.Getenv("GRAPHRUNNER_JWT_SECRET"); jwtSecret != "" {
		cfg.Auth.JWTSecret = jwtSecret
	}
	if tokenExpiration := os.Getenv("GRAPHRUNNER_TOKEN_EXPIRATION"); tokenExpiration != "" {
		if exp, err := strconv.Atoi(tokenExpiration); err == nil {
			cfg.Auth.TokenExpiration = exp
		}
	}

	// Provider configuration
	if ollamaURL := os.Getenv("GRAPHRUNNER_DEFAULT_OLLAMA_URL"); ollamaURL != "" {
		cfg.Providers.DefaultOllamaURL = ollamaURL
	}
	if searchURL := os.Getenv("GRAPHRUNNER_SEARCH_BASE_URL"); searchURL != "" {
		cfg.Providers.SearchBaseURL = searchURL
	}
}

// generateRandomKey generates a random key of the specified length
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// App represents the graphrunner application
type App struct {
	config          *config.Config
	server          *api.Server
	storageProvider storage.StorageProvider
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config) (*App, error) {
	// Initialize storage provider
	storageProvider, err := newStorageProvider(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize storage
	if err := storageProvider.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Provider clients share one bounded request timeout
	timeout := cfg.Providers.RequestTimeout()
	newLLMClient := func(provider models.Provider) utils.LLMClient {
		return utils.NewOllamaClient(provider.BaseURL, timeout)
	}
	searchClient := utils.NewDuckDuckGoClient(cfg.Providers.SearchBaseURL, timeout)

	// Create the account service with JWT support
	jwtService := services.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
	accountService := services.NewAccountService(
		storageProvider.GetAccountStore(),
		storageProvider.GetProviderStore(),
		jwtService,
		cfg.Providers.DefaultOllamaURL,
	)

	// Create the workflow registry
	workflowRegistry := registry.NewWorkflowRegistry(
		storageProvider.GetWorkflowStore(),
		storageProvider.GetProviderStore(),
	)

	// Create the workflow runtime
	handlerRegistry := runtime.NewHandlerRegistry(storageProvider.GetProviderStore(), newLLMClient, searchClient)
	rt := runtime.NewRuntime(
		storageProvider.GetWorkflowStore(),
		storageProvider.GetExecutionStore(),
		handlerRegistry,
	)

	// Create the API server
	server := api.NewServer(cfg, workflowRegistry, rt, accountService, storageProvider.GetProviderStore(), newLLMClient)

	return &App{
		config:          cfg,
		server:          server,
		storageProvider: storageProvider,
	}, nil
}

// newStorageProvider builds the storage backend from configuration
func newStorageProvider(cfg *config.Config) (storage.StorageProvider, error) {
	switch cfg.Storage.Type {
	case "memory":
		log.Println("Using in-memory storage provider")
		return storage.NewProvider(storage.BackendConfig{Type: storage.MemoryBackendType})

	case "dynamodb":
		log.Printf("Initializing DynamoDB storage provider with region: %s, endpoint: %s",
			cfg.Storage.DynamoDB.Region, cfg.Storage.DynamoDB.Endpoint)
		return storage.NewProvider(storage.BackendConfig{
			Type: storage.DynamoDBBackendType,
			DynamoDB: &storage.DynamoDBProviderConfig{
				Region:      cfg.Storage.DynamoDB.Region,
				TablePrefix: cfg.Storage.DynamoDB.TablePrefix,
				Endpoint:    cfg.Storage.DynamoDB.Endpoint,
			},
		})

	case "postgres", "postgresql":
		log.Printf("Initializing PostgreSQL storage provider with host: %s, port: %d, database: %s",
			cfg.Storage.Postgres.Host, cfg.Storage.Postgres.Port, cfg.Storage.Postgres.Database)
		return storage.NewProvider(storage.BackendConfig{
			Type: storage.PostgreSQLBackendType,
			PostgreSQL: &storage.PostgreSQLProviderConfig{
				Host:     cfg.Storage.Postgres.Host,
				Port:     cfg.Storage.Postgres.Port,
				User:     cfg.Storage.Postgres.User,
				Password: cfg.Storage.Postgres.Password,
				Database: cfg.Storage.Postgres.Database,
				SSLMode:  cfg.Storage.Postgres.SSLMode,
			},
		})

	case "redis":
		log.Printf("Initializing Redis storage provider with address: %s", cfg.Storage.Redis.Address)
		return storage.NewProvider(storage.BackendConfig{
			Type: storage.RedisBackendType,
			Redis: &storage.RedisProviderConfig{
				Address:  cfg.Storage.Redis.Address,
				Password: cfg.Storage.Redis.Password,
				DB:       cfg.Storage.Redis.DB,
			},
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// Start starts the application
func (a *App) Start() error {
	return a.server.Start()
}

// Stop stops the application gracefully
func (a *App) Stop(ctx context.Context) error {
	if err := a.server.Stop(ctx); err != nil {
		return err
	}
	return a.storageProvider.Close()
}
