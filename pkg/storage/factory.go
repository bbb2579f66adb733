package storage

import (
	"fmt"
)

// BackendType represents the type of storage backend
type BackendType string

const (
	// MemoryBackendType is an in-memory storage backend
	MemoryBackendType BackendType = "memory"

	// DynamoDBBackendType is a DynamoDB storage backend
	DynamoDBBackendType BackendType = "dynamodb"

	// PostgreSQLBackendType is a PostgreSQL storage backend
	PostgreSQLBackendType BackendType = "postgresql"

	// RedisBackendType is a Redis storage backend
	RedisBackendType BackendType = "redis"
)

// BackendConfig contains configuration for storage backends
type BackendConfig struct {
	// Type is the type of storage backend to create
	Type BackendType

	// DynamoDB contains configuration for the DynamoDB backend
	DynamoDB *DynamoDBProviderConfig

	// PostgreSQL contains configuration for the PostgreSQL backend
	PostgreSQL *PostgreSQLProviderConfig

	// Redis contains configuration for the Redis backend
	Redis *RedisProviderConfig
}

// NewProvider creates a new storage provider based on the configuration
func NewProvider(config BackendConfig) (StorageProvider, error) {
	switch config.Type {
	case MemoryBackendType:
		return NewMemoryProvider(), nil

	case DynamoDBBackendType:
		if config.DynamoDB == nil {
			return nil, fmt.Errorf("DynamoDB configuration is required for DynamoDB backend")
		}
		return NewDynamoDBProvider(*config.DynamoDB)

	case PostgreSQLBackendType:
		if config.PostgreSQL == nil {
			return nil, fmt.Errorf("PostgreSQL configuration is required for PostgreSQL backend")
		}
		return NewPostgreSQLProvider(*config.PostgreSQL)

	case RedisBackendType:
		if config.Redis == nil {
			return nil, fmt.Errorf("Redis configuration is required for Redis backend")
		}
		return NewRedisProvider(*config.Redis), nil

	default:
		return nil, fmt.Errorf("unknown backend type: %s", config.Type)
	}
}
