package models

import "time"

// ProviderType identifies the wire protocol a provider speaks
type ProviderType string

// Supported provider types
const (
	ProviderTypeOllama ProviderType = "ollama"
)

// Provider is an LLM provider configuration owned by an account.
// Provider IDs are positive integers assigned by the store; node data
// references them through the llm_provider_id field.
type Provider struct {
	// ID of the provider
	ID int64 `json:"id"`

	// AccountID is the ID of the account that owns the provider
	AccountID string `json:"account_id"`

	// Name is the provider display name
	Name string `json:"name"`

	// Type of the provider
	Type ProviderType `json:"type"`

	// BaseURL is the base URL of the provider's HTTP API
	BaseURL string `json:"base_url"`

	// Config holds provider-specific configuration
	Config map[string]interface{} `json:"config,omitempty"`

	// CreatedAt is when the provider was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the provider was last updated
	UpdatedAt time.Time `json:"updated_at"`
}
