// Package main provides a CLI for interacting with the graphrunner server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	serverURL  string
	username   string
	password   string
	token      string
	configPath string
)

// Config represents the CLI configuration
type Config struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	JWTToken  string `json:"jwt_token"`
}

func main() {
	// Root command
	rootCmd := &cobra.Command{
		Use:   "graphrunner-cli",
		Short: "graphrunner CLI",
		Long:  "Command-line interface for interacting with the graphrunner server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config if not explicitly provided
			if serverURL == "" || (username == "" && token == "") {
				loadConfig()
			}
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Password")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "API token")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	// Add login command
	rootCmd.AddCommand(loginCmd)

	// Account commands
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account management",
	}

	accountCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new account",
		Run:   createAccount,
	}

	accountInfoCmd := &cobra.Command{
		Use:   "info",
		Short: "Get account information",
		Run:   getAccountInfo,
	}

	accountCmd.AddCommand(accountCreateCmd, accountInfoCmd)

	// Workflow commands
	workflowCmd := &cobra.Command{
		Use:   "workflow",
		Short: "Workflow management",
	}

	workflowListCmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		Run:   listWorkflows,
	}

	workflowGetCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get a workflow",
		Args:  cobra.ExactArgs(1),
		Run:   getWorkflow,
	}

	workflowImportCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a workflow from a YAML definition",
		Args:  cobra.ExactArgs(1),
		Run:   importWorkflow,
	}

	workflowDeleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		Run:   deleteWorkflow,
	}

	workflowRunCmd := &cobra.Command{
		Use:   "run [id] [value]",
		Short: "Run a workflow against an input value",
		Args:  cobra.ExactArgs(2),
		Run:   runWorkflow,
	}

	workflowCmd.AddCommand(workflowListCmd, workflowGetCmd, workflowImportCmd, workflowDeleteCmd, workflowRunCmd)

	// Execution commands
	executionCmd := &cobra.Command{
		Use:   "execution",
		Short: "Execution inspection",
	}

	executionGetCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get an execution record",
		Args:  cobra.ExactArgs(1),
		Run:   getExecution,
	}

	executionListCmd := &cobra.Command{
		Use:   "list [workflow-id]",
		Short: "List a workflow's executions",
		Args:  cobra.ExactArgs(1),
		Run:   listExecutions,
	}

	executionCmd.AddCommand(executionGetCmd, executionListCmd)

	// Add commands to root
	rootCmd.AddCommand(accountCmd, workflowCmd, executionCmd)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig loads the CLI configuration
func loadConfig() {
	// If a config path is specified, use it
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".graphrunner", "cli-config.json")
		}
	}

	// If the config file doesn't exist, return
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return
	}

	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Printf("Warning: Failed to read config file: %v\n", err)
		return
	}

	// Parse the config
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		fmt.Printf("Warning: Failed to parse config file: %v\n", err)
		return
	}

	// Set values if not explicitly provided
	if serverURL == "" {
		serverURL = config.ServerURL
	}
	if username == "" && token == "" {
		username = config.Username
		token = config.Token

		// Prefer JWT token if available
		if config.JWTToken != "" {
			token = config.JWTToken
		}
	}
}

// saveConfig saves the CLI configuration
func saveConfig(config Config) error {
	// If no config path is specified, use the default
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir := filepath.Join(home, ".graphrunner")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "cli-config.json")
	}

	// Marshal the config
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write the config file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// doRequest sends an authenticated request to the server and returns the
// response body with its status code
func doRequest(method, path string, payload interface{}) ([]byte, int, error) {
	if serverURL == "" {
		return nil, 0, fmt.Errorf("server URL is required")
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, serverURL+path, reqBody)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Add authentication
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	} else if username != "" && password != "" {
		req.SetBasicAuth(username, password)
	} else {
		return nil, 0, fmt.Errorf("authentication required")
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

// printJSON pretty-prints a JSON response body
func printJSON(body []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(prettyJSON.String())
}

// fail prints an error message and exits
func fail(format string, args ...interface{}) {
	fmt.Printf("Error: "+format+"\n", args...)
	os.Exit(1)
}
