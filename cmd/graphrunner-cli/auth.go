package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the server",
	Run:   login,
}

// login logs in to the server
func login(cmd *cobra.Command, args []string) {
	if serverURL == "" {
		fail("Server URL is required")
	}

	if username == "" {
		fmt.Print("Username: ")
		fmt.Scanln(&username)
	}

	if password == "" {
		fmt.Print("Password: ")
		fmt.Scanln(&password)
	}

	// Create request body
	reqBody, err := json.Marshal(LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		fail("%v", err)
	}

	// Send request
	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/login", serverURL),
		"application/json",
		bytes.NewBuffer(reqBody),
	)
	if err != nil {
		fail("%v", err)
	}
	defer resp.Body.Close()

	// Read response
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fail("%v", err)
	}

	// Check response status
	if resp.StatusCode != http.StatusOK {
		fail("%s", body)
	}

	// Parse response
	var loginResp LoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		fail("%v", err)
	}

	// Save token to config
	token = loginResp.Token
	config := Config{
		ServerURL: serverURL,
		Username:  username,
		JWTToken:  token,
	}

	// Save config
	if err := saveConfig(config); err != nil {
		fmt.Printf("Warning: Failed to save config: %v\n", err)
	}

	fmt.Println("Login successful")
}

// createAccount creates a new account
func createAccount(cmd *cobra.Command, args []string) {
	if serverURL == "" {
		fail("Server URL is required")
	}

	if username == "" {
		fmt.Print("Username: ")
		fmt.Scanln(&username)
	}

	if password == "" {
		fmt.Print("Password: ")
		fmt.Scanln(&password)
	}

	// Create request body
	reqBody, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		fail("%v", err)
	}

	// Account creation is unauthenticated
	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/accounts", serverURL),
		"application/json",
		bytes.NewBuffer(reqBody),
	)
	if err != nil {
		fail("%v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fail("%v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		fail("%s", body)
	}

	fmt.Println("Account created successfully")

	// Save config
	config := Config{
		ServerURL: serverURL,
		Username:  username,
		Token:     token,
	}
	if err := saveConfig(config); err != nil {
		fmt.Printf("Warning: Failed to save config: %v\n", err)
	}
}

// getAccountInfo gets information about the current account
func getAccountInfo(cmd *cobra.Command, args []string) {
	body, status, err := doRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	if err != nil {
		fail("%v", err)
	}
	if status != http.StatusOK {
		fail("%s", body)
	}

	printJSON(body)
}
