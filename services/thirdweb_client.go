// services/thirdweb_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"bearpay-waitlist/utils"
)

// TokenTransferrer is the slice of the wallet-as-a-service API settlement
// needs to move tokens out of the treasury.
type TokenTransferrer interface {
	TransferConfigured() bool
	TransferTokens(ctx context.Context, toWallet string, amount int64) error
}

// ThirdwebClient wraps the thirdweb email-OTP auth flow and the token
// transfer API. Both sides are keyed by the server-side secret key, which
// never reaches the browser.
type ThirdwebClient struct {
	ClientID       string
	SecretKey      string
	AuthBaseURL    string
	APIBaseURL     string
	TreasuryWallet string
	TokenAddress   string
	ChainID        int
	HTTPClient     *http.Client
}

func NewThirdwebClientFromEnv() *ThirdwebClient {
	c := &ThirdwebClient{
		ClientID:       os.Getenv("THIRDWEB_CLIENT_ID"),
		SecretKey:      os.Getenv("THIRDWEB_SECRET_KEY"),
		AuthBaseURL:    "https://in-app-wallet.thirdweb.com/api/2024-05-05",
		APIBaseURL:     "https://api.thirdweb.com/v1",
		TreasuryWallet: os.Getenv("THIRDWEB_TREASURY_WALLET"),
		TokenAddress:   os.Getenv("BEAR_TOKEN_ADDRESS"),
		HTTPClient:     utils.HTTPClient,
	}
	if raw := os.Getenv("BEAR_CHAIN_ID"); raw != "" {
		chainID, err := strconv.Atoi(raw)
		if err != nil {
			log.Printf("⚠️  Invalid BEAR_CHAIN_ID %q: %v", raw, err)
		} else {
			c.ChainID = chainID
		}
	}
	if c.SecretKey == "" {
		log.Println("⚠️  THIRDWEB_SECRET_KEY not set — auth proxy and transfers disabled")
	}
	return c
}

func (c *ThirdwebClient) AuthConfigured() bool {
	return c.ClientID != "" && c.SecretKey != ""
}

func (c *ThirdwebClient) TransferConfigured() bool {
	return c.SecretKey != "" && c.TreasuryWallet != "" && c.TokenAddress != "" && c.ChainID != 0
}

func (c *ThirdwebClient) post(ctx context.Context, base, path string, payload, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.ClientID)
	req.Header.Set("x-secret-key", c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call thirdweb: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Thirdweb %s returned %d: %s", path, resp.StatusCode, string(body))
		return fmt.Errorf("thirdweb %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode thirdweb response: %w", err)
		}
	}
	return nil
}

// InitiateEmailAuth asks the provider to send an OTP code to the email.
func (c *ThirdwebClient) InitiateEmailAuth(ctx context.Context, email string) error {
	if !c.AuthConfigured() {
		return ErrNotConfigured
	}
	payload := map[string]string{
		"method": "email",
		"email":  email,
	}
	return c.post(ctx, c.AuthBaseURL, "/auth/initiate", payload, nil)
}

type AuthResult struct {
	UserID        string `json:"userId"`
	Token         string `json:"token"`
	WalletAddress string `json:"walletAddress"`
	IsNewUser     bool   `json:"isNewUser"`
}

// CompleteEmailAuth verifies the OTP code and returns the proven identity.
func (c *ThirdwebClient) CompleteEmailAuth(ctx context.Context, email, code string) (*AuthResult, error) {
	if !c.AuthConfigured() {
		return nil, ErrNotConfigured
	}
	payload := map[string]string{
		"method": "email",
		"email":  email,
		"code":   code,
	}
	var out AuthResult
	if err := c.post(ctx, c.AuthBaseURL, "/auth/complete", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransferTokens moves amount tokens from the treasury to the payout wallet.
func (c *ThirdwebClient) TransferTokens(ctx context.Context, toWallet string, amount int64) error {
	if !c.TransferConfigured() {
		return ErrNotConfigured
	}
	payload := map[string]any{
		"from":         c.TreasuryWallet,
		"to":           toWallet,
		"amount":       amount,
		"tokenAddress": c.TokenAddress,
		"chainId":      c.ChainID,
	}
	return c.post(ctx, c.APIBaseURL, "/tokens/transfer", payload, nil)
}
