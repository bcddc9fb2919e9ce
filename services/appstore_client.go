// services/appstore_client.go
package services

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"bearpay-waitlist/utils"

	"github.com/golang-jwt/jwt/v5"
)

// BetaGroup is one TestFlight distribution group of the app.
type BetaGroup struct {
	ID             string
	Name           string
	IsInternal     bool
	PublicLinkOpen bool
}

// BetaClient is the slice of the distribution API the invite service needs.
type BetaClient interface {
	Configured() bool
	ListBetaGroups(ctx context.Context) ([]BetaGroup, error)
	// CreateTester invites an email into a group. A provider conflict
	// (tester already exists / already in group) is reported as
	// alreadyInvited, not as an error.
	CreateTester(ctx context.Context, email, groupID string) (testerID string, alreadyInvited bool, err error)
}

// AppStoreClient talks to the App Store Connect API with short-lived ES256
// bearer tokens.
type AppStoreClient struct {
	KeyID      string
	IssuerID   string
	AppID      string
	BaseURL    string
	HTTPClient *http.Client

	privateKey *ecdsa.PrivateKey
}

// NewAppStoreClientFromEnv builds the client from ASC_* env vars. Missing or
// unparsable credentials leave the client unconfigured rather than failing
// boot — invite endpoints then report "not configured".
func NewAppStoreClientFromEnv() *AppStoreClient {
	c := &AppStoreClient{
		KeyID:    os.Getenv("ASC_KEY_ID"),
		IssuerID: os.Getenv("ASC_ISSUER_ID"),
		AppID:    os.Getenv("ASC_APP_ID"),
		BaseURL:    "https://api.appstoreconnect.apple.com",
		HTTPClient: utils.HTTPClient,
	}
	pemData := os.Getenv("ASC_PRIVATE_KEY")
	if c.KeyID == "" || c.IssuerID == "" || c.AppID == "" || pemData == "" {
		log.Println("⚠️  App Store Connect credentials not set — TestFlight invites disabled")
		return c
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		log.Printf("❌ Failed to parse ASC_PRIVATE_KEY: %v — TestFlight invites disabled", err)
		return c
	}
	c.privateKey = key
	return c
}

func (c *AppStoreClient) Configured() bool {
	return c.privateKey != nil && c.AppID != ""
}

// token signs a 20-minute ES256 JWT the way App Store Connect requires.
func (c *AppStoreClient) token() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.IssuerID,
		"iat": now.Unix(),
		"exp": now.Add(20 * time.Minute).Unix(),
		"aud": "appstoreconnect-v1",
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tok.Header["kid"] = c.KeyID
	signed, err := tok.SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign ASC token: %w", err)
	}
	return signed, nil
}

func (c *AppStoreClient) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	token, err := c.token()
	if err != nil {
		return 0, nil, err
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to call App Store Connect: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, respBody, nil
}

// ListBetaGroups returns the app's beta groups in API order. The invite path
// relies on that order for its deterministic group tie-break.
func (c *AppStoreClient) ListBetaGroups(ctx context.Context) ([]BetaGroup, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/v1/betaGroups?filter[app]="+c.AppID, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("betaGroups returned %d: %s", status, string(body))
	}

	var out struct {
		Data []struct {
			ID         string `json:"id"`
			Attributes struct {
				Name              string `json:"name"`
				IsInternalGroup   bool   `json:"isInternalGroup"`
				PublicLinkEnabled bool   `json:"publicLinkEnabled"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode betaGroups response: %w", err)
	}

	groups := make([]BetaGroup, 0, len(out.Data))
	for _, d := range out.Data {
		groups = append(groups, BetaGroup{
			ID:             d.ID,
			Name:           d.Attributes.Name,
			IsInternal:     d.Attributes.IsInternalGroup,
			PublicLinkOpen: d.Attributes.PublicLinkEnabled,
		})
	}
	return groups, nil
}

func (c *AppStoreClient) CreateTester(ctx context.Context, email, groupID string) (string, bool, error) {
	payload := map[string]any{
		"data": map[string]any{
			"type": "betaTesters",
			"attributes": map[string]any{
				"email": email,
			},
			"relationships": map[string]any{
				"betaGroups": map[string]any{
					"data": []map[string]any{
						{"type": "betaGroups", "id": groupID},
					},
				},
			},
		},
	}

	status, body, err := c.do(ctx, http.MethodPost, "/v1/betaTesters", payload)
	if err != nil {
		return "", false, err
	}

	switch status {
	case http.StatusCreated:
		var out struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return "", false, fmt.Errorf("failed to decode betaTesters response: %w", err)
		}
		return out.Data.ID, false, nil
	case http.StatusConflict:
		// Tester already exists / already in the group. Safe to treat as done.
		return "", true, nil
	default:
		return "", false, fmt.Errorf("betaTesters returned %d: %s", status, string(body))
	}
}
