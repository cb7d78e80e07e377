package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"coa-registry/internal/logger"
	"coa-registry/internal/models"
)

// KeycloakAdmin deletes identity-provider accounts through the Keycloak admin
// REST API, authenticating with a client-credentials token.
type KeycloakAdmin struct {
	Config models.KeycloakConfig
	Client *http.Client
	Cache  *RedisTokenCache
	Logger *logger.Logger
}

func NewKeycloakAdmin(cfg models.KeycloakConfig, client *http.Client, cache *RedisTokenCache, log *logger.Logger) *KeycloakAdmin {
	return &KeycloakAdmin{Config: cfg, Client: client, Cache: cache, Logger: log}
}

// serviceToken returns a cached token when one is usable and otherwise asks
// the realm's token endpoint. Cache failures only cost an extra round trip.
func (k *KeycloakAdmin) serviceToken(ctx context.Context) (string, error) {
	if k.Cache != nil {
		token, ok, err := k.Cache.Lookup(ctx, k.Config.ClientID)
		if err != nil {
			k.Logger.Warn("AUTH", fmt.Sprintf("Token cache unavailable: %v", err))
		} else if ok {
			return token, nil
		}
	}

	if k.Config.KeycloakURL == "" || k.Config.ClientID == "" {
		return "", fmt.Errorf("keycloak admin client is not configured")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {k.Config.ClientID},
		"client_secret": {k.Config.ClientSecret},
	}
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimRight(k.Config.KeycloakURL, "/"), url.PathEscape(k.Config.KeycloakRealm))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		k.Logger.Error("AUTH", fmt.Sprintf("Keycloak token endpoint returned %s: %s", resp.Status, string(body)))
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var tokenResp models.M2MTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if k.Cache != nil {
		if err := k.Cache.Store(ctx, k.Config.ClientID, tokenResp.AccessToken, tokenResp.ExpiresIn); err != nil {
			k.Logger.Warn("AUTH", fmt.Sprintf("Failed to cache service token: %v", err))
		}
	}
	return tokenResp.AccessToken, nil
}

// DeleteUser removes the account. An account that is already gone counts as
// deleted.
func (k *KeycloakAdmin) DeleteUser(ctx context.Context, userID string) error {
	token, err := k.serviceToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get service token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/admin/realms/%s/users/%s",
		strings.TrimRight(k.Config.KeycloakURL, "/"), url.PathEscape(k.Config.KeycloakRealm), url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete identity account: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		k.Logger.LogSecurity("ACCOUNT_DELETED", fmt.Sprintf("identity account %s removed", userID))
		return nil
	default:
		return fmt.Errorf("identity account deletion failed with status: %d", resp.StatusCode)
	}
}
