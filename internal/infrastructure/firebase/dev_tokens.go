package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type customTokenExchange struct {
	Token             string `json:"token"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idTokenResponse struct {
	IDToken string `json:"idToken"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func (f *FirebaseAuthClient) exchangeCustomToken(ctx context.Context, customToken string) (string, error) {
	body, err := json.Marshal(customTokenExchange{Token: customToken, ReturnSecureToken: true})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.identityEndpoint+"?key="+f.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange custom token: %v", err)
	}
	defer resp.Body.Close()

	var out idTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %v", err)
	}
	if resp.StatusCode != http.StatusOK || out.IDToken == "" {
		if out.Error != nil {
			return "", fmt.Errorf("token exchange rejected: %s", out.Error.Message)
		}
		return "", fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	return out.IDToken, nil
}
