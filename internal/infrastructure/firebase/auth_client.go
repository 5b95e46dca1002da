package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

type FirebaseAuthClient struct {
	client *auth.Client
	apiKey string

	// identityEndpoint is the token exchange URL, replaceable in tests.
	identityEndpoint string
}

func NewFirebaseAuthClient(client *auth.Client, apiKey string) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client:           client,
		apiKey:           apiKey,
		identityEndpoint: "https://identitytoolkit.googleapis.com/v1/accounts:signInWithCustomToken",
	}
}

// VerifyToken checks a Firebase ID token and returns the caller's uid.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}

// GenerateToken mints a token for uid. With a web API key configured the
// custom token is exchanged for an ID token the auth middleware accepts.
func (f *FirebaseAuthClient) GenerateToken(ctx context.Context, uid string) (string, error) {
	customToken, err := f.client.CustomToken(ctx, uid)
	if err != nil {
		return "", err
	}

	if f.apiKey == "" {
		return customToken, nil
	}
	return f.exchangeCustomToken(ctx, customToken)
}
