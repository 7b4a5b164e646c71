package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// Identity is what a verified ID token says about the caller.
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// TokenVerifier turns a bearer token into an Identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) Verify(ctx context.Context, token string) (*Identity, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UID:     result.UID,
		Email:   claim(result.Claims, "email"),
		Name:    claim(result.Claims, "name"),
		Picture: claim(result.Claims, "picture"),
	}, nil
}

// GenerateToken mints a custom token for uid, used by local tooling.
func (f *FirebaseAuthClient) GenerateToken(ctx context.Context, uid string) (string, error) {
	return f.client.CustomToken(ctx, uid)
}

func claim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
