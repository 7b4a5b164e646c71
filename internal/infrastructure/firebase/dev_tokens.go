package firebase

import (
	"context"
	"fmt"
	"strings"
)

const devTokenPrefix = "dev:"

// DevTokenVerifier accepts tokens of the form "dev:<uid>[:<name>]". It is
// only wired when the service runs without Firebase in development.
type DevTokenVerifier struct{}

func (DevTokenVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if !strings.HasPrefix(token, devTokenPrefix) {
		return nil, fmt.Errorf("not a development token")
	}

	uid, name, _ := strings.Cut(strings.TrimPrefix(token, devTokenPrefix), ":")
	if uid == "" {
		return nil, fmt.Errorf("development token has no uid")
	}
	return &Identity{
		UID:   uid,
		Email: uid + "@dev.local",
		Name:  name,
	}, nil
}

// DevToken builds a token DevTokenVerifier accepts.
func DevToken(uid, name string) string {
	if name == "" {
		return devTokenPrefix + uid
	}
	return devTokenPrefix + uid + ":" + name
}
