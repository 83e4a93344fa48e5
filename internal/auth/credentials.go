package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
)

// firebaseScope is requested when loading service-account credentials. Only
// the project ID is read from them, so the scope never reaches Google.
const firebaseScope = "https://www.googleapis.com/auth/firebase"

// ProjectSource describes where the Firebase project ID can come from, in
// priority order.
type ProjectSource struct {
	ProjectID          string // explicit ID, wins when set
	ServiceAccountJSON string // inline service-account key
	ServiceAccountPath string // path to a service-account key file
}

// ResolveProjectID returns the project ID tokens must be issued for.
//
// An empty result with a nil error means nothing is configured. The caller
// decides whether that is fatal.
func ResolveProjectID(ctx context.Context, src ProjectSource) (string, error) {
	if id := strings.TrimSpace(src.ProjectID); id != "" {
		return id, nil
	}

	var data []byte
	switch {
	case strings.TrimSpace(src.ServiceAccountJSON) != "":
		data = []byte(src.ServiceAccountJSON)
	case src.ServiceAccountPath != "":
		b, err := os.ReadFile(src.ServiceAccountPath)
		if err != nil {
			return "", fmt.Errorf("auth: reading service account file: %w", err)
		}
		data = b
	default:
		return "", nil
	}

	creds, err := google.CredentialsFromJSON(ctx, data, firebaseScope)
	if err != nil {
		return "", fmt.Errorf("auth: parsing service account credentials: %w", err)
	}
	if creds.ProjectID == "" {
		return "", errors.New("auth: service account credentials have no project_id")
	}

	return creds.ProjectID, nil
}
