package gcp

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/zenGate-Global/studio-scheduler/platform/go/setups"
)

// FirebaseConfig selects the credentials of the Firebase app.
// Empty fields fall back to the developer overrides and then to application default credentials.
type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
}

// GetApp creates a Firebase App instance.
func GetApp(ctx context.Context, cfg FirebaseConfig) (*firebase.App, error) {
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile, _ = setups.DevCredentialsPath()
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID, _ = setups.DevProject()
	}

	var appCfg *firebase.Config
	if cfg.ProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	return firebase.NewApp(ctx, appCfg, opts...)
}

// InitFirebaseAuth initializes the Firebase App and returns an Auth client used to verify ID tokens.
func InitFirebaseAuth(ctx context.Context, cfg FirebaseConfig) (*firebase.App, *firebaseauth.Client, error) {
	firebaseApp, err := GetApp(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}

	fbAuth, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase auth [%w]", err)
	}

	return firebaseApp, fbAuth, nil
}
