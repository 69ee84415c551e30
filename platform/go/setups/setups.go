// Package setups reads developer-machine overrides for external services.
package setups

import "os"

const (
	// DevCredentialsPathEnv points at a service-account JSON file used outside GCP.
	DevCredentialsPathEnv = "FIREBASE_CONFIG"
	// DevProjectEnv names the project when it cannot be derived from credentials.
	DevProjectEnv = "GCLOUD_PROJECT"
)

// DevCredentialsPath returns the credentials file configured for local development.
func DevCredentialsPath() (string, bool) {
	p, ok := os.LookupEnv(DevCredentialsPathEnv)
	if !ok || p == "" {
		return "", false
	}
	return p, true
}

// DevProject returns the project configured for local development.
func DevProject() (string, bool) {
	p, ok := os.LookupEnv(DevProjectEnv)
	if !ok || p == "" {
		return "", false
	}
	return p, true
}
