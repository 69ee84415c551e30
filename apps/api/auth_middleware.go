package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	tenantsservice "github.com/zenGate-Global/studio-scheduler/domains/tenants/be/service"
	platformauth "github.com/zenGate-Global/studio-scheduler/platform/go/auth"
	"github.com/zenGate-Global/studio-scheduler/platform/go/gcp"
)

// slugResolver maps a tenant slug claim to the registered tenant.
type slugResolver interface {
	GetBySlug(ctx context.Context, slug string) (tenantsservice.Tenant, error)
}

// buildAuthMiddleware constructs the JWT middleware. A tenant claim may carry either the
// internal tenant id or the tenant slug; slugs are mapped to ids here so every downstream
// component sees a uuid. Tokens without a tenant claim are accepted for platform operators.
func buildAuthMiddleware(ctx context.Context, cfg config, tenants slugResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	var verify platformauth.VerifyFunc
	switch cfg.AuthProvider {
	case "firebase":
		_, fbAuth, err := gcp.InitFirebaseAuth(ctx, gcp.FirebaseConfig{
			CredentialsFile: cfg.FirebaseCredentials,
			ProjectID:       cfg.FirebaseProject,
		})
		if err != nil {
			logger.Fatal("init firebase auth", zap.Error(err))
		}
		verify = platformauth.FirebaseTokenVerifier(fbAuth)
	case "dev":
		logger.Warn("using dev auth middleware; do not use in production")
		verify = platformauth.UnsignedTokenVerifier()
	default:
		logger.Fatal("unsupported auth provider", zap.String("provider", cfg.AuthProvider))
	}

	return platformauth.JWT(verify, tenantClaimExtractor(tenants))
}

func tenantClaimExtractor(tenants slugResolver) platformauth.ExtractFunc {
	return func(claims map[string]interface{}) (*platformauth.UserCredentials, error) {
		creds, err := platformauth.DefaultCredentialExtractor(claims)
		if err != nil {
			return nil, err
		}
		if creds.TenantID == nil || *creds.TenantID == "" {
			return creds, nil
		}

		if tid, parseErr := uuid.Parse(*creds.TenantID); parseErr == nil {
			idStr := tid.String()
			creds.TenantID = &idStr
			return creds, nil
		}

		t, err := tenants.GetBySlug(context.Background(), *creds.TenantID)
		if err != nil {
			return nil, err
		}
		idStr := t.ID.String()
		creds.TenantID = &idStr
		return creds, nil
	}
}
