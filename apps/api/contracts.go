package main

import (
	"embed"
	"fmt"
	"net/http"
	"path"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	platformmiddleware "github.com/zenGate-Global/studio-scheduler/platform/go/middleware"
)

//go:embed contracts/*.yaml
var contractFiles embed.FS

// loadContract parses the embedded OpenAPI document for name (e.g. "bookings").
func loadContract(name string) (*openapi3.T, error) {
	data, err := contractFiles.ReadFile(path.Join("contracts", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read contract %q: %w", name, err)
	}

	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse contract %q: %w", name, err)
	}
	return spec, nil
}

// mustNewSpecValidator builds the request validator for one domain group.
func mustNewSpecValidator(logger *zap.Logger, name string) func(http.Handler) http.Handler {
	spec, err := loadContract(name)
	if err != nil {
		logger.Fatal("load openapi contract", zap.String("contract", name), zap.Error(err))
	}
	logSecuritySchemes(logger, name, spec)

	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.ValidateAuthenticationViaSwagger,
		},
	})
}

func logSecuritySchemes(logger *zap.Logger, name string, spec *openapi3.T) {
	if spec.Components.SecuritySchemes == nil {
		spec.Components.SecuritySchemes = openapi3.SecuritySchemes{}
	}

	if _, ok := spec.Components.SecuritySchemes["bearerAuth"]; !ok {
		spec.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:   "http",
				Scheme: "bearer",
			},
		}
		logger.Warn("injecting default bearerAuth security scheme", zap.String("contract", name))
	}

	names := make([]string, 0, len(spec.Components.SecuritySchemes))
	for n := range spec.Components.SecuritySchemes {
		names = append(names, n)
	}
	logger.Debug("loaded security schemes", zap.String("contract", name), zap.Strings("names", names))
}
