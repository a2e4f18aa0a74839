package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/types"
)

type scriptEnv struct {
	cfg    *config.Configuration
	logger *logger.Logger
	db     *postgres.DB
	ctx    context.Context
}

// newScriptEnv connects to postgres and scopes the context to TENANT_ID, or the default tenant
func newScriptEnv() (*scriptEnv, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	tenantID := os.Getenv("TENANT_ID")
	if tenantID == "" {
		tenantID = types.DefaultTenantID
	}

	ctx := types.SetTenantID(context.Background(), tenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)

	return &scriptEnv{cfg: cfg, logger: log, db: db, ctx: ctx}, nil
}

func isDryRun() bool {
	return os.Getenv("DRY_RUN") == "true"
}
