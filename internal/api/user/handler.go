package user

import (
	"context"

	"github.com/cptrack/cptrack/internal/auth"
	"github.com/cptrack/cptrack/internal/cache"
	"github.com/cptrack/cptrack/internal/config"
	"github.com/cptrack/cptrack/internal/platform/leetcode"
	"github.com/cptrack/cptrack/internal/tracker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the user API handlers.
type Handler struct {
	cfg         *config.Config
	db          *gorm.DB
	store       cache.Store
	syncer      *tracker.Syncer
	service     *tracker.Service
	leetcode    *leetcode.Client
	oidcHandler *auth.OIDCHandler
}

// NewHandler creates a new user handler with its dependencies.
func NewHandler(
	cfg *config.Config,
	db *gorm.DB,
	store cache.Store,
	syncer *tracker.Syncer,
	service *tracker.Service,
	lc *leetcode.Client,
) *Handler {
	h := &Handler{
		cfg:      cfg,
		db:       db,
		store:    store,
		syncer:   syncer,
		service:  service,
		leetcode: lc,
	}

	if cfg.Auth.OIDC.Enabled {
		oidcHandler, err := auth.NewOIDCHandler(context.Background(), cfg, db)
		if err != nil {
			zap.S().Errorf("OIDC login disabled, provider discovery failed: %v", err)
		} else {
			h.oidcHandler = oidcHandler
		}
	}
	return h
}
