package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cptrack/cptrack/internal/config"
	"github.com/cptrack/cptrack/internal/database"
	"github.com/cptrack/cptrack/internal/database/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// OIDCHandler implements single sign-on against any OpenID Connect provider.
type OIDCHandler struct {
	cfg      *config.Config
	db       *gorm.DB
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   *oauth2.Config
}

func NewOIDCHandler(ctx context.Context, cfg *config.Config, db *gorm.DB) (*OIDCHandler, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Auth.OIDC.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC provider: %w", err)
	}

	return &OIDCHandler{
		cfg:      cfg,
		db:       db,
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.Auth.OIDC.ClientID}),
		oauth2: &oauth2.Config{
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			RedirectURL:  cfg.Auth.OIDC.RedirectURI,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func (h *OIDCHandler) Login(c *gin.Context) {
	url := h.oauth2.AuthCodeURL("state", oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *OIDCHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	token, err := h.oauth2.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to exchange token: " + err.Error()})
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No id_token in token response"})
		return
	}

	idToken, err := h.verifier.Verify(c.Request.Context(), rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to verify ID token: " + err.Error()})
		return
	}

	var claims struct {
		Subject           string `json:"sub"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
		Picture           string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode ID token claims: " + err.Error()})
		return
	}

	user, err := database.GetUserByOIDCSubject(h.db, claims.Subject)
	if err == gorm.ErrRecordNotFound {
		username := claims.PreferredUsername
		if username == "" {
			username = claims.Email
		}
		subject := claims.Subject
		newUser := models.User{
			ID:          uuid.NewString(),
			OIDCSubject: &subject,
			Username:    username,
			Nickname:    claims.Name,
			AvatarURL:   claims.Picture,
		}
		if err := database.CreateUser(h.db, &newUser); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user: " + err.Error()})
			return
		}
		user = &newUser
		zap.S().Infof("new user registered via OIDC: %s", user.Username)
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + err.Error()})
		return
	}

	jwtToken, err := GenerateJWT(user.ID, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate JWT: " + err.Error()})
		return
	}

	if h.cfg.Auth.OIDC.FrontendCallbackURL != "" {
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.Auth.OIDC.FrontendCallbackURL+"?token="+jwtToken)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": jwtToken})
}
