package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Listen   string   `yaml:"listen"`
	Logger   Logger   `yaml:"logger"`
	Storage  Storage  `yaml:"storage"`
	Redis    Redis    `yaml:"redis"`
	Upstream Upstream `yaml:"upstream"`
	Auth     Auth     `yaml:"auth"`
	CORS     CORS     `yaml:"cors"`
}

type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Storage struct {
	Database string `yaml:"database"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Upstream configures the two platform API clients. Empty base URLs fall
// back to the public endpoints.
type Upstream struct {
	LeetCodeBaseURL   string `yaml:"leetcode_base_url"`
	CodeforcesBaseURL string `yaml:"codeforces_base_url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

type Auth struct {
	JWT   JWT   `yaml:"jwt"`
	OIDC  OIDC  `yaml:"oidc"`
	Local Local `yaml:"local"`
}

// Local defines configuration for username/password authentication.
type Local struct {
	Enabled bool `yaml:"enabled"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

// OIDC defines configuration for single sign-on through any OpenID Connect
// provider (Google, GitLab, Keycloak, ...).
type OIDC struct {
	Enabled             bool   `yaml:"enabled"`
	IssuerURL           string `yaml:"issuer_url"`
	ClientID            string `yaml:"client_id"`
	ClientSecret        string `yaml:"client_secret"`
	RedirectURI         string `yaml:"redirect_uri"`
	FrontendCallbackURL string `yaml:"frontend_callback_url"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Upstream.TimeoutSeconds <= 0 {
		cfg.Upstream.TimeoutSeconds = 15
	}

	return &cfg, nil
}
