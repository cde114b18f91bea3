// Command mcp-codesearch serves the code-search MCP server over streaming
// HTTP. All configuration comes from the environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/codegrep/mcp-codesearch-go/auth"
	"github.com/codegrep/mcp-codesearch-go/githubclient"
	"github.com/codegrep/mcp-codesearch-go/githubsearch"
	"github.com/codegrep/mcp-codesearch-go/internal/logctx"
	"github.com/codegrep/mcp-codesearch-go/mcp"
	"github.com/codegrep/mcp-codesearch-go/mcpservice"
	"github.com/codegrep/mcp-codesearch-go/sessions"
	"github.com/codegrep/mcp-codesearch-go/streaminghttp"
)

const serverVersion = "0.1.0"

// Config is populated from the environment via envdecode.
type Config struct {
	// ListenAddr like ":8080". ENV: LISTEN_ADDR
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`
	// PublicEndpoint is the externally visible MCP endpoint URL. ENV: MCP_PUBLIC_ENDPOINT
	PublicEndpoint string `env:"MCP_PUBLIC_ENDPOINT,default=http://localhost:8080/mcp"`

	// GitHubToken authenticates upstream search calls. Unset runs unauthenticated
	// at the lower anonymous rate limit. ENV: GITHUB_TOKEN
	GitHubToken string `env:"GITHUB_TOKEN,default="`
	// GitHubAPIURL overrides the upstream API base, e.g. for GHES. ENV: GITHUB_API_URL
	GitHubAPIURL string `env:"GITHUB_API_URL,default="`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	// OIDC settings enable bearer-token auth on the endpoint when all three
	// are set; otherwise the endpoint runs open.
	OIDCIssuer   string `env:"OIDC_ISSUER,default="`
	OIDCAudience string `env:"OIDC_AUDIENCE,default="`
	OIDCJWKSURL  string `env:"OIDC_JWKS_URL,default="`
	// AuthRealm names the realm in Bearer challenges. ENV: AUTH_REALM
	AuthRealm string `env:"AUTH_REALM,default=mcp-codesearch"`

	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE,default=10s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ghOpts := []githubclient.Option{
		githubclient.WithLogger(log),
		githubclient.WithUserAgent("mcp-codesearch/" + serverVersion),
	}
	if cfg.GitHubAPIURL != "" {
		ghOpts = append(ghOpts, githubclient.WithBaseURL(cfg.GitHubAPIURL))
	}
	gh := githubclient.New(cfg.GitHubToken, ghOpts...)

	tools := mcpservice.NewToolsContainer(githubsearch.NewSearchCodeTool(gh))
	registry := sessions.NewRegistry()

	handlerOpts := []streaminghttp.Option{
		streaminghttp.WithLogger(log),
		streaminghttp.WithServerInfo(mcp.ImplementationInfo{Name: "mcp-codesearch", Version: serverVersion}),
		streaminghttp.WithInstructions("Use the search-code tool to search code on the configured source-control platform. Queries accept qualifiers like repo:, language: and path:."),
	}
	if cfg.OIDCIssuer != "" || cfg.OIDCJWKSURL != "" {
		authn, err := auth.NewJWT(ctx, auth.JWTConfig{
			Issuer:            cfg.OIDCIssuer,
			ExpectedAudiences: []string{cfg.OIDCAudience},
			JWKSURL:           cfg.OIDCJWKSURL,
		})
		if err != nil {
			return fmt.Errorf("failed to configure authenticator: %w", err)
		}
		handlerOpts = append(handlerOpts,
			streaminghttp.WithAuthenticator(authn),
			streaminghttp.WithRealm(cfg.AuthRealm))
	}

	h, err := streaminghttp.New(cfg.PublicEndpoint, registry, tools, handlerOpts...)
	if err != nil {
		return fmt.Errorf("failed to construct handler: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server.start",
			slog.String("addr", cfg.ListenAddr),
			slog.String("endpoint", cfg.PublicEndpoint),
			slog.Bool("auth_enabled", cfg.OIDCIssuer != ""),
			slog.Bool("github_token_set", cfg.GitHubToken != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildLogger(cfg Config) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	ho := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		inner = slog.NewJSONHandler(os.Stderr, ho)
	case "text":
		inner = slog.NewTextHandler(os.Stderr, ho)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return slog.New(logctx.Handler{Handler: inner}), nil
}
