// Package main is the entry point for the ghcms server.
//
// ghcms serves website content stored as JSON documents in a GitHub
// repository, edited through a small authenticated API. Configuration is
// read from CLI flags, a .env file in the data directory (GitHub
// credentials, JWT secret) and config.yaml (tunables).
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/ghcms/internal/ghstore"
	"github.com/maruel/ghcms/internal/server"
	"github.com/maruel/ghcms/internal/server/ipgeo"
	"github.com/maruel/ghcms/internal/server/session"
	"github.com/maruel/ghcms/internal/storage"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "ghcms: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080)")
	dataDir := flag.String("data-dir", "./data", "Data directory (.env, config.yaml)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	staticDir := flag.String("static-dir", "", "Directory of static site files to serve at / (optional)")
	geoDB := flag.String("geo-db", "", "Path to MaxMind MMDB file for IP geolocation (optional)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Drop localhost IPs (not useful in logs).
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case float64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}

	// Flags win over .env for the settings both can carry.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["http"] {
		if v := env["HTTP"]; v != "" {
			*httpAddr = v
		}
	}
	if !set["static-dir"] {
		if v := env["STATIC_DIR"]; v != "" {
			*staticDir = v
		}
	}
	if !set["geo-db"] {
		if v := env["GEO_DB"]; v != "" {
			*geoDB = v
		}
	}

	cfg, err := storage.LoadConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config.yaml: %w", err)
	}

	repo := env["GITHUB_REPO"]
	token := env["GITHUB_TOKEN"]
	branch := env["GITHUB_BRANCH"]
	client := ghstore.NewClient(repo, token, branch)
	if !client.Configured() {
		// Reads degrade to empty documents and writes fail cleanly; the
		// server still runs so the operator can diagnose over /api/health.
		slog.WarnContext(ctx, "GitHub store not configured, set GITHUB_REPO and GITHUB_TOKEN in .env", "dataDir", *dataDir)
	} else {
		slog.InfoContext(ctx, "GitHub store configured", "repo", repo, "branch", client.Branch())
	}

	jwtSecret := env["JWT_SECRET"]
	if jwtSecret == "" {
		// Sessions are in-process and die with it anyway, so a per-run secret
		// only forces a re-login after restarts.
		jwtSecret = randomSecret()
		slog.WarnContext(ctx, "JWT_SECRET not set, sessions will not survive restarts")
	}

	if err := watchDotEnv(ctx, *dataDir, client); err != nil {
		return fmt.Errorf("failed to watch .env: %w", err)
	}

	var geo *ipgeo.Resolver
	if *geoDB != "" {
		geo, err = ipgeo.Open(*geoDB)
		if err != nil {
			return fmt.Errorf("failed to open geo database: %w", err)
		}
		defer func() { _ = geo.Close() }()
		slog.InfoContext(ctx, "IP geolocation enabled", "db", *geoDB)
	}

	svc := &server.Services{
		Content:   storage.NewContentService(client),
		Media:     storage.NewMediaService(client, cfg),
		Analytics: storage.NewAnalyticsService(client),
		Profiles:  storage.NewProfileService(client),
		Store:     client,
		Sessions:  session.NewRegistry(),
	}
	buildVersion, _, _, _ := getBuildInfo()
	srvCfg := &server.Config{
		Version:   buildVersion,
		JWTSecret: jwtSecret,
		Tunables:  cfg,
		Geo:       geo,
		StaticDir: *staticDir,
	}

	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(svc, srvCfg),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("ghcms %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func loadDotEnv(dataDir string) (map[string]string, error) {
	env := make(map[string]string)
	path := filepath.Join(dataDir, ".env")
	envContent, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir flag, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}

	for line := range strings.SplitSeq(string(envContent), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])

		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", line)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", line)
		}

		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}

		env[key] = val
	}
	return env, nil
}

// watchDotEnv watches the .env file and applies a rotated GitHub token
// without a restart. Other settings still need one.
func watchDotEnv(ctx context.Context, dataDir string, client *ghstore.Client) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory; editors typically replace .env rather than write
	// it in place, which would drop a watch on the file itself.
	if err := w.Add(dataDir); err != nil {
		_ = w.Close()
		return err
	}
	envPath := filepath.Join(dataDir, ".env")
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name != envPath || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				env, err := loadDotEnv(dataDir)
				if err != nil {
					slog.WarnContext(ctx, "Failed to reload .env", "err", err)
					continue
				}
				if token := env["GITHUB_TOKEN"]; token != "" {
					client.SetToken(token)
					slog.InfoContext(ctx, "Reloaded GitHub token from .env")
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching .env", "err", err)
			}
		}
	}()
	return nil
}
