package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quillnotes/quill/internal/auth"
	"github.com/quillnotes/quill/internal/config"
	"github.com/quillnotes/quill/internal/handler"
	"github.com/quillnotes/quill/internal/lockout"
	"github.com/quillnotes/quill/internal/ratelimit"
	"github.com/quillnotes/quill/internal/server"
	"github.com/quillnotes/quill/internal/telemetry"
)

const banner = `
  ___  _   _ ___ _    _
 / _ \| | | |_ _| |  | |
| (_) | |_| || || |__| |__
 \__\_\\___/|___|____|____|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Quill auth server",
		Long:  "Start the HTTP server that handles logins, sessions, and API key authentication for Quill.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	// 1. Load YAML config (optional; defaults apply without one)
	cfg := config.DefaultYAMLConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.LoadYAMLConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	// 2. Set up logger
	logLevel := slog.LevelInfo
	if dev || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	var logHandler slog.Handler
	if cfg.Logging.Format == "json" {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(logHandler)

	// 3. Open the store (SQLite)
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "path", resolveDataDir())

	// 4. Auth service
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = viper.GetString("auth.jwt_secret")
	}
	if jwtSecret == "" {
		jwtSecret = "quill-dev-secret-change-me"
		logger.Warn("using development JWT secret - set auth.jwt_secret for production")
	}
	authSvc := auth.NewService(st, jwtSecret)

	// 5. Abuse trackers
	limiter := ratelimit.New()
	tracker := lockout.New(lockout.Config{
		MaxAttempts:     cfg.Security.MaxLoginAttempts,
		LockoutDuration: config.Duration(cfg.Security.LockoutDuration, 15*time.Minute),
		ResetWindow:     config.Duration(cfg.Security.LockoutResetWindow, time.Hour),
	})

	// 6. Check for first-run (no user exists)
	hasUser, err := st.HasAnyUser(context.Background())
	if err != nil {
		logger.Warn("failed to check for users", "error", err)
	}
	if !hasUser {
		logger.Warn("no user account found - run: quill user create")
	}

	// 7. Telemetry heartbeat
	tele := telemetry.New(context.Background(), st, func() telemetry.Properties {
		ctx := context.Background()
		users, _ := st.CountUsers(ctx)
		keys, _ := st.CountCredentials(ctx)
		return telemetry.Properties{
			Version:   versionString(),
			GoVersion: runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Users:     users,
			APIKeys:   keys,
		}
	})
	tele.Start()
	defer tele.Shutdown()

	// 8. Build and start HTTP server
	srvCfg := server.Config{
		Host:              host,
		Port:              port,
		ShutdownTimeout:   config.Duration(cfg.Server.ShutdownTimeout, 30*time.Second),
		CORSOrigins:       cfg.Server.CORS.Origins,
		APIKeyHeader:      cfg.Auth.APIKeyHeader,
		RequestsPerMinute: cfg.Security.RequestsPerMinute,
		Handler: handler.Options{
			SessionTTL:      config.Duration(cfg.Auth.SessionTTL, 24*time.Hour),
			LoginRateLimit:  cfg.Security.LoginRateLimit,
			LoginRateWindow: config.Duration(cfg.Security.LoginRateWindow, time.Minute),
			KeyCreateLimit:  cfg.Security.KeyCreateLimit,
			KeyCreateWindow: config.Duration(cfg.Security.KeyCreateWindow, time.Hour),
		},
	}

	srv := server.New(srvCfg, st, authSvc, limiter, tracker, logger)

	fmt.Printf("→ Quill auth %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}
