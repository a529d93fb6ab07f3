package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/williamjonathanliem/elysian-cms/internal/healthcheck"
	"github.com/williamjonathanliem/elysian-cms/internal/httpapi"
	"github.com/williamjonathanliem/elysian-cms/internal/oplog"
	"github.com/williamjonathanliem/elysian-cms/internal/session"
	"github.com/williamjonathanliem/elysian-cms/internal/store/gormstore"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	flagDatabaseURL    = "database-url"
	flagListenAddr     = "listen-addr"
	flagHealthAddr     = "health-addr"
	flagAllowedOrigins = "allowed-origins"
	flagRequestTimeout = "request-timeout"
	flagJWTSecret      = "jwt-secret"
	flagCookieName     = "cookie-name"
	flagCookieSecure   = "cookie-secure"
	flagSessionTTL     = "session-ttl"
	flagRedisURL       = "redis-url"
	flagTimezone       = "timezone"
	flagEnvFile        = "env-file"
	flagUsername       = "username"
	flagPassword       = "password"
	flagRole           = "role"
	envPrefix          = "VILLA"

	defaultDatabaseURL    = "sqlite://villa.db"
	defaultListenAddr     = ":4000"
	defaultHealthAddr     = ":4001"
	defaultAllowedOrigins = "http://localhost:5173"
	defaultCookieName     = "token"
	defaultTimezone       = "UTC"
	defaultEnvFile        = ".env"
	sqlitePragmas         = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
)

type runtimeConfig struct {
	DatabaseURL    string
	ListenAddr     string
	HealthAddr     string
	AllowedOrigins []string
	RequestTimeout time.Duration
	JWTSecret      string
	CookieName     string
	CookieSecure   bool
	SessionTTL     time.Duration
	RedisURL       string
	Timezone       string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "villad: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "villad",
		Short:         "Villa operations HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.PersistentFlags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL URL or SQLite path (sqlite://file.db)")
	cmd.PersistentFlags().String(flagTimezone, defaultTimezone, "IANA time zone of the property")
	cmd.PersistentFlags().String(flagEnvFile, defaultEnvFile, "optional dotenv file loaded before reading the environment")

	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagHealthAddr, defaultHealthAddr, "gRPC health listen address (empty disables)")
	cmd.Flags().String(flagAllowedOrigins, defaultAllowedOrigins, "comma-separated list of allowed CORS origins")
	cmd.Flags().Duration(flagRequestTimeout, 10*time.Second, "per-request timeout")
	cmd.Flags().String(flagJWTSecret, "", "HS256 signing key for session cookies (required)")
	cmd.Flags().String(flagCookieName, defaultCookieName, "session cookie name")
	cmd.Flags().Bool(flagCookieSecure, false, "mark the session cookie Secure")
	cmd.Flags().Duration(flagSessionTTL, 24*time.Hour, "session lifetime")
	cmd.Flags().String(flagRedisURL, "", "redis URL for logout revocation (optional)")

	cmd.AddCommand(newCreateUserCommand(cfg))
	return cmd
}

func newCreateUserCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString(flagUsername)
			password, _ := cmd.Flags().GetString(flagPassword)
			role, _ := cmd.Flags().GetString(flagRole)
			user, err := createUser(cmd.Context(), cfg, villa.UserInput{Username: username, Password: password, Role: role})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s)\n", user.ID.Int64(), user.Username, user.Role)
			return nil
		},
	}
	cmd.Flags().String(flagUsername, "", "login name (required)")
	cmd.Flags().String(flagPassword, "", "password (required)")
	cmd.Flags().String(flagRole, villa.RoleOwner.String(), "admin, owner, frontdesk_<name> or housekeeper_<name>")
	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	envFile, _ := cmd.Flags().GetString(flagEnvFile)
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv(flagDatabaseURL, envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return err
	}
	if err := v.BindEnv(flagJWTSecret, envPrefix+"_JWT_SECRET", "JWT_SECRET"); err != nil {
		return err
	}

	for _, flagName := range []string{flagDatabaseURL, flagTimezone, flagListenAddr, flagHealthAddr, flagAllowedOrigins, flagRequestTimeout, flagJWTSecret, flagCookieName, flagCookieSecure, flagSessionTTL, flagRedisURL} {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(flagName, flag); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.Timezone = strings.TrimSpace(v.GetString(flagTimezone))
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}
	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.HealthAddr = strings.TrimSpace(v.GetString(flagHealthAddr))
	cfg.AllowedOrigins = httpapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.RequestTimeout = v.GetDuration(flagRequestTimeout)
	cfg.JWTSecret = v.GetString(flagJWTSecret)
	cfg.CookieName = strings.TrimSpace(v.GetString(flagCookieName))
	cfg.CookieSecure = v.GetBool(flagCookieSecure)
	cfg.SessionTTL = v.GetDuration(flagSessionTTL)
	cfg.RedisURL = strings.TrimSpace(v.GetString(flagRedisURL))

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return fmt.Errorf("%s is required", flagJWTSecret)
	}

	store, cleanup, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	service, err := newService(store, cfg, logger)
	if err != nil {
		return err
	}

	var revoker session.Revoker
	if cfg.RedisURL != "" {
		options, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(options)
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		revoker = session.NewRedisRevoker(client)
	}
	sessions, err := session.NewManager(session.Config{
		SigningKey:   cfg.JWTSecret,
		CookieName:   cfg.CookieName,
		TTL:          cfg.SessionTTL,
		SecureCookie: cfg.CookieSecure,
	}, time.Now, revoker)
	if err != nil {
		return fmt.Errorf("session init: %w", err)
	}

	checker, err := healthcheck.New(store, logger.Named("health"))
	if err != nil {
		return fmt.Errorf("health init: %w", err)
	}

	httpCfg := httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}
	deps := httpapi.Dependencies{
		Service:  service,
		Sessions: sessions,
		Health:   checker.GinHandler(),
		Logger:   logger,
	}

	var healthListener net.Listener
	if cfg.HealthAddr != "" {
		healthListener, err = net.Listen("tcp", cfg.HealthAddr)
		if err != nil {
			return fmt.Errorf("health listen: %w", err)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return checker.Run(groupCtx) })
	group.Go(func() error { return httpapi.Run(groupCtx, httpCfg, deps) })
	if healthListener != nil {
		group.Go(func() error { return checker.Serve(groupCtx, healthListener) })
	}
	err = group.Wait()
	logger.Info("shutdown complete")
	return err
}

func createUser(ctx context.Context, cfg *runtimeConfig, input villa.UserInput) (villa.User, error) {
	store, cleanup, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return villa.User{}, err
	}
	defer func() { _ = cleanup() }()
	service, err := newService(store, cfg, zap.NewNop())
	if err != nil {
		return villa.User{}, err
	}
	return service.CreateUser(ctx, input)
}

func newService(store *gormstore.Store, cfg *runtimeConfig, logger *zap.Logger) (*villa.Service, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	service, err := villa.NewService(store, time.Now,
		villa.WithOperationLogger(oplog.New(logger)),
		villa.WithLocation(location),
	)
	if err != nil {
		return nil, fmt.Errorf("villa service init: %w", err)
	}
	return service, nil
}

func openStore(ctx context.Context, dsn string) (*gormstore.Store, func() error, error) {
	gormDB, cleanup, _, err := openDatabase(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("database open: %w", err)
	}
	if err := gormstore.Migrate(ctx, gormDB); err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return gormstore.New(gormDB), cleanup, nil
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqliteDSN(sqlitePath)), cfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	if driver == "sqlite" {
		// Serializes writers; the room lock is a no-op on SQLite.
		sqlDB.SetMaxOpenConns(1)
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Host + u.Path
		if path == "" || path == "/" {
			path = "villa.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	if strings.Contains(dsn, "://") {
		scheme, _, _ := strings.Cut(dsn, "://")
		return scheme, "", nil
	}
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if filepath.IsAbs(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?" + sqlitePragmas
}
