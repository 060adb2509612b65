// Command habbo-verify is the Discord bot that verifies members own a Habbo
// account. It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres for outcome history.
//   - Connects to the Discord gateway and routes prefix commands to the
//     verification service.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /metrics and admin
//     session endpoints.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/habbo-verify/banner"
	"github.com/onnwee/habbo-verify/challenge"
	"github.com/onnwee/habbo-verify/config"
	"github.com/onnwee/habbo-verify/db"
	"github.com/onnwee/habbo-verify/discord"
	"github.com/onnwee/habbo-verify/habboapi"
	"github.com/onnwee/habbo-verify/messages"
	"github.com/onnwee/habbo-verify/server"
	"github.com/onnwee/habbo-verify/telemetry"
	"github.com/onnwee/habbo-verify/verify"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// verifiedRoleColor is the green given to a newly created verified role.
const verifiedRoleColor = 0x2ecc71

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateBotReady(); err != nil {
		slog.Error("bot not configured", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := telemetry.InitTracing("habbo-verify", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Outcome history is optional
	var (
		database *sql.DB
		recorder *db.Recorder
	)
	if cfg.DBDsn != "" {
		database, err = db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		recorder = db.NewRecorder(database)
	} else {
		slog.Info("DB_DSN not set; outcome history disabled")
	}

	msgs, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		slog.Error("messages load failed", slog.Any("err", err))
		os.Exit(1)
	}

	habbo := &habboapi.Client{
		Server: cfg.HabboServer,
		HTTPClient: &http.Client{
			Timeout:   habboapi.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	renderer := banner.New(banner.Options{
		Text:            cfg.BannerText,
		Background:      cfg.BannerBackground,
		BackgroundImage: cfg.BannerBackgroundImage,
		FontPath:        cfg.BannerFont,
		FontSize:        cfg.BannerFontSize,
		MainColor:       cfg.BannerMainColor,
		SecondaryColor:  cfg.BannerSecondaryColor,
	}, habbo)

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		slog.Error("discord session init failed", slog.Any("err", err))
		os.Exit(1)
	}

	deps := verify.Deps{
		Chat:     discord.NewClient(session),
		Checker:  habbo,
		Codes:    challenge.Generator{Prefix: cfg.CodePrefix, Length: cfg.CodeLength},
		Messages: msgs,
		Banner:   renderer,
	}
	// keep the interfaces nil rather than holding a nil pointer
	var history server.History
	if recorder != nil {
		deps.Recorder = recorder
		history = recorder
	}
	svc := verify.New(ctx, verify.Settings{
		Prefix:         cfg.CommandPrefix,
		VerifyCommand:  cfg.VerifyCommand,
		CancelCommand:  cfg.CancelCommand,
		Expiration:     cfg.Expiration,
		Interval:       cfg.Interval,
		RoleName:       cfg.VerifiedRole,
		RoleColor:      verifiedRoleColor,
		ChangeNickname: cfg.ChangeNickname,
	}, deps)

	router := discord.NewRouter(cfg.CommandPrefix)
	router.RegisterVerification(discord.CommandNames{
		Verify:  cfg.VerifyCommand,
		Cancel:  cfg.CancelCommand,
		Restart: cfg.RestartCommand,
	}, svc)
	bot := discord.NewBot(session, router, msgs)

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	slog.Info("starting bot",
		slog.String("prefix", cfg.CommandPrefix),
		slog.String("habbo_server", cfg.HabboServer),
		slog.Duration("expiration", cfg.Expiration),
		slog.Duration("interval", cfg.Interval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error {
		return server.Start(gctx, cfg.HTTPAddr, server.Deps{
			Sessions: svc,
			Gateway:  bot,
			DB:       database,
			History:  history,
		})
	})
	runErr := g.Wait()

	slog.Info("shutting down", slog.Int("active_sessions", svc.Store().Len()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Warn("verification tasks did not stop in time", slog.Any("err", err))
	}
	if runErr != nil {
		slog.Error("exited with error", slog.Any("err", runErr))
		stop()
		os.Exit(1)
	}
}
