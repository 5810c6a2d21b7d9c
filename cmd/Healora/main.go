// Command Healora runs the Healora mental-health support API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/Healora/internal/api"
	"github.com/BTreeMap/Healora/internal/archive"
	"github.com/BTreeMap/Healora/internal/catalog"
	"github.com/BTreeMap/Healora/internal/compose"
	"github.com/BTreeMap/Healora/internal/emergency"
	"github.com/BTreeMap/Healora/internal/genai"
	"github.com/BTreeMap/Healora/internal/journal"
	"github.com/BTreeMap/Healora/internal/langdetect"
	"github.com/BTreeMap/Healora/internal/lockfile"
	"github.com/BTreeMap/Healora/internal/notify"
	"github.com/BTreeMap/Healora/internal/scheduler"
	"github.com/BTreeMap/Healora/internal/scheduling"
	"github.com/BTreeMap/Healora/internal/session"
	"github.com/BTreeMap/Healora/internal/store"
	"github.com/BTreeMap/Healora/internal/util"
	"github.com/BTreeMap/Healora/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Healora state data
	DefaultStateDir = "/var/lib/healora"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "healora.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow device database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// DefaultFromAddress is used when NOTIFY_FROM_ADDRESS is unset
	DefaultFromAddress = "noreply@healora.local"
	// DefaultSessionTTL is how long an idle session is kept
	DefaultSessionTTL = 2 * time.Hour
)

func main() {
	config := loadEnvironmentConfig()
	flags, err := parseFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		os.Exit(2)
	}
	initializeLogger(flags.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("Healora failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Healora exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir         string
	DBDriver         string
	DatabaseURL      string
	APIAddr          string
	LogLevel         string
	GenAIProvider    string
	GenAIModel       string
	GenAIDebug       bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	FromAddress      string
	WhatsAppDSN      string
	DiscordToken     string
	EmergencyContact string
	SessionTTL       time.Duration
	ReapCron         string
	AdminAPI         bool
}

// Flags holds resolved command line values
type Flags struct {
	stateDir         string
	dbDriver         string
	dbDSN            string
	apiAddr          string
	logLevel         string
	genaiProvider    string
	genaiModel       string
	genaiDebug       bool
	smtpHost         string
	smtpPort         int
	smtpUsername     string
	smtpPassword     string
	fromAddress      string
	whatsapp         bool
	whatsappDSN      string
	qrOutput         string
	numeric          bool
	discordToken     string
	emergencyContact string
	sessionTTL       time.Duration
	reapCron         string
	dryRun           bool
	adminAPI         bool
}

// initializeLogger sets up structured logging at the requested level
func initializeLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	port, err := strconv.Atoi(util.GetEnv("SMTP_PORT", strconv.Itoa(notify.DefaultSMTPPort)))
	if err != nil {
		port = notify.DefaultSMTPPort
	}
	config := Config{
		StateDir:         util.GetEnv("HEALORA_STATE_DIR", DefaultStateDir),
		DBDriver:         os.Getenv("HEALORA_DB_DRIVER"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		APIAddr:          util.GetEnv("API_ADDR", api.DefaultAddr),
		LogLevel:         util.GetEnv("HEALORA_LOG_LEVEL", "debug"),
		GenAIProvider:    util.GetEnv("GENAI_PROVIDER", string(genai.ProviderOpenAI)),
		GenAIModel:       os.Getenv("GENAI_MODEL"),
		GenAIDebug:       util.ParseBoolEnv("GENAI_DEBUG", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         port,
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		FromAddress:      util.GetEnv("NOTIFY_FROM_ADDRESS", DefaultFromAddress),
		WhatsAppDSN:      os.Getenv("WHATSAPP_DB_DSN"),
		DiscordToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		EmergencyContact: os.Getenv("EMERGENCY_CONTACT_ADDRESS"),
		SessionTTL:       util.ParseDurationEnv("SESSION_TTL", DefaultSessionTTL),
		ReapCron:         util.GetEnv("SESSION_REAP_CRON", scheduler.DefaultReapSpec),
		AdminAPI:         util.ParseBoolEnv("HEALORA_ADMIN_API", false),
	}

	slog.Debug("environment variables loaded",
		"HEALORA_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"GENAI_PROVIDER", config.GenAIProvider,
		"SMTP_HOST", config.SMTPHost,
		"DISCORD_BOT_TOKEN_SET", config.DiscordToken != "",
		"SESSION_TTL", config.SessionTTL)
	return config
}

// parseFlags parses command line arguments with environment defaults
func parseFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	var f Flags
	fs.StringVar(&f.stateDir, "state-dir", config.StateDir, "state directory for Healora data (overrides $HEALORA_STATE_DIR)")
	fs.StringVar(&f.dbDriver, "db-driver", config.DBDriver, "database driver: sqlite3, sqlite or postgres (overrides $HEALORA_DB_DRIVER)")
	fs.StringVar(&f.dbDSN, "db-dsn", config.DatabaseURL, "application database DSN (overrides $DATABASE_URL)")
	fs.StringVar(&f.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&f.logLevel, "log-level", config.LogLevel, "log level: debug, info, warn or error (overrides $HEALORA_LOG_LEVEL)")
	fs.StringVar(&f.genaiProvider, "genai-provider", config.GenAIProvider, "reply generator: openai, gemini or anthropic (overrides $GENAI_PROVIDER)")
	fs.StringVar(&f.genaiModel, "genai-model", config.GenAIModel, "model name for the reply generator (overrides $GENAI_MODEL)")
	fs.BoolVar(&f.genaiDebug, "genai-debug", config.GenAIDebug, "write every generation call to the state directory (overrides $GENAI_DEBUG)")
	fs.StringVar(&f.smtpHost, "smtp-host", config.SMTPHost, "SMTP relay host (overrides $SMTP_HOST)")
	fs.IntVar(&f.smtpPort, "smtp-port", config.SMTPPort, "SMTP relay port (overrides $SMTP_PORT)")
	fs.StringVar(&f.fromAddress, "from-address", config.FromAddress, "sender address for notifications (overrides $NOTIFY_FROM_ADDRESS)")
	fs.BoolVar(&f.whatsapp, "whatsapp", false, "deliver whatsapp: recipients through a linked WhatsApp device")
	fs.StringVar(&f.whatsappDSN, "whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow device database DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&f.qrOutput, "qr-output", "", "path to write the WhatsApp login QR code")
	fs.BoolVar(&f.numeric, "numeric-code", false, "print the raw WhatsApp pairing code instead of a QR code")
	fs.StringVar(&f.emergencyContact, "emergency-contact", config.EmergencyContact, "recipient of emergency meeting alerts (overrides $EMERGENCY_CONTACT_ADDRESS)")
	fs.DurationVar(&f.sessionTTL, "session-ttl", config.SessionTTL, "idle time before a session is discarded (overrides $SESSION_TTL)")
	fs.StringVar(&f.reapCron, "reap-cron", config.ReapCron, "cron schedule of the idle session reaper (overrides $SESSION_REAP_CRON)")
	fs.BoolVar(&f.dryRun, "notify-dry-run", false, "log notifications instead of sending them")
	fs.BoolVar(&f.adminAPI, "admin-api", config.AdminAPI, "expose GET /admin/failed-notifications across all sessions (overrides $HEALORA_ADMIN_API)")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	f.smtpUsername = config.SMTPUsername
	f.smtpPassword = config.SMTPPassword
	f.discordToken = config.DiscordToken

	if f.dbDSN == "" {
		f.dbDSN = filepath.Join(f.stateDir, DefaultDBFileName)
	}
	if f.whatsappDSN == "" {
		f.whatsappDSN = "file:" + filepath.Join(f.stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}
	return f, nil
}

// run wires the modules together and serves until ctx is cancelled
func run(ctx context.Context, flags Flags) error {
	lock, err := lockfile.Acquire(flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := store.Open(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	gen, err := genai.NewGenerator(ctx, genai.Provider(flags.genaiProvider), buildGenAIOptions(flags)...)
	if err != nil {
		slog.Warn("GenAI generator unavailable, replies will use the fallback text", "provider", flags.genaiProvider, "error", err)
	}

	dispatcher, closeNotifier, err := buildNotifier(ctx, flags)
	if err != nil {
		return err
	}
	defer closeNotifier()
	checkEmergencyContact(flags)

	sessions := session.NewManager()
	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.ScheduleReaper(flags.reapCron, sessions, flags.sessionTTL); err != nil {
		return fmt.Errorf("failed to schedule session reaper: %w", err)
	}

	cat := catalog.New()
	srv := api.NewServer(api.Services{
		Sessions:   sessions,
		Catalog:    cat,
		Composer:   compose.New(cat, gen, compose.WithDetector(langdetect.New())),
		Archiver:   archive.New(),
		Journal:    journal.New(journal.WithRecorder(st)),
		Scheduling: scheduling.New(cat, dispatcher, scheduling.WithRecorder(st), scheduling.WithFromAddress(flags.fromAddress)),
		Emergency:  emergency.New(cat, dispatcher, emergency.WithRecorder(st), emergency.WithContactAddress(flags.emergencyContact)),
		Store:      st,
	}, api.WithAddr(flags.apiAddr), api.WithAdminAPI(flags.adminAPI))

	slog.Info("Bootstrapping Healora", "state_dir", flags.stateDir, "api_addr", flags.apiAddr,
		"genai_provider", flags.genaiProvider, "genai_enabled", gen != nil, "dry_run", flags.dryRun)
	return srv.Run(ctx)
}

// checkEmergencyContact warns when emergency alerts have no fixed recipient.
func checkEmergencyContact(flags Flags) bool {
	if flags.emergencyContact != "" {
		return true
	}
	slog.Warn("No emergency contact configured; emergency alerts go to the selected therapist's directory address",
		"flag", "-emergency-contact", "env", "EMERGENCY_CONTACT_ADDRESS")
	return false
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	opts := []store.Option{store.WithDSN(flags.dbDSN)}
	if flags.dbDriver != "" {
		opts = append(opts, store.WithDriver(flags.dbDriver))
	} else if store.DetectDSNType(flags.dbDSN) == store.DSNTypePostgres {
		opts = append(opts, store.WithPostgresDSN(flags.dbDSN))
	}
	return opts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if flags.genaiModel != "" {
		opts = append(opts, genai.WithModel(flags.genaiModel))
	}
	if flags.genaiDebug {
		opts = append(opts, genai.WithDebugMode(true), genai.WithStateDir(flags.stateDir))
	}
	return opts
}

// buildNotifier constructs the notification router for every configured channel.
// The returned func releases channel connections.
func buildNotifier(ctx context.Context, flags Flags) (*notify.Router, func(), error) {
	noop := func() {}
	if flags.dryRun {
		var dry notify.LogDispatcher
		return notify.NewRouter(
			notify.WithRoute(notify.ChannelEmail, dry),
			notify.WithRoute(notify.ChannelSMS, dry),
			notify.WithRoute(notify.ChannelWhatsApp, dry),
			notify.WithRoute(notify.ChannelDiscord, dry),
		), noop, nil
	}

	var routes []notify.RouterOption
	if flags.smtpHost != "" {
		smtpOpts := []notify.SMTPOption{notify.WithSMTPPort(flags.smtpPort)}
		if flags.smtpUsername != "" {
			smtpOpts = append(smtpOpts, notify.WithSMTPAuth(flags.smtpUsername, flags.smtpPassword))
		}
		d, err := notify.NewSMTPDispatcher(flags.smtpHost, flags.fromAddress, smtpOpts...)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to configure SMTP: %w", err)
		}
		routes = append(routes, notify.WithRoute(notify.ChannelEmail, d))
	}

	if d, err := notify.NewTwilioDispatcher(); err == nil {
		routes = append(routes, notify.WithRoute(notify.ChannelSMS, d))
	} else {
		slog.Debug("Twilio SMS not configured", "error", err)
	}

	if flags.discordToken != "" {
		d, err := notify.NewDiscordDispatcher(flags.discordToken)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to configure Discord: %w", err)
		}
		routes = append(routes, notify.WithRoute(notify.ChannelDiscord, d))
	}

	closer := noop
	if flags.whatsapp {
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(flags.whatsappDSN)}
		if flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(flags.qrOutput))
		}
		if flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(ctx, waOpts...)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to start WhatsApp client: %w", err)
		}
		routes = append(routes, notify.WithRoute(notify.ChannelWhatsApp, notify.NewWhatsAppDispatcher(client)))
		closer = client.Disconnect
	}

	router := notify.NewRouter(routes...)
	if len(router.Channels()) == 0 {
		slog.Warn("No notification channels configured; appointment and emergency notifications will be queued as failed")
	}
	return router, closer, nil
}
