// ABOUTME: Entry point for the helmgate admin console server
// ABOUTME: Serves the browser console and JSON API over one HTTP listener

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/config"
	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/server"
	"github.com/helmgate/helmgate/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _          _                       _
| |__   ___| |_ __ ___   __ _  __ _| |_ ___
| '_ \ / _ \ | '_ ' _ \ / _' |/ _' | __/ _ \
| | | |  __/ | | | | | | (_| | (_| | ||  __/
|_| |_|\___|_|_| |_| |_|\__, |\__,_|\__\___|
                        |___/
`

// getConfigPath returns the path to the helmgate config file.
// Priority: HELMGATE_CONFIG env var > XDG_CONFIG_HOME/helmgate/helmgate.yaml > ~/.config/helmgate/helmgate.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HELMGATE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "helmgate.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "helmgate", "helmgate.yaml")
}

// getDataPath returns the path to the helmgate data directory.
// Priority: XDG_DATA_HOME/helmgate > ~/.local/share/helmgate
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "helmgate")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: helmgate <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                             Start the admin console server")
		fmt.Println("  init                              Create a new config file interactively")
		fmt.Println("  bootstrap --password PASSWORD     Create the main admin account")
		fmt.Println("  health                            Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Console:  http://%s/admin/\n", cfg.Server.HTTPAddr)
	fmt.Println()

	logger.Info("starting helmgate",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runBootstrap performs first-time setup:
// 1. Creates config file with random JWT secret (if not exists)
// 2. Creates the main admin credential and roster record
// 3. Generates a JWT token for the main admin
//
// One-command setup: helmgate bootstrap --email you@example.com --password SECRET
func runBootstrap(ctx context.Context) error {
	// Supports both "--flag value" and "--flag=value" formats
	var email, password, name string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--email" || arg == "-e":
			if i+1 >= len(args) {
				return fmt.Errorf("--email requires a value")
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case arg == "--password" || arg == "-p":
			if i+1 >= len(args) {
				return fmt.Errorf("--password requires a value")
			}
			password = args[i+1]
			i++
		case strings.HasPrefix(arg, "--password="):
			password = strings.TrimPrefix(arg, "--password=")
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return fmt.Errorf("--name requires a value")
			}
			name = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if password == "" {
		return fmt.Errorf("--password flag is required")
	}

	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "helmgate.db")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var cfg *config.Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if email == "" {
			return fmt.Errorf("--email flag is required when creating a new config")
		}
		if !identity.ValidEmail(email) {
			return fmt.Errorf("invalid email address: %s", email)
		}

		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.MkdirAll(dataPath, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		configContent := fmt.Sprintf(`# helmgate configuration
# Generated by helmgate bootstrap

server:
  http_addr: "localhost:8080"

database:
  path: "%s"

auth:
  main_admin_email: "%s"
  jwt_secret: "%s"

logging:
  level: "info"
  format: "text"
`, dbPath, email, jwtSecret)

		if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		green.Printf("  ✓ Created config: %s\n", configPath)

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if email != "" && !strings.EqualFold(email, cfg.Auth.MainAdminEmail) {
			return fmt.Errorf("--email %s does not match auth.main_admin_email %s in %s", email, cfg.Auth.MainAdminEmail, configPath)
		}
		email = cfg.Auth.MainAdminEmail

		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	count, err := st.CountRecords(ctx)
	if err != nil {
		return fmt.Errorf("checking roster: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("bootstrap already complete: %d roster record(s) exist", count)
	}

	if name == "" {
		name = "Main Admin"
	}

	idp := identity.NewLocalProvider(st, st)
	principal, err := idp.CreateAccount(ctx, email, password)
	if err != nil {
		return fmt.Errorf("creating main admin account: %w", err)
	}

	rec := &store.RosterRecord{
		ID:          principal.ID,
		Name:        name,
		Email:       email,
		Mobile:      "N/A",
		IsMainAdmin: true,
		CreatedBy:   "bootstrap",
	}
	if err := st.CreateRecord(ctx, rec); err != nil {
		// Best-effort cleanup so bootstrap can be retried
		_ = st.DeleteCredential(ctx, principal.ID)
		return fmt.Errorf("creating roster record: %w", err)
	}

	green.Printf("  ✓ Created main admin: %s\n", email)

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))

	// Default TTL: 30 days
	tokenTTL := 30 * 24 * time.Hour
	expiresAt := time.Now().Add(tokenTTL).UTC()

	token, err := verifier.Generate(principal.ID, tokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	// Save token to file for CLI tools to read
	tokenPath := filepath.Join(filepath.Dir(configPath), "token")
	if err := os.WriteFile(tokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	green.Printf("  ✓ Saved token: %s\n", tokenPath)

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Main Admin")
	cyan.Println("  ----------")
	fmt.Printf("  ID:    %s\n", principal.ID)
	fmt.Printf("  Name:  %s\n", name)
	fmt.Printf("  Email: %s\n", email)
	fmt.Printf("  Role:  main_admin\n")
	fmt.Printf("  Token: %s (expires %s)\n", tokenPath, expiresAt.Format("Jan 02, 2006"))
	fmt.Println()

	yellow.Println("  Ready to go:")
	fmt.Println("    helmgate serve        # start the admin console")
	fmt.Println("    helmgate-admin me     # verify your identity")
	fmt.Println()

	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("helmgate configuration setup")
	fmt.Println("============================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "helmgate.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- Admin Configuration ---")
	mainAdminEmail := prompt(reader, "Main admin email", "")
	if !identity.ValidEmail(mainAdminEmail) {
		return fmt.Errorf("invalid main admin email: %q", mainAdminEmail)
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	var cfg strings.Builder
	cfg.WriteString("# helmgate configuration\n")
	cfg.WriteString("# Generated by helmgate init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n\n", httpAddr))

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n\n", dbPath))

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  main_admin_email: %q\n", mainAdminEmail))
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n\n", jwtSecret))

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	color.New(color.FgGreen).Printf("✓ Config written to %s\n", outputFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  helmgate bootstrap --password SECRET   # create the main admin account")
	fmt.Println("  helmgate serve                         # start the admin console")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
