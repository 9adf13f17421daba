package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/edulytics/edulytics-client/internal/api"
	"github.com/edulytics/edulytics-client/internal/cache"
	"github.com/edulytics/edulytics-client/internal/config"
	"github.com/edulytics/edulytics-client/internal/credential"
	"github.com/edulytics/edulytics-client/internal/observe"
	"github.com/edulytics/edulytics-client/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: edulytics <command> [flags]

commands:
  login      -email <email> (password read from EDULYTICS_PASSWORD)
  whoami     show the stored user profile
  refresh    re-fetch and merge the user profile
  dashboard  -role admin|instructor|department [-campus C] [-term T]
  courses    [-page N] [-campus C]
  filters    -kind campuses|departments|terms
  download   -report <id> [-out <file>]
  logout     end the session
`

func main() {
	configureLogging()

	logBuildInfo()

	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	// configure telemetry, including wrapping the outgoing HTTP transport
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(ctx); err != nil {
			log.Warn().Err(err).Msg("telemetry: shutdown failed")
		}
	}()

	httpClient := &http.Client{
		Transport: observe.HTTPTransport(configureHTTPTransport(cfg.API), cfg.Observe),
	}

	store, err := credential.NewFileStore(credentialPath(cfg.Session))
	if err != nil {
		return fmt.Errorf("credential store configuration failed: %w", err)
	}

	respCache := cache.New(
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		cfg.Cache.MaxEntries,
		cfg.Cache.CacheableEndpoints,
	)

	client, err := api.New(cfg.API, store, respCache, api.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("API client configuration failed: %w", err)
	}

	manager := session.NewManager(cfg.Session, client, store, respCache,
		session.WithNotifier(consoleNotifier{}),
		session.WithNavigator(consoleNavigator{}),
	)

	if manager.IsSessionExpiring(time.Now()) {
		fmt.Fprintln(os.Stderr, "note: your session expires within 30 minutes")
	}

	command, args := args[0], args[1:]

	switch command {
	case "login":
		return cmdLogin(ctx, manager, args)
	case "whoami":
		return cmdWhoami(manager)
	case "refresh":
		return cmdRefresh(ctx, manager)
	case "dashboard":
		return cmdDashboard(ctx, client, args)
	case "courses":
		return cmdCourses(ctx, client, args)
	case "filters":
		return cmdFilters(ctx, client, args)
	case "download":
		return cmdDownload(ctx, client, args)
	case "logout":
		manager.Logout(ctx)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func cmdLogin(ctx context.Context, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result := manager.Login(ctx, *email, os.Getenv("EDULYTICS_PASSWORD"))
	if !result.Success {
		return fmt.Errorf("login failed: %s", result.Error)
	}

	fmt.Printf("logged in as %s (%s)\n", result.User.Name, result.User.Role)
	return nil
}

func cmdWhoami(manager *session.Manager) error {
	user, ok := manager.CurrentUser()
	if !ok {
		return fmt.Errorf("not logged in")
	}
	return printJSON(user)
}

func cmdRefresh(ctx context.Context, manager *session.Manager) error {
	result := manager.RefreshUser(ctx)
	if !result.Success {
		return fmt.Errorf("refresh failed: %s", result.Error)
	}
	return printJSON(result.User)
}

func cmdDashboard(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	role := fs.String("role", "admin", "dashboard role")
	campus := fs.String("campus", "", "campus filter")
	term := fs.String("term", "", "term filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filters := url.Values{}
	if *campus != "" {
		filters.Set("campus", *campus)
	}
	if *term != "" {
		filters.Set("term", *term)
	}

	summary, err := client.Dashboard(ctx, api.DashboardRole(*role), filters)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func cmdCourses(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("courses", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	campus := fs.String("campus", "", "campus filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filters := url.Values{}
	filters.Set("page", fmt.Sprint(*page))
	if *campus != "" {
		filters.Set("campus", *campus)
	}

	list, err := client.Courses(ctx, filters)
	if err != nil {
		return err
	}
	return printJSON(list)
}

func cmdFilters(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("filters", flag.ContinueOnError)
	kind := fs.String("kind", "campuses", "filter option kind")
	if err := fs.Parse(args); err != nil {
		return err
	}

	options, err := client.FilterOptions(ctx, *kind)
	if err != nil {
		return err
	}
	return printJSON(options)
}

func cmdDownload(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	report := fs.String("report", "", "report identifier")
	out := fs.String("out", "", "output file (defaults to the server-supplied name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *report == "" {
		return fmt.Errorf("-report is required")
	}

	payload, err := client.DownloadReport(ctx, *report)
	if err != nil {
		return err
	}

	name := *out
	if name == "" {
		name = payload.Filename
	}
	if name == "" {
		name = *report + ".bin"
	}

	if err := os.WriteFile(name, payload.Data, 0o644); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}

	fmt.Printf("wrote %s (%d bytes, %s)\n", name, len(payload.Data), payload.ContentType)
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func credentialPath(cfg config.SessionConfig) string {
	if cfg.CredentialPath != "" {
		return cfg.CredentialPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".edulytics", "credentials.json")
	}
	return filepath.Join(home, ".edulytics", "credentials.json")
}

// consoleNotifier and consoleNavigator are the CLI's stand-ins for the
// dashboard UI's toast and routing layers.
type consoleNotifier struct{}

func (consoleNotifier) Success(message string) { fmt.Fprintln(os.Stderr, message) }
func (consoleNotifier) Error(message string)   { fmt.Fprintln(os.Stderr, message) }
func (consoleNotifier) Info(message string)    { fmt.Fprintln(os.Stderr, message) }

type consoleNavigator struct{}

func (consoleNavigator) NavigateToLogin() {
	fmt.Fprintln(os.Stderr, "please sign in again with: edulytics login")
}

func configureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging
	// to be configured separately. However, it means that any logger that
	// sets its level will log as this effectively disables the global
	// level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Info()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

func configureHTTPTransport(cfg config.APIConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}
