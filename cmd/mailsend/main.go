// Package main is the entry point for the mailsend CLI, which composes and
// delivers a single email message.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tclausen/mailsend/internal/assemble"
	"github.com/tclausen/mailsend/internal/attach"
	"github.com/tclausen/mailsend/internal/config"
	"github.com/tclausen/mailsend/internal/credential"
	"github.com/tclausen/mailsend/internal/email"
	"github.com/tclausen/mailsend/internal/tlsx"
	"github.com/tclausen/mailsend/internal/transport"
	"github.com/tclausen/mailsend/internal/transport/graph"
	"github.com/tclausen/mailsend/internal/transport/ses"
	smtptransport "github.com/tclausen/mailsend/internal/transport/smtp"
	"github.com/tclausen/mailsend/internal/transport/stdout"
)

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file (optional)")
		server     = flag.String("server", "", "SMTP server name")
		port       = flag.Int("port", 0, "SMTP server port")
		security   = flag.String("security", "", "connection security: none, auto, ssl-on-connect, starttls, starttls-when-available")
		username   = flag.String("username", "", "SMTP username (password comes from config, SMTP_PASSWORD or the OS keyring)")
		from       = flag.String("from", "", "sender address")
		fromName   = flag.String("from-name", "", "sender display name")
		subject    = flag.String("subject", "", "message subject")
		body       = flag.String("body", "", "HTML message body")
		bodyFile   = flag.String("body-file", "", "read the HTML message body from a file")
		priority   = flag.String("priority", "", "message priority: low, normal or high")
		maxAttach  = flag.Int64("max-attach-size", 0, "cumulative attachment size budget in bytes")
		backend    = flag.String("transport", "", "delivery backend: smtp, ses, graph or stdout")
		dryRun     = flag.Bool("dry-run", false, "print the message instead of sending it")
		storePass  = flag.Bool("store-password", false, "read a password from stdin, save it in the OS keyring for -username, and exit")

		to  stringList
		bcc stringList
		att stringList
	)
	flag.Var(&to, "to", "recipient address (repeatable)")
	flag.Var(&bcc, "bcc", "blind-copy address (repeatable)")
	flag.Var(&att, "attach", "attachment file path (repeatable)")
	flag.Parse()

	// Default logger so failures before the config is loaded still come
	// out through the JSON handler.
	setupLogger("info")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Flags override file and environment values.
	overrideString(&cfg.SMTP.Server, *server)
	overrideString(&cfg.SMTP.Security, *security)
	overrideString(&cfg.SMTP.Username, *username)
	overrideString(&cfg.Message.From, *from)
	overrideString(&cfg.Message.FromName, *fromName)
	overrideString(&cfg.Message.Subject, *subject)
	overrideString(&cfg.Message.Body, *body)
	overrideString(&cfg.Message.Priority, *priority)
	overrideString(&cfg.Transport, *backend)
	if *port != 0 {
		cfg.SMTP.Port = *port
	}
	if *maxAttach != 0 {
		cfg.Attachments.MaxTotalSize = *maxAttach
	}
	if len(to) > 0 {
		cfg.Message.To = to
	}
	if len(bcc) > 0 {
		cfg.Message.Bcc = bcc
	}
	if len(att) > 0 {
		cfg.Attachments.Paths = att
	}
	if *dryRun {
		cfg.Transport = "stdout"
	}
	if *bodyFile != "" {
		data, err := os.ReadFile(*bodyFile)
		if err != nil {
			slog.Error("failed to read body file", "path", *bodyFile, "error", err)
			os.Exit(1)
		}
		cfg.Message.Body = string(data)
	}

	setupLogger(cfg.Logging.Level)

	if *storePass {
		if err := storePassword(cfg.SMTP.Username); err != nil {
			slog.Error("failed to store password", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("send failed", "error", err)
		os.Exit(1)
	}
}

// run resolves attachments, assembles the message and hands it to the
// selected delivery backend. It returns a single wrapped error identifying
// the recipient set and the underlying cause.
func run(ctx context.Context, cfg *config.Config) error {
	prio, err := email.ParsePriority(cfg.Message.Priority)
	if err != nil {
		return err
	}

	resolver := attach.NewResolver(nil)
	batch := resolver.Resolve(cfg.Attachments.Paths, cfg.Attachments.MaxTotalSize)
	if batch.TempDir != "" {
		defer func() {
			if err := os.RemoveAll(batch.TempDir); err != nil {
				slog.Warn("removing temp directory", "dir", batch.TempDir, "error", err)
			}
		}()
	}

	msg, err := assemble.Assemble(assemble.Params{
		From:     cfg.Message.From,
		FromName: cfg.Message.FromName,
		To:       cfg.Message.To,
		Bcc:      cfg.Message.Bcc,
		Subject:  cfg.Message.Subject,
		HTMLBody: cfg.Message.Body,
		Priority: prio,
		Batch:    batch,
	})
	if err != nil {
		closeBatch(batch)
		return err
	}
	defer msg.CloseAll()

	tr, err := selectTransport(ctx, cfg)
	if err != nil {
		return err
	}

	slog.Info("sending message",
		"transport", tr.Name(),
		"to", msg.To,
		"bcc_count", len(msg.Bcc),
		"attachments", len(msg.Attachments),
		"overflow", batch.OverflowNotice != "",
	)

	if err := tr.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending to %s failed: %w", strings.Join(append(msg.To, msg.Bcc...), ", "), err)
	}

	slog.Info("message sent", "transport", tr.Name())
	return nil
}

// storePassword reads one line from stdin and saves it in the OS keyring so
// later runs can authenticate without a password in config or environment.
func storePassword(username string) error {
	if username == "" {
		return fmt.Errorf("-store-password requires -username")
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("empty password")
	}

	if err := credential.Store(username, password); err != nil {
		return err
	}
	slog.Info("password stored", "username", username)
	return nil
}

func closeBatch(batch attach.Result) {
	for _, f := range batch.Files {
		f.Close()
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectTransport chooses the delivery backend based on configuration.
func selectTransport(ctx context.Context, cfg *config.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case "smtp":
		if cfg.SMTP.Server == "" {
			return nil, fmt.Errorf("smtp transport selected but no server configured")
		}
		tlsCfg, err := tlsx.ClientConfig(cfg.TLS.CAFile, cfg.TLS.ServerName, cfg.TLS.InsecureSkipVerify)
		if err != nil {
			return nil, err
		}

		smtpCfg := smtptransport.Config{
			Server:    cfg.SMTP.Server,
			Port:      cfg.SMTP.Port,
			Security:  cfg.SMTP.Security,
			TLSConfig: tlsCfg,
		}
		if cred, ok := credential.Resolve(cfg.SMTP.Username, cfg.SMTP.Password); ok {
			smtpCfg.Username = cred.Username
			smtpCfg.Password = cred.Password
		} else if cfg.SMTP.Username != "" {
			slog.Warn("no password found for user, sending unauthenticated", "username", cfg.SMTP.Username)
		}

		return smtptransport.New(smtpCfg), nil

	case "ses":
		if !cfg.SESConfigured() {
			return nil, fmt.Errorf("ses transport selected but SES_REGION is required")
		}
		return ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})

	case "graph":
		if !cfg.GraphConfigured() {
			return nil, fmt.Errorf("graph transport selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET are required")
		}
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
		}), nil

	case "stdout":
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
