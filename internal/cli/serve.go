package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gzhole/hardenedsuite/internal/attack"
	"github.com/gzhole/hardenedsuite/internal/config"
	"github.com/gzhole/hardenedsuite/internal/logger"
	"github.com/gzhole/hardenedsuite/internal/server"
)

var (
	serveListen   string
	serveTarget   string
	serveTimeout  time.Duration
	serveAuditLog string
	serveYes      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the attack simulator HTTP service",
	Long: `Starts an HTTP service whose endpoints each send one crafted request at
the target API and return a verdict:

  POST /attack/simulate_sql_injection
  POST /attack/simulate_xss
  POST /attack/simulate_broken_auth
  POST /attack/simulate_login
  GET  /attack/events          websocket feed of verdicts

Usage:
  hardenedsuite serve --target http://nginx:80/api
  hardenedsuite serve --listen 0.0.0.0:8000 --audit-log verdicts.jsonl`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: SIMULATOR_LISTEN_ADDR or 127.0.0.1:8000)")
	serveCmd.Flags().StringVar(&serveTarget, "target", "", "Target API base URL (default: TARGET_API_BASE_URL)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 0, "Per-request timeout (default: SIMULATOR_REQUEST_TIMEOUT or 10s)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Append verdicts to this JSONL file")
	serveCmd.Flags().BoolVarP(&serveYes, "yes", "y", false, "Serve against a host outside SIMULATOR_ALLOWED_HOSTS without asking")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command, args []string) error {
	sc, err := simulatorConfig()
	if err != nil {
		return err
	}
	override(&sc.ListenAddr, serveListen)
	override(&sc.TargetBaseURL, serveTarget)
	override(&sc.AuditLogPath, serveAuditLog)
	if serveTimeout > 0 {
		sc.RequestTimeout = serveTimeout
	}

	if err := confirmTarget(sc.TargetBaseURL, nil, serveYes); err != nil {
		return err
	}

	audit, err := openAudit(sc.AuditLogPath)
	if err != nil {
		return err
	}
	if audit != nil {
		defer func() { _ = audit.Close() }()
	}

	srv := server.New(server.Config{
		ListenAddr: sc.ListenAddr,
		Simulator:  attack.Config{BaseURL: sc.TargetBaseURL, Timeout: sc.RequestTimeout},
		Log:        appLog,
		Audit:      audit,
	})

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	go func() {
		<-ctx.Done()
		appLog.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Warn().Err(err).Msg("graceful shutdown failed")
		}
	}()

	return srv.ListenAndServe()
}

func openAudit(path string) (*logger.AuditLogger, error) {
	if path == "" {
		return nil, nil
	}
	if err := config.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, errors.Wrap(err, "failed to create audit log directory")
	}
	audit, err := logger.NewAudit(path)
	if err != nil {
		return nil, err
	}
	appLog.Info().Str("path", path).Msg("audit trail enabled")
	return audit, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
