// Command firewall runs the decision firewall as an HTTP service: a single
// POST /firewall/check endpoint backed by the adjudication pipeline in
// pkg/firewall, plus audit, metrics, learning and policy-admin routes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Mindburn-Labs/decision-firewall/pkg/audit"
	"github.com/Mindburn-Labs/decision-firewall/pkg/compliance"
	"github.com/Mindburn-Labs/decision-firewall/pkg/config"
	"github.com/Mindburn-Labs/decision-firewall/pkg/firewall"
	"github.com/Mindburn-Labs/decision-firewall/pkg/learning"
	"github.com/Mindburn-Labs/decision-firewall/pkg/metrics"
	"github.com/Mindburn-Labs/decision-firewall/pkg/ratelimit"
	"github.com/Mindburn-Labs/decision-firewall/pkg/server"
)

func main() {
	if err := run(); err != nil {
		slog.Default().Error("firewall service exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logLevel := parseLogLevel(cfg.LogLevel)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditLog, err := buildAuditLog(cfg)
	if err != nil {
		return fmt.Errorf("firewall: failed to build audit log: %w", err)
	}

	if cfg.AuditArchiveBucket != "" {
		archiver, err := audit.NewArchiver(ctx, audit.ArchiverConfig{
			Bucket: cfg.AuditArchiveBucket,
			Region: cfg.AuditArchiveRegion,
			Prefix: "segments/",
		})
		if err != nil {
			return fmt.Errorf("firewall: failed to build audit archiver: %w", err)
		}
		go runArchiveLoop(ctx, log, auditLog, archiver)
	}

	metricsState, err := buildMetricsState(cfg)
	if err != nil {
		return fmt.Errorf("firewall: failed to build metrics state: %w", err)
	}

	learningState, err := buildLearningState(cfg)
	if err != nil {
		return fmt.Errorf("firewall: failed to build learning state: %w", err)
	}
	tuner := learning.NewTuner(learningState, log, cfg.AdaptiveStrictness,
		firewall.ConfidenceThresholdEvidenceRequired, firewall.RiskThresholdMedium,
		cfg.MinFalsePositivesForRelax, cfg.MinFalseNegativesForStrict)

	policyMode := firewall.PolicyMode(cfg.PolicyMode)
	policy, err := firewall.NewPolicyManager(policyMode)
	if err != nil {
		return fmt.Errorf("firewall: failed to initialize policy manager: %w", err)
	}

	if cfg.PolicyPackFile != "" {
		pack, err := compliance.Load(cfg.PolicyPackFile)
		if err != nil {
			return fmt.Errorf("firewall: failed to load policy pack %q: %w", cfg.PolicyPackFile, err)
		}
		targetMode := policyModeForIndustry(pack.Industry)
		if err := policy.ApplyPackOverride(targetMode, pack.ConfidenceThreshold, pack.RiskThresholdMedium, pack); err != nil {
			return fmt.Errorf("firewall: failed to apply policy pack %q: %w", cfg.PolicyPackFile, err)
		}
		log.Info("loaded policy pack", "name", pack.Name, "industry", pack.Industry, "strictness", pack.Strictness, "applied_mode", targetMode)
	}

	validator, err := firewall.NewRequestValidator()
	if err != nil {
		return fmt.Errorf("firewall: failed to build request validator: %w", err)
	}

	opts := []firewall.InterceptorOption{
		firewall.WithLogger(log),
		firewall.WithMetrics(server.NewMetricsSink(metricsState)),
		firewall.WithLearning(server.NewLearningSink(learningState)),
	}
	if cfg.EnterpriseMode {
		opts = append(opts, firewall.WithEnterpriseMode(firewall.RiskThresholdHigh))
		opts = append(opts, firewall.WithAudit(server.NewAuditSink(auditLog)))
	}

	var telemetry *metrics.Telemetry
	if cfg.OTelEnabled {
		provider := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(provider)
		telemetry, err = metrics.NewTelemetry()
		if err != nil {
			return fmt.Errorf("firewall: failed to initialize telemetry: %w", err)
		}
		opts = append(opts, firewall.WithTelemetry(server.NewTelemetrySink(telemetry)))
	}

	interceptor := firewall.NewInterceptor(policy, opts...)

	limiterStore, err := buildRateLimitStore(cfg)
	if err != nil {
		return fmt.Errorf("firewall: failed to build rate limiter: %w", err)
	}
	limiter := ratelimit.NewLimiter(limiterStore)

	srv := server.New(server.Config{
		Interceptor:  interceptor,
		Policy:       policy,
		Validator:    validator,
		AuditLog:     auditLog,
		MetricsState: metricsState,
		Learning:     learningState,
		Tuner:        tuner,
		Limiter:      limiter,
		JWTSecret:    []byte(cfg.JWTSigningSecret),
		Log:          log,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("firewall service listening", "port", cfg.Port, "policy_mode", policyMode)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("firewall: http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// policyModeForIndustry maps a policy pack's industry to the built-in
// PolicyMode whose table entry it overrides.
func policyModeForIndustry(industry compliance.Industry) firewall.PolicyMode {
	switch industry {
	case compliance.IndustryFinance:
		return firewall.PolicyFinancialServices
	case compliance.IndustryHealthcare:
		return firewall.PolicyHealthcare
	case compliance.IndustryLegal:
		return firewall.PolicyLegal
	default:
		return firewall.PolicyGeneralAI
	}
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// runArchiveLoop periodically seals the not-yet-archived tail of auditLog's
// entries into S3. Archival is best-effort: a failed upload is logged and
// retried on the next tick rather than crashing the service.
func runArchiveLoop(ctx context.Context, log *slog.Logger, auditLog *audit.Log, archiver *audit.Archiver) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	archived := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries := auditLog.Entries()
			if len(entries) <= archived {
				continue
			}
			segment := entries[archived:]
			key, err := archiver.ArchiveSegment(ctx, segment)
			if err != nil {
				log.Error("audit segment archival failed", "error", err)
				continue
			}
			archived = len(entries)
			log.Info("audit segment archived", "key", key, "entries", len(segment))
		}
	}
}

func buildAuditLog(cfg *config.Config) (*audit.Log, error) {
	var store audit.Store
	var err error
	switch cfg.AuditBackend {
	case "sqlite":
		store, err = audit.NewSQLiteStore(cfg.AuditDBPath)
	default:
		store, err = audit.NewFileStore(cfg.AuditLogFile)
	}
	if err != nil {
		return nil, err
	}
	return audit.NewLog(store), nil
}

func buildMetricsState(cfg *config.Config) (*metrics.State, error) {
	var store metrics.Store
	var err error
	switch cfg.MetricsBackend {
	case "sqlite":
		store, err = metrics.NewSQLiteStore(cfg.MetricsDBPath)
	default:
		store, err = metrics.NewFileStore(cfg.MetricsFile)
	}
	if err != nil {
		return nil, err
	}
	return metrics.NewState(store)
}

func buildLearningState(cfg *config.Config) (*learning.State, error) {
	var store learning.Store
	var err error
	switch cfg.MemoryBackend {
	case "sqlite":
		store, err = learning.NewSQLiteStore(cfg.MemoryDBPath)
	default:
		store, err = learning.NewFileStore(cfg.MemoryFile)
	}
	if err != nil {
		return nil, err
	}
	return learning.NewState(store, cfg.LearningEnabled)
}

func buildRateLimitStore(cfg *config.Config) (ratelimit.Store, error) {
	if cfg.RedisAddr != "" {
		return ratelimit.NewRedisStore(cfg.RedisAddr, cfg.RateLimitRPS, cfg.RateLimitBurst), nil
	}
	return ratelimit.NewLocalStore(cfg.RateLimitRPS, cfg.RateLimitBurst), nil
}
