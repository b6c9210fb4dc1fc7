// cmd/funnel-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loan-funnel/internal/api"
	"loan-funnel/internal/blocked"
	commonaws "loan-funnel/internal/common/aws"
	"loan-funnel/internal/common/camunda"
	"loan-funnel/internal/common/config"
	"loan-funnel/internal/common/database"
	"loan-funnel/internal/common/hubspot"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/common/observability"
	"loan-funnel/internal/funnel"
	"loan-funnel/internal/gate"
	"loan-funnel/internal/leads"
	"loan-funnel/internal/store"
	"loan-funnel/internal/tags"
	"loan-funnel/internal/tracking"
	"loan-funnel/internal/verification"
	"loan-funnel/internal/workflow"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// --- Observability ---
	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()

	if cfg.Observability.TracingEnabled {
		tracer, err := observability.NewTracer(ctx, cfg.Observability.ServiceName, cfg.App.Environment, cfg.Observability.JaegerEndpoint)
		if err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		} else {
			obs.WithTracer(tracer)
		}
	}

	var checks []api.HealthCheck

	// --- Redis (required) ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()
	checks = append(checks, api.HealthCheck{Name: "redis", Check: rdb.Ping})
	log.Info("Redis connected", rdb.Stats())

	keys := store.Keys{Prefix: cfg.Database.Redis.KeyPrefix}
	blockWindow := config.Days(cfg.Gate.BlockWindowDays)
	sessions := store.NewRedisStore(rdb.Client, keys, config.Days(cfg.Gate.RetentionDays), log)
	tokens := store.NewRedisTokenStore(rdb.Client)

	// --- HubSpot ---
	var crm *hubspot.CRMClient
	if cfg.Integrations.HubSpot.Enabled {
		crm = hubspot.NewCRMClient(cfg.Integrations.HubSpot.BaseURL, cfg.Integrations.HubSpot.AccessToken,
			config.GetDuration(cfg.Integrations.HubSpot.Timeout))
	}

	var tracker tracking.Tracker = tracking.NoopTracker{}
	var asyncTracker *tracking.AsyncTracker
	if crm != nil {
		asyncTracker = tracking.NewAsyncTracker(crm, config.GetDuration(cfg.Integrations.HubSpot.Timeout), log)
		tracker = asyncTracker
	}

	// --- Lead pipeline ---
	pipeline := leads.NewPipeline(log)

	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres unavailable", zap.Error(err))
		}
		defer pg.Close()

		archive := leads.NewArchive(pg.DB, log)
		if err := archive.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("lead archive schema", zap.Error(err))
		}
		pipeline.Add("archive", archive)
		log.Info("Lead archive ready", pg.Stats())
		checks = append(checks, api.HealthCheck{Name: "postgres", Check: pg.Ping})
	}

	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client", zap.Error(err))
		}
		created, err := es.EnsureIndex(ctx, cfg.Database.Elasticsearch.Index, leads.IndexMapping)
		if err != nil {
			zapLog.Warn("lead index not ensured", zap.Error(err))
		} else if created {
			zapLog.Info("Lead index created", zap.String("index", cfg.Database.Elasticsearch.Index))
		}
		pipeline.Add("index", leads.NewIndexer(es.Client, cfg.Database.Elasticsearch.Index))
		checks = append(checks, api.HealthCheck{Name: "elasticsearch", Check: es.Ping})
	}

	var awsCfg aws.Config
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		awsCfg, err = commonaws.LoadConfig(ctx, commonaws.Settings{Region: cfg.Integrations.AWS.Region})
		if err != nil {
			zapLog.Fatal("aws config", zap.Error(err))
		}
	}

	if cfg.Integrations.AWS.SES.Enabled {
		pipeline.Add("email", leads.NewNotifier(commonaws.NewSESClient(awsCfg), cfg.Integrations.AWS.SES.FromEmail, blockWindow, cfg.Gate.ContactPhone))
	}

	if crm != nil {
		pipeline.Add("crm", leads.NewCRMSync(crm))
	}

	// --- SMS ---
	var sms verification.Sender = verification.LogSender{Logger: log}
	if cfg.Integrations.AWS.SNS.Enabled {
		sms = verification.NewSMSSender(commonaws.NewSNSClient(awsCfg), cfg.Verification.MessageTemplate, cfg.Integrations.AWS.SNS.DefaultSMSSenderID, log)
	} else {
		zapLog.Warn("SNS disabled, verification codes are only logged")
	}

	// --- Decision workflow ---
	var decider workflow.Decider = workflow.NewApproveDecider()
	if cfg.Workflow.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Workflow.BrokerAddress,
				UsePlaintextConnection: cfg.Workflow.UsePlaintext,
				RequestTimeout:         config.GetDuration(cfg.Workflow.RequestTimeout),
				RetryConfig: &camunda.RetryConfig{
					MaxRetries: cfg.Workflow.MaxRetries,
					BaseDelay:  500 * time.Millisecond,
					MaxDelay:   5 * time.Second,
				},
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()

		decider = workflow.NewZeebeDecider(zeebe, cfg.Workflow.ProcessID, log)
		checks = append(checks, api.HealthCheck{Name: "zeebe", Check: zeebe.HealthCheck})
		zapLog.Info("Zeebe client connected", zap.String("process", cfg.Workflow.ProcessID))
	}

	// --- Funnel ---
	gates := gate.NewFactory(sessions, tokens, gate.Options{
		BlockWindow:   blockWindow,
		ResetTokenTTL: config.GetDuration(cfg.Gate.ResetTokenTTL),
		Keys:          keys,
		Tracer:        obs.Tracer(),
		Logger:        log,
		OnOperation:   obs.RecordGateOperation,
	})

	codes := verification.NewCodes(tokens, keys, config.GetDuration(cfg.Verification.CodeTTL)).
		WithLimits(verification.Limits{
			MaxAttempts:    cfg.Verification.MaxAttempts,
			ResendCooldown: config.GetDuration(cfg.Verification.ResendCooldown),
		})

	svc := funnel.NewService(funnel.Deps{
		Gates:   gates,
		Codes:   codes,
		SMS:     sms,
		Decider: decider,
		Tracker: tracker,
		Leads:   pipeline,
	}, funnel.Options{
		ManualAfterAttempts: cfg.Verification.ManualAfterAttempts,
		SchedulerEnabled:    cfg.Features.SchedulerEnabled,
		MinimumAge:          cfg.Workflow.Worker.MinimumAge,
		Logger:              log,
	})

	businessLoc, err := time.LoadLocation(cfg.Gate.BusinessTimezone)
	if err != nil {
		zapLog.Fatal("invalid business timezone", zap.String("timezone", cfg.Gate.BusinessTimezone), zap.Error(err))
	}

	views := blocked.NewBuilder(blocked.Options{
		BlockWindow:      blockWindow,
		ContactPhone:     cfg.Gate.ContactPhone,
		ContactPhoneURI:  cfg.Gate.ContactPhoneURI,
		PartnerOffersURL: cfg.Gate.PartnerOffersURL,
		SchedulerEnabled: cfg.Features.SchedulerEnabled,
		Hours: blocked.BusinessHours{
			Location:  businessLoc,
			OpenHour:  cfg.Gate.BusinessOpenHour,
			CloseHour: cfg.Gate.BusinessCloseHour,
		},
	})

	page := tags.NewPage()
	if err := tags.FromIDs(cfg.Tracking.GTMContainerID, cfg.Tracking.HubSpotPortalID).Inject(page); err != nil {
		zapLog.Fatal("invalid tracking configuration", zap.Error(err))
	}

	server := api.NewServer(api.Deps{
		Funnel:        svc,
		Blocked:       views,
		Page:          page,
		Observability: obs,
		Checks:        checks,
		Logger:        log,
	}, api.Options{
		CookieName:      cfg.Session.CookieName,
		CookieSecure:    cfg.Session.Secure,
		CookieMaxAge:    config.Days(cfg.Session.MaxAgeDays),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		DefaultTimezone: businessLoc,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Funnel server listening",
			zap.String("address", cfg.Server.Address),
			zap.Int("leadSinks", pipeline.Len()),
			zap.Bool("workflow", cfg.Workflow.Enabled),
			zap.Bool("scheduler", cfg.Features.SchedulerEnabled),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown", zap.Error(err))
	}
	if asyncTracker != nil {
		asyncTracker.Wait()
	}
	zapLog.Info("Funnel server stopped")
}
