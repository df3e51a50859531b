// Package app wires configuration into the services shared by the server,
// worker and CLI binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/lgl-sync/internal/config"
	"github.com/ignite/lgl-sync/internal/lgl"
	"github.com/ignite/lgl-sync/internal/mailer"
	"github.com/ignite/lgl-sync/internal/pkg/distlock"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
	"github.com/ignite/lgl-sync/internal/repository/dynamo"
	"github.com/ignite/lgl-sync/internal/repository/postgres"
	"github.com/ignite/lgl-sync/internal/repository/redisstore"
	"github.com/ignite/lgl-sync/internal/service/emailgate"
	"github.com/ignite/lgl-sync/internal/service/renewal"
	"github.com/ignite/lgl-sync/internal/service/syncstatus"
	"github.com/ignite/lgl-sync/internal/storage"
	"github.com/ignite/lgl-sync/internal/worker"
)

// JobLockKey is the distlock key held while a renewal pass runs.
const JobLockKey = "renewal:job"

// App holds the long-lived clients and services.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client
	S3     *s3.Client

	Sync     *syncstatus.Service
	Orders   *worker.OrderSyncer
	Gate     *emailgate.Gate
	Renewals *renewal.Service
	Job      *worker.RenewalJob

	awsCfg *aws.Config
	log    *logger.Logger
}

// Build connects to Postgres and Redis and constructs every service. AWS
// clients are created only for the features that are switched on.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	a := &App{Config: cfg, log: logger.With("component", "app")}
	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config
	if cfg.Database.URL == "" {
		return errors.New("database.url (DATABASE_URL) is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url (REDIS_URL) is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	a.DB = db

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.Redis.URL}
	}
	a.Redis = redis.NewClient(opts)
	if err := a.Redis.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	a.log.Info("connected", "database", true, "redis", true)
	return nil
}

// awsConfig loads the shared AWS config once.
func (a *App) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	st := a.Config.Storage
	c, err := storage.LoadAWSConfig(ctx, st.AWSRegion, st.GetAWSProfile(), "", "")
	if err != nil {
		return aws.Config{}, err
	}
	a.awsCfg = &c
	return c, nil
}

func (a *App) syncRepository(ctx context.Context) (syncstatus.Repository, error) {
	if a.Config.Storage.Type != "dynamodb" {
		return postgres.NewSyncRecordRepo(a.DB), nil
	}
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamo.NewSyncRecordRepo(dynamodb.NewFromConfig(awsCfg), a.Config.Storage.DynamoDBTable), nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	syncRepo, err := a.syncRepository(ctx)
	if err != nil {
		return err
	}
	var reconcilerOpts []syncstatus.ReconcilerOption
	if cfg.Storage.AuditBucket != "" {
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return err
		}
		a.S3 = s3.NewFromConfig(awsCfg)
		if cfg.Sync.ArchiveResponses {
			reconcilerOpts = append(reconcilerOpts, syncstatus.WithArchiver(storage.NewAuditArchive(a.S3, cfg.Storage.AuditBucket)))
		}
	}
	a.Sync = syncstatus.NewService(syncRepo)

	gate, err := a.buildGate(ctx)
	if err != nil {
		return err
	}
	a.Gate = gate

	var transport emailgate.Mailer = mailer.NewLogMailer()
	if cfg.SES.Enabled {
		sesCfg, err := storage.LoadAWSConfig(ctx, cfg.SES.Region, "", cfg.SES.AccessKey, cfg.SES.SecretKey)
		if err != nil {
			return err
		}
		transport = mailer.NewSESMailerFromConfig(sesCfg)
	}
	sender := emailgate.NewGatedMailer(gate, transport)

	overrides := make(map[string]renewal.Template, len(cfg.Renewal.Templates))
	for k, t := range cfg.Renewal.Templates {
		overrides[k] = renewal.Template{Subject: t.Subject, Body: t.Body}
	}
	parsed, err := renewal.ParseTemplateOverrides(overrides)
	if err != nil {
		return err
	}
	composer, err := renewal.NewComposer(cfg.Renewal.FromName, cfg.Renewal.FromEmail, cfg.Renewal.RenewURL, parsed)
	if err != nil {
		return err
	}

	members := postgres.NewMemberRepo(a.DB)
	strategy := renewal.NewStrategyManager(postgres.NewSubscriptionRepo(a.DB, cfg.Renewal.SubscriptionsEnabled), members)
	runner := renewal.NewRunner(members, strategy, composer, sender,
		redisstore.NewSendMarker(a.Redis, cfg.Redis.KeyPrefix, redisstore.DefaultMarkerTTL),
		distlock.NewFactory(a.Redis, a.DB, cfg.Renewal.LockTTL()),
		renewal.WithGraceDays(cfg.Renewal.GracePeriodDays))
	a.Renewals = renewal.NewService(members, strategy, runner, cfg.Renewal.GracePeriodDays)
	a.Job = worker.NewRenewalJob(runner, distlock.NewLock(a.Redis, a.DB, JobLockKey, cfg.Renewal.Interval()), cfg.Renewal.Interval())

	crm := lgl.NewClient(lgl.Config{
		BaseURL:    cfg.LGL.BaseURL,
		APIKey:     cfg.LGL.APIKey,
		Timeout:    cfg.LGL.Timeout(),
		MaxRetries: cfg.LGL.MaxRetries,
		GiftTypeID: cfg.LGL.GiftTypeID,
		CampaignID: cfg.LGL.CampaignID,
	})
	a.Orders = worker.NewOrderSyncer(crm, syncstatus.NewReconciler(syncRepo, reconcilerOpts...)).
		WithMemberships(members, a.Renewals, redisstore.NewOrderMarker(a.Redis, cfg.Redis.KeyPrefix, redisstore.DefaultMarkerTTL))
	return nil
}

func (a *App) buildGate(ctx context.Context) (*emailgate.Gate, error) {
	cfg := a.Config.Blocking
	prefix := a.Config.Redis.KeyPrefix

	settings := redisstore.NewSettings(a.Redis, prefix, cfg.ForceBlocking)
	if len(cfg.Whitelist) > 0 {
		addrs, err := emailgate.ParseWhitelist(strings.Join(cfg.Whitelist, "\n"))
		if err != nil {
			return nil, fmt.Errorf("blocking.whitelist: %w", err)
		}
		if err := settings.SeedWhitelist(ctx, addrs); err != nil {
			return nil, fmt.Errorf("seed whitelist: %w", err)
		}
	}

	signals := emailgate.EnvironmentSignals{
		Environment: cfg.Environment,
		SiteURL:     cfg.SiteURL,
		Hostname:    cfg.Hostname,
		Patterns:    cfg.DevHostPatterns,
	}
	gate := emailgate.NewGate(settings, redisstore.NewBlockedLog(a.Redis, prefix, cfg.LogCapacity), cfg.AdminEmail, signals)
	a.log.Info("email gate ready", "development", gate.IsDevelopment())
	return gate, nil
}

// OrderConsumer builds the SQS consumer for the order event queue.
func (a *App) OrderConsumer(ctx context.Context) (*worker.OrderConsumer, error) {
	q := a.Config.Queue
	awsCfg, err := storage.LoadAWSConfig(ctx, q.Region, a.Config.Storage.GetAWSProfile(), "", "")
	if err != nil {
		return nil, err
	}
	return worker.NewOrderConsumer(sqs.NewFromConfig(awsCfg), q.OrderQueueURL, a.Orders), nil
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
