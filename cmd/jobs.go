package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"chronos/internal/jobs"
	"chronos/pkg/interfaces"
	"chronos/pkg/lock"
	"chronos/pkg/logger"
	mysqlstore "chronos/pkg/store/mysql"
)

func (app *Application) initJobs() error {
	if app.trackerService == nil || app.reportService == nil {
		logger.WarnCtx(app.ctx, "Service layer not fully initialized yet, skipping background task registration")
		return nil
	}

	manager := jobs.NewManager(app.ctx)

	// Distributed locks keep replicas from running the same job at once.
	// Without Redis they downgrade to single-instance mode.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}

	if interval := app.config.LateAlertInterval(); interval > 0 {
		job := jobs.NewLateAlertJob(interval, app.reportService, app.trackerService.Today).
			WithNotifier(app.notifier).
			WithLock(lock.NewRedisDistributedLock(redisClient, "chronos:late-alert-lock")).
			WithRedis(redisClient)
		if app.publisher != nil {
			job.WithPublisher(app.publisher)
		}
		manager.Register(job)
	}

	if app.mysqlRepo != nil && app.config.Jobs.AuditRetentionDays > 0 {
		manager.Register(newAuditRetentionJob(
			24*time.Hour,
			app.config.Jobs.AuditRetentionDays,
			app.mysqlRepo.ChangeEvent,
			lock.NewRedisDistributedLock(redisClient, "chronos:audit-retention-lock"),
		))
	}

	app.jobsManager = manager
	return nil
}

// auditRetentionJob deletes audit events older than the retention window daily
type auditRetentionJob struct {
	interval        time.Duration
	retentionDays   int
	repo            *mysqlstore.ChangeEventRepository
	distributedLock interfaces.WriteLock
}

func newAuditRetentionJob(interval time.Duration, retentionDays int, repo *mysqlstore.ChangeEventRepository, distLock interfaces.WriteLock) jobs.Job {
	return &auditRetentionJob{
		interval:        interval,
		retentionDays:   retentionDays,
		repo:            repo,
		distributedLock: distLock,
	}
}

func (j *auditRetentionJob) Name() string { return "audit-retention-cleanup" }

func (j *auditRetentionJob) Interval() time.Duration { return j.interval }

func (j *auditRetentionJob) AlignToInterval() bool { return true }

func (j *auditRetentionJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return fmt.Errorf("audit repository not configured")
	}

	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running audit retention cleanup, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	before := time.Now().AddDate(0, 0, -j.retentionDays)
	rows, err := j.repo.CleanupOldEvents(ctx, before)
	if err != nil {
		return err
	}
	if rows > 0 {
		logger.InfoCtx(ctx, "cleaned up %d audit events (older than %d days)", rows, j.retentionDays)
	}
	return nil
}
