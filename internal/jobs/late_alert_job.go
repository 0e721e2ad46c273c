package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"chronos/internal/model"
	"chronos/pkg/interfaces"
	"chronos/pkg/logger"
)

const (
	// LateAlertMarkerKey holds "<day>|<sorted late ids>" of the last alert sent by any instance
	LateAlertMarkerKey = "chronos:late-alert:last"

	lateAlertMarkerTTL = 48 * time.Hour
)

// LateTaskSource lists the currently late tasks
type LateTaskSource interface {
	LateTasks(ctx context.Context) ([]model.LateTask, error)
}

// LateTaskNotifier delivers a late task alert to people
type LateTaskNotifier interface {
	SendLateTasks(ctx context.Context, today model.Date, tasks []model.LateTask) error
}

// LateAlertJob periodically reports late tasks. The same set of late tasks is
// alerted at most once per day. With Redis the last alert is shared by all
// instances; the in-memory copy is the fallback.
type LateAlertJob struct {
	interval    time.Duration
	source      LateTaskSource
	today       func() model.Date
	notifier    LateTaskNotifier
	publisher   interfaces.EventPublisher
	lock        interfaces.WriteLock
	redisClient *redis.Client

	lastDay model.Date
	lastKey string
}

// NewLateAlertJob creates the job. notifier, publisher and lock may be nil.
func NewLateAlertJob(interval time.Duration, source LateTaskSource, today func() model.Date) *LateAlertJob {
	return &LateAlertJob{
		interval: interval,
		source:   source,
		today:    today,
	}
}

// WithNotifier sets the webhook notifier
func (j *LateAlertJob) WithNotifier(n LateTaskNotifier) *LateAlertJob {
	j.notifier = n
	return j
}

// WithPublisher publishes a LATE_ALERT event per alert
func (j *LateAlertJob) WithPublisher(p interfaces.EventPublisher) *LateAlertJob {
	j.publisher = p
	return j
}

// WithLock keeps replicas from running the check at the same time
func (j *LateAlertJob) WithLock(l interfaces.WriteLock) *LateAlertJob {
	j.lock = l
	return j
}

// WithRedis stores the last alert in Redis so replicas do not repeat it.
// Pair it with WithLock.
func (j *LateAlertJob) WithRedis(client *redis.Client) *LateAlertJob {
	j.redisClient = client
	return j
}

func (j *LateAlertJob) Name() string { return "late-task-alert" }

func (j *LateAlertJob) Interval() time.Duration { return j.interval }

func (j *LateAlertJob) Run(ctx context.Context) error {
	if j.source == nil {
		return fmt.Errorf("late task source not configured")
	}

	if j.lock != nil {
		acquired, err := j.lock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running the late task alert, skipping this cycle")
			return nil
		}
		defer j.lock.Unlock(ctx)
	}

	tasks, err := j.source.LateTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list late tasks: %w", err)
	}

	today := j.today()
	if len(tasks) == 0 {
		logger.DebugCtx(ctx, "no late tasks on %s", today)
		j.remember(ctx, today, "")
		return nil
	}

	key := alertKey(tasks)
	lastDay, lastKey := j.lastAlert(ctx)
	if today.Equal(lastDay) && key == lastKey {
		logger.DebugCtx(ctx, "late tasks unchanged since last alert, skipping")
		return nil
	}

	for _, t := range tasks {
		logger.WarnCtx(ctx, "late task: employee=%s, project=%s, sub_task=%s, end=%s, progress=%d%%",
			t.Employee, t.Project, t.SubTask, t.EndDate, t.Progress)
	}

	if j.notifier != nil {
		if err := j.notifier.SendLateTasks(ctx, today, tasks); err != nil {
			return fmt.Errorf("failed to send late task alert: %w", err)
		}
	}
	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, lateAlertEvent(tasks)); err != nil {
			logger.ErrorCtx(ctx, "failed to publish late alert event: %v", err)
		}
	}

	j.remember(ctx, today, key)
	return nil
}

// lastAlert returns the day and key of the last alert sent.
func (j *LateAlertJob) lastAlert(ctx context.Context) (model.Date, string) {
	if j.redisClient == nil {
		return j.lastDay, j.lastKey
	}

	val, err := j.redisClient.Get(ctx, LateAlertMarkerKey).Result()
	if err == redis.Nil {
		return model.Date{}, ""
	}
	if err != nil {
		logger.WarnCtx(ctx, "failed to read last late alert from redis, using local copy: %v", err)
		return j.lastDay, j.lastKey
	}

	dayText, key, _ := strings.Cut(val, "|")
	day, err := model.ParseDate(dayText)
	if err != nil {
		return model.Date{}, ""
	}
	return day, key
}

func (j *LateAlertJob) remember(ctx context.Context, day model.Date, key string) {
	j.lastDay, j.lastKey = day, key
	if j.redisClient == nil {
		return
	}
	if err := j.redisClient.Set(ctx, LateAlertMarkerKey, day.String()+"|"+key, lateAlertMarkerTTL).Err(); err != nil {
		logger.WarnCtx(ctx, "failed to store last late alert in redis: %v", err)
	}
}

func alertKey(tasks []model.LateTask) string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

func lateAlertEvent(tasks []model.LateTask) *model.ChangeEvent {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return &model.ChangeEvent{
		ID:        uuid.New().String(),
		Type:      model.ChangeLateAlert,
		Subject:   fmt.Sprintf("%d late tasks", len(tasks)),
		TaskIDs:   ids,
		CreatedAt: time.Now().UTC(),
	}
}
