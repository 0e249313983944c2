package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/models"
	"github.com/wbsdickson/bpsp-portal-sub002/recurrence"
	"github.com/wbsdickson/bpsp-portal-sub002/store"
)

const (
	// DefaultRetryThreshold is how many consecutive materialization
	// failures disable a schedule.
	DefaultRetryThreshold = 3

	// DefaultFireTimeout bounds a single schedule's firing so a stuck
	// materialization cannot block the rest of the tick.
	DefaultFireTimeout = 30 * time.Second
)

// Driver runs the issuance tick: it finds due schedules, materializes
// one invoice per due schedule, and advances each schedule past the
// fired occurrence. Each schedule fires in its own transaction, so one
// failure never blocks or rolls back another schedule in the same tick.
type Driver struct {
	db             *gorm.DB
	schedules      *store.ScheduleStore
	materializer   *Materializer
	log            *logrus.Entry
	cronEngine     *cron.Cron
	retryThreshold int
	fireTimeout    time.Duration
	Now            func() time.Time
}

type DriverOptions struct {
	RetryThreshold int
	FireTimeout    time.Duration
}

func NewDriver(db *gorm.DB, schedules *store.ScheduleStore, materializer *Materializer, log *logrus.Entry, opts DriverOptions) *Driver {
	if opts.RetryThreshold <= 0 {
		opts.RetryThreshold = DefaultRetryThreshold
	}
	if opts.FireTimeout <= 0 {
		opts.FireTimeout = DefaultFireTimeout
	}
	return &Driver{
		db:             db,
		schedules:      schedules,
		materializer:   materializer,
		log:            log,
		retryThreshold: opts.RetryThreshold,
		fireTimeout:    opts.FireTimeout,
		Now:            time.Now,
	}
}

// Start registers the tick on the given cron spec and starts the cron
// engine.
func (d *Driver) Start(cronSpec string) error {
	d.cronEngine = cron.New()
	_, err := d.cronEngine.AddFunc(cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := d.RunTick(ctx); err != nil {
			d.log.WithError(err).Error("issuance tick failed")
		}
	})
	if err != nil {
		return err
	}
	d.cronEngine.Start()
	d.log.WithField("cron_spec", cronSpec).Info("issuance scheduler started")
	return nil
}

// Stop stops the cron engine and waits for a running tick to finish.
func (d *Driver) Stop() {
	if d.cronEngine == nil {
		return
	}
	<-d.cronEngine.Stop().Done()
	d.log.Info("issuance scheduler stopped")
}

// RunTick fires every due schedule once. It returns an error only when
// the due set cannot be loaded; per-schedule failures are recorded and
// logged without aborting the tick.
func (d *Driver) RunTick(ctx context.Context) error {
	now := d.Now()
	due, err := d.schedules.ListDue(ctx, now)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		d.log.Debug("no schedules due")
		return nil
	}
	d.log.WithField("due", len(due)).Info("issuance tick started")

	for i := range due {
		schedule := due[i]
		fireCtx, cancel := context.WithTimeout(ctx, d.fireTimeout)
		err := d.fire(fireCtx, &schedule, now)
		cancel()

		switch {
		case err == nil:
			d.log.WithFields(logrus.Fields{
				"schedule_id": schedule.ID,
				"merchant_id": schedule.MerchantID,
			}).Info("invoice issued")
		case errors.Is(err, store.ErrConflict):
			// Another runner fired this occurrence first.
			d.log.WithField("schedule_id", schedule.ID).Debug("occurrence already issued, skipping")
		default:
			d.recordFailure(ctx, &schedule, err)
		}
	}
	return nil
}

// fire materializes, persists and advances one schedule atomically:
// the invoice row and the next-date advance commit together or not at
// all, so an interrupted tick can be re-run without double-firing.
func (d *Driver) fire(ctx context.Context, schedule *models.Schedule, now time.Time) error {
	if schedule.NextIssuanceDate == nil {
		return store.ErrConflict
	}

	next, hasNext := recurrence.NextOccurrence(schedule.Rule(), *schedule.NextIssuanceDate)
	var nextPtr *time.Time
	if hasNext {
		nextPtr = &next
	}

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := d.materializer.Materialize(tx, schedule)
		if err != nil {
			return err
		}
		if err := tx.Create(invoice).Error; err != nil {
			return err
		}
		return d.schedules.AdvanceAfterIssue(tx, schedule, nextPtr, now)
	})
}

func (d *Driver) recordFailure(ctx context.Context, schedule *models.Schedule, fireErr error) {
	entry := d.log.WithFields(logrus.Fields{
		"schedule_id": schedule.ID,
		"merchant_id": schedule.MerchantID,
	})

	var matErr *MaterializationError
	if !errors.As(fireErr, &matErr) {
		// Transient (DB, timeout): next date is untouched, so the
		// schedule is retried next tick without counting toward
		// auto-disable.
		entry.WithError(fireErr).Error("schedule firing failed, will retry next tick")
		return
	}

	updated, disabled, err := d.schedules.RecordFailure(ctx, schedule.ID, matErr.Error(), d.retryThreshold)
	if err != nil {
		entry.WithError(err).Error("failed to record materialization failure")
		return
	}
	if disabled {
		// Operator alert: the schedule needs manual review and re-enable.
		entry.WithFields(logrus.Fields{
			"failure_count": updated.FailureCount,
			"reason":        updated.DisabledReason,
		}).Error("schedule auto-disabled after repeated materialization failures")
		return
	}
	entry.WithError(matErr).WithField("failure_count", updated.FailureCount).
		Warn("materialization failed, will retry next tick")
}
