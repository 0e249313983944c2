package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/models"
	"github.com/wbsdickson/bpsp-portal-sub002/store"
)

func newTestDriver(t *testing.T, db *gorm.DB, now time.Time) *Driver {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	d := NewDriver(db, store.NewScheduleStore(db), NewMaterializer(), log.WithField("test", t.Name()), DriverOptions{})
	d.Now = func() time.Time { return now }
	return d
}

func countInvoices(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&count).Error)
	return count
}

func TestRunTick_FiresDueSchedule(t *testing.T) {
	db := setupTestDB(t)
	fix := seedFixture(t, db)

	// Biweekly from 2024-01-01, currently due 2024-01-15; ticking on
	// the due date fires once and advances to 2024-01-29.
	d := newTestDriver(t, db, date(2024, time.January, 15))
	require.NoError(t, d.RunTick(context.Background()))

	assert.EqualValues(t, 1, countInvoices(t, db))

	var invoice models.Invoice
	require.NoError(t, db.Preload("Lines").First(&invoice).Error)
	assert.True(t, invoice.Total.IntPart() == 2200, "total %s", invoice.Total)
	require.NotNil(t, invoice.ScheduleID)
	assert.Equal(t, fix.schedule.ID, *invoice.ScheduleID)

	var schedule models.Schedule
	require.NoError(t, db.First(&schedule, "id = ?", fix.schedule.ID).Error)
	require.NotNil(t, schedule.NextIssuanceDate)
	assert.True(t, schedule.NextIssuanceDate.Equal(date(2024, time.January, 29)),
		"next issuance %s", schedule.NextIssuanceDate)
	require.NotNil(t, schedule.LastIssuedAt)
}

func TestRunTick_NotDueYet(t *testing.T) {
	db := setupTestDB(t)
	seedFixture(t, db)

	d := newTestDriver(t, db, date(2024, time.January, 14))
	require.NoError(t, d.RunTick(context.Background()))

	assert.Zero(t, countInvoices(t, db))
}

func TestRunTick_RerunDoesNotDoubleFire(t *testing.T) {
	db := setupTestDB(t)
	seedFixture(t, db)

	d := newTestDriver(t, db, date(2024, time.January, 15))
	require.NoError(t, d.RunTick(context.Background()))
	require.NoError(t, d.RunTick(context.Background()))

	assert.EqualValues(t, 1, countInvoices(t, db))
}

func TestFire_ConflictRollsBackInvoice(t *testing.T) {
	db := setupTestDB(t)
	fix := seedFixture(t, db)
	d := newTestDriver(t, db, date(2024, time.January, 15))

	// Another runner advanced the schedule after we loaded it. Our
	// stale copy must lose the compare-and-swap, and the invoice
	// created in the same transaction must roll back with it, so the
	// occurrence is issued at most once.
	advanced := date(2024, time.January, 29)
	require.NoError(t, db.Model(&models.Schedule{}).
		Where("id = ?", fix.schedule.ID).
		Update("next_issuance_date", advanced).Error)

	err := d.fire(context.Background(), &fix.schedule, date(2024, time.January, 15))
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Zero(t, countInvoices(t, db))
}

func TestRunTick_AdvancesToExhausted(t *testing.T) {
	db := setupTestDB(t)
	fix := seedFixture(t, db)

	// End date right after the due occurrence: firing leaves no next
	// occurrence, so the schedule parks as exhausted.
	end := date(2024, time.January, 20)
	require.NoError(t, db.Model(&models.Schedule{}).
		Where("id = ?", fix.schedule.ID).
		Update("end_date", end).Error)

	d := newTestDriver(t, db, date(2024, time.January, 15))
	require.NoError(t, d.RunTick(context.Background()))

	assert.EqualValues(t, 1, countInvoices(t, db))

	var schedule models.Schedule
	require.NoError(t, db.First(&schedule, "id = ?", fix.schedule.ID).Error)
	assert.True(t, schedule.Exhausted())

	// Exhausted schedules are never due again.
	require.NoError(t, d.RunTick(context.Background()))
	assert.EqualValues(t, 1, countInvoices(t, db))
}

func TestRunTick_MaterializationFailureDisablesAfterThreshold(t *testing.T) {
	db := setupTestDB(t)
	fix := seedFixture(t, db)
	require.NoError(t, db.Delete(&fix.template).Error)

	d := newTestDriver(t, db, date(2024, time.January, 15))

	// Failures leave the next date untouched so the schedule is
	// retried each tick, up to the threshold.
	for i := 1; i <= DefaultRetryThreshold; i++ {
		require.NoError(t, d.RunTick(context.Background()))
	}

	assert.Zero(t, countInvoices(t, db))

	var schedule models.Schedule
	require.NoError(t, db.First(&schedule, "id = ?", fix.schedule.ID).Error)
	assert.False(t, schedule.Enabled)
	assert.Equal(t, DefaultRetryThreshold, schedule.FailureCount)
	assert.Contains(t, schedule.DisabledReason, "cannot materialize")
	require.NotNil(t, schedule.NextIssuanceDate)
	assert.True(t, schedule.NextIssuanceDate.Equal(date(2024, time.January, 15)))

	// Disabled means no further evaluation.
	require.NoError(t, d.RunTick(context.Background()))
	require.NoError(t, db.First(&schedule, "id = ?", fix.schedule.ID).Error)
	assert.Equal(t, DefaultRetryThreshold, schedule.FailureCount)
}

func TestRunTick_OneFailureDoesNotBlockOthers(t *testing.T) {
	db := setupTestDB(t)
	broken := seedFixture(t, db)
	healthy := seedFixture(t, db)
	require.NoError(t, db.Delete(&broken.template).Error)

	d := newTestDriver(t, db, date(2024, time.January, 15))
	require.NoError(t, d.RunTick(context.Background()))

	// The healthy merchant's schedule fired despite the broken one.
	assert.EqualValues(t, 1, countInvoices(t, db))
	var invoice models.Invoice
	require.NoError(t, db.First(&invoice).Error)
	assert.Equal(t, healthy.merchantID, invoice.MerchantID)

	var schedule models.Schedule
	require.NoError(t, db.First(&schedule, "id = ?", broken.schedule.ID).Error)
	assert.Equal(t, 1, schedule.FailureCount)
}

func TestRunTick_TransientErrorDoesNotCountTowardDisable(t *testing.T) {
	db := setupTestDB(t)
	fix := seedFixture(t, db)

	d := newTestDriver(t, db, date(2024, time.January, 15))
	// An already expired per-schedule deadline aborts the firing before
	// any lookup completes.
	d.fireTimeout = time.Nanosecond
	require.NoError(t, d.RunTick(context.Background()))

	assert.EqualValues(t, 0, countInvoices(t, db))

	// The schedule is retried next tick, not pushed toward auto-disable.
	var schedule models.Schedule
	require.NoError(t, db.First(&schedule, "id = ?", fix.schedule.ID).Error)
	assert.True(t, schedule.Enabled)
	assert.Equal(t, 0, schedule.FailureCount)
	require.NotNil(t, schedule.NextIssuanceDate)
	assert.True(t, schedule.NextIssuanceDate.Equal(date(2024, time.January, 15)),
		"next issuance %s", schedule.NextIssuanceDate)
}

func TestRunTick_SuccessResetsFailureCount(t *testing.T) {
	db := setupTestDB(t)
	fix := seedFixture(t, db)
	require.NoError(t, db.Model(&models.Schedule{}).
		Where("id = ?", fix.schedule.ID).
		Update("failure_count", 2).Error)

	d := newTestDriver(t, db, date(2024, time.January, 15))
	require.NoError(t, d.RunTick(context.Background()))

	var schedule models.Schedule
	require.NoError(t, db.First(&schedule, "id = ?", fix.schedule.ID).Error)
	assert.Zero(t, schedule.FailureCount)
}
