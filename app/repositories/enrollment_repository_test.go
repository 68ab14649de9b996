package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"doula/app/models/consent"
	"doula/app/models/enrollment"
)

func setupEnrollmentDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&enrollment.Enrollment{}, &consent.Consent{}))
	return db
}

func TestEnrollmentRepositoryCreateAndGet(t *testing.T) {
	db := setupEnrollmentDB(t)
	repo := NewEnrollmentRepositoryWithDB(db)
	ctx := context.Background()

	e := &enrollment.Enrollment{
		UserID:     "user-1",
		TrainingID: "training-1",
	}
	require.NoError(t, repo.Create(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "pending", e.PaymentStatus) // 默认支付状态
	assert.False(t, e.EnrolledAt.IsZero())

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "training-1", got.TrainingID)
	assert.Nil(t, got.PassedAssessment)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEnrollmentRepositoryGetByTrainingID(t *testing.T) {
	db := setupEnrollmentDB(t)
	repo := NewEnrollmentRepositoryWithDB(db)
	ctx := context.Background()

	for _, userID := range []string{"user-1", "user-2"} {
		require.NoError(t, repo.Create(ctx, &enrollment.Enrollment{
			UserID:     userID,
			TrainingID: "training-9",
		}))
	}
	require.NoError(t, repo.Create(ctx, &enrollment.Enrollment{
		UserID:     "user-3",
		TrainingID: "training-other",
	}))

	items, err := repo.GetByTrainingID(ctx, "training-9")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestEnrollmentRepositoryUpdateAssessment(t *testing.T) {
	db := setupEnrollmentDB(t)
	repo := NewEnrollmentRepositoryWithDB(db)
	ctx := context.Background()

	e := &enrollment.Enrollment{UserID: "user-1", TrainingID: "training-1"}
	require.NoError(t, repo.Create(ctx, e))

	passed := true
	e.PaymentStatus = "completed"
	e.PassedAssessment = &passed
	require.NoError(t, repo.Update(ctx, e))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.PaymentStatus)
	require.NotNil(t, got.PassedAssessment)
	assert.True(t, *got.PassedAssessment)
}

func TestConsentRepositoryCRUD(t *testing.T) {
	db := setupEnrollmentDB(t)
	repo := NewConsentRepositoryWithDB(db)
	ctx := context.Background()

	c := &consent.Consent{
		UserID:    "user-1",
		Agreement: "同意服务条款 v1",
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.SignedAt.IsZero()) // BeforeCreate 钩子记录签署时间

	c.Agreement = "同意服务条款 v2"
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "同意服务条款 v2", got.Agreement)

	items, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, items, 1)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
