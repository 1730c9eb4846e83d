package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/printvend/printvend-api/config"
	"github.com/printvend/printvend-api/models"
)

// setupServiceTest wires an in-memory database and resets the service
// singletons for a test.
func setupServiceTest(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&models.Printer{}, &models.PrintJob{}, &models.PrintJobLog{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	config.SetConfig(&config.Config{DatabaseURL: "sqlite::memory:", MaxPageSize: 100})
	SetNotifier(nil)
	SetS3Service(nil)
	SetDispatcher(nil)
	return db
}

// validJobInput returns a creation input that passes all validation
func validJobInput() CreatePrintJobInput {
	return CreatePrintJobInput{
		Name:             "Keychain",
		Description:      "Custom keychain with logo",
		Material:         "PLA",
		FileURL:          "s3://printvend-models/uploads/keychain.stl",
		FileName:         "keychain.stl",
		FileSize:         1024,
		Price:            5.00,
		EstimatedMinutes: 45,
		CustomerEmail:    "a@b.com",
	}
}

func TestCreatePrintJob(t *testing.T) {
	setupServiceTest(t)

	job, err := CreatePrintJob(validJobInput())
	assert.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.Equal(t, uint(1), job.Version)
	assert.Equal(t, "a@b.com", job.CustomerEmail)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.PrinterID)

	// Exactly one log entry, of type Created
	assert.Len(t, job.Logs, 1)
	assert.Equal(t, models.EventCreated, job.Logs[0].EventType)
}

func TestCreatePrintJob_NormalizesMaterial(t *testing.T) {
	setupServiceTest(t)

	input := validJobInput()
	input.Material = "pla"
	job, err := CreatePrintJob(input)
	assert.NoError(t, err)
	assert.Equal(t, "PLA", job.Material)
}

func TestCreatePrintJob_Validation(t *testing.T) {
	setupServiceTest(t)

	tests := []struct {
		name   string
		mutate func(*CreatePrintJobInput)
	}{
		{"missing name", func(in *CreatePrintJobInput) { in.Name = "" }},
		{"missing material", func(in *CreatePrintJobInput) { in.Material = "" }},
		{"unknown material", func(in *CreatePrintJobInput) { in.Material = "wood" }},
		{"missing customer email", func(in *CreatePrintJobInput) { in.CustomerEmail = "" }},
		{"missing file reference", func(in *CreatePrintJobInput) { in.FileURL = "" }},
		{"disallowed file format", func(in *CreatePrintJobInput) {
			in.FileURL = "s3://printvend-models/uploads/virus.exe"
			in.FileName = "virus.exe"
		}},
		{"negative price", func(in *CreatePrintJobInput) { in.Price = -1 }},
		{"negative duration", func(in *CreatePrintJobInput) { in.EstimatedMinutes = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validJobInput()
			tt.mutate(&input)

			_, err := CreatePrintJob(input)
			assert.Error(t, err)
			assert.Equal(t, CodeValidation, ErrorCode(err))
		})
	}

	// Nothing should have been stored
	db := config.GetDB()
	var count int64
	db.Model(&models.PrintJob{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGetPrintJob_NotFound(t *testing.T) {
	setupServiceTest(t)

	_, err := GetPrintJob("no-such-job")
	assert.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, CodeJobNotFound, ErrorCode(err))
}

func TestGetPrintJob_LogsNewestFirst(t *testing.T) {
	db := setupServiceTest(t)

	job, err := CreatePrintJob(validJobInput())
	assert.NoError(t, err)

	// Backdate the Created entry so ordering by timestamp is observable
	db.Model(&models.PrintJobLog{}).
		Where("job_id = ?", job.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour))

	assert.NoError(t, UpdateJobStatus(job.ID, UpdateStatusInput{Status: models.StatusPrinting}))

	loaded, err := GetPrintJob(job.ID)
	assert.NoError(t, err)
	assert.Len(t, loaded.Logs, 2)
	assert.Equal(t, models.EventStatusChanged, loaded.Logs[0].EventType)
	assert.Equal(t, models.EventCreated, loaded.Logs[1].EventType)
}

func TestListPrintJobs_FilterByStatus(t *testing.T) {
	setupServiceTest(t)

	for i := 0; i < 3; i++ {
		job, err := CreatePrintJob(validJobInput())
		assert.NoError(t, err)
		if i < 2 {
			assert.NoError(t, UpdateJobStatus(job.ID, UpdateStatusInput{Status: models.StatusPrinting}))
			assert.NoError(t, UpdateJobStatus(job.ID, UpdateStatusInput{Status: models.StatusCompleted}))
		}
	}

	jobs, total, err := ListPrintJobs(JobFilter{Status: "completed", Page: 1, PageSize: 20})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, jobs, 2)
	for _, job := range jobs {
		assert.Equal(t, models.StatusCompleted, job.Status)
	}

	// Unfiltered count includes the pending job
	_, total, err = ListPrintJobs(JobFilter{Page: 1, PageSize: 20})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestListPrintJobs_FilterByCustomerEmail(t *testing.T) {
	setupServiceTest(t)

	first := validJobInput()
	_, err := CreatePrintJob(first)
	assert.NoError(t, err)

	second := validJobInput()
	second.CustomerEmail = "other@example.com"
	_, err = CreatePrintJob(second)
	assert.NoError(t, err)

	jobs, total, err := ListPrintJobs(JobFilter{CustomerEmail: "other@example.com", Page: 1, PageSize: 20})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, jobs, 1)
	assert.Equal(t, "other@example.com", jobs[0].CustomerEmail)
}

func TestListPrintJobs_Pagination(t *testing.T) {
	setupServiceTest(t)

	for i := 0; i < 5; i++ {
		_, err := CreatePrintJob(validJobInput())
		assert.NoError(t, err)
	}

	jobs, total, err := ListPrintJobs(JobFilter{Page: 1, PageSize: 2})
	assert.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, jobs, 2)

	jobs, total, err = ListPrintJobs(JobFilter{Page: 3, PageSize: 2})
	assert.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, jobs, 1)

	// Beyond the last page: empty page, total still reported
	jobs, total, err = ListPrintJobs(JobFilter{Page: 4, PageSize: 2})
	assert.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, jobs, 0)
}

func TestListPrintJobs_ParameterValidation(t *testing.T) {
	setupServiceTest(t)

	_, _, err := ListPrintJobs(JobFilter{Page: 0, PageSize: 20})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, _, err = ListPrintJobs(JobFilter{Page: 1, PageSize: 0})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, _, err = ListPrintJobs(JobFilter{Page: 1, PageSize: 101})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, _, err = ListPrintJobs(JobFilter{Status: "shipped", Page: 1, PageSize: 20})
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestListPrintJobs_TrimsLogsToFiveMostRecent(t *testing.T) {
	db := setupServiceTest(t)

	job, err := CreatePrintJob(validJobInput())
	assert.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		entry := models.PrintJobLog{
			JobID:     job.ID,
			EventType: models.EventStatusChanged,
			Message:   "backfilled entry",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		assert.NoError(t, db.Create(&entry).Error)
	}

	jobs, _, err := ListPrintJobs(JobFilter{Page: 1, PageSize: 20})
	assert.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Len(t, jobs[0].Logs, 5)

	// The full history is still available on direct retrieval
	loaded, err := GetPrintJob(job.ID)
	assert.NoError(t, err)
	assert.Len(t, loaded.Logs, 8)
}

func TestListPrintJobs_RetriedAttemptStartsClean(t *testing.T) {
	db := setupServiceTest(t)

	for i := 0; i < 3; i++ {
		_, err := CreatePrintJob(validJobInput())
		assert.NoError(t, err)
	}

	// Fail the first query with a transient error so the listing retries;
	// the second attempt must produce a correct page and total
	failures := 1
	err := db.Callback().Query().Before("gorm:query").Register("inject_transient_failure", func(tx *gorm.DB) {
		if failures > 0 {
			failures--
			tx.AddError(errors.New("database is locked"))
		}
	})
	assert.NoError(t, err)
	defer db.Callback().Query().Remove("inject_transient_failure")

	jobs, total, err := ListPrintJobs(JobFilter{Page: 1, PageSize: 2})
	assert.NoError(t, err)
	assert.Equal(t, 0, failures, "the injected failure was consumed")
	assert.Equal(t, int64(3), total)
	assert.Len(t, jobs, 2)
}

func TestDeletePrintJob_CascadesLogs(t *testing.T) {
	db := setupServiceTest(t)

	job, err := CreatePrintJob(validJobInput())
	assert.NoError(t, err)
	assert.NoError(t, UpdateJobStatus(job.ID, UpdateStatusInput{Status: models.StatusQueued}))

	assert.NoError(t, DeletePrintJob(job.ID))

	var jobCount, logCount int64
	db.Model(&models.PrintJob{}).Count(&jobCount)
	db.Model(&models.PrintJobLog{}).Count(&logCount)
	assert.Equal(t, int64(0), jobCount)
	assert.Equal(t, int64(0), logCount, "no orphaned logs after delete")
}

func TestDeletePrintJob_CleansUpStoredFile(t *testing.T) {
	setupServiceTest(t)
	mockS3 := NewMockS3Service()
	mockS3.SetAsMockForTesting()

	job, err := CreatePrintJob(validJobInput())
	assert.NoError(t, err)

	assert.NoError(t, DeletePrintJob(job.ID))
	assert.Equal(t, []string{"uploads/keychain.stl"}, mockS3.DeletedKeys())
}

func TestDeletePrintJob_NotFound(t *testing.T) {
	setupServiceTest(t)

	err := DeletePrintJob("no-such-job")
	assert.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestIsValidMaterial(t *testing.T) {
	assert.True(t, IsValidMaterial("PLA"))
	assert.True(t, IsValidMaterial("petg"))
	assert.False(t, IsValidMaterial("wood"))
	assert.False(t, IsValidMaterial(""))
}
