package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

func draftReport() *domain.Report {
	return &domain.Report{ID: 7, Status: domain.StatusDraft, ReporterID: 1, PatientID: 2, DiseaseID: 3}
}

func validReporter() *domain.Reporter {
	return &domain.Reporter{
		ID:                  1,
		FirstName:           "Grace",
		LastName:            "Hopper",
		JobTitle:            "Epidemiologist",
		OrganizationName:    "County Health",
		OrganizationAddress: "1 Main St",
		PhoneNumber:         "+1 (555) 010-2030",
		Email:               "grace@example.org",
	}
}

func validPatient() *domain.Patient {
	return &domain.Patient{
		ID:                  2,
		FirstName:           "Alan",
		LastName:            "Turing",
		DateOfBirth:         domain.NewTimestamp(time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)),
		Gender:              domain.GenderMale,
		MedicalRecordNumber: "MRN-001",
		PatientAddress:      "2 High St",
	}
}

func validDisease() *domain.Disease {
	return &domain.Disease{
		ID:              3,
		Name:            "Cholera",
		Category:        domain.CategoryBacterial,
		DateDetected:    domain.NewTimestamp(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		Symptoms:        "Diarrhoea, dehydration",
		SeverityLevel:   domain.SeverityHigh,
		TreatmentStatus: domain.TreatmentOngoing,
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestEngine_ValidEntities(t *testing.T) {
	e := NewEngine()
	assert.NoError(t, e.ValidateReporter(draftReport(), validReporter()))
	assert.NoError(t, e.ValidatePatient(draftReport(), validPatient()))
	assert.NoError(t, e.ValidateDisease(draftReport(), validDisease()))
}

func TestEngine_InvalidEmail(t *testing.T) {
	e := NewEngine()
	r := validReporter()
	r.Email = "not-an-email"

	err := e.ValidateReporter(draftReport(), r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, []string{"email"}, fieldNames(t, err))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "reporter", verr.Entity)
	assert.Equal(t, "must be a valid email address", verr.Fields[0].Reason)
}

func TestEngine_ReportsEveryFailingField(t *testing.T) {
	e := NewEngine()
	r := &domain.Reporter{
		FirstName:   strings.Repeat("a", 51),
		PhoneNumber: "call me",
		Email:       "x",
	}

	err := e.ValidateReporter(draftReport(), r)
	assert.ElementsMatch(t, []string{
		"first_name", "last_name", "job_title", "organization_name",
		"organization_address", "phone_number", "email",
	}, fieldNames(t, err))
}

func TestEngine_NonDraftRejectedBeforeFieldRules(t *testing.T) {
	e := NewEngine()
	submitted := &domain.Report{ID: 42, Status: domain.StatusSubmitted}

	tests := []struct {
		name string
		run  func() error
	}{
		{name: "reporter", run: func() error { return e.ValidateReporter(submitted, validReporter()) }},
		{name: "patient", run: func() error { return e.ValidatePatient(submitted, validPatient()) }},
		{name: "disease", run: func() error { return e.ValidateDisease(submitted, validDisease()) }},
		{name: "invalid fields still gated", run: func() error { return e.ValidateReporter(submitted, &domain.Reporter{Email: "nope"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var werr *domain.WorkflowError
			require.True(t, errors.As(err, &werr))
			assert.Equal(t, int64(42), werr.ReportID)
			assert.Equal(t, domain.StatusSubmitted, werr.Status)
			assert.False(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestEngine_PatientRules(t *testing.T) {
	e := NewEngine()
	e.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	future := validPatient()
	future.DateOfBirth = domain.NewTimestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	future.Gender = "Unknown"
	future.EmergencyContact = strings.Repeat("c", 201)
	err := e.ValidatePatient(draftReport(), future)
	assert.ElementsMatch(t, []string{"date_of_birth", "gender", "emergency_contact"}, fieldNames(t, err))

	missing := validPatient()
	missing.DateOfBirth = domain.Timestamp{}
	missing.MedicalRecordNumber = strings.Repeat("9", 21)
	err = e.ValidatePatient(draftReport(), missing)
	assert.ElementsMatch(t, []string{"date_of_birth", "medical_record_number"}, fieldNames(t, err))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	for _, f := range verr.Fields {
		if f.Field == "date_of_birth" {
			assert.Equal(t, "is required", f.Reason)
		}
		if f.Field == "medical_record_number" {
			assert.Equal(t, "must be 20 characters or less", f.Reason)
		}
	}
}

func TestEngine_DiseaseRules(t *testing.T) {
	e := NewEngine()
	d := validDisease()
	d.Name = ""
	d.Category = "Fungal"
	d.SeverityLevel = ""
	d.TreatmentStatus = "Paused"
	d.Symptoms = ""
	d.DateDetected = domain.Timestamp{}

	err := e.ValidateDisease(draftReport(), d)
	assert.ElementsMatch(t, []string{
		"name", "category", "severity_level", "treatment_status", "symptoms", "date_detected",
	}, fieldNames(t, err))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	for _, f := range verr.Fields {
		if f.Field == "category" {
			assert.Equal(t, "must be one of: Bacterial Viral Parasitic Other", f.Reason)
		}
	}
}

func TestEngine_PhoneCharacters(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		phone string
		valid bool
	}{
		{phone: "555-0100", valid: true},
		{phone: "+44 20 7946 0958", valid: true},
		{phone: "(555) 010.2030", valid: true},
		{phone: "555-CALL", valid: false},
		{phone: "+", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			r := validReporter()
			r.PhoneNumber = tt.phone
			err := e.ValidateReporter(draftReport(), r)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, []string{"phone_number"}, fieldNames(t, err))
			}
		})
	}
}

func TestEngine_ValidateStatusChange(t *testing.T) {
	e := NewEngine()

	assert.NoError(t, e.ValidateStatusChange(draftReport(), domain.StatusSubmitted))
	assert.NoError(t, e.ValidateStatusChange(&domain.Report{ID: 9, Status: domain.StatusUnderReview}, domain.StatusApproved))

	err := e.ValidateStatusChange(draftReport(), "Closed")
	assert.Equal(t, []string{"status"}, fieldNames(t, err))

	err = e.ValidateStatusChange(draftReport(), domain.StatusApproved)
	var werr *domain.WorkflowError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, int64(7), werr.ReportID)

	err = e.ValidateStatusChange(&domain.Report{ID: 9, Status: domain.StatusApproved}, domain.StatusDraft)
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, domain.StatusApproved, werr.From)

	assert.Error(t, e.ValidateStatusChange(nil, domain.StatusSubmitted))
}
