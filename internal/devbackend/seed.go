package devbackend

import (
	"time"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

// Seed loads one report per workflow status so every client path can be
// exercised against a fresh backend.
func Seed(s *Store) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	at := func(days int) domain.Timestamp { return domain.NewTimestamp(base.AddDate(0, 0, days)) }
	admin := int64(1)

	statuses := []domain.ReportStatus{
		domain.StatusDraft,
		domain.StatusSubmitted,
		domain.StatusUnderReview,
		domain.StatusApproved,
	}
	diseases := []struct {
		name     string
		category domain.DiseaseCategory
		severity domain.SeverityLevel
	}{
		{"Cholera", domain.CategoryBacterial, domain.SeverityHigh},
		{"Measles", domain.CategoryViral, domain.SeverityMedium},
		{"Malaria", domain.CategoryParasitic, domain.SeverityCritical},
		{"Influenza", domain.CategoryViral, domain.SeverityLow},
	}

	for i, status := range statuses {
		id := int64(i + 1)
		created := at(i)
		updated := at(i + 1)
		dob := domain.NewTimestamp(time.Date(1980+i*5, time.Month(i+2), 10, 0, 0, 0, 0, time.UTC))
		age := ageAt(dob.Time, base)

		report := domain.Report{
			ID:          id,
			Status:      status,
			ReporterID:  id,
			PatientID:   id,
			DiseaseID:   id,
			DateCreated: created,
			CreatedBy:   &admin,
		}
		if status != domain.StatusDraft {
			report.DateUpdated = &updated
			report.UpdatedBy = &admin
		}

		s.PutReport(report,
			domain.Reporter{
				FirstName:           "Dana",
				LastName:            []string{"Okafor", "Lindqvist", "Moreau", "Tanaka"}[i],
				JobTitle:            "Field Epidemiologist",
				OrganizationName:    "Regional Health Office",
				OrganizationAddress: "12 Harbour Road",
				PhoneNumber:         "+1 555 0100",
				Email:               "dana@example.org",
				RegistrationDate:    &created,
			},
			domain.Patient{
				FirstName:           []string{"Ravi", "Ines", "Tomas", "Ama"}[i],
				LastName:            "Doe",
				DateOfBirth:         dob,
				Gender:              []domain.Gender{domain.GenderMale, domain.GenderFemale, domain.GenderMale, domain.GenderOther}[i],
				MedicalRecordNumber: "MRN-00" + string(rune('1'+i)),
				PatientAddress:      "4 River Street",
				Age:                 &age,
			},
			domain.Disease{
				Name:            diseases[i].name,
				Category:        diseases[i].category,
				DateDetected:    created,
				Symptoms:        "Fever",
				SeverityLevel:   diseases[i].severity,
				TreatmentStatus: domain.TreatmentOngoing,
				CreatedBy:       &admin,
				DateCreated:     &created,
			},
		)
	}
}
