// Package domain contains the entities exchanged with the outbreak reporting
// backend, the composite view assembled from them, and the error taxonomy
// shared by every layer of the client.
package domain

// ReportStatus represents a position in the report approval workflow.
type ReportStatus string

const (
	StatusDraft       ReportStatus = "Draft"
	StatusSubmitted   ReportStatus = "Submitted"
	StatusUnderReview ReportStatus = "Under Review"
	StatusApproved    ReportStatus = "Approved"
)

// Gender represents the patient gender values accepted by the backend
type Gender string

const (
	GenderFemale Gender = "Female"
	GenderMale   Gender = "Male"
	GenderOther  Gender = "Other"
)

// DiseaseCategory represents the pathogen class of a detected disease
type DiseaseCategory string

const (
	CategoryBacterial DiseaseCategory = "Bacterial"
	CategoryViral     DiseaseCategory = "Viral"
	CategoryParasitic DiseaseCategory = "Parasitic"
	CategoryOther     DiseaseCategory = "Other"
)

// SeverityLevel represents the clinical severity recorded for a disease
type SeverityLevel string

const (
	SeverityLow      SeverityLevel = "Low"
	SeverityMedium   SeverityLevel = "Medium"
	SeverityHigh     SeverityLevel = "High"
	SeverityCritical SeverityLevel = "Critical"
)

// TreatmentStatus represents how far treatment has progressed
type TreatmentStatus string

const (
	TreatmentNone      TreatmentStatus = "None"
	TreatmentOngoing   TreatmentStatus = "Ongoing"
	TreatmentCompleted TreatmentStatus = "Completed"
)

// Report represents a case report and the ids of the entities it links.
// ReporterID, PatientID and DiseaseID are fixed once the report exists.
type Report struct {
	ID          int64        `json:"id"`
	Status      ReportStatus `json:"status" validate:"required,oneof=Draft Submitted 'Under Review' Approved"`
	ReporterID  int64        `json:"reporter_id"`
	PatientID   int64        `json:"patient_id"`
	DiseaseID   int64        `json:"disease_id"`
	DateCreated Timestamp    `json:"date_created"`
	CreatedBy   *int64       `json:"created_by,omitempty"`
	DateUpdated *Timestamp   `json:"date_updated,omitempty"`
	UpdatedBy   *int64       `json:"updated_by,omitempty"`
}

// Reporter represents the person who filed a report
type Reporter struct {
	ID                  int64      `json:"id"`
	FirstName           string     `json:"first_name" validate:"required,max=50"`
	LastName            string     `json:"last_name" validate:"required,max=50"`
	JobTitle            string     `json:"job_title" validate:"required,max=100"`
	OrganizationName    string     `json:"organization_name" validate:"required,max=200"`
	OrganizationAddress string     `json:"organization_address" validate:"required,max=500"`
	PhoneNumber         string     `json:"phone_number" validate:"required,max=20,phone"`
	Email               string     `json:"email" validate:"required,email"`
	RegistrationDate    *Timestamp `json:"registration_date,omitempty"`
}

// Patient represents the affected person. Age is derived by the backend.
type Patient struct {
	ID                  int64     `json:"id"`
	FirstName           string    `json:"first_name" validate:"required,max=50"`
	LastName            string    `json:"last_name" validate:"required,max=50"`
	DateOfBirth         Timestamp `json:"date_of_birth" validate:"required,notfuture"`
	Gender              Gender    `json:"gender" validate:"required,oneof=Female Male Other"`
	MedicalRecordNumber string    `json:"medical_record_number" validate:"required,max=20"`
	PatientAddress      string    `json:"patient_address" validate:"required,max=500"`
	EmergencyContact    string    `json:"emergency_contact,omitempty" validate:"max=200"`
	Age                 *int      `json:"age,omitempty"`
}

// Disease represents the detected condition. The audit fields are set by the backend.
type Disease struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name" validate:"required,max=100"`
	Category        DiseaseCategory `json:"category" validate:"required,oneof=Bacterial Viral Parasitic Other"`
	DateDetected    Timestamp       `json:"date_detected" validate:"required"`
	Symptoms        string          `json:"symptoms" validate:"required"`
	SeverityLevel   SeverityLevel   `json:"severity_level" validate:"required,oneof=Low Medium High Critical"`
	LabResults      string          `json:"lab_results,omitempty"`
	TreatmentStatus TreatmentStatus `json:"treatment_status" validate:"required,oneof=None Ongoing Completed"`
	CreatedBy       *int64          `json:"created_by,omitempty"`
	UpdatedBy       *int64          `json:"updated_by,omitempty"`
	DateCreated     *Timestamp      `json:"date_created,omitempty"`
	DateUpdated     *Timestamp      `json:"date_updated,omitempty"`
}

// ReportComposite joins a report with the three entities it references.
// It is rebuilt on every read and never persisted.
type ReportComposite struct {
	Report   *Report   `json:"report"`
	Reporter *Reporter `json:"reporter"`
	Patient  *Patient  `json:"patient"`
	Disease  *Disease  `json:"disease"`
}

// Complete reports whether all four parts are present and cross-referenced.
func (c *ReportComposite) Complete() bool {
	if c == nil || c.Report == nil || c.Reporter == nil || c.Patient == nil || c.Disease == nil {
		return false
	}
	return c.Reporter.ID == c.Report.ReporterID &&
		c.Patient.ID == c.Report.PatientID &&
		c.Disease.ID == c.Report.DiseaseID
}

// ReportSummary is a report as returned by the list and recent endpoints,
// with its linked entities inlined by the backend.
type ReportSummary struct {
	Report
	Reporter *Reporter `json:"reporter,omitempty"`
	Patient  *Patient  `json:"patient,omitempty"`
	Disease  *Disease  `json:"disease,omitempty"`
}

// ReporterUpdate is the writable subset of Reporter sent on upsert.
type ReporterUpdate struct {
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	JobTitle            string `json:"job_title"`
	OrganizationName    string `json:"organization_name"`
	OrganizationAddress string `json:"organization_address"`
	PhoneNumber         string `json:"phone_number"`
	Email               string `json:"email"`
}

// PatientUpdate is the writable subset of Patient sent on upsert.
type PatientUpdate struct {
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	DateOfBirth         Timestamp `json:"date_of_birth"`
	Gender              Gender    `json:"gender"`
	MedicalRecordNumber string    `json:"medical_record_number"`
	PatientAddress      string    `json:"patient_address"`
	EmergencyContact    string    `json:"emergency_contact,omitempty"`
}

// DiseaseUpdate is the writable subset of Disease sent on upsert.
type DiseaseUpdate struct {
	Name            string          `json:"name"`
	Category        DiseaseCategory `json:"category"`
	DateDetected    Timestamp       `json:"date_detected"`
	Symptoms        string          `json:"symptoms"`
	SeverityLevel   SeverityLevel   `json:"severity_level"`
	LabResults      string          `json:"lab_results,omitempty"`
	TreatmentStatus TreatmentStatus `json:"treatment_status"`
}

// ReportUpdate is the body of PUT /reports/{id}. Only the status is mutable.
type ReportUpdate struct {
	Status ReportStatus `json:"status"`
}

// WritableFields returns the payload sent when upserting the reporter.
func (r *Reporter) WritableFields() ReporterUpdate {
	return ReporterUpdate{
		FirstName:           r.FirstName,
		LastName:            r.LastName,
		JobTitle:            r.JobTitle,
		OrganizationName:    r.OrganizationName,
		OrganizationAddress: r.OrganizationAddress,
		PhoneNumber:         r.PhoneNumber,
		Email:               r.Email,
	}
}

// WritableFields returns the payload sent when upserting the patient.
func (p *Patient) WritableFields() PatientUpdate {
	return PatientUpdate{
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		DateOfBirth:         p.DateOfBirth,
		Gender:              p.Gender,
		MedicalRecordNumber: p.MedicalRecordNumber,
		PatientAddress:      p.PatientAddress,
		EmergencyContact:    p.EmergencyContact,
	}
}

// WritableFields returns the payload sent when upserting the disease.
func (d *Disease) WritableFields() DiseaseUpdate {
	return DiseaseUpdate{
		Name:            d.Name,
		Category:        d.Category,
		DateDetected:    d.DateDetected,
		Symptoms:        d.Symptoms,
		SeverityLevel:   d.SeverityLevel,
		LabResults:      d.LabResults,
		TreatmentStatus: d.TreatmentStatus,
	}
}

// Token is the credential exchange response from /token
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
