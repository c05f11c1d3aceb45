package devbackend

import (
	"sort"
	"sync"
	"time"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

// Store is the in-memory data set served by the development backend.
type Store struct {
	mu        sync.RWMutex
	reports   map[int64]*domain.Report
	reporters map[int64]*domain.Reporter
	patients  map[int64]*domain.Patient
	diseases  map[int64]*domain.Disease
	now       func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		reports:   make(map[int64]*domain.Report),
		reporters: make(map[int64]*domain.Reporter),
		patients:  make(map[int64]*domain.Patient),
		diseases:  make(map[int64]*domain.Disease),
		now:       time.Now,
	}
}

// PutReport stores a report and its linked entities, replacing any existing ones.
func (s *Store) PutReport(report domain.Report, reporter domain.Reporter, patient domain.Patient, disease domain.Disease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reporter.ID, patient.ID, disease.ID = report.ReporterID, report.PatientID, report.DiseaseID
	s.reports[report.ID] = &report
	s.reporters[reporter.ID] = &reporter
	s.patients[patient.ID] = &patient
	s.diseases[disease.ID] = &disease
}

// Report returns the report with its linked entities inlined
func (s *Store) Report(id int64) (*domain.ReportSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, false
	}
	return s.summary(r), true
}

// List returns reports ordered by id
func (s *Store) List(offset, limit int) []domain.ReportSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.reports))
	for id := range s.reports {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []domain.ReportSummary{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *s.summary(s.reports[ids[i]]))
	}
	return out
}

// Recent returns the most recently updated submitted report
func (s *Store) Recent() (*domain.ReportSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Report
	for _, r := range s.reports {
		if r.Status != domain.StatusSubmitted {
			continue
		}
		if latest == nil || updatedAt(r).After(updatedAt(latest)) {
			latest = r
		}
	}
	if latest == nil {
		return nil, false
	}
	return s.summary(latest), true
}

func updatedAt(r *domain.Report) time.Time {
	if r.DateUpdated != nil {
		return r.DateUpdated.Time
	}
	return r.DateCreated.Time
}

// SetStatus changes a Draft report's status. ok is false when the report is
// missing; editable is false when it is no longer a draft.
func (s *Store) SetStatus(id int64, status domain.ReportStatus, userID int64) (report *domain.Report, ok, editable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, false, false
	}
	if r.Status != domain.StatusDraft {
		copied := *r
		return &copied, true, false
	}

	now := domain.NewTimestamp(s.now().UTC())
	r.Status = status
	r.DateUpdated = &now
	r.UpdatedBy = &userID
	copied := *r
	return &copied, true, true
}

// Reporter returns a reporter by id
func (s *Store) Reporter(id int64) (*domain.Reporter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reporters[id]
	if !ok {
		return nil, false
	}
	copied := *r
	return &copied, true
}

// Patient returns a patient by id
func (s *Store) Patient(id int64) (*domain.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, false
	}
	copied := *p
	return &copied, true
}

// Disease returns a disease by id
func (s *Store) Disease(id int64) (*domain.Disease, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.diseases[id]
	if !ok {
		return nil, false
	}
	copied := *d
	return &copied, true
}

// UpsertReporter creates or replaces the writable fields of a reporter
func (s *Store) UpsertReporter(id int64, u domain.ReporterUpdate) *domain.Reporter {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reporters[id]
	if !ok {
		now := domain.NewTimestamp(s.now().UTC())
		r = &domain.Reporter{ID: id, RegistrationDate: &now}
		s.reporters[id] = r
	}
	r.FirstName, r.LastName, r.JobTitle = u.FirstName, u.LastName, u.JobTitle
	r.OrganizationName, r.OrganizationAddress = u.OrganizationName, u.OrganizationAddress
	r.PhoneNumber, r.Email = u.PhoneNumber, u.Email
	copied := *r
	return &copied
}

// UpsertPatient creates or replaces the writable fields of a patient and
// recomputes the age.
func (s *Store) UpsertPatient(id int64, u domain.PatientUpdate) *domain.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		p = &domain.Patient{ID: id}
		s.patients[id] = p
	}
	p.FirstName, p.LastName = u.FirstName, u.LastName
	p.DateOfBirth, p.Gender = u.DateOfBirth, u.Gender
	p.MedicalRecordNumber, p.PatientAddress, p.EmergencyContact = u.MedicalRecordNumber, u.PatientAddress, u.EmergencyContact
	age := ageAt(p.DateOfBirth.Time, s.now())
	p.Age = &age
	copied := *p
	return &copied
}

// UpsertDisease creates or replaces the writable fields of a disease
func (s *Store) UpsertDisease(id int64, u domain.DiseaseUpdate, userID int64) *domain.Disease {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := domain.NewTimestamp(s.now().UTC())
	d, ok := s.diseases[id]
	if !ok {
		d = &domain.Disease{ID: id, CreatedBy: &userID, DateCreated: &now}
		s.diseases[id] = d
	} else {
		d.UpdatedBy = &userID
		d.DateUpdated = &now
	}
	d.Name, d.Category, d.DateDetected = u.Name, u.Category, u.DateDetected
	d.Symptoms, d.SeverityLevel, d.LabResults, d.TreatmentStatus = u.Symptoms, u.SeverityLevel, u.LabResults, u.TreatmentStatus
	copied := *d
	return &copied
}

func (s *Store) summary(r *domain.Report) *domain.ReportSummary {
	out := &domain.ReportSummary{Report: *r}
	if v, ok := s.reporters[r.ReporterID]; ok {
		copied := *v
		out.Reporter = &copied
	}
	if v, ok := s.patients[r.PatientID]; ok {
		copied := *v
		out.Patient = &copied
	}
	if v, ok := s.diseases[r.DiseaseID]; ok {
		copied := *v
		out.Disease = &copied
	}
	return out
}

func ageAt(dob, now time.Time) int {
	if dob.IsZero() {
		return 0
	}
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
