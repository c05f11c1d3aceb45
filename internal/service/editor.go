package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/outbreak-reporting/report-client/internal/domain"
	"github.com/outbreak-reporting/report-client/internal/validation"
	"github.com/outbreak-reporting/report-client/internal/workflow"
)

// ReportStore is the report read/update side used by the editor
type ReportStore interface {
	Get(ctx context.Context, id int64) (*domain.Report, error)
	Update(ctx context.Context, id int64, update domain.ReportUpdate) error
}

// ReporterWriter upserts reporters
type ReporterWriter interface {
	Upsert(ctx context.Context, id int64, update domain.ReporterUpdate) (*domain.Reporter, error)
}

// PatientWriter upserts patients
type PatientWriter interface {
	Upsert(ctx context.Context, id int64, update domain.PatientUpdate) (*domain.Patient, error)
}

// DiseaseWriter upserts diseases
type DiseaseWriter interface {
	Upsert(ctx context.Context, id int64, update domain.DiseaseUpdate) (*domain.Disease, error)
}

// Editor is the write path. Nothing is sent until the workflow gate and the
// field rules have passed.
type Editor struct {
	reports   ReportStore
	reporters ReporterWriter
	patients  PatientWriter
	diseases  DiseaseWriter
	engine    *validation.Engine
	log       *logrus.Logger
}

// NewEditor creates an editor
func NewEditor(
	reports ReportStore,
	reporters ReporterWriter,
	patients PatientWriter,
	diseases DiseaseWriter,
	engine *validation.Engine,
	logger *logrus.Logger,
) *Editor {
	return &Editor{
		reports:   reports,
		reporters: reporters,
		patients:  patients,
		diseases:  diseases,
		engine:    engine,
		log:       logger,
	}
}

// SaveReporter validates reporter against the composite's report and upserts
// it under the id the report references. The composite is updated on success.
func (e *Editor) SaveReporter(ctx context.Context, composite *domain.ReportComposite, reporter *domain.Reporter) (*domain.Reporter, error) {
	report, err := owningReport(composite)
	if err != nil {
		return nil, err
	}
	if err := e.engine.ValidateReporter(report, reporter); err != nil {
		return nil, err
	}
	if err := checkOwnership(report, partReporter, report.ReporterID, reporter.ID); err != nil {
		return nil, err
	}

	saved, err := e.reporters.Upsert(ctx, report.ReporterID, reporter.WritableFields())
	if err != nil {
		return nil, err
	}
	composite.Reporter = saved
	return saved, nil
}

// SavePatient validates and upserts the composite's patient
func (e *Editor) SavePatient(ctx context.Context, composite *domain.ReportComposite, patient *domain.Patient) (*domain.Patient, error) {
	report, err := owningReport(composite)
	if err != nil {
		return nil, err
	}
	if err := e.engine.ValidatePatient(report, patient); err != nil {
		return nil, err
	}
	if err := checkOwnership(report, partPatient, report.PatientID, patient.ID); err != nil {
		return nil, err
	}

	saved, err := e.patients.Upsert(ctx, report.PatientID, patient.WritableFields())
	if err != nil {
		return nil, err
	}
	composite.Patient = saved
	return saved, nil
}

// SaveDisease validates and upserts the composite's disease
func (e *Editor) SaveDisease(ctx context.Context, composite *domain.ReportComposite, disease *domain.Disease) (*domain.Disease, error) {
	report, err := owningReport(composite)
	if err != nil {
		return nil, err
	}
	if err := e.engine.ValidateDisease(report, disease); err != nil {
		return nil, err
	}
	if err := checkOwnership(report, partDisease, report.DiseaseID, disease.ID); err != nil {
		return nil, err
	}

	saved, err := e.diseases.Upsert(ctx, report.DiseaseID, disease.WritableFields())
	if err != nil {
		return nil, err
	}
	composite.Disease = saved
	return saved, nil
}

// AdvanceStatus moves a report to its next status. The report is re-read so
// the transition is checked against the backend's current status.
func (e *Editor) AdvanceStatus(ctx context.Context, reportID int64) (*domain.Report, error) {
	report, err := e.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if workflow.IsTerminal(report.Status) {
		return nil, &domain.WorkflowError{
			ReportID: report.ID,
			Status:   report.Status,
			Message:  "report has no further status",
		}
	}
	next, ok := workflow.NextStatus(report.Status)
	if !ok {
		return nil, &domain.WorkflowError{
			ReportID: report.ID,
			Status:   report.Status,
			Message:  fmt.Sprintf("unknown status %q", report.Status),
		}
	}
	return e.apply(ctx, report, next)
}

// SetStatus moves a report to target, which must be its next status.
func (e *Editor) SetStatus(ctx context.Context, reportID int64, target domain.ReportStatus) (*domain.Report, error) {
	report, err := e.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return e.apply(ctx, report, target)
}

func (e *Editor) apply(ctx context.Context, report *domain.Report, target domain.ReportStatus) (*domain.Report, error) {
	if err := e.engine.ValidateStatusChange(report, target); err != nil {
		return nil, err
	}
	if err := e.reports.Update(ctx, report.ID, domain.ReportUpdate{Status: target}); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"from":      report.Status,
		"to":        target,
	}).Info("Report status changed")

	updated := *report
	updated.Status = target
	return &updated, nil
}

func owningReport(composite *domain.ReportComposite) (*domain.Report, error) {
	if composite == nil || composite.Report == nil {
		return nil, &domain.WorkflowError{Message: "report is not loaded"}
	}
	return composite.Report, nil
}

// checkOwnership rejects an entity carrying an id other than the one its
// report references. A zero id means the caller did not set one.
func checkOwnership(report *domain.Report, part string, expected, actual int64) error {
	if actual == 0 || actual == expected {
		return nil
	}
	return &domain.DataIntegrityError{
		ReportID: report.ID,
		Part:     part,
		Expected: expected,
		Actual:   actual,
	}
}
