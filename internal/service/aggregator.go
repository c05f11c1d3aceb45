// Package service assembles report composites and carries edits through
// validation to the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

const (
	partReporter = "reporter"
	partPatient  = "patient"
	partDisease  = "disease"
)

// Aggregator resolves a report and its three linked entities into one
// consistent composite.
type Aggregator struct {
	reports   domain.ReportReader
	reporters domain.ReporterReader
	patients  domain.PatientReader
	diseases  domain.DiseaseReader
	log       *logrus.Logger
}

// NewAggregator creates an aggregator over the given readers
func NewAggregator(
	reports domain.ReportReader,
	reporters domain.ReporterReader,
	patients domain.PatientReader,
	diseases domain.DiseaseReader,
	logger *logrus.Logger,
) *Aggregator {
	return &Aggregator{
		reports:   reports,
		reporters: reporters,
		patients:  patients,
		diseases:  diseases,
		log:       logger,
	}
}

// Aggregate fetches report id and then its reporter, patient and disease
// concurrently. It returns a complete composite or exactly one of:
//
//   - the report fetch error, with no dependent fetch started
//   - an *domain.AuthError from any dependent fetch; the others are cancelled
//   - a *domain.PartialFetchError naming every failed dependent fetch
//   - a *domain.DataIntegrityError when a fetched id does not match the report
func (a *Aggregator) Aggregate(ctx context.Context, id int64) (*domain.ReportComposite, error) {
	log := a.log.WithField("report_id", id)

	report, err := a.reports.Get(ctx, id)
	if err != nil {
		log.WithError(err).Debug("Report fetch failed")
		return nil, err
	}
	if report == nil {
		return nil, &domain.RequestError{Method: "GET", Path: fmt.Sprintf("/reports/%d", id), Message: "empty report response"}
	}

	composite := &domain.ReportComposite{Report: report}

	var (
		mu       sync.Mutex
		failures = make(map[string]error)
		authErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(part string, run func(context.Context) error) {
		g.Go(func() error {
			err := run(gctx)
			if err == nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, domain.ErrAuth) {
				if authErr == nil {
					authErr = err
				}
				// Returning the error cancels the sibling fetches.
				return err
			}
			failures[part] = err
			return nil
		})
	}

	fetch(partReporter, func(ctx context.Context) error {
		reporter, err := a.reporters.Get(ctx, report.ReporterID)
		if err == nil {
			composite.Reporter = reporter
		}
		return err
	})
	fetch(partPatient, func(ctx context.Context) error {
		patient, err := a.patients.Get(ctx, report.PatientID)
		if err == nil {
			composite.Patient = patient
		}
		return err
	})
	fetch(partDisease, func(ctx context.Context) error {
		disease, err := a.diseases.Get(ctx, report.DiseaseID)
		if err == nil {
			composite.Disease = disease
		}
		return err
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			log.Warn("Authorization lost while loading report")
			return nil, err
		}
	case <-gctx.Done():
		mu.Lock()
		surfaced := authErr
		mu.Unlock()
		if surfaced != nil {
			log.Warn("Authorization lost while loading report")
			return nil, surfaced
		}
		// The caller's context ended; the fetches report that themselves.
		if err := <-done; err != nil {
			return nil, err
		}
	}

	if len(failures) > 0 {
		perr := &domain.PartialFetchError{ReportID: report.ID, Failures: failures}
		log.WithField("failed_parts", perr.Parts()).Warn("Report loaded incompletely")
		return nil, perr
	}

	if err := verify(composite); err != nil {
		log.WithError(err).Error("Report references do not match fetched entities")
		return nil, err
	}

	log.Debug("Report composite assembled")
	return composite, nil
}

// verify checks every fetched entity against the id its report references.
// A missing entity counts as id 0.
func verify(c *domain.ReportComposite) error {
	var reporterID, patientID, diseaseID int64
	if c.Reporter != nil {
		reporterID = c.Reporter.ID
	}
	if c.Patient != nil {
		patientID = c.Patient.ID
	}
	if c.Disease != nil {
		diseaseID = c.Disease.ID
	}

	checks := []struct {
		part     string
		expected int64
		actual   int64
	}{
		{partReporter, c.Report.ReporterID, reporterID},
		{partPatient, c.Report.PatientID, patientID},
		{partDisease, c.Report.DiseaseID, diseaseID},
	}
	for _, check := range checks {
		if check.expected != check.actual {
			return &domain.DataIntegrityError{
				ReportID: c.Report.ID,
				Part:     check.part,
				Expected: check.expected,
				Actual:   check.actual,
			}
		}
	}
	return nil
}
