// Package repository provides typed access to the backend entities. The
// repositories are thin: transport, authorization and error classification
// all happen in the request client.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/outbreak-reporting/report-client/internal/domain"
	"github.com/outbreak-reporting/report-client/pkg/apiclient"
)

// Client is the subset of *apiclient.Client the repositories use
type Client interface {
	Get(ctx context.Context, path string, out interface{}) (*apiclient.Response, error)
	Post(ctx context.Context, path string, body, out interface{}) (*apiclient.Response, error)
	Put(ctx context.Context, path string, body, out interface{}) (*apiclient.Response, error)
}

// Repositories bundles one repository per entity kind around a shared
// report list cache scoped to the current session.
type Repositories struct {
	Reports   *ReportRepository
	Reporters *ReporterRepository
	Patients  *PatientRepository
	Diseases  *DiseaseRepository
}

// New wires the four repositories to client. session is the store client
// authorizes with; cached report pages are only served while it holds the
// token they were fetched under.
func New(client Client, session domain.SessionStore, cacheConfig domain.CacheConfig, logger *logrus.Logger) *Repositories {
	cache := newPageCache(cacheConfig)
	base := entityBase{client: client, session: session, cache: cache, log: logger}
	return &Repositories{
		Reports:   &ReportRepository{entityBase: base},
		Reporters: &ReporterRepository{entityBase: base},
		Patients:  &PatientRepository{entityBase: base},
		Diseases:  &DiseaseRepository{entityBase: base},
	}
}

type entityBase struct {
	client  Client
	session domain.SessionStore
	cache   *pageCache
	log     *logrus.Logger
}

func (b entityBase) token() string {
	if b.session == nil {
		return ""
	}
	token, _ := b.session.Get()
	return token
}

func (b entityBase) get(ctx context.Context, path string, out interface{}) error {
	_, err := b.client.Get(ctx, path, out)
	return b.observe(err)
}

func (b entityBase) post(ctx context.Context, path string, body, out interface{}) error {
	_, err := b.client.Post(ctx, path, body, out)
	b.cache.purge()
	return b.observe(err)
}

func (b entityBase) put(ctx context.Context, path string, body, out interface{}) error {
	_, err := b.client.Put(ctx, path, body, out)
	b.cache.purge()
	return b.observe(err)
}

// observe drops cached pages once the session is gone so nothing fetched
// under the old token is served afterwards.
func (b entityBase) observe(err error) error {
	if err != nil && errors.Is(err, domain.ErrAuth) {
		b.cache.purge()
	}
	return err
}

func checkID(method, path string, id int64) error {
	if id > 0 {
		return nil
	}
	return &domain.RequestError{
		Method:  method,
		Path:    path,
		Message: fmt.Sprintf("invalid id %d", id),
	}
}

// ReporterRepository reads and upserts reporters
type ReporterRepository struct {
	entityBase
}

// Get fetches a reporter by id
func (r *ReporterRepository) Get(ctx context.Context, id int64) (*domain.Reporter, error) {
	path := fmt.Sprintf("/reports/%d/reporter", id)
	if err := checkID("GET", path, id); err != nil {
		return nil, err
	}
	var reporter domain.Reporter
	if err := r.get(ctx, path, &reporter); err != nil {
		return nil, err
	}
	return &reporter, nil
}

// Upsert creates or replaces the reporter with the given id
func (r *ReporterRepository) Upsert(ctx context.Context, id int64, update domain.ReporterUpdate) (*domain.Reporter, error) {
	path := fmt.Sprintf("/reports/%d/reporter", id)
	if err := checkID("POST", path, id); err != nil {
		return nil, err
	}
	var reporter domain.Reporter
	if err := r.post(ctx, path, update, &reporter); err != nil {
		return nil, err
	}
	r.log.WithField("reporter_id", id).Info("Reporter saved")
	return &reporter, nil
}

// PatientRepository reads and upserts patients
type PatientRepository struct {
	entityBase
}

// Get fetches a patient by id
func (r *PatientRepository) Get(ctx context.Context, id int64) (*domain.Patient, error) {
	path := fmt.Sprintf("/reports/%d/patient", id)
	if err := checkID("GET", path, id); err != nil {
		return nil, err
	}
	var patient domain.Patient
	if err := r.get(ctx, path, &patient); err != nil {
		return nil, err
	}
	return &patient, nil
}

// Upsert creates or replaces the patient with the given id
func (r *PatientRepository) Upsert(ctx context.Context, id int64, update domain.PatientUpdate) (*domain.Patient, error) {
	path := fmt.Sprintf("/reports/%d/patient", id)
	if err := checkID("POST", path, id); err != nil {
		return nil, err
	}
	var patient domain.Patient
	if err := r.post(ctx, path, update, &patient); err != nil {
		return nil, err
	}
	r.log.WithField("patient_id", id).Info("Patient saved")
	return &patient, nil
}

// DiseaseRepository reads and upserts diseases
type DiseaseRepository struct {
	entityBase
}

// Get fetches a disease by id
func (r *DiseaseRepository) Get(ctx context.Context, id int64) (*domain.Disease, error) {
	path := fmt.Sprintf("/reports/%d/disease", id)
	if err := checkID("GET", path, id); err != nil {
		return nil, err
	}
	var disease domain.Disease
	if err := r.get(ctx, path, &disease); err != nil {
		return nil, err
	}
	return &disease, nil
}

// Upsert creates or replaces the disease with the given id
func (r *DiseaseRepository) Upsert(ctx context.Context, id int64, update domain.DiseaseUpdate) (*domain.Disease, error) {
	path := fmt.Sprintf("/reports/%d/disease", id)
	if err := checkID("POST", path, id); err != nil {
		return nil, err
	}
	var disease domain.Disease
	if err := r.post(ctx, path, update, &disease); err != nil {
		return nil, err
	}
	r.log.WithField("disease_id", id).Info("Disease saved")
	return &disease, nil
}
