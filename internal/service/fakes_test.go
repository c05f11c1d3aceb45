package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

// call is one scripted response. A positive delay blocks until it elapses
// or the context ends.
type call struct {
	err   error
	delay time.Duration
}

func (c call) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return c.err
	}
	select {
	case <-time.After(c.delay):
		return c.err
	case <-ctx.Done():
		return &domain.RequestError{Method: "GET", Message: "request cancelled", Err: ctx.Err()}
	}
}

type fakeReports struct {
	mu       sync.Mutex
	reports  map[int64]*domain.Report
	getErr   error
	updates  []domain.ReportUpdate
	gets     int32
	updateFn func(id int64, update domain.ReportUpdate) error
}

func (f *fakeReports) Get(ctx context.Context, id int64) (*domain.Report, error) {
	atomic.AddInt32(&f.gets, 1)
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, &domain.RequestError{StatusCode: 404, Method: "GET", Message: "Report does not exist"}
	}
	copied := *r
	return &copied, nil
}

func (f *fakeReports) Update(ctx context.Context, id int64, update domain.ReportUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	if f.updateFn != nil {
		return f.updateFn(id, update)
	}
	return nil
}

type fakeEntity[T any] struct {
	build   func(id int64) *T
	script  call
	calls   int32
	upserts int32
	lastID  int64
	mu      sync.Mutex
}

func (f *fakeEntity[T]) Get(ctx context.Context, id int64) (*T, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.lastID = id
	f.mu.Unlock()
	if err := f.script.wait(ctx); err != nil {
		return nil, err
	}
	return f.build(id), nil
}

func (f *fakeEntity[T]) upsert(id int64) (*T, error) {
	atomic.AddInt32(&f.upserts, 1)
	f.mu.Lock()
	f.lastID = id
	f.mu.Unlock()
	if f.script.err != nil {
		return nil, f.script.err
	}
	return f.build(id), nil
}

type fakeReporters struct{ fakeEntity[domain.Reporter] }

func (f *fakeReporters) Upsert(ctx context.Context, id int64, _ domain.ReporterUpdate) (*domain.Reporter, error) {
	return f.upsert(id)
}

type fakePatients struct{ fakeEntity[domain.Patient] }

func (f *fakePatients) Upsert(ctx context.Context, id int64, _ domain.PatientUpdate) (*domain.Patient, error) {
	return f.upsert(id)
}

type fakeDiseases struct{ fakeEntity[domain.Disease] }

func (f *fakeDiseases) Upsert(ctx context.Context, id int64, _ domain.DiseaseUpdate) (*domain.Disease, error) {
	return f.upsert(id)
}

func newFakes() (*fakeReports, *fakeReporters, *fakePatients, *fakeDiseases) {
	reports := &fakeReports{reports: map[int64]*domain.Report{}}
	reporters := &fakeReporters{fakeEntity[domain.Reporter]{build: func(id int64) *domain.Reporter { return &domain.Reporter{ID: id} }}}
	patients := &fakePatients{fakeEntity[domain.Patient]{build: func(id int64) *domain.Patient { return &domain.Patient{ID: id} }}}
	diseases := &fakeDiseases{fakeEntity[domain.Disease]{build: func(id int64) *domain.Disease { return &domain.Disease{ID: id} }}}
	return reports, reporters, patients, diseases
}
