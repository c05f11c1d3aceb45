package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

const (
	// MaxPageSize is the largest page the backend serves.
	MaxPageSize = 20
)

// ReportRepository reads, lists and updates reports
type ReportRepository struct {
	entityBase
}

// Get fetches one report
func (r *ReportRepository) Get(ctx context.Context, id int64) (*domain.Report, error) {
	path := fmt.Sprintf("/reports/%d", id)
	if err := checkID("GET", path, id); err != nil {
		return nil, err
	}
	var report domain.Report
	if err := r.get(ctx, path, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns one page of reports. offset below zero is treated as zero; a
// limit outside 1..MaxPageSize is clamped, with zero meaning a full page.
// Without a session every call goes to the backend.
func (r *ReportRepository) List(ctx context.Context, offset, limit int) ([]domain.ReportSummary, error) {
	offset, limit = normalizePage(offset, limit)

	key := pageKey(offset, limit)
	token := r.token()
	if page, ok := r.cache.get(token, key); ok {
		r.log.WithFields(logrus.Fields{"offset": offset, "limit": limit}).Debug("Report page served from cache")
		return page, nil
	}

	var page []domain.ReportSummary
	if err := r.get(ctx, fmt.Sprintf("/reports?offset=%d&limit=%d", offset, limit), &page); err != nil {
		return nil, err
	}
	r.cache.add(token, key, page)
	return page, nil
}

// Recent returns the most recently updated submitted report
func (r *ReportRepository) Recent(ctx context.Context) (*domain.ReportSummary, error) {
	var summary domain.ReportSummary
	if err := r.get(ctx, "/reports/recent", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Update sends a report update. The backend answers 204 on success.
func (r *ReportRepository) Update(ctx context.Context, id int64, update domain.ReportUpdate) error {
	path := fmt.Sprintf("/reports/%d", id)
	if err := checkID("PUT", path, id); err != nil {
		return err
	}
	if err := r.put(ctx, path, update, nil); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"report_id": id,
		"status":    update.Status,
	}).Info("Report updated")
	return nil
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = MaxPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return offset, limit
}
