// Package workflow is the report approval state machine.
//
// Reports move strictly forward through Draft, Submitted, Under Review and
// Approved. Only a Draft report, and the reporter, patient and disease it
// owns, may be modified.
package workflow

import (
	"errors"
	"fmt"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

// ErrRegressionNotSupported marks a requested backward transition. Moving a
// report back to an earlier status is not part of the workflow; a future
// revert action would be introduced here.
var ErrRegressionNotSupported = errors.New("status regression is not supported")

var order = []domain.ReportStatus{
	domain.StatusDraft,
	domain.StatusSubmitted,
	domain.StatusUnderReview,
	domain.StatusApproved,
}

// Statuses returns every workflow status in order.
func Statuses() []domain.ReportStatus {
	out := make([]domain.ReportStatus, len(order))
	copy(out, order)
	return out
}

// IsValid reports whether s is a known status.
func IsValid(s domain.ReportStatus) bool {
	return position(s) >= 0
}

// IsEditable reports whether a report in status s, and every entity it owns,
// may be written.
func IsEditable(s domain.ReportStatus) bool {
	return s == domain.StatusDraft
}

// IsTerminal reports whether s has no successor.
func IsTerminal(s domain.ReportStatus) bool {
	return s == domain.StatusApproved
}

// NextStatus returns the single legal successor of current. ok is false at
// Approved and for unknown statuses.
func NextStatus(current domain.ReportStatus) (next domain.ReportStatus, ok bool) {
	switch current {
	case domain.StatusDraft:
		return domain.StatusSubmitted, true
	case domain.StatusSubmitted:
		return domain.StatusUnderReview, true
	case domain.StatusUnderReview:
		return domain.StatusApproved, true
	default:
		return "", false
	}
}

// CanTransition is true iff target is the successor of current.
func CanTransition(current, target domain.ReportStatus) bool {
	next, ok := NextStatus(current)
	return ok && next == target
}

// Transition validates the change from current to target and returns a
// *domain.WorkflowError for anything CanTransition rejects.
func Transition(current, target domain.ReportStatus) error {
	if CanTransition(current, target) {
		return nil
	}

	werr := &domain.WorkflowError{Status: current, From: current, To: target}
	from, to := position(current), position(target)
	switch {
	case from < 0:
		werr.Message = fmt.Sprintf("unknown current status %q", current)
	case to < 0:
		werr.Message = fmt.Sprintf("unknown target status %q", target)
	case from == to:
		werr.Message = "report already has this status"
	case to < from:
		werr.Message = ErrRegressionNotSupported.Error()
		werr.Err = ErrRegressionNotSupported
	default:
		next, _ := NextStatus(current)
		werr.Message = fmt.Sprintf("transition skips a status; next is %q", next)
	}
	return werr
}

// IsRegression reports whether err rejected a backward transition.
func IsRegression(err error) bool {
	return errors.Is(err, ErrRegressionNotSupported)
}

// CheckEditable returns a *domain.WorkflowError when the report cannot be written.
func CheckEditable(report *domain.Report) error {
	if report == nil {
		return &domain.WorkflowError{Message: "report is not loaded"}
	}
	if IsEditable(report.Status) {
		return nil
	}
	return &domain.WorkflowError{
		ReportID: report.ID,
		Status:   report.Status,
		Message:  "only Draft reports can be edited",
	}
}

func position(s domain.ReportStatus) int {
	for i, candidate := range order {
		if candidate == s {
			return i
		}
	}
	return -1
}
