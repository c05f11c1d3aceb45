// Package validation checks writes locally before they reach the backend.
//
// Every write passes two gates in order: the workflow gate (the owning report
// must be editable) and the field rules declared as validate tags on the
// domain entities. Field failures are collected in full so a form can mark
// every offending input at once.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/outbreak-reporting/report-client/internal/domain"
	"github.com/outbreak-reporting/report-client/internal/workflow"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-.]+$`)

// Engine applies the workflow gate and entity field rules.
type Engine struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewEngine creates an engine with the custom phone and notfuture rules registered.
func NewEngine() *Engine {
	e := &Engine{
		validate: validator.New(),
		now:      time.Now,
	}

	// Report fields by their wire name.
	e.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	e.validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if ts, ok := v.Interface().(domain.Timestamp); ok {
			return ts.Time
		}
		return nil
	}, domain.Timestamp{})

	// Registration only fails for empty tags or nil funcs.
	_ = e.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = e.validate.RegisterValidation("notfuture", e.notFuture)

	return e
}

func (e *Engine) notFuture(fl validator.FieldLevel) bool {
	var t time.Time
	switch v := fl.Field().Interface().(type) {
	case time.Time:
		t = v
	case domain.Timestamp:
		t = v.Time
	default:
		return false
	}
	return !t.After(e.now())
}

// ValidateReporter gates and validates a reporter write for report.
func (e *Engine) ValidateReporter(report *domain.Report, reporter *domain.Reporter) error {
	if err := workflow.CheckEditable(report); err != nil {
		return err
	}
	return e.fields("reporter", reporter)
}

// ValidatePatient gates and validates a patient write for report.
func (e *Engine) ValidatePatient(report *domain.Report, patient *domain.Patient) error {
	if err := workflow.CheckEditable(report); err != nil {
		return err
	}
	return e.fields("patient", patient)
}

// ValidateDisease gates and validates a disease write for report.
func (e *Engine) ValidateDisease(report *domain.Report, disease *domain.Disease) error {
	if err := workflow.CheckEditable(report); err != nil {
		return err
	}
	return e.fields("disease", disease)
}

// ValidateStatusChange checks a requested status change. Status is the one
// report field that keeps moving after Draft, so it is gated by the
// transition rules instead of IsEditable.
func (e *Engine) ValidateStatusChange(report *domain.Report, target domain.ReportStatus) error {
	if report == nil {
		return &domain.WorkflowError{To: target, Message: "report is not loaded"}
	}

	candidate := *report
	candidate.Status = target
	if err := e.fields("report", &candidate); err != nil {
		return err
	}

	if err := workflow.Transition(report.Status, target); err != nil {
		var werr *domain.WorkflowError
		if errors.As(err, &werr) {
			werr.ReportID = report.ID
		}
		return err
	}
	return nil
}

// fields runs the struct rules and converts failures into a ValidationError.
func (e *Engine) fields(entity string, value interface{}) error {
	err := e.validate.Struct(value)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &domain.ValidationError{
			Entity: entity,
			Fields: []domain.FieldError{{Field: entity, Reason: err.Error()}},
		}
	}

	out := &domain.ValidationError{Entity: entity}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, domain.FieldError{
			Field:  fe.Field(),
			Reason: reason(fe),
			Value:  fe.Value(),
		})
	}
	return out
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be %s characters or less", fe.Param())
	case "email":
		return "must be a valid email address"
	case "phone":
		return "may only contain digits, spaces and + - ( ) ."
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), "'", ""))
	case "notfuture":
		return "must not be in the future"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
