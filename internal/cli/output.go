package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/outbreak-reporting/report-client/internal/domain"
	"github.com/outbreak-reporting/report-client/internal/workflow"
)

const dateLayout = "2006-01-02"

func printReportTable(out io.Writer, reports []domain.ReportSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tDISEASE\tPATIENT\tREPORTER\tCREATED")
	for _, r := range reports {
		disease, patient, reporter := "-", "-", "-"
		if r.Disease != nil {
			disease = r.Disease.Name
		}
		if r.Patient != nil {
			patient = r.Patient.FirstName + " " + r.Patient.LastName
		}
		if r.Reporter != nil {
			reporter = r.Reporter.FirstName + " " + r.Reporter.LastName
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, disease, patient, reporter, formatDate(r.DateCreated))
	}
	_ = w.Flush()
}

func printComposite(out io.Writer, c *domain.ReportComposite) {
	r := c.Report
	fmt.Fprintf(out, "Report %d  [%s]\n", r.ID, r.Status)
	if next, ok := workflow.NextStatus(r.Status); ok {
		fmt.Fprintf(out, "  next status: %s\n", next)
	}
	if workflow.IsEditable(r.Status) {
		fmt.Fprintln(out, "  editable: yes")
	} else {
		fmt.Fprintln(out, "  editable: no (read-only)")
	}
	fmt.Fprintf(out, "  created: %s\n", formatDate(r.DateCreated))
	if r.DateUpdated != nil {
		fmt.Fprintf(out, "  updated: %s\n", formatDate(*r.DateUpdated))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rep := c.Reporter
	fmt.Fprintf(w, "\nReporter #%d\n", rep.ID)
	fmt.Fprintf(w, "  name\t%s %s\n", rep.FirstName, rep.LastName)
	fmt.Fprintf(w, "  job title\t%s\n", rep.JobTitle)
	fmt.Fprintf(w, "  organization\t%s, %s\n", rep.OrganizationName, rep.OrganizationAddress)
	fmt.Fprintf(w, "  contact\t%s, %s\n", rep.PhoneNumber, rep.Email)

	p := c.Patient
	fmt.Fprintf(w, "\nPatient #%d\n", p.ID)
	fmt.Fprintf(w, "  name\t%s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(w, "  born\t%s\n", formatDate(p.DateOfBirth))
	if p.Age != nil {
		fmt.Fprintf(w, "  age\t%d\n", *p.Age)
	}
	fmt.Fprintf(w, "  gender\t%s\n", p.Gender)
	fmt.Fprintf(w, "  record number\t%s\n", p.MedicalRecordNumber)
	fmt.Fprintf(w, "  address\t%s\n", p.PatientAddress)
	if p.EmergencyContact != "" {
		fmt.Fprintf(w, "  emergency contact\t%s\n", p.EmergencyContact)
	}

	d := c.Disease
	fmt.Fprintf(w, "\nDisease #%d\n", d.ID)
	fmt.Fprintf(w, "  name\t%s (%s)\n", d.Name, d.Category)
	fmt.Fprintf(w, "  detected\t%s\n", formatDate(d.DateDetected))
	fmt.Fprintf(w, "  severity\t%s\n", d.SeverityLevel)
	fmt.Fprintf(w, "  treatment\t%s\n", d.TreatmentStatus)
	fmt.Fprintf(w, "  symptoms\t%s\n", d.Symptoms)
	if d.LabResults != "" {
		fmt.Fprintf(w, "  lab results\t%s\n", d.LabResults)
	}
	_ = w.Flush()
}

func formatDate(ts domain.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(dateLayout)
}
