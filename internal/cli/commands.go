package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/outbreak-reporting/report-client/internal/domain"
	"github.com/outbreak-reporting/report-client/internal/health"
	"github.com/outbreak-reporting/report-client/internal/session"
)

var errNotLoggedIn = fmt.Errorf("%w: not logged in", domain.ErrAuth)

// loginError marks failures of the credential exchange itself, so a rejected
// password is not reported as an expired session.
type loginError struct {
	err error
}

func (e *loginError) Error() string { return "login failed: " + e.err.Error() }

func (e *loginError) Unwrap() error { return e.err }

func (a *App) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("REPORTS_PASSWORD")
			}
			if username == "" || password == "" {
				var err error
				username, password, err = a.promptCredentials(username, password)
				if err != nil {
					return err
				}
			}

			token, err := a.client.RequestToken(cmd.Context(), username, password)
			if err != nil {
				return &loginError{err: err}
			}
			a.store.Set(token.AccessToken)
			fmt.Fprintf(a.out, "Logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or REPORTS_PASSWORD)")
	return cmd
}

func (a *App) promptCredentials(username, password string) (string, string, error) {
	reader := bufio.NewReader(a.in)
	read := func(label string) (string, error) {
		fmt.Fprint(a.errOut, label)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read %s", strings.TrimSuffix(strings.ToLower(label), ": "))
		}
		return strings.TrimSpace(line), nil
	}

	var err error
	if username == "" {
		if username, err = read("Username: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = read("Password: "); err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.Clear()
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the stored token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, ok := a.store.Get()
			if !ok {
				return errNotLoggedIn
			}
			claims, err := session.ParseClaims(token)
			if err != nil {
				fmt.Fprintln(a.out, "Logged in (token details unavailable)")
				return nil
			}
			if claims.ExpiresAt.IsZero() {
				fmt.Fprintf(a.out, "Logged in as %s\n", claims.Subject)
				return nil
			}
			fmt.Fprintf(a.out, "Logged in as %s until %s\n", claims.Subject, claims.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
}

func (a *App) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend and the session store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checker := health.NewChecker(a.config.API.Timeout, a.log)
			checker.Register(health.NewBackendCheck(a.client))
			checker.Register(health.NewSessionCheck(a.store))

			status := checker.Run(cmd.Context())
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			for _, c := range status.Components {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Status, c.Duration.Round(time.Millisecond))
			}
			_ = w.Flush()
			return status.Err()
		},
	}
}

func (a *App) listCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.repos.Reports.List(cmd.Context(), offset, limit)
			if isNotFound(err) {
				fmt.Fprintln(a.out, "No reports found")
				return nil
			}
			if err != nil {
				return err
			}
			printReportTable(a.out, page)
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "number of reports to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size (at most 20)")
	return cmd
}

func (a *App) recentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recent, err := a.repos.Reports.Recent(cmd.Context())
			if isNotFound(err) {
				fmt.Fprintln(a.out, "No submitted reports")
				return nil
			}
			if err != nil {
				return err
			}
			printReportTable(a.out, []domain.ReportSummary{*recent})
			return nil
		},
	}
}

func (a *App) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show a report with its reporter, patient and disease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			composite, err := a.aggregator.Aggregate(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(composite)
			}
			printComposite(a.out, composite)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the composite as JSON")
	return cmd
}

func (a *App) advanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <report-id>",
		Short: "Move a report to its next workflow status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			report, err := a.editor.AdvanceStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Report %d is now %s\n", report.ID, report.Status)
			return nil
		},
	}
}

func (a *App) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <report-id> <status>",
		Short: "Set a report's status; only the next status in the workflow is accepted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			report, err := a.editor.SetStatus(cmd.Context(), id, domain.ReportStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Report %d is now %s\n", report.ID, report.Status)
			return nil
		},
	}
}

func (a *App) editCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "edit <reporter|patient|disease> <report-id>",
		Short: "Update one part of a Draft report from a JSON file",
		Long: "Loads the report, applies the fields present in the JSON file to the\n" +
			"current entity, validates the result and saves it.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"reporter", "patient", "disease"},
		RunE: func(cmd *cobra.Command, args []string) error {
			part := args[0]
			if part != "reporter" && part != "patient" && part != "disease" {
				return fmt.Errorf("unknown part %q: expected reporter, patient or disease", part)
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			payload, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			composite, err := a.aggregator.Aggregate(cmd.Context(), id)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			switch part {
			case "reporter":
				edited := *composite.Reporter
				if err := json.Unmarshal(payload, &edited); err != nil {
					return fmt.Errorf("invalid reporter JSON: %w", err)
				}
				_, err = a.editor.SaveReporter(ctx, composite, &edited)
			case "patient":
				edited := *composite.Patient
				if err := json.Unmarshal(payload, &edited); err != nil {
					return fmt.Errorf("invalid patient JSON: %w", err)
				}
				_, err = a.editor.SavePatient(ctx, composite, &edited)
			case "disease":
				edited := *composite.Disease
				if err := json.Unmarshal(payload, &edited); err != nil {
					return fmt.Errorf("invalid disease JSON: %w", err)
				}
				_, err = a.editor.SaveDisease(ctx, composite, &edited)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s of report %d\n", part, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the fields to change")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid report id %q", raw)
	}
	return id, nil
}

func isNotFound(err error) bool {
	var reqErr *domain.RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}
