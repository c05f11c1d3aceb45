// Package cli is the command-line presentation layer of the report client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/outbreak-reporting/report-client/internal/config"
	"github.com/outbreak-reporting/report-client/internal/domain"
	"github.com/outbreak-reporting/report-client/internal/logging"
	"github.com/outbreak-reporting/report-client/internal/repository"
	"github.com/outbreak-reporting/report-client/internal/service"
	"github.com/outbreak-reporting/report-client/internal/session"
	"github.com/outbreak-reporting/report-client/internal/validation"
	"github.com/outbreak-reporting/report-client/pkg/apiclient"
)

// Exit codes
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitRejected   = 2
	ExitAuthFailed = 3
)

// StoreOpener builds the session store from configuration
type StoreOpener func(cfg domain.SessionConfig, logger *logrus.Logger) (session.Store, error)

// App holds the components shared by every command. They are built once,
// after flags are parsed.
type App struct {
	configFile string
	debug      bool
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
	openStore  StoreOpener

	config     *domain.Config
	log        *logrus.Logger
	store      session.Store
	client     *apiclient.Client
	repos      *repository.Repositories
	aggregator *service.Aggregator
	editor     *service.Editor
}

// Option customises an App
type Option func(*App)

// WithIO replaces stdin, stdout and stderr
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) {
		a.in, a.out, a.errOut = in, out, errOut
	}
}

// WithStoreOpener replaces session.Open
func WithStoreOpener(open StoreOpener) Option {
	return func(a *App) { a.openStore = open }
}

// NewApp creates an App writing to the process's standard streams
func NewApp(opts ...Option) *App {
	a := &App{
		in:        os.Stdin,
		out:       os.Stdout,
		errOut:    os.Stderr,
		openStore: session.Open,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// init wires configuration, logging, the session store, the request client
// and the services.
func (a *App) init() error {
	manager, err := config.NewManager(a.configFile)
	if err != nil {
		return err
	}
	if err := manager.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.config = manager.GetConfig()

	logCfg := a.config.Logging
	if a.debug {
		logCfg.Level = "debug"
	}
	a.log = logging.NewWithOutput(logCfg, a.errOut)

	store, err := a.openStore(a.config.Session, a.log)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	a.store = store

	a.client = apiclient.NewClient(a.config.API, a.store, a.log)
	a.repos = repository.New(a.client, a.store, a.config.Cache, a.log)
	a.aggregator = service.NewAggregator(a.repos.Reports, a.repos.Reporters, a.repos.Patients, a.repos.Diseases, a.log)
	a.editor = service.NewEditor(a.repos.Reports, a.repos.Reporters, a.repos.Patients, a.repos.Diseases, validation.NewEngine(), a.log)
	return nil
}

// Close releases the session store
func (a *App) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil && a.log != nil {
		a.log.WithError(err).Warn("Failed to close session store")
	}
}

// Run executes the command line and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.RootCommand()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	a.Close()
	if err == nil {
		return ExitOK
	}
	return a.report(err)
}

// report prints err for the user and maps it to an exit code.
func (a *App) report(err error) int {
	switch domain.Classify(err) {
	case domain.KindAuth:
		var lerr *loginError
		var aerr *domain.AuthError
		if errors.As(err, &lerr) && errors.As(err, &aerr) && aerr.Message != "" {
			fmt.Fprintf(a.errOut, "Login failed: %s\n", aerr.Message)
			return ExitAuthFailed
		}
		fmt.Fprintln(a.errOut, "Not authorized. Please log in again with: report-client login")
		a.debugDetail(err)
		return ExitAuthFailed
	case domain.KindValidation:
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(a.errOut, "The %s was not saved:\n", verr.Entity)
			for _, f := range verr.Fields {
				fmt.Fprintf(a.errOut, "  %s: %s\n", f.Field, f.Reason)
			}
		} else {
			fmt.Fprintln(a.errOut, err)
		}
		return ExitRejected
	case domain.KindWorkflow:
		var werr *domain.WorkflowError
		if errors.As(err, &werr) {
			fmt.Fprintf(a.errOut, "Not allowed: %s\n", werr.Message)
		} else {
			fmt.Fprintln(a.errOut, err)
		}
		return ExitRejected
	case domain.KindDataIntegrity:
		fmt.Fprintln(a.errOut, "Report data is inconsistent on the server; run with --debug for details")
		a.debugDetail(err)
		return ExitFailure
	default:
		var lerr *loginError
		if errors.As(err, &lerr) {
			fmt.Fprintf(a.errOut, "Login failed: %s\n", summary(err))
		} else if errors.Is(err, domain.ErrRequest) {
			fmt.Fprintf(a.errOut, "Request failed: %s\n", summary(err))
		} else {
			fmt.Fprintf(a.errOut, "Error: %v\n", err)
		}
		a.debugDetail(err)
		return ExitFailure
	}
}

func (a *App) debugDetail(err error) {
	if a.log != nil {
		a.log.WithError(err).Debug("Command failed")
	}
}

func summary(err error) string {
	var reqErr *domain.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		if errors.Is(err, domain.ErrMissingBaseURL) {
			return fmt.Sprintf("%s (set %s)", reqErr.Message, config.BaseURLEnv)
		}
		return reqErr.Message
	}
	return err.Error()
}

// RootCommand builds the command tree
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "report-client",
		Short:         "Work with disease-surveillance case reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to config file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log request details to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.healthCmd(),
		a.listCmd(),
		a.recentCmd(),
		a.showCmd(),
		a.advanceCmd(),
		a.statusCmd(),
		a.editCmd(),
	)
	return root
}
