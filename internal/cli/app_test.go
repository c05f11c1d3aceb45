package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreak-reporting/report-client/internal/devbackend"
	"github.com/outbreak-reporting/report-client/internal/domain"
	"github.com/outbreak-reporting/report-client/internal/logging"
	"github.com/outbreak-reporting/report-client/internal/session"
)

const (
	testUser     = "reporter"
	testPassword = "correct horse"
)

type harness struct {
	t     *testing.T
	store *session.MemoryStore
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := devbackend.NewStore()
	devbackend.Seed(store)
	backend, err := devbackend.NewServer(domain.ServerConfig{
		Username:  testUser,
		Password:  testPassword,
		JWTSecret: "cli-test-secret",
		TokenTTL:  time.Hour,
	}, store, logging.Discard())
	require.NoError(t, err)

	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	t.Setenv("REPORTS_DATA_DIR", t.TempDir())
	t.Setenv("REPORTS_API_URL", server.URL)
	t.Setenv("REPORTS_LOGGING_LEVEL", "error")

	return &harness{t: t, store: session.NewMemoryStore()}
}

func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(
		WithIO(strings.NewReader(stdin), &stdout, &stderr),
		WithStoreOpener(func(domain.SessionConfig, *logrus.Logger) (session.Store, error) {
			return h.store, nil
		}),
	)
	code := app.Run(context.Background(), args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (h *harness) login() {
	h.t.Helper()
	res := h.run("", "login", "--username", testUser, "--password", testPassword)
	require.Equal(h.t, ExitOK, res.code, res.stderr)
}

func writePayload(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLogin_StoresToken(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "login", "-u", testUser, "-p", testPassword)
	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "Logged in as reporter")

	token, ok := h.store.Get()
	assert.True(t, ok)
	assert.NotEmpty(t, token)
}

func TestLogin_PromptsForMissingCredentials(t *testing.T) {
	h := newHarness(t)

	res := h.run(testUser+"\n"+testPassword+"\n", "login")
	assert.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Username: ")
	assert.Contains(t, res.stderr, "Password: ")

	_, ok := h.store.Get()
	assert.True(t, ok)
}

func TestLogin_PasswordFromEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv("REPORTS_PASSWORD", testPassword)

	res := h.run("", "login", "--username", testUser)
	assert.Equal(t, ExitOK, res.code, res.stderr)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "login", "-u", testUser, "-p", "wrong")
	assert.Equal(t, ExitAuthFailed, res.code)
	assert.Contains(t, res.stderr, "Login failed: Incorrect username or password")

	_, ok := h.store.Get()
	assert.False(t, ok)
}

func TestLogoutAndWhoami(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "whoami")
	assert.Equal(t, ExitAuthFailed, res.code)

	h.login()
	res = h.run("", "whoami")
	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "Logged in as reporter until")

	res = h.run("", "logout")
	assert.Equal(t, ExitOK, res.code)
	_, ok := h.store.Get()
	assert.False(t, ok)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "health")
	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "backend")
	assert.Contains(t, res.stdout, "session")
	assert.NotContains(t, res.stdout, "unhealthy")
}

func TestHealth_MissingBaseURL(t *testing.T) {
	h := newHarness(t)
	t.Setenv("REPORTS_API_URL", "")

	res := h.run("", "health")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "REPORTS_API_URL")
}

func TestShow_RequiresLogin(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "show", "1")
	assert.Equal(t, ExitAuthFailed, res.code)
	assert.Contains(t, res.stderr, "report-client login")
	assert.Empty(t, res.stdout)
}

func TestShow_PrintsComposite(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("", "show", "1")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Report 1  [Draft]")
	assert.Contains(t, res.stdout, "next status: Submitted")
	assert.Contains(t, res.stdout, "editable: yes")
	assert.Contains(t, res.stdout, "Dana Okafor")
	assert.Contains(t, res.stdout, "Cholera (Bacterial)")
}

func TestShow_JSON(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("", "show", "2", "--json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, `"status": "Submitted"`)
	assert.Contains(t, res.stdout, `"name": "Measles"`)
}

func TestShow_InvalidID(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "show", "abc")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, `invalid report id "abc"`)
}

func TestShow_UnknownReport(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("", "show", "99")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Request failed:")
}

func TestListAndRecent(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("", "list")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "STATUS")
	for _, name := range []string{"Cholera", "Measles", "Malaria", "Influenza"} {
		assert.Contains(t, res.stdout, name)
	}

	res = h.run("", "list", "--offset", "100")
	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "No reports found")

	res = h.run("", "recent")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Submitted")
	assert.Contains(t, res.stdout, "Measles")
}

func TestEdit_SavesValidReporter(t *testing.T) {
	h := newHarness(t)
	h.login()

	file := writePayload(t, `{"job_title": "Lead Epidemiologist"}`)
	res := h.run("", "edit", "reporter", "1", "--file", file)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Saved reporter of report 1")

	res = h.run("", "show", "1")
	assert.Contains(t, res.stdout, "Lead Epidemiologist")
}

func TestEdit_RejectsInvalidFields(t *testing.T) {
	h := newHarness(t)
	h.login()

	file := writePayload(t, `{"email": "not-an-email", "first_name": ""}`)
	res := h.run("", "edit", "reporter", "1", "--file", file)
	assert.Equal(t, ExitRejected, res.code)
	assert.Contains(t, res.stderr, "The reporter was not saved:")
	assert.Contains(t, res.stderr, "email: must be a valid email address")
	assert.Contains(t, res.stderr, "first_name: is required")
}

func TestEdit_RejectsNonDraftReport(t *testing.T) {
	h := newHarness(t)
	h.login()

	file := writePayload(t, `{"symptoms": "fever"}`)
	res := h.run("", "edit", "disease", "2", "--file", file)
	assert.Equal(t, ExitRejected, res.code)
	assert.Contains(t, res.stderr, "Not allowed: only Draft reports can be edited")
}

func TestEdit_UnknownPart(t *testing.T) {
	h := newHarness(t)

	file := writePayload(t, `{}`)
	res := h.run("", "edit", "clinic", "1", "--file", file)
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, `unknown part "clinic"`)
}

func TestAdvanceAndStatus(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("", "advance", "1")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Report 1 is now Submitted")

	res = h.run("", "status", "1", "Draft")
	assert.Equal(t, ExitRejected, res.code)
	assert.Contains(t, res.stderr, "Not allowed:")

	res = h.run("", "advance", "4")
	assert.Equal(t, ExitRejected, res.code)
	assert.Contains(t, res.stderr, "report has no further status")
}

func TestStatus_RejectsSkippedStep(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("", "status", "1", "Approved")
	assert.Equal(t, ExitRejected, res.code)
	assert.Contains(t, res.stderr, `next is "Submitted"`)
}
