package deploy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pagebridge/pagebridge/internal/errkind"
	"github.com/pagebridge/pagebridge/internal/pages"
	"github.com/pagebridge/pagebridge/internal/storage"
)

func testOptions(path string) Options {
	return Options{
		Path:         path,
		InitialDelay: 5 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		Deadline:     2 * time.Second,
	}
}

func newTestOrchestrator(t *testing.T, fake *fakePages, projectName string) (*Orchestrator, *Session) {
	t.Helper()
	session := newTestSession(projectName)
	session.Endpoint = fake.server.URL
	client := pages.NewClient("test-token", fake.server.URL, "", false)
	o := NewOrchestrator(client, session)
	o.uploadFn = func(ctx context.Context, creds storage.Credentials, localPath string) (string, error) {
		if storage.IsZipPath(localPath) {
			return storage.ZipKey(localPath, creds.Prefix), nil
		}
		return creds.Prefix, nil
	}
	return o, session
}

func siteDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunHappyPathTemporaryURL(t *testing.T) {
	fake := newFakePages(t)
	fake.statusSequence = []string{"Process", "Process", "Success"}
	o, _ := newTestOrchestrator(t, fake, "")

	start := time.Now()
	result, err := o.Run(context.Background(), testOptions(siteDir(t)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Type != URLTypeTemporary {
		t.Errorf("expected temporary URL type, got '%s'", result.Type)
	}
	wantURL := "https://preview.pages.example?token=tok123&t=1756200000"
	if result.URL != wantURL {
		t.Errorf("expected URL '%s', got '%s'", wantURL, result.URL)
	}
	if result.ProjectID != "proj-new" {
		t.Errorf("expected project id 'proj-new', got '%s'", result.ProjectID)
	}

	// Three polls with two in-flight results means at least two interval waits.
	if got := fake.count("DescribePagesDeployments"); got != 3 {
		t.Errorf("expected 3 poll iterations, got %d", got)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected at least two poll interval waits, finished in %s", elapsed)
	}
}

func TestRunTerminatesOnFirstNonInflightStatus(t *testing.T) {
	fake := newFakePages(t)
	fake.statusSequence = []string{"Success"}
	o, _ := newTestOrchestrator(t, fake, "")

	if _, err := o.Run(context.Background(), testOptions(siteDir(t))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := fake.count("DescribePagesDeployments"); got != 1 {
		t.Errorf("expected polling to stop after the first terminal status, got %d polls", got)
	}
}

func TestRunPrefersActiveCustomDomain(t *testing.T) {
	fake := newFakePages(t)
	fake.statusSequence = []string{"Success"}
	fake.projects = []pages.Project{{
		ProjectID:    "proj-7",
		Name:         "demo",
		Status:       pages.ProjectStatusNormal,
		PresetDomain: "demo.pages.example",
		CustomDomains: []pages.CustomDomain{
			{Domain: "pending.example.com", Status: "Pending"},
			{Domain: "www.example.com", Status: pages.DomainStatusPass},
		},
	}}
	o, _ := newTestOrchestrator(t, fake, "demo")

	result, err := o.Run(context.Background(), testOptions(siteDir(t)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Type != URLTypeCustom {
		t.Errorf("expected custom URL type, got '%s'", result.Type)
	}
	if result.URL != "https://www.example.com" {
		t.Errorf("expected custom domain URL, got '%s'", result.URL)
	}
	if got := fake.count("DescribePagesEncipherToken"); got != 0 {
		t.Errorf("expected no token fetch for a custom domain, got %d", got)
	}
}

func TestRunZipUsesZipDistType(t *testing.T) {
	fake := newFakePages(t)
	fake.statusSequence = []string{"Success"}
	o, _ := newTestOrchestrator(t, fake, "")

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "site.zip")
	if err := os.WriteFile(zipPath, []byte("PK"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := o.Run(context.Background(), testOptions(zipPath)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fake.lastDistType != pages.DistTypeZip {
		t.Errorf("expected Zip dist type, got '%s'", fake.lastDistType)
	}
	if fake.lastEnv != pages.EnvProduction {
		t.Errorf("expected Production environment default, got '%s'", fake.lastEnv)
	}
}

func TestRunDeploymentDisappears(t *testing.T) {
	fake := newFakePages(t)
	fake.omitDeployment = true
	o, _ := newTestOrchestrator(t, fake, "")

	_, err := o.Run(context.Background(), testOptions(siteDir(t)))
	if !errkind.IsKind(err, errkind.NotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRunFailedStatusCarriesRemoteString(t *testing.T) {
	fake := newFakePages(t)
	fake.statusSequence = []string{"Process", "DeployFailed"}
	o, _ := newTestOrchestrator(t, fake, "")

	_, err := o.Run(context.Background(), testOptions(siteDir(t)))
	if !errkind.IsKind(err, errkind.Upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "DeployFailed") {
		t.Errorf("expected remote status in error, got %q", err.Error())
	}
}

func TestRunPollDeadline(t *testing.T) {
	fake := newFakePages(t)
	// No terminal status: the deployment stays in flight forever.
	o, _ := newTestOrchestrator(t, fake, "")

	opts := testOptions(siteDir(t))
	opts.Deadline = 40 * time.Millisecond

	_, err := o.Run(context.Background(), opts)
	if !errkind.IsKind(err, errkind.Timeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRunContextCancellation(t *testing.T) {
	fake := newFakePages(t)
	o, _ := newTestOrchestrator(t, fake, "")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := o.Run(ctx, testOptions(siteDir(t)))
	if !errkind.IsKind(err, errkind.Timeout) {
		t.Fatalf("expected timeout-kind error on cancellation, got %v", err)
	}
}

func TestRunCancelledDuringStatusListing(t *testing.T) {
	fake := newFakePages(t)
	// Stall the listing call so the cancellation lands mid-request rather
	// than during an interval sleep.
	fake.describeDelay = 300 * time.Millisecond
	o, _ := newTestOrchestrator(t, fake, "")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	_, err := o.Run(ctx, testOptions(siteDir(t)))
	if !errkind.IsKind(err, errkind.Timeout) {
		t.Fatalf("expected timeout-kind error on mid-request cancellation, got %v", err)
	}
}

func TestRunInvalidPath(t *testing.T) {
	fake := newFakePages(t)
	o, _ := newTestOrchestrator(t, fake, "")

	_, err := o.Run(context.Background(), testOptions(filepath.Join(t.TempDir(), "missing")))
	if !errkind.IsKind(err, errkind.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := fake.count("DescribePagesCosTempToken"); got != 0 {
		t.Errorf("expected no remote calls for an invalid path, got %d", got)
	}
}
