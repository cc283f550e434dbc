package deploy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pagebridge/pagebridge/internal/pages"
)

// fakePages is a scripted Pages API backend for tests. Deployment statuses
// are served as a sequence: one value per DescribePagesDeployments call, the
// last value repeating once the sequence is exhausted.
type fakePages struct {
	mu sync.Mutex

	projects        []pages.Project
	createProjectID string
	creds           map[string]interface{}
	deploymentID    string
	statusSequence  []string
	encipherToken   string
	encipherTime    int64
	omitDeployment  bool
	describeDelay   time.Duration

	actionCounts     map[string]int
	pollCount        int
	lastDistType     string
	lastEnv          string
	lastTokenScopeID string
	lastTokenName    string

	server *httptest.Server
}

func newFakePages(t *testing.T) *fakePages {
	t.Helper()
	f := &fakePages{
		createProjectID: "proj-new",
		deploymentID:    "dep-1",
		encipherToken:   "tok123",
		encipherTime:    1756200000,
		creds: map[string]interface{}{
			"TmpSecretId":  "AKID",
			"TmpSecretKey": "SECRET",
			"SessionToken": "TOKEN",
			"ExpiredTime":  1756200000,
			"Bucket":       "pages-artifacts",
			"Region":       "ap-singapore",
			"Prefix":       "uploads/proj-1",
		},
		actionCounts: map[string]int{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePages) count(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.actionCounts[action]
}

func (f *fakePages) handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	action, _ := body["Action"].(string)

	if action == "DescribePagesDeployments" && f.describeDelay > 0 {
		time.Sleep(f.describeDelay)
	}

	f.mu.Lock()
	f.actionCounts[action]++

	var data interface{}
	switch action {
	case "DescribePagesProjects":
		projects := f.projects
		if name, _ := body["Name"].(string); name != "" {
			var filtered []pages.Project
			for _, p := range projects {
				if p.Name == name {
					filtered = append(filtered, p)
				}
			}
			projects = filtered
		}
		data = map[string]interface{}{"Projects": projects}

	case "CreatePagesProject":
		name, _ := body["Name"].(string)
		f.projects = append(f.projects, pages.Project{
			ProjectID:    f.createProjectID,
			Name:         name,
			Status:       pages.ProjectStatusNormal,
			PresetDomain: "preset.pages.example",
		})
		data = map[string]interface{}{"ProjectId": f.createProjectID}

	case "DescribePagesCosTempToken":
		f.lastTokenScopeID, _ = body["ProjectId"].(string)
		f.lastTokenName, _ = body["ProjectName"].(string)
		data = f.creds

	case "CreatePagesDeployment":
		f.lastDistType, _ = body["DistType"].(string)
		f.lastEnv, _ = body["Environment"].(string)
		data = map[string]interface{}{"DeploymentId": f.deploymentID}

	case "DescribePagesDeployments":
		var deployments []pages.Deployment
		if !f.omitDeployment {
			status := pages.DeploymentStatusProcess
			if len(f.statusSequence) > 0 {
				idx := f.pollCount
				if idx >= len(f.statusSequence) {
					idx = len(f.statusSequence) - 1
				}
				status = f.statusSequence[idx]
			}
			f.pollCount++
			deployments = []pages.Deployment{{
				DeploymentID: f.deploymentID,
				Status:       status,
				PreviewURL:   "https://preview.pages.example",
			}}
		}
		data = map[string]interface{}{"Deployments": deployments}

	case "DescribePagesEncipherToken":
		data = map[string]interface{}{"Token": f.encipherToken, "CreateTime": f.encipherTime}

	default:
		f.mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.mu.Unlock()

	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"Code":      0,
		"Data":      json.RawMessage(raw),
		"RequestId": "req-1",
	})
}
