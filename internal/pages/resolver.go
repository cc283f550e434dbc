package pages

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// The two candidate API base URLs. Request and response shapes are identical
// across both; only reachability differs by account region.
const (
	EndpointPrimary = "https://pages.api.edgeone.com"
	EndpointGlobal  = "https://pages.api.edgeone.app"
)

// Console base URLs keyed by the API endpoint that answered.
var consoleURLs = map[string]string{
	EndpointPrimary: "https://console.edgeone.com/pages",
	EndpointGlobal:  "https://console.edgeone.app/pages",
}

// ErrInvalidCredential is returned when neither candidate endpoint accepts
// the configured token. The remote service validates auth before returning
// any status, so a double failure is the only local signal of a bad token.
var ErrInvalidCredential = errors.New("invalid credential")

// candidateEndpoints is the probe order; index 0 wins when both succeed.
var candidateEndpoints = []string{EndpointPrimary, EndpointGlobal}

// ResolveEndpoint probes both candidate endpoints with an authenticated
// DescribePagesProjects call issued concurrently and returns the first that
// reports success. Both probes are awaited; when both succeed the primary
// endpoint wins. No retry: resolution happens once per run and the caller
// caches the result.
func ResolveEndpoint(ctx context.Context, token string, debug bool) (string, error) {
	candidates := candidateEndpoints
	results := make([]bool, len(candidates))

	var wg sync.WaitGroup
	for i, endpoint := range candidates {
		wg.Add(1)
		go func(index int, url string) {
			defer wg.Done()
			client := NewClient(token, url, "", debug)
			if _, err := client.DescribeProjects(ctx, ""); err == nil {
				results[index] = true
			}
		}(i, endpoint)
	}
	wg.Wait()

	for i, ok := range results {
		if ok {
			return candidates[i], nil
		}
	}

	return "", ErrInvalidCredential
}

// ConsoleURL returns the console base URL matching the active API endpoint.
func ConsoleURL(endpoint string) string {
	if url, ok := consoleURLs[endpoint]; ok {
		return url
	}
	return consoleURLs[EndpointPrimary]
}

// ResolveAPIToken returns the Pages API token from flag, config, or environment.
// Priority: flag > config > env
func ResolveAPIToken(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return strings.TrimSpace(flagValue)
	}

	if token := strings.TrimSpace(viper.GetString("pages.token")); token != "" {
		return token
	}

	if env := strings.TrimSpace(os.Getenv("PAGEBRIDGE_API_TOKEN")); env != "" {
		return env
	}

	return ""
}

// ResolveProjectName returns the optional fixed project name, or empty when
// the run should use a scratch project.
func ResolveProjectName(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return strings.TrimSpace(flagValue)
	}

	if name := strings.TrimSpace(viper.GetString("pages.project")); name != "" {
		return name
	}

	return strings.TrimSpace(os.Getenv("PAGEBRIDGE_PROJECT_NAME"))
}

// ResolveEnvironment returns the deploy environment, defaulting to Production.
func ResolveEnvironment(flagValue string) string {
	return ResolveEnvironmentOr(flagValue, EnvProduction)
}

// ResolveEnvironmentOr returns the deploy environment from flag, config, or
// environment, falling back to the caller's default when none is configured.
func ResolveEnvironmentOr(flagValue, fallback string) string {
	env := strings.TrimSpace(flagValue)
	if env == "" {
		env = strings.TrimSpace(viper.GetString("pages.environment"))
	}
	if env == "" {
		env = strings.TrimSpace(os.Getenv("PAGEBRIDGE_ENVIRONMENT"))
	}

	if env == "" {
		return fallback
	}
	if strings.EqualFold(env, EnvPreview) {
		return EnvPreview
	}
	return EnvProduction
}

// ResolveBaseURL returns an explicit API base URL override that skips
// endpoint probing, or empty when probing should run.
func ResolveBaseURL() string {
	if url := strings.TrimSpace(viper.GetString("pages.base_url")); url != "" {
		return url
	}
	return strings.TrimSpace(os.Getenv("PAGEBRIDGE_BASE_URL"))
}

// IsConfigured returns true if a Pages API token is available.
func IsConfigured() bool {
	return ResolveAPIToken("") != ""
}
