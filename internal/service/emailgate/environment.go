package emailgate

import (
	"net/url"
	"strings"
)

// EnvironmentSignals are the inputs to development detection.
type EnvironmentSignals struct {
	// Environment is an explicit label such as "production" or "staging".
	Environment string
	SiteURL     string
	Hostname    string
	// Patterns are extra host substrings that mark a non-production host.
	Patterns []string
}

var productionLabels = map[string]bool{
	"production": true,
	"prod":       true,
	"live":       true,
}

var devHostMarkers = []string{
	"localhost",
	"127.0.0.1",
	"::1",
}

var devHostSuffixes = []string{".local", ".test", ".dev", ".localhost", ".invalid"}

var devHostPrefixes = []string{"staging.", "stage.", "dev.", "test.", "qa."}

// DetectDevelopment reports whether the signals describe a non-production
// environment. An explicit label decides on its own; any label other than a
// production one counts as development. Without a label the site URL and
// hostname are checked. With no usable signal at all the answer is true.
func DetectDevelopment(s EnvironmentSignals) bool {
	if label := strings.ToLower(strings.TrimSpace(s.Environment)); label != "" {
		return !productionLabels[label]
	}

	hosts := make([]string, 0, 2)
	if h := hostOf(s.SiteURL); h != "" {
		hosts = append(hosts, h)
	}
	if h := strings.ToLower(strings.TrimSpace(s.Hostname)); h != "" {
		hosts = append(hosts, h)
	}
	if len(hosts) == 0 {
		return true
	}

	for _, h := range hosts {
		if isDevHost(h, s.Patterns) {
			return true
		}
	}
	return false
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func isDevHost(host string, patterns []string) bool {
	for _, m := range devHostMarkers {
		if host == m {
			return true
		}
	}
	for _, suffix := range devHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	for _, prefix := range devHostPrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(host, p) {
			return true
		}
	}
	return false
}
