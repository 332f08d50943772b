package myhttp

import (
	"fmt"
	"net/http"
	"os"
)

func HostnameWithScheme(r *http.Request) string {
	if base := os.Getenv("PUBLIC_BASE_URL"); base != "" {
		return base
	}

	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GuessHostnameWithScheme is used outside of a request, for example to register push-subscriptions
func GuessHostnameWithScheme() string {
	if base := os.Getenv("PUBLIC_BASE_URL"); base != "" {
		return base
	}
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		return fmt.Sprintf("https://%s.appspot.com", project)
	}
	return "http://localhost:8080"
}
