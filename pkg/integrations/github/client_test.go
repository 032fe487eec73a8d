package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/integrations"
)

func testClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(token, nil)
	c.baseURL = server.URL
	return c
}

func TestLatestReleaseTag(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   string
	}{
		{"release", http.StatusOK, Release{TagName: "v2.4.3"}, "v2.4.3"},
		{"no release", http.StatusNotFound, map[string]string{"message": "Not Found"}, FallbackRef},
		{"rate limited", http.StatusForbidden, map[string]string{"message": "rate limit"}, FallbackRef},
		{"empty tag", http.StatusOK, Release{}, FallbackRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/repos/{owner}/{repo}/releases/latest", func(w http.ResponseWriter, r *http.Request) {
				if chi.URLParam(r, "owner") != DefaultOwner || chi.URLParam(r, "repo") != DefaultRepo {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			})

			got, err := testClient(t, r, "").LatestReleaseTag(context.Background(), DefaultOwner, DefaultRepo)
			if err != nil {
				t.Fatalf("LatestReleaseTag() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("LatestReleaseTag() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLatestReleaseTagSendsToken(t *testing.T) {
	var auth string
	r := chi.NewRouter()
	r.Get("/repos/{owner}/{repo}/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(Release{TagName: "v1.0.0"})
	})

	if _, err := testClient(t, r, "secret").LatestReleaseTag(context.Background(), DefaultOwner, DefaultRepo); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer secret")
	}
}

func TestLatestReleaseTagNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	c := NewClient("", nil)
	c.baseURL = server.URL
	server.Close()

	_, err := c.LatestReleaseTag(context.Background(), DefaultOwner, DefaultRepo)
	if err == nil {
		t.Fatal("LatestReleaseTag() error = nil, want network error")
	}
	if integrations.IsStatus(err) {
		t.Errorf("error %v carries a status", err)
	}
}

func TestLatestReleaseTagValidates(t *testing.T) {
	c := NewClient("", nil)
	_, err := c.LatestReleaseTag(context.Background(), "-bad", DefaultRepo)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestRawContentURL(t *testing.T) {
	base := RawBaseURL(DefaultOwner, DefaultRepo)
	got := RawContentURL(base+"/", "v2.4.3", "/components/vf-box/package.json")
	want := "https://raw.githubusercontent.com/visual-framework/vf-core/v2.4.3/components/vf-box/package.json"
	if got != want {
		t.Errorf("RawContentURL() = %q, want %q", got, want)
	}
}

func TestParseRepoRef(t *testing.T) {
	tests := []struct {
		ref       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"visual-framework/vf-core", "visual-framework", "vf-core", false},
		{"owner/repo.js", "owner", "repo.js", false},
		{"no-slash", "", "", true},
		{"-owner/repo", "", "", true},
		{"owner/", "", "", true},
		{"owner/re po", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			owner, repo, err := ParseRepoRef(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRepoRef(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseRepoRef(%q) = %q, %q", tt.ref, owner, repo)
			}
		})
	}
}
