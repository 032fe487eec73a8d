package appconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/vfdiscovery/pkg/cache"
	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := NewService(NewPaths(filepath.Join(t.TempDir(), appDirName)), nil)
	if err := s.Setup(false); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return s
}

func TestAddRelative(t *testing.T) {
	base := time.Date(2021, time.January, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"12h", base.Add(12 * time.Hour)},
		{"2D 3h", time.Date(2021, time.January, 12, 11, 0, 0, 0, time.UTC)},
		{"3h 2D", time.Date(2021, time.January, 12, 11, 0, 0, 0, time.UTC)},
		{"1Y 1M", time.Date(2022, time.February, 10, 8, 0, 0, 0, time.UTC)},
		{"30m 45s", base.Add(30*time.Minute + 45*time.Second)},
		{"1h 1h", base.Add(2 * time.Hour)},
		{"1w 5x 2h", base.Add(2 * time.Hour)},
		{"1d", base},
		{"", base},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := AddRelative(base, tt.expr); !got.Equal(tt.want) {
				t.Errorf("AddRelative(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestAddRelativeAppliesLargestUnitFirst(t *testing.T) {
	// Jan 31 + 1 month normalises to Mar 3 (2021 is not a leap year), then
	// +1 day gives Mar 4. Applying the day first would give Mar 1.
	base := time.Date(2021, time.January, 31, 0, 0, 0, 0, time.UTC)
	want := time.Date(2021, time.March, 4, 0, 0, 0, 0, time.UTC)

	for _, expr := range []string{"1M 1D", "1D 1M"} {
		if got := AddRelative(base, expr); !got.Equal(want) {
			t.Errorf("AddRelative(%q) = %v, want %v", expr, got, want)
		}
	}
}

func TestShouldInvalidate(t *testing.T) {
	s := newTestService(t)

	if !s.ShouldInvalidate(time.Now()) {
		t.Error("ShouldInvalidate() on default config = false, want true")
	}

	for _, expiry := range []string{"5h", "1Y", "2M", "3D", "10m", "30s", "1D 2h 3m"} {
		t.Run(expiry, func(t *testing.T) {
			if err := s.Update(KeyCacheExpiry, expiry, false); err != nil {
				t.Fatalf("Update() error: %v", err)
			}
			now := time.Now().UTC().Truncate(time.Second)
			if err := s.MarkInvalidated(now); err != nil {
				t.Fatalf("MarkInvalidated() error: %v", err)
			}

			if s.ShouldInvalidate(now) {
				t.Error("ShouldInvalidate() right after invalidation = true, want false")
			}
			expires := AddRelative(now, expiry)
			if s.ShouldInvalidate(expires) {
				t.Error("ShouldInvalidate() at the expiry instant = true, want false")
			}
			if !s.ShouldInvalidate(expires.Add(time.Second)) {
				t.Error("ShouldInvalidate() after expiry = false, want true")
			}
		})
	}
}

func TestConfigRoundTrip(t *testing.T) {
	stamp := time.Date(2020, time.December, 24, 15, 45, 8, 0, time.UTC)
	tag := "v2.4.3"

	tests := []struct {
		name string
		in   AppConfig
	}{
		{"with timestamp", AppConfig{CacheExpiry: "8h", LastInvalidation: &stamp, UpstreamReleaseTag: &tag}},
		{"null timestamp", AppConfig{CacheExpiry: "8h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			var out AppConfig
			if err := json.Unmarshal(raw, &out); err != nil {
				t.Fatal(err)
			}

			switch {
			case tt.in.LastInvalidation == nil && out.LastInvalidation != nil:
				t.Errorf("LastInvalidation = %v, want nil", out.LastInvalidation)
			case tt.in.LastInvalidation != nil && (out.LastInvalidation == nil ||
				!out.LastInvalidation.Truncate(time.Second).Equal(tt.in.LastInvalidation.Truncate(time.Second))):
				t.Errorf("LastInvalidation = %v, want %v", out.LastInvalidation, tt.in.LastInvalidation)
			}
			if out.ReleaseTag() != tt.in.ReleaseTag() {
				t.Errorf("ReleaseTag() = %q, want %q", out.ReleaseTag(), tt.in.ReleaseTag())
			}
		})
	}
}

func TestDefaultConfigFile(t *testing.T) {
	s := newTestService(t)

	raw, err := os.ReadFile(s.Paths().ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["cacheExpiry"] != DefaultCacheExpiry {
		t.Errorf("cacheExpiry = %v, want %q", doc["cacheExpiry"], DefaultCacheExpiry)
	}
	for _, key := range []string{"lastInvalidation", "upstreamReleaseTag"} {
		if v, ok := doc[key]; !ok || v != nil {
			t.Errorf("%s = %v (present %v), want null", key, v, ok)
		}
	}
}

func TestSetupIsIdempotent(t *testing.T) {
	s := newTestService(t)
	if err := s.Update(KeyCacheExpiry, "3D", true); err != nil {
		t.Fatal(err)
	}

	if err := s.Setup(false); err != nil {
		t.Fatalf("second Setup() error: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if got := s.Config().CacheExpiry; got != "3D" {
		t.Errorf("CacheExpiry after second Setup() = %q, want 3D", got)
	}

	if err := s.Setup(true); err != nil {
		t.Fatalf("forced Setup() error: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if got := s.Config().CacheExpiry; got != DefaultCacheExpiry {
		t.Errorf("CacheExpiry after forced Setup() = %q, want %q", got, DefaultCacheExpiry)
	}
}

func TestLoadMissing(t *testing.T) {
	s := NewService(NewPaths(t.TempDir()), nil)
	if err := s.Load(); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestUpdatePersistence(t *testing.T) {
	s := newTestService(t)

	if err := s.Update(KeyUpstreamReleaseTag, "v2.5.0", false); err != nil {
		t.Fatal(err)
	}
	if s.ReleaseTag() != "v2.5.0" {
		t.Errorf("in-memory ReleaseTag() = %q", s.ReleaseTag())
	}

	other := NewService(s.Paths(), nil)
	if err := other.Load(); err != nil {
		t.Fatal(err)
	}
	if other.ReleaseTag() != "" {
		t.Errorf("deferred update reached disk: %q", other.ReleaseTag())
	}

	if err := s.SetReleaseTag("v2.5.1"); err != nil {
		t.Fatal(err)
	}
	if err := other.Load(); err != nil {
		t.Fatal(err)
	}
	if other.ReleaseTag() != "v2.5.1" {
		t.Errorf("persisted ReleaseTag() = %q, want v2.5.1", other.ReleaseTag())
	}
}

func TestUpdateValidation(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name  string
		key   Key
		value string
		code  errors.Code
	}{
		{"unknown key", Key("gitHubAccessToken"), "x", errors.ErrCodeInvalidInput},
		{"bad expiry", KeyCacheExpiry, "soon", errors.ErrCodeInvalidInput},
		{"bad timestamp", KeyLastInvalidation, "yesterday", errors.ErrCodeInvalidInput},
		{"bad tag", KeyUpstreamReleaseTag, "../v1", errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Update(tt.key, tt.value, true); !errors.Is(err, tt.code) {
				t.Errorf("Update(%s, %q) error = %v, want %s", tt.key, tt.value, err, tt.code)
			}
		})
	}

	if err := s.Update(KeyLastInvalidation, "null", true); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(KeyLastInvalidation); got != "null" {
		t.Errorf("Get(lastInvalidation) = %q, want null", got)
	}
}

func TestReset(t *testing.T) {
	s := newTestService(t)
	if err := s.Update(KeyCacheExpiry, "1M", true); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if s.Config().CacheExpiry != DefaultCacheExpiry {
		t.Errorf("CacheExpiry after Reset() = %q", s.Config().CacheExpiry)
	}
}

func TestDeleteCachedComponents(t *testing.T) {
	s := newTestService(t)

	store, err := cache.Open(s.Paths().CacheFile)
	if err != nil {
		t.Fatal(err)
	}
	store.UpdateComponent("@visual-framework/vf-box", func(c *cache.Component) {
		c.PackageDescriptor = &discovery.PackageDescriptor{Version: "1.0.0"}
	})
	if err := store.Flush(); err != nil {
		t.Fatal(err)
	}
	stray := filepath.Join(s.Paths().CacheDir, "stray.json")
	if err := os.WriteFile(stray, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteCachedComponents(); err != nil {
		t.Fatalf("DeleteCachedComponents() error: %v", err)
	}

	store, err = cache.Open(s.Paths().CacheFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Component("@visual-framework/vf-box"); ok {
		t.Error("component survived DeleteCachedComponents()")
	}
	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Error("cache directory was not cleared")
	}
}
