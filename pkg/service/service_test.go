package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/vfdiscovery/pkg/appconfig"
	"github.com/matzehuels/vfdiscovery/pkg/cache"
	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/integrations"
	"github.com/matzehuels/vfdiscovery/pkg/integrations/github"
	"github.com/matzehuels/vfdiscovery/pkg/pipeline"
	"github.com/matzehuels/vfdiscovery/pkg/upstream"
)

const boxChangelog = `### 1.1.0

* adds dark mode

### 1.0.0

* initial release
`

// upstreamServer fakes both the releases API and the raw content host.
type upstreamServer struct {
	*httptest.Server
	releaseStatus int
	releaseCalls  atomic.Int32
	rawCalls      atomic.Int32
	files         map[string]string
}

func newUpstreamServer(t *testing.T) *upstreamServer {
	t.Helper()
	u := &upstreamServer{
		releaseStatus: http.StatusOK,
		files: map[string]string{
			"v2.5.0/components/vf-box/package.json":       `{"name":"@visual-framework/vf-box","version":"1.1.0"}`,
			"v2.5.0/components/vf-box/vf-box.config.yml":  "title: Box\nlabel: Box\nstatus: live\n",
			"v2.5.0/components/vf-box/CHANGELOG.md":       boxChangelog,
			"develop/components/vf-box/package.json":      `{"name":"@visual-framework/vf-box","version":"1.2.0-rc.1"}`,
			"develop/components/vf-box/vf-box.config.yml": "title: Box\n",
		},
	}

	r := chi.NewRouter()
	r.Get("/repos/{owner}/{repo}/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		u.releaseCalls.Add(1)
		w.WriteHeader(u.releaseStatus)
		if u.releaseStatus == http.StatusOK {
			json.NewEncoder(w).Encode(github.Release{TagName: "v2.5.0"})
		}
	})
	r.Get("/raw/{tag}/{dir}/{name}/{resource}", func(w http.ResponseWriter, r *http.Request) {
		u.rawCalls.Add(1)
		key := chi.URLParam(r, "tag") + "/" + chi.URLParam(r, "dir") + "/" +
			chi.URLParam(r, "name") + "/" + chi.URLParam(r, "resource")
		body, ok := u.files[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})
	u.Server = httptest.NewServer(r)
	t.Cleanup(u.Close)
	return u
}

func writeProject(t *testing.T, deps string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"package.json": `{"name":"host","dependencies":` + deps + `}`,
		"package-lock.json": `{"lockfileVersion":2,"packages":{
			"":{"name":"host"},
			"node_modules/@visual-framework/vf-box":{"version":"1.0.0"},
			"node_modules/@visual-framework/vf-card":{"version":"2.0.0"}}}`,
		"index.html":     `<div class="vf-box">hello</div>`,
		"about.html":     `<p>nothing here</p>`,
		"dist/main.html": `<div class="vf-box"></div>`,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newTestService(t *testing.T, u *upstreamServer) (*Service, *appconfig.Service) {
	t.Helper()
	cfg := appconfig.NewService(appconfig.NewPaths(t.TempDir()), nil)
	client := integrations.NewClient(nil, nil)
	fetcher := upstream.NewHTTPFetcher(client, u.URL+"/raw")
	tags := github.NewClient("", nil).WithBaseURL(u.URL)
	return New(cfg, tags, fetcher, nil), cfg
}

func TestRunEndToEnd(t *testing.T) {
	u := newUpstreamServer(t)
	svc, cfg := newTestService(t, u)
	dir := writeProject(t, `{"@visual-framework/vf-box":"^1.0.0","lodash":"^4.0.0"}`)

	report, err := svc.Run(context.Background(), Options{
		RootDir: dir,
		Ignore:  []string{"dist/**"},
		Profile: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "v2.5.0", report.ReleaseTag)
	assert.Equal(t, pipeline.StageNames, report.Stages)
	require.Len(t, report.Results, 1)

	r := report.Results[0]
	require.NoError(t, r.Err)
	assert.Len(t, r.Profile, len(pipeline.StageNames))

	item := r.Item
	assert.Equal(t, "@visual-framework/vf-box", item.Name)
	assert.Equal(t, "1.0.0", item.InstalledVersion())
	assert.Equal(t, "1.1.0", item.LatestVersion())
	assert.Equal(t, &discovery.ComponentConfig{Title: "Box", Label: "Box", Status: "live"}, item.Config)
	assert.Equal(t, []discovery.ChangelogEntry{{Version: "1.1.0", Changes: []string{"adds dark mode"}}}, item.Changelog)
	assert.Equal(t, []string{"index.html"}, item.Dependents)

	// The app config pins the tag and records the invalidation.
	assert.Equal(t, "v2.5.0", cfg.ReleaseTag())
	assert.NotNil(t, cfg.Config().LastInvalidation)

	// The cache is flushed with the fetched artifacts and the lock map.
	store, err := cache.Open(cfg.Paths().CacheFile)
	require.NoError(t, err)
	c, ok := store.Component("vf-box")
	require.True(t, ok)
	require.NotNil(t, c.Changelog)
	assert.Equal(t, boxChangelog, *c.Changelog)
	locks, ok := store.LockObject(dir)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", locks["@visual-framework/vf-box"].Version)
}

func TestRunServesSecondRunFromCache(t *testing.T) {
	u := newUpstreamServer(t)
	svc, _ := newTestService(t, u)
	dir := writeProject(t, `{"@visual-framework/vf-box":"^1.0.0"}`)
	ctx := context.Background()

	first, err := svc.Run(ctx, Options{RootDir: dir})
	require.NoError(t, err)
	releaseCalls, rawCalls := u.releaseCalls.Load(), u.rawCalls.Load()
	assert.Equal(t, int32(1), releaseCalls)

	second, err := svc.Run(ctx, Options{RootDir: dir})
	require.NoError(t, err)
	assert.Equal(t, releaseCalls, u.releaseCalls.Load(), "tag is not resolved again before expiry")
	assert.Equal(t, rawCalls, u.rawCalls.Load(), "artifacts come from the cache")
	assert.Equal(t, first.Results[0].Item, second.Results[0].Item)
	assert.NotEqual(t, first.RunID, second.RunID)

	_, err = svc.Run(ctx, Options{RootDir: dir, Force: true})
	require.NoError(t, err)
	assert.Equal(t, releaseCalls+1, u.releaseCalls.Load())
	assert.Greater(t, u.rawCalls.Load(), rawCalls)
}

func TestRunInvalidatesAfterExpiry(t *testing.T) {
	u := newUpstreamServer(t)
	svc, cfg := newTestService(t, u)
	dir := writeProject(t, `{"@visual-framework/vf-box":"^1.0.0"}`)
	ctx := context.Background()

	_, err := svc.Run(ctx, Options{RootDir: dir})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(13 * time.Hour) }
	_, err = svc.Run(ctx, Options{RootDir: dir})
	require.NoError(t, err)
	assert.Equal(t, int32(2), u.releaseCalls.Load())
	assert.WithinDuration(t, svc.now(), *cfg.Config().LastInvalidation, time.Minute)
}

func TestRunFallsBackToDevelop(t *testing.T) {
	u := newUpstreamServer(t)
	u.releaseStatus = http.StatusNotFound
	svc, _ := newTestService(t, u)
	dir := writeProject(t, `{"@visual-framework/vf-box":"^1.0.0"}`)

	report, err := svc.Run(context.Background(), Options{
		RootDir:   dir,
		Selection: pipeline.Selection{OnlyOutdated: true},
	})
	require.NoError(t, err)
	assert.Equal(t, github.FallbackRef, report.ReleaseTag)
	assert.Equal(t, "1.2.0-rc.1", report.Results[0].Item.LatestVersion())
}

func TestRunPartialFailureStillFlushes(t *testing.T) {
	u := newUpstreamServer(t)
	svc, cfg := newTestService(t, u)
	dir := writeProject(t, `{"@visual-framework/vf-card":"^2.0.0","@visual-framework/vf-box":"^1.0.0"}`)

	report, err := svc.Run(context.Background(), Options{RootDir: dir})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	card, box := report.Results[0], report.Results[1]
	assert.Equal(t, "vf-card", card.Item.NameWithoutPrefix)
	assert.True(t, errors.Is(card.Err, errors.ErrCodeFetchFailure))
	assert.Equal(t, pipeline.StagePackageDescriptor, card.Stage)
	assert.NoError(t, box.Err)

	store, err := cache.Open(cfg.Paths().CacheFile)
	require.NoError(t, err)
	_, ok := store.Component("vf-box")
	assert.True(t, ok)
	_, ok = store.Component("vf-card")
	assert.False(t, ok, "failed fetches are not cached")
}

func TestRunSkipsDependentsScanWhenDisabled(t *testing.T) {
	u := newUpstreamServer(t)
	svc, _ := newTestService(t, u)
	dir := writeProject(t, `{"@visual-framework/vf-box":"^1.0.0"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package-lock.json"),
		[]byte(`{"lockfileVersion":1,"dependencies":{"@visual-framework/vf-box":{"version":"1.1.0"}}}`), 0o644))

	report, err := svc.Run(context.Background(), Options{
		RootDir:   dir,
		Selection: pipeline.Selection{Disabled: []string{pipeline.StageDependents}},
	})
	require.NoError(t, err)
	item := report.Results[0].Item
	assert.Nil(t, item.Dependents)
	assert.NotNil(t, item.Changelog)
	assert.Empty(t, item.Changelog, "installed is latest")
}

func TestRunSetupErrors(t *testing.T) {
	tests := []struct {
		name string
		deps string
		skip bool
		code errors.Code
	}{
		{"missing manifest", "", true, errors.ErrCodeFileNotFound},
		{"no components", `{"lodash":"^4.0.0"}`, false, errors.ErrCodeNoComponentsFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUpstreamServer(t)
			svc, _ := newTestService(t, u)
			dir := t.TempDir()
			if !tt.skip {
				dir = writeProject(t, tt.deps)
			}

			report, err := svc.Run(context.Background(), Options{RootDir: dir})
			assert.Nil(t, report)
			assert.True(t, errors.Is(err, tt.code), "error = %v", err)
			assert.Zero(t, u.rawCalls.Load())
		})
	}
}

func TestRunNetworkFailureAbortsSetup(t *testing.T) {
	u := newUpstreamServer(t)
	svc, _ := newTestService(t, u)
	dir := writeProject(t, `{"@visual-framework/vf-box":"^1.0.0"}`)
	u.Close()

	_, err := svc.Run(context.Background(), Options{RootDir: dir})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNetwork), "error = %v", err)
}

func TestRunKeysLockObjectsByAbsoluteRoot(t *testing.T) {
	u := newUpstreamServer(t)
	svc, cfg := newTestService(t, u)
	ctx := context.Background()

	a := writeProject(t, `{"@visual-framework/vf-box":"^1.0.0"}`)
	b := writeProject(t, `{"@visual-framework/vf-box":"^1.0.0"}`)
	require.NoError(t, os.WriteFile(filepath.Join(b, "package-lock.json"), []byte(`{"lockfileVersion":2,"packages":{
		"":{"name":"host"},
		"node_modules/@visual-framework/vf-box":{"version":"1.1.0"}}}`), 0o644))

	installed := func(dir string) string {
		t.Chdir(dir)
		report, err := svc.Run(ctx, Options{})
		require.NoError(t, err)
		require.Len(t, report.Results, 1)
		require.NoError(t, report.Results[0].Err)
		return report.Results[0].Item.InstalledVersion()
	}

	assert.Equal(t, "1.0.0", installed(a))
	assert.Equal(t, "1.1.0", installed(b))

	store, err := cache.Open(cfg.Paths().CacheFile)
	require.NoError(t, err)
	keys := make([]string, 0)
	for k := range store.Snapshot().LockObjects {
		keys = append(keys, k)
	}
	assert.NotContains(t, keys, ".")
	assert.Len(t, keys, 2)
	for _, k := range keys {
		assert.True(t, filepath.IsAbs(k), "lock object key %q", k)
	}
}

func TestProjectRoot(t *testing.T) {
	dir := t.TempDir()
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(dir, link))

	t.Chdir(dir)
	for _, in := range []string{"", ".", dir, link} {
		got, err := projectRoot(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "projectRoot(%q)", in)
	}
}
