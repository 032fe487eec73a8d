package dependents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relPaths(pds []PotentialDependent) []string {
	out := make([]string, len(pds))
	for i, pd := range pds {
		out[i] = pd.RelPath
	}
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  ProjectType
	}{
		{"angular marker wins", map[string]string{
			"angular.json": "{}",
			"package.json": `{"dependencies":{"react":"^17.0.0"}}`,
		}, Angular},
		{"react dependency", map[string]string{
			"package.json": `{"dependencies":{"react":"^17.0.0"}}`,
		}, React},
		{"react as dev dependency only", map[string]string{
			"package.json": `{"devDependencies":{"react":"^17.0.0"}}`,
		}, HTML},
		{"default", map[string]string{
			"package.json": `{"dependencies":{"@visual-framework/vf-box":"1.0.0"}}`,
		}, HTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)

			got, err := Detect(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectWithoutManifest(t *testing.T) {
	_, err := Detect(t.TempDir())
	assert.True(t, errors.Is(err, errors.ErrCodeApp), "error = %v", err)
}

func TestParseProjectType(t *testing.T) {
	for _, s := range []string{"", "auto", "html", "Angular", "react"} {
		_, err := ParseProjectType(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseProjectType("vue")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidProjectType))
}

func TestPotentialDependents(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"package.json":                       `{}`,
		"index.html":                         "",
		"src/pages/about.njk":                "",
		"src/app/app.component.ts":           "",
		"src/App.tsx":                        "",
		"dist/index.html":                    "",
		"node_modules/vf-box/index.html":     "",
		"src/node_modules/nested/index.html": "",
	})

	tests := []struct {
		name   string
		pt     ProjectType
		ignore []string
		want   []string
	}{
		{"html", HTML, nil, []string{"dist/index.html", "index.html", "src/pages/about.njk"}},
		{"html ignoring dist", HTML, []string{"dist/**"}, []string{"index.html", "src/pages/about.njk"}},
		{"angular", Angular, []string{"**/dist/**"}, []string{"index.html", "src/app/app.component.ts"}},
		{"react", React, nil, []string{"src/App.tsx"}},
		{"auto", Auto, []string{"dist/**"}, []string{"index.html", "src/pages/about.njk"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pds, err := PotentialDependents(dir, tt.pt, tt.ignore)
			require.NoError(t, err)
			assert.Equal(t, tt.want, relPaths(pds))
			for _, pd := range pds {
				assert.True(t, filepath.IsAbs(pd.FilePath))
				assert.NotNil(t, pd.Matcher)
			}
		})
	}
}

func TestFinderDependents(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"package.json":     `{}`,
		"index.html":       `<div class="vf-box">`,
		"about/index.html": `<section class="vf-box-extended">`,
		"contact.njk":      `{% include "vf-card" %}`,
	})
	pds, err := PotentialDependents(dir, HTML, nil)
	require.NoError(t, err)

	f, err := NewFinder(0, nil)
	require.NoError(t, err)

	got, err := f.Dependents("vf-box", pds)
	require.NoError(t, err)
	assert.Equal(t, []string{"about/index.html", "index.html"}, got, "the substring matcher also hits vf-box-extended")

	got, err = f.Dependents("vf-hero", pds)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFinderCachesContents(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"package.json": `{}`, "index.html": "vf-box"})
	pds, err := PotentialDependents(dir, HTML, nil)
	require.NoError(t, err)

	f, err := NewFinder(4, nil)
	require.NoError(t, err)
	_, err = f.Dependents("vf-box", pds)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "index.html")))
	got, err := f.Dependents("vf-box", pds)
	require.NoError(t, err, "second read is served from memory")
	assert.Equal(t, []string{"index.html"}, got)

	uncached, err := NewFinder(4, nil)
	require.NoError(t, err)
	_, err = uncached.Dependents("vf-box", pds)
	assert.True(t, errors.Is(err, errors.ErrCodeApp))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("vf-box", "<vf-box>"))
	assert.False(t, Contains("", "anything"))
	assert.False(t, Contains("vf-card", "<vf-box>"))
}
