package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/lockfile"
)

func TestWriteEmptyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "cache.json")
	if err := WriteEmpty(path); err != nil {
		t.Fatalf("WriteEmpty() error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("cache file is not JSON: %v", err)
	}
	for _, key := range []string{"components", "lockObjects"} {
		if v, ok := doc[key]; !ok || len(v) != 0 {
			t.Errorf("%s = %v, want empty object", key, v)
		}
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "cache.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Open() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestStoreFlushRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := WriteEmpty(path); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	changelog := "### 1.1.0\n* fix\n"
	s.SetLockObject("/project", lockfile.Map{"@visual-framework/vf-box": {Version: "1.0.0"}})
	s.UpdateComponent("@visual-framework/vf-box", func(c *Component) {
		c.PackageDescriptor = &discovery.PackageDescriptor{Version: "1.1.0"}
	})
	s.UpdateComponent("@visual-framework/vf-box", func(c *Component) {
		c.Changelog = &changelog
	})

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("Open() after flush error: %v", err)
	}
	m, ok := reloaded.LockObject("/project")
	if !ok || m["@visual-framework/vf-box"].Version != "1.0.0" {
		t.Errorf("LockObject() = %v, %v", m, ok)
	}
	c, ok := reloaded.Component("@visual-framework/vf-box")
	if !ok {
		t.Fatal("component missing after reload")
	}
	if c.PackageDescriptor == nil || c.PackageDescriptor.Version != "1.1.0" {
		t.Errorf("PackageDescriptor = %+v", c.PackageDescriptor)
	}
	if c.Changelog == nil || *c.Changelog != changelog {
		t.Errorf("Changelog = %v", c.Changelog)
	}
	if c.Config != nil {
		t.Errorf("Config = %+v, want nil (never fetched)", c.Config)
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.json"))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("@visual-framework/vf-%d", i)
			s.UpdateComponent(name, func(c *Component) {
				c.PackageDescriptor = &discovery.PackageDescriptor{Version: "1.0.0"}
			})
		}(i)
	}
	wg.Wait()

	if got := len(s.Snapshot().Components); got != 20 {
		t.Errorf("Snapshot() has %d components, want 20", got)
	}
}
