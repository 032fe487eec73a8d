package lockfile

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

const berryMetadataKey = "__metadata"

type berryEntry struct {
	Version      string            `yaml:"version"`
	Resolution   string            `yaml:"resolution"`
	Checksum     string            `yaml:"checksum"`
	Dependencies map[string]string `yaml:"dependencies"`
}

// isBerry reports whether a yarn.lock was written by yarn 2 or later.
func isBerry(data []byte) bool {
	return bytes.Contains(data, []byte("\n"+berryMetadataKey+":")) ||
		bytes.HasPrefix(data, []byte(berryMetadataKey+":"))
}

// parseBerry parses the YAML lock format of yarn 2+.
func parseBerry(data []byte, declared map[string]string) (Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeApp, err, "parse %s", YarnLockFile)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return Map{}, nil
	}

	// Walk the mapping node directly so entries keep file order.
	cands := newCandidates()
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if key == berryMetadataKey {
			continue
		}
		var e berryEntry
		if err := root.Content[i+1].Decode(&e); err != nil {
			return nil, errors.Wrap(errors.ErrCodeApp, err, "parse %s: %s", YarnLockFile, key)
		}
		entry := Entry{
			Version:      e.Version,
			Resolved:     e.Resolution,
			Integrity:    e.Checksum,
			Dependencies: e.Dependencies,
		}
		for _, k := range strings.Split(key, ",") {
			cands.add(k, entry)
		}
	}
	return cands.resolve(declared), nil
}
