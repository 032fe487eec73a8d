package upstream

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

var jsConfigField = regexp.MustCompile("(?m)^\\s*[\"']?(title|label|status)[\"']?\\s*:\\s*(?:\"([^\"]*)\"|'([^']*)'|`([^`]*)`)")

func parseYAMLConfig(data []byte) (*discovery.ComponentConfig, error) {
	var cfg discovery.ComponentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeApp, err, "parse yaml config")
	}
	return &cfg, nil
}

// parseJSConfig extracts the string-literal title, label and status fields
// of a CommonJS config module. The first occurrence of each field wins;
// computed values are left empty.
func parseJSConfig(data []byte) (*discovery.ComponentConfig, error) {
	src := string(data)
	idx := strings.Index(src, "module.exports")
	if idx < 0 {
		return nil, errors.New(errors.ErrCodeApp, "parse js config: no module.exports")
	}

	var cfg discovery.ComponentConfig
	seen := make(map[string]bool, 3)
	for _, m := range jsConfigField.FindAllStringSubmatch(src[idx:], -1) {
		key := m[1]
		if seen[key] {
			continue
		}
		seen[key] = true

		value := m[2] + m[3] + m[4]
		switch key {
		case "title":
			cfg.Title = value
		case "label":
			cfg.Label = value
		case "status":
			cfg.Status = value
		}
	}
	return &cfg, nil
}
