package lockfile

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

// candidate is one lock entry reachable under a specific requested range.
type candidate struct {
	rng   string
	entry Entry
}

// candidates collects entries per package name in file order.
type candidates struct {
	order  []string
	byName map[string][]candidate
}

func newCandidates() *candidates {
	return &candidates{byName: make(map[string][]candidate)}
}

func (c *candidates) add(key string, e Entry) {
	name, rng := splitKey(key)
	if name == "" {
		return
	}
	if _, ok := c.byName[name]; !ok {
		c.order = append(c.order, name)
	}
	c.byName[name] = append(c.byName[name], candidate{rng: rng, entry: e})
}

// resolve picks one entry per name. An entry whose range is exactly the
// declared one wins; failing that, the first entry whose version satisfies
// the declared range; failing that, the first entry.
func (c *candidates) resolve(declared map[string]string) Map {
	m := make(Map, len(c.order))
	for _, name := range c.order {
		m[name] = pick(c.byName[name], declared[name])
	}
	return m
}

func pick(cands []candidate, want string) Entry {
	if want == "" || len(cands) == 1 {
		return cands[0].entry
	}
	for _, cand := range cands {
		if cand.rng == want {
			return cand.entry
		}
	}
	if constraint, err := semver.NewConstraint(want); err == nil {
		for _, cand := range cands {
			if v, err := semver.NewVersion(cand.entry.Version); err == nil && constraint.Check(v) {
				return cand.entry
			}
		}
	}
	return cands[0].entry
}

// splitKey splits a "name@range" key on its last "@". Scoped names keep
// their leading "@". Berry's "npm:" protocol prefix is dropped from the range.
func splitKey(key string) (name, rng string) {
	key = strings.TrimSpace(key)
	i := strings.LastIndex(key, "@")
	if i <= 0 {
		return key, ""
	}
	name, rng = key[:i], key[i+1:]
	rng = strings.TrimPrefix(rng, "npm:")
	return name, rng
}

// parseYarn parses the yarn v1 lock format.
func parseYarn(data []byte, declared map[string]string) (Map, error) {
	cands := newCandidates()

	var (
		keys    []string
		current *Entry
		inDeps  bool
	)
	flush := func() {
		if current != nil {
			for _, k := range keys {
				cands.add(k, *current)
			}
		}
		keys, current, inDeps = nil, nil, false
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		switch {
		case indent == 0:
			flush()
			if !strings.HasSuffix(trimmed, ":") {
				return nil, errors.New(errors.ErrCodeApp, "parse %s: line %d: unexpected %q", YarnLockFile, lineNo, trimmed)
			}
			for _, k := range strings.Split(strings.TrimSuffix(trimmed, ":"), ",") {
				keys = append(keys, unquote(strings.TrimSpace(k)))
			}
			current = &Entry{}
		case current == nil:
			return nil, errors.New(errors.ErrCodeApp, "parse %s: line %d: field outside of an entry", YarnLockFile, lineNo)
		case indent <= 2:
			inDeps = false
			field, value := splitField(trimmed)
			switch field {
			case "version":
				current.Version = value
			case "resolved":
				current.Resolved = value
			case "integrity":
				current.Integrity = value
			case "dependencies:":
				inDeps = true
			}
		case inDeps:
			name, rng := splitField(trimmed)
			if current.Dependencies == nil {
				current.Dependencies = make(map[string]string)
			}
			current.Dependencies[name] = rng
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return cands.resolve(declared), nil
}

// splitField splits `key "value"` into key and unquoted value.
func splitField(s string) (string, string) {
	key, value, ok := strings.Cut(s, " ")
	if !ok {
		return unquote(key), ""
	}
	return unquote(key), unquote(strings.TrimSpace(value))
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
