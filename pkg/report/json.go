package report

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/service"
)

type jsonReport struct {
	RunID      string     `json:"runId"`
	RootDir    string     `json:"rootDir"`
	ReleaseTag string     `json:"releaseTag"`
	Stages     []string   `json:"stages"`
	Started    time.Time  `json:"started"`
	DurationMs int64      `json:"durationMs"`
	Items      []jsonItem `json:"items"`
	Failures   []jsonFail `json:"failures"`
}

type jsonItem struct {
	DiscoveryItem discovery.Item `json:"discoveryItem"`
	Outdated      bool           `json:"outdated"`
	// ProfilingInformation holds stage durations in milliseconds.
	ProfilingInformation map[string]float64 `json:"profilingInformation,omitempty"`
}

type jsonFail struct {
	Name  string `json:"name"`
	Stage string `json:"stage"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

// WriteJSON encodes r to w. Only outdated items are included when
// onlyOutdated is set.
func WriteJSON(r *service.Report, onlyOutdated bool, w io.Writer) error {
	out := jsonReport{
		RunID:      r.RunID,
		RootDir:    r.RootDir,
		ReleaseTag: r.ReleaseTag,
		Stages:     r.Stages,
		Started:    r.Started,
		DurationMs: r.Duration.Milliseconds(),
		Items:      []jsonItem{},
		Failures:   []jsonFail{},
	}

	for _, res := range r.Results {
		if res.Failed() {
			out.Failures = append(out.Failures, jsonFail{
				Name:  res.Item.Name,
				Stage: res.Stage,
				Code:  string(errors.GetCode(res.Err)),
				Error: errors.UserMessage(res.Err),
			})
			continue
		}
		if onlyOutdated && !res.Item.Outdated() {
			continue
		}
		item := jsonItem{DiscoveryItem: res.Item, Outdated: res.Item.Outdated()}
		if len(res.Profile) > 0 {
			item.ProfilingInformation = make(map[string]float64, len(res.Profile))
			for stage, d := range res.Profile {
				item.ProfilingInformation[stage] = float64(d.Microseconds()) / 1000
			}
		}
		out.Items = append(out.Items, item)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(errors.ErrCodeApp, err, "encode json report")
	}
	return nil
}

func writeJSON(r *service.Report, opts Options) (string, error) {
	path := outputPath(opts, JSONFile)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeApp, err, "create %s", path)
	}
	defer f.Close()

	if err := WriteJSON(r, opts.OnlyOutdated, f); err != nil {
		return "", err
	}
	return path, f.Close()
}
