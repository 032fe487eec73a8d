package upstream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/matzehuels/vfdiscovery/pkg/integrations"
	"github.com/matzehuels/vfdiscovery/pkg/integrations/github"

	vferrors "github.com/matzehuels/vfdiscovery/pkg/errors"
)

// locations are the vf-core directories searched for a component, in order.
var locations = []string{"components", "tools"}

// Fetcher retrieves one file of a component at a vf-core ref.
type Fetcher interface {
	Fetch(ctx context.Context, tag, name, resource string) ([]byte, error)
}

func fetchFailure(name, resource string, cause error) error {
	if cause == nil {
		return vferrors.New(vferrors.ErrCodeFetchFailure, "%s - could not fetch %s", name, resource)
	}
	return vferrors.Wrap(vferrors.ErrCodeFetchFailure, cause, "%s - could not fetch %s", name, resource)
}

func validate(tag, name string) error {
	if err := vferrors.ValidateRef(tag); err != nil {
		return err
	}
	return vferrors.ValidateComponentName(name)
}

// =============================================================================
// HTTP
// =============================================================================

// HTTPFetcher reads files from raw.githubusercontent.com.
type HTTPFetcher struct {
	client  *integrations.Client
	baseURL string
}

// NewHTTPFetcher creates a fetcher for the repository rooted at baseURL
// (see [github.RawBaseURL]). A nil client gets a default one.
func NewHTTPFetcher(client *integrations.Client, baseURL string) *HTTPFetcher {
	if client == nil {
		client = integrations.NewClient(nil, nil)
	}
	if baseURL == "" {
		baseURL = github.RawBaseURL(github.DefaultOwner, github.DefaultRepo)
	}
	return &HTTPFetcher{client: client, baseURL: baseURL}
}

// Fetch tries components/<name>/<resource>, then tools/<name>/<resource>.
// A non-OK answer moves on to the next location; a transport failure
// stops immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, tag, name, resource string) ([]byte, error) {
	if err := validate(tag, name); err != nil {
		return nil, err
	}

	var lastErr error
	for _, dir := range locations {
		url := github.RawContentURL(f.baseURL, tag, dir+"/"+name+"/"+resource)
		data, err := f.client.GetBytes(ctx, url)
		if err == nil {
			return data, nil
		}
		if !integrations.IsStatus(err) {
			return nil, fetchFailure(name, resource, err)
		}
		lastErr = err
	}
	return nil, fetchFailure(name, resource, lastErr)
}

// =============================================================================
// Git
// =============================================================================

// GitFetcher reads files from a shallow clone of the upstream repository,
// one checkout per ref under dir. Checkouts are reused across runs.
type GitFetcher struct {
	url    string
	dir    string
	depth  int
	logger *log.Logger

	mu        sync.Mutex
	checkouts map[string]*checkout
}

type checkout struct {
	once sync.Once
	path string
	err  error
}

// NewGitFetcher creates a fetcher that clones url into dir/<ref>.
func NewGitFetcher(url, dir string, logger *log.Logger) *GitFetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &GitFetcher{
		url:       url,
		dir:       dir,
		depth:     1,
		logger:    logger,
		checkouts: make(map[string]*checkout),
	}
}

// Fetch reads <location>/<name>/<resource> from the checkout of tag,
// cloning it on first use.
func (f *GitFetcher) Fetch(ctx context.Context, tag, name, resource string) ([]byte, error) {
	if err := validate(tag, name); err != nil {
		return nil, err
	}

	root, err := f.checkout(ctx, tag)
	if err != nil {
		return nil, fetchFailure(name, resource, err)
	}

	for _, dir := range locations {
		data, err := os.ReadFile(filepath.Join(root, dir, name, resource))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fetchFailure(name, resource, err)
		}
	}
	return nil, fetchFailure(name, resource, nil)
}

// checkout returns the working tree for ref. Concurrent callers for the
// same ref share one clone.
func (f *GitFetcher) checkout(ctx context.Context, ref string) (string, error) {
	f.mu.Lock()
	co, ok := f.checkouts[ref]
	if !ok {
		co = &checkout{path: filepath.Join(f.dir, ref)}
		f.checkouts[ref] = co
	}
	f.mu.Unlock()

	co.once.Do(func() {
		co.err = f.clone(ctx, ref, co.path)
	})
	if co.err != nil {
		f.mu.Lock()
		delete(f.checkouts, ref)
		f.mu.Unlock()
	}
	return co.path, co.err
}

func (f *GitFetcher) clone(ctx context.Context, ref, path string) error {
	if _, err := git.PlainOpen(path); err == nil {
		f.logger.Debug("reusing checkout", "ref", ref, "path", path)
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return err
	}

	f.logger.Debug("cloning upstream", "url", f.url, "ref", ref, "path", path)
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:           f.url,
		ReferenceName: referenceName(ref),
		SingleBranch:  true,
		Depth:         f.depth,
		Tags:          git.NoTags,
	})
	if err != nil {
		_ = os.RemoveAll(path)
		return vferrors.Wrap(vferrors.ErrCodeNetwork, err, "clone %s at %s", f.url, ref)
	}
	return nil
}

// referenceName maps the fallback branch to a branch ref and everything
// else to a tag ref.
func referenceName(ref string) plumbing.ReferenceName {
	if ref == github.FallbackRef {
		return plumbing.NewBranchReferenceName(ref)
	}
	return plumbing.NewTagReferenceName(ref)
}
