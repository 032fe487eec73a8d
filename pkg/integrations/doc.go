// Package integrations provides the HTTP plumbing shared by upstream clients.
//
// # Overview
//
// The [Client] type wraps an [http.Client] with:
//   - default headers (User-Agent, Accept, Authorization)
//   - automatic retry with exponential backoff for network errors and 5xx
//   - status mapping to [ErrNotFound], [ErrNetwork] and [StatusError]
//   - request/response events delivered to [observability.HTTPHooks]
//
// Service-specific clients live in subpackages:
//
//   - [github]: latest release lookup and raw file URLs for vf-core
//
// # Errors
//
// Callers that need to tell "the server answered with something other than
// 200" apart from "no response at all" use [IsStatus]:
//
//	err := client.Get(ctx, url, &v)
//	switch {
//	case err == nil:
//	case integrations.IsStatus(err):
//	    // fall back
//	default:
//	    return err
//	}
//
// [github]: github.com/matzehuels/vfdiscovery/pkg/integrations/github
// [observability.HTTPHooks]: github.com/matzehuels/vfdiscovery/pkg/observability.HTTPHooks
package integrations
