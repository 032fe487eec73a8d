// Package github provides an HTTP client for the GitHub releases API and
// helpers for raw file URLs.
//
// # Overview
//
// The discovery run pins every upstream fetch to one vf-core ref. That ref
// is the tag of the latest published release:
//
//	client := github.NewClient(os.Getenv("GITHUB_TOKEN"), nil)
//	tag, err := client.LatestReleaseTag(ctx, github.DefaultOwner, github.DefaultRepo)
//
// When the API answers with anything but 200 (no release yet, rate limit),
// the tag is [FallbackRef]. Network failures are returned as errors.
//
// # Authentication
//
// A GitHub token is optional. Without one the API allows 60 requests per
// hour, which is plenty since the tag is only resolved on cache
// invalidation.
//
// # Raw Content
//
// [RawBaseURL] and [RawContentURL] build raw.githubusercontent.com URLs:
//
//	base := github.RawBaseURL("visual-framework", "vf-core")
//	url := github.RawContentURL(base, "v2.4.3", "components/vf-box/package.json")
package github
