// Package pkg provides the libraries behind vfdiscovery, a tool that reports
// on the vf-core components a project depends on.
//
// # Overview
//
// The pkg directory is organized into these areas:
//
//  1. [discovery] - Component items, package.json reading and shared types
//  2. [lockfile] - Installed versions from npm and yarn lockfiles
//  3. [appconfig] and [cache] - Application directory, config and component cache
//  4. [upstream] and [integrations] - vf-core artifacts over HTTP or git
//  5. [changelog] and [dependents] - Changelog slicing and usage search
//  6. [pipeline] and [service] - Concurrent enrichment and run orchestration
//  7. [report] and [settings] - Output rendering and per-project settings
//
// # Architecture
//
// The data flow of a run:
//
//	package.json + lockfile
//	         ↓
//	    [discovery] package (components under @visual-framework/)
//	         ↓
//	    [pipeline] package (exact version → descriptor → config → changelog → dependents)
//	         ↓
//	    [report] package (cli, json, html)
//
// Upstream artifacts are read through upstream.Remote, which memoizes them
// in the [cache] store under the resolved vf-core release tag.
package pkg
