// Package source resolves a user supplied template reference into the URL of
// a zip archive.
package source

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultRef is used when a GitHub reference names no branch, tag or commit.
const DefaultRef = "master"

// DefaultTemplate is the template scaffolded when nothing else is configured.
const DefaultTemplate = "github:leopaglia/blumen@" + DefaultRef

// TemplateSource holds the details extracted from a template reference.
type TemplateSource struct {
	ArchiveURL   string // The zip archive to download
	CanonicalURL string // e.g. github:owner/repo@ref, or the URL itself
	Provider     string // "github" or "url"
	Owner        string
	Repo         string
	Ref          string
}

// ParseTemplateSource accepts
//
//	github:owner/repo[@ref]
//	https://github.com/owner/repo[.git][/tree/<ref>]
//	https://github.com/owner/repo/archive/<ref>.zip
//	any other http(s) URL, used verbatim
func ParseTemplateSource(raw string) (*TemplateSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("template source is empty")
	}

	if strings.HasPrefix(raw, "github:") {
		return parseGitHubShorthand(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template source '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported template source '%s': expected github:owner/repo[@ref] or an http(s) URL", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid template source '%s': missing host", raw)
	}

	if strings.EqualFold(u.Hostname(), "github.com") {
		return parseGitHubURL(u)
	}

	return &TemplateSource{
		ArchiveURL:   u.String(),
		CanonicalURL: u.String(),
		Provider:     "url",
	}, nil
}

// parseGitHubShorthand handles github:owner/repo[@ref].
func parseGitHubShorthand(raw string) (*TemplateSource, error) {
	content := strings.TrimPrefix(raw, "github:")
	ref := DefaultRef
	if at := strings.LastIndex(content, "@"); at != -1 {
		ref = content[at+1:]
		content = content[:at]
		if ref == "" {
			return nil, fmt.Errorf("invalid github shorthand source '%s': ref part is empty after @", raw)
		}
	}

	parts := strings.Split(content, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid github shorthand source '%s': expected format github:owner/repo[@ref]", raw)
	}
	return newGitHubSource(parts[0], parts[1], ref), nil
}

// parseGitHubURL handles repository, tree and archive URLs on github.com.
func parseGitHubURL(u *url.URL) (*TemplateSource, error) {
	pathParts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(pathParts) < 2 || pathParts[0] == "" || pathParts[1] == "" {
		return nil, fmt.Errorf("invalid GitHub URL path: %s. Expected at least /<owner>/<repo>", u.Path)
	}
	owner := pathParts[0]
	repo := strings.TrimSuffix(pathParts[1], ".git")

	switch {
	case len(pathParts) == 2:
		return newGitHubSource(owner, repo, DefaultRef), nil

	case pathParts[2] == "tree" && len(pathParts) >= 4:
		return newGitHubSource(owner, repo, strings.Join(pathParts[3:], "/")), nil

	case pathParts[2] == "archive" && len(pathParts) >= 4 && strings.HasSuffix(u.Path, ".zip"):
		ref := strings.TrimSuffix(strings.Join(pathParts[3:], "/"), ".zip")
		ref = strings.TrimPrefix(ref, "refs/heads/")
		ref = strings.TrimPrefix(ref, "refs/tags/")
		src := newGitHubSource(owner, repo, ref)
		// The user asked for this exact archive.
		src.ArchiveURL = u.String()
		return src, nil
	}

	return nil, fmt.Errorf("unsupported GitHub URL: %s. Use https://github.com/<owner>/<repo>[/tree/<ref>] or github:<owner>/<repo>@<ref>", u.String())
}

func newGitHubSource(owner, repo, ref string) *TemplateSource {
	return &TemplateSource{
		ArchiveURL:   fmt.Sprintf("https://github.com/%s/%s/archive/%s.zip", owner, repo, ref),
		CanonicalURL: fmt.Sprintf("github:%s/%s@%s", owner, repo, ref),
		Provider:     "github",
		Owner:        owner,
		Repo:         repo,
		Ref:          ref,
	}
}
