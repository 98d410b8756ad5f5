// Package source_test contains tests for the source package.
package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leopaglia/blumen-installer/internal/core/source"
)

func TestParseTemplateSource(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		input       string
		want        *source.TemplateSource
		errContains string
	}{
		{
			name:  "shorthand with ref",
			input: "github:owner/repo@develop",
			want: &source.TemplateSource{
				ArchiveURL:   "https://github.com/owner/repo/archive/develop.zip",
				CanonicalURL: "github:owner/repo@develop",
				Provider:     "github",
				Owner:        "owner",
				Repo:         "repo",
				Ref:          "develop",
			},
		},
		{
			name:  "shorthand defaults to master",
			input: "github:leopaglia/blumen",
			want: &source.TemplateSource{
				ArchiveURL:   "https://github.com/leopaglia/blumen/archive/master.zip",
				CanonicalURL: "github:leopaglia/blumen@master",
				Provider:     "github",
				Owner:        "leopaglia",
				Repo:         "blumen",
				Ref:          "master",
			},
		},
		{
			name:  "repository URL",
			input: "https://github.com/owner/repo.git",
			want: &source.TemplateSource{
				ArchiveURL:   "https://github.com/owner/repo/archive/master.zip",
				CanonicalURL: "github:owner/repo@master",
				Provider:     "github",
				Owner:        "owner",
				Repo:         "repo",
				Ref:          "master",
			},
		},
		{
			name:  "tree URL",
			input: "https://github.com/owner/repo/tree/v1.2.0",
			want: &source.TemplateSource{
				ArchiveURL:   "https://github.com/owner/repo/archive/v1.2.0.zip",
				CanonicalURL: "github:owner/repo@v1.2.0",
				Provider:     "github",
				Owner:        "owner",
				Repo:         "repo",
				Ref:          "v1.2.0",
			},
		},
		{
			name:  "archive URL is kept verbatim",
			input: "https://github.com/owner/repo/archive/refs/heads/main.zip",
			want: &source.TemplateSource{
				ArchiveURL:   "https://github.com/owner/repo/archive/refs/heads/main.zip",
				CanonicalURL: "github:owner/repo@main",
				Provider:     "github",
				Owner:        "owner",
				Repo:         "repo",
				Ref:          "main",
			},
		},
		{
			name:  "plain URL",
			input: "https://example.com/templates/starter.zip",
			want: &source.TemplateSource{
				ArchiveURL:   "https://example.com/templates/starter.zip",
				CanonicalURL: "https://example.com/templates/starter.zip",
				Provider:     "url",
			},
		},
		{name: "empty", input: "   ", errContains: "template source is empty"},
		{name: "shorthand empty ref", input: "github:owner/repo@", errContains: "ref part is empty"},
		{name: "shorthand missing repo", input: "github:owner", errContains: "expected format github:owner/repo"},
		{name: "shorthand with path", input: "github:owner/repo/extra@main", errContains: "expected format github:owner/repo"},
		{name: "unsupported scheme", input: "ftp://example.com/a.zip", errContains: "unsupported template source"},
		{name: "relative path", input: "templates/a.zip", errContains: "unsupported template source"},
		{name: "github owner only", input: "https://github.com/owner", errContains: "Expected at least /<owner>/<repo>"},
		{name: "github blob URL", input: "https://github.com/owner/repo/blob/main/README.md", errContains: "unsupported GitHub URL"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := source.ParseTemplateSource(tt.input)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultTemplateParses(t *testing.T) {
	t.Parallel()
	got, err := source.ParseTemplateSource(source.DefaultTemplate)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/leopaglia/blumen/archive/master.zip", got.ArchiveURL)
}
