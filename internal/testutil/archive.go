// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// ZipEntry describes one member of a zip fixture. Names ending in "/" are
// directories. A Mode with os.ModeSymlink stores Body as the link target.
type ZipEntry struct {
	Name string
	Body string
	Mode os.FileMode
}

// BuildZip returns the bytes of a zip archive holding entries in order.
func BuildZip(t *testing.T, entries []ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		mode := e.Mode
		switch {
		case strings.HasSuffix(e.Name, "/"):
			hdr.Method = zip.Store
			if mode == 0 {
				mode = os.ModeDir | 0755
			}
		case mode == 0:
			mode = 0644
		}
		hdr.SetMode(mode)
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err, "Failed to add %s to zip fixture", e.Name)
		if !strings.HasSuffix(e.Name, "/") {
			_, err = w.Write([]byte(e.Body))
			require.NoError(t, err, "Failed to write %s to zip fixture", e.Name)
		}
	}
	require.NoError(t, zw.Close(), "Failed to finalize zip fixture")
	return buf.Bytes()
}

// TemplateZip is the archive GitHub serves for a repository named
// "template" at ref "master".
func TemplateZip(t *testing.T) []byte {
	t.Helper()
	return BuildZip(t, []ZipEntry{
		{Name: "template-master/"},
		{Name: "template-master/README.md", Body: "# template"},
		{Name: "template-master/src/"},
		{Name: "template-master/src/index.js", Body: "console.log('hi')"},
	})
}
