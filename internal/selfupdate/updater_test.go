package selfupdate

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetNameFor(t *testing.T) {
	tests := []struct {
		name    string
		goos    string
		goarch  string
		want    string
		wantErr bool
	}{
		{"darwin amd64", "darwin", "amd64", "recallmap_Darwin_all.tar.gz", false},
		{"darwin arm64", "darwin", "arm64", "recallmap_Darwin_all.tar.gz", false},
		{"linux amd64", "linux", "amd64", "recallmap_Linux_x86_64.tar.gz", false},
		{"linux arm64", "linux", "arm64", "recallmap_Linux_arm64.tar.gz", false},
		{"windows amd64", "windows", "amd64", "recallmap_Windows_x86_64.zip", false},
		{"unsupported os", "plan9", "amd64", "", true},
		{"unsupported arch", "linux", "mips", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assetNameFor(tt.goos, tt.goarch)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChecksums(t *testing.T) {
	input := "abc123  recallmap_Linux_x86_64.tar.gz\nbadline\n\nfoo bar baz\ndef456  recallmap_Darwin_all.tar.gz\n"
	got := parseChecksums([]byte(input))
	assert.Equal(t, map[string]string{
		"recallmap_Linux_x86_64.tar.gz": "abc123",
		"recallmap_Darwin_all.tar.gz":   "def456",
	}, got)
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte("release payload")
	h := sha256.Sum256(data)

	assert.NoError(t, verifyChecksum(data, hex.EncodeToString(h[:])))

	err := verifyChecksum(data, "0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestReplaceBinary_KeepsMode(t *testing.T) {
	target := filepath.Join(t.TempDir(), "recallmap")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o755))

	next := []byte("new-binary")
	sum := sha256.Sum256(next)
	require.NoError(t, replaceBinary(next, target, sum[:]))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/arjunm/recallmap/releases/latest", r.URL.Path)
		w.Write([]byte(`{"tag_name":"v1.4.0","html_url":"https://example.com/v1.4.0"}`))
	}))
	defer server.Close()

	c := NewChecker(WithAPIBaseURL(server.URL))

	res, err := c.Check(context.Background(), "v1.3.0")
	require.NoError(t, err)
	assert.True(t, res.UpdateAvailable)
	assert.Equal(t, "v1.4.0", res.LatestVersion)

	res, err = c.Check(context.Background(), "v1.4.0")
	require.NoError(t, err)
	assert.False(t, res.UpdateAvailable)

	// Non-semver versions never trigger an update.
	res, err = c.Check(context.Background(), "nightly")
	require.NoError(t, err)
	assert.False(t, res.UpdateAvailable)
}

func TestUpdate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture archive is tar.gz only")
	}

	binary := []byte("new-recallmap-binary")
	archive := buildTarGz(t, "recallmap", binary)
	archiveSum := sha256.Sum256(archive)

	newServer := func(checksums string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/repos/arjunm/recallmap/releases/latest":
				w.Write([]byte(`{"tag_name":"v2.0.0","html_url":"https://example.com/v2.0.0"}`))
			case r.URL.Path == "/arjunm/recallmap/releases/download/v2.0.0/checksums.txt":
				w.Write([]byte(checksums))
			case filepath.Dir(r.URL.Path) == "/arjunm/recallmap/releases/download/v2.0.0":
				w.Write(archive)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	}

	t.Run("happy path", func(t *testing.T) {
		execPath := filepath.Join(t.TempDir(), "recallmap")
		require.NoError(t, os.WriteFile(execPath, []byte("old"), 0o755))

		// Checksums for every asset name, so the test passes on any
		// supported GOOS/GOARCH.
		var checksums string
		for _, a := range []string{
			"recallmap_Darwin_all.tar.gz",
			"recallmap_Linux_x86_64.tar.gz", "recallmap_Linux_arm64.tar.gz", "recallmap_Linux_i386.tar.gz",
			"recallmap_Windows_x86_64.zip", "recallmap_Windows_arm64.zip", "recallmap_Windows_i386.zip",
		} {
			checksums += fmt.Sprintf("%s  %s\n", hex.EncodeToString(archiveSum[:]), a)
		}
		server := newServer(checksums)
		defer server.Close()

		c := NewChecker(
			WithAPIBaseURL(server.URL),
			WithDownloadBaseURL(server.URL),
			withExecPath(func() (string, error) { return execPath, nil }),
		)

		var stages []string
		err := c.Update(context.Background(), "v1.0.0", "", func(p Progress) {
			stages = append(stages, p.Stage)
		})
		require.NoError(t, err)

		got, err := os.ReadFile(execPath)
		require.NoError(t, err)
		assert.Equal(t, binary, got)
		assert.Equal(t, []string{"check", "download", "verify", "extract", "apply", "done"}, stages)
	})

	t.Run("dev build", func(t *testing.T) {
		err := NewChecker().Update(context.Background(), "(devel)", "", func(Progress) {})
		assert.ErrorIs(t, err, ErrDevBuild)
	})

	t.Run("already latest", func(t *testing.T) {
		server := newServer("")
		defer server.Close()
		c := NewChecker(WithAPIBaseURL(server.URL), WithDownloadBaseURL(server.URL))
		err := c.Update(context.Background(), "v2.0.0", "", func(Progress) {})
		assert.ErrorIs(t, err, ErrAlreadyLatest)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		var checksums string
		for _, a := range []string{
			"recallmap_Darwin_all.tar.gz",
			"recallmap_Linux_x86_64.tar.gz", "recallmap_Linux_arm64.tar.gz",
			"recallmap_Windows_x86_64.zip", "recallmap_Windows_arm64.zip",
		} {
			checksums += fmt.Sprintf("%s  %s\n",
				"0000000000000000000000000000000000000000000000000000000000000000", a)
		}
		server := newServer(checksums)
		defer server.Close()
		c := NewChecker(WithAPIBaseURL(server.URL), WithDownloadBaseURL(server.URL))
		err := c.Update(context.Background(), "v1.0.0", "", func(Progress) {})
		assert.ErrorIs(t, err, ErrChecksum)
	})
}

func buildTarGz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: name,
		Size: int64(len(content)),
		Mode: 0o755,
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}
