package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abiiranathan/qute-lsp/config"
)

func copyFixture(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("java", "testdata", name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestScanRoutesJavaOnly(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "BasicResource.java")

	res, err := ScanRoutes(context.Background(), config.Workspace{Dir: dir, Java: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Routes)

	first := res.Routes[0]
	require.Equal(t, "/hello", first.Path)
	require.Equal(t, "GET", first.Method)
	for i := 1; i < len(res.Routes); i++ {
		require.LessOrEqual(t, res.Routes[i-1].Path, res.Routes[i].Path)
	}
}

func TestScanRoutesReportsFileErrors(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "BasicResourceComments.java")

	res, err := ScanRoutes(context.Background(), config.Workspace{Dir: dir, Java: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Errors)
	for _, e := range res.Errors {
		require.True(t, strings.HasPrefix(e, "file://"), "error without location: %s", e)
		require.Equal(t, 1, strings.Count(e, "BasicResourceComments.java"), "file named more than once: %s", e)
	}
}

func TestScanRoutesGoWithoutModule(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "BasicResource.java")

	res, err := ScanRoutes(context.Background(), config.Workspace{Dir: dir, Java: true, Go: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Routes)
	require.Empty(t, res.Errors)
}

func TestScanRoutesNothingEnabled(t *testing.T) {
	res, err := ScanRoutes(context.Background(), config.Workspace{Dir: t.TempDir()})
	require.NoError(t, err)
	require.Empty(t, res.Routes)
	require.Empty(t, res.Errors)
}

func TestScanRoutesCancelled(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "BasicResource.java")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScanRoutes(ctx, config.Workspace{Dir: dir, Java: true})
	require.ErrorIs(t, err, context.Canceled)
}
