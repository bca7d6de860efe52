package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abiiranathan/qute-lsp/analyzer"
	"github.com/abiiranathan/qute-lsp/qute"
)

const helloJava = `@Path("/hello")
public class HelloResource {
    @GET
    @Produces(MediaType.TEXT_HTML)
    public TemplateInstance hello() {
        return hello.data("name", "micmine");
    }

    @GET
    @Path("/customer/{name}")
    public TemplateInstance customer(@PathParam("name") String name) {
        return hello.data("name", name);
    }
}
`

func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"qute-lsp.yaml":            "workspace:\n  go: false\n",
		"src/HelloResource.java":   helloJava,
		"templates/hello.html":     "<p>Hello</p>\n{#fragment id=name}<b>{name}</b>{/fragment}\n",
		"templates/items/row.html": "<tr></tr>\n{#include hello$gone /}\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func routePaths(res analyzer.Result) []string {
	var out []string
	for _, r := range res.Routes {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func TestRunGetRoutesJSON(t *testing.T) {
	dir := writeWorkspace(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{getRoutes: true, format: "json", dir: dir}, &out))

	var res analyzer.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, []string{"GET /hello", "GET /hello/customer/{name}"}, routePaths(res))
	require.NotNil(t, res.Routes[0].Implementation)
}

func TestRunGetRoutesYAML(t *testing.T) {
	dir := writeWorkspace(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{getRoutes: true, format: "yaml", dir: dir}, &out))

	var res analyzer.Result
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, []string{"GET /hello", "GET /hello/customer/{name}"}, routePaths(res))
}

func TestRunGetRoutesCompressed(t *testing.T) {
	dir := writeWorkspace(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{getRoutes: true, format: "json", compress: true, dir: dir}, &out))

	gz, err := gzip.NewReader(&out)
	require.NoError(t, err)
	var res analyzer.Result
	require.NoError(t, json.NewDecoder(gz).Decode(&res))
	assert.Len(t, res.Routes, 2)
}

func TestRunGetTemplates(t *testing.T) {
	dir := writeWorkspace(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{getTemplates: true, format: "json", dir: dir}, &out))

	var index qute.Index
	require.NoError(t, json.Unmarshal(out.Bytes(), &index))
	assert.Equal(t, []string{"hello", "hello$name", "items/row"}, index.IDs())
}

func TestRunValidate(t *testing.T) {
	dir := writeWorkspace(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{validate: true, format: "yaml", dir: dir}, &out))

	var got ValidationOutput
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Problems, 1)
	assert.Equal(t, "items/row", got.Problems[0].Template)
	assert.Equal(t, 1, got.Problems[0].Line)
	assert.Equal(t, "hello$gone", got.Problems[0].Target)
	assert.Empty(t, got.Errors)
}

func TestRunErrors(t *testing.T) {
	dir := writeWorkspace(t)

	err := run(context.Background(), options{getRoutes: true, format: "xml", dir: dir}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown format")

	err = run(context.Background(), options{getTemplates: true, format: "json", dir: t.TempDir()}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "no templates folder")

	err = run(context.Background(), options{getRoutes: true, format: "json", configFile: filepath.Join(dir, "missing.yaml")}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestLoadConfigFlags(t *testing.T) {
	dir := writeWorkspace(t)
	cfg, err := loadConfig(options{dir: dir, templates: "views", logLevel: "debug"})
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Workspace.Dir)
	assert.Equal(t, "views", cfg.Workspace.Templates)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Workspace.Go, "read from qute-lsp.yaml in the workspace")
	assert.True(t, cfg.Workspace.Java)
}
