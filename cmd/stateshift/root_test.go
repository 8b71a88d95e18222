package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stateshift"
)

const doorSrc = `//go:build stateshift

package door

//stateshift:type default=Shut
type Door struct{}

//stateshift:require Shut
//stateshift:switch_to Ajar
func (d Door) Open() Door { return Door{} }
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "stateshift "+stateshift.Version+"\n", out)
}

func TestGenAndCheck(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "door.go")
	require.NoError(t, os.WriteFile(src, []byte(doorSrc), 0o644))
	output := filepath.Join(dir, "door_stateshift.go")

	out, err := execute(t, "gen", "--no-cache", src)
	require.NoError(t, err)
	assert.Contains(t, out, "1 file(s): 1 written, 0 unchanged, 0 cached, 0 failed")
	assert.FileExists(t, output)

	out, err = execute(t, "check", src)
	require.NoError(t, err)
	assert.Contains(t, out, "1 file(s) up to date")

	require.NoError(t, os.WriteFile(src, []byte(doorSrc+"\n// Door stays shut by default.\n"), 0o644))
	out, err = execute(t, "check", src)
	require.Error(t, err)
	assert.Contains(t, out, "stale: "+output)

	out, err = execute(t, "gen", "--no-cache", src)
	require.NoError(t, err)
	assert.Contains(t, out, "1 written")
}

func TestGenDiagnostics(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "door.go")
	require.NoError(t, os.WriteFile(src, []byte(doorSrc+`
//stateshift:require Shut, Ajar
func (d Door) Slam() Door { return d }
`), 0o644))

	out, err := execute(t, "gen", "--no-cache", src)
	require.Error(t, err)
	assert.True(t, stateshift.IsArityError(err))
	assert.Contains(t, out, "1 failed")
	assert.NoFileExists(t, filepath.Join(dir, "door_stateshift.go"))

	_, err = execute(t, "gen", "--no-cache", "--keep-going", src)
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "door_stateshift.go"))
}

func TestGenUnguardedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.go")
	require.NoError(t, os.WriteFile(src, []byte("package plain\n"), 0o644))
	_, err := execute(t, "gen", "--no-cache", src)
	assert.ErrorContains(t, err, "not guarded")
}

func resolveWith(t *testing.T, args ...string) (*settings, error) {
	t.Helper()
	opts := &RootOptions{}
	cmd := &cobra.Command{Use: "test"}
	cmd.SetErr(io.Discard)
	opts.addFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return opts.resolve(cmd)
}

func TestResolveLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stateshift.yaml")
	cache := filepath.Join(dir, "cache")
	require.NoError(t, os.WriteFile(path, []byte(`tag: typestate
suffix: _typestate.go
workers: 2
header: "// Custom header."
cache: `+cache+`
build_flags: ["-mod=mod"]
`), 0o644))
	t.Setenv("STATESHIFT_WORKERS", "3")
	t.Setenv("STATESHIFT_STATE_FIELD", "_marks")

	s, err := resolveWith(t, "--config", path, "--suffix", "_gen.go")
	require.NoError(t, err)
	assert.Equal(t, "typestate", s.gen.Tag)
	assert.Equal(t, "_gen.go", s.gen.Suffix, "flags win over the file")
	assert.Equal(t, 3, s.gen.Workers, "environment wins over the file")
	assert.Equal(t, "_marks", s.gen.StateField)
	assert.Equal(t, "// Custom header.", s.gen.Header)
	assert.Equal(t, cache, s.gen.CachePath)
	assert.Equal(t, "typestate", s.load.Tag)
	assert.Equal(t, []string{"-mod=mod"}, s.load.BuildFlags)

	s, err = resolveWith(t, "--config", path, "--no-cache")
	require.NoError(t, err)
	assert.Empty(t, s.gen.CachePath)
}

func TestResolveErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := resolveWith(t, "--config", filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tags: typo\n"), 0o644))
	_, err = resolveWith(t, "--config", bad)
	assert.ErrorContains(t, err, "parse config file")

	_, err = resolveWith(t, "--no-cache", "--suffix", "_gen.txt")
	assert.True(t, stateshift.IsConfigError(err))

	t.Setenv("STATESHIFT_WORKERS", "many")
	_, err = resolveWith(t, "--no-cache")
	assert.ErrorContains(t, err, "parse env")
}
