package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/jolt/internal/finder"
)

func touch(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func fixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a_test.txt"))
	touch(t, filepath.Join(dir, "b.txt"))
	touch(t, filepath.Join(dir, "sub", "c_test.log"))

	return dir
}

func TestRun(t *testing.T) {
	dir := fixture(t)

	tests := []struct {
		name string
		opt  Options
		want []string
	}{
		{
			name: "full paths",
			opt:  Options{Path: dir, Term: "test", ShowFullPath: true},
			want: []string{filepath.Join(dir, "a_test.txt"), filepath.Join(dir, "sub", "c_test.log")},
		},
		{
			name: "file names",
			opt:  Options{Path: dir, Term: "test"},
			want: []string{"a_test.txt", "c_test.log"},
		},
		{
			name: "case sensitive",
			opt:  Options{Path: dir, Term: "TEST"},
			want: []string{},
		},
		{
			name: "no glob semantics",
			opt:  Options{Path: dir, Term: "*.txt"},
			want: []string{},
		},
		{
			name: "empty term matches all files",
			opt:  Options{Path: dir},
			want: []string{"a_test.txt", "b.txt", "c_test.log"},
		},
		{
			name: "directory names are not matched",
			opt:  Options{Path: dir, Term: "sub"},
			want: []string{},
		},
		{
			name: "excluded subtree",
			opt:  Options{Path: dir, Term: "test", Excludes: []string{`/sub$`}},
			want: []string{"a_test.txt"},
		},
		{
			name: "single worker",
			opt:  Options{Path: dir, Term: ".txt", Workers: 1},
			want: []string{"a_test.txt", "b.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(context.Background(), tt.opt)
			require.NoError(t, err)

			assert.ElementsMatch(t, tt.want, res.Matches)
			assert.NotNil(t, res.Matches)
			assert.Equal(t, tt.opt.Term, res.Term)
			assert.Equal(t, filepath.Clean(dir), res.Root)
		})
	}
}

func TestRun_MatchesAreSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"z_x", "a_x", "m/b_x", "q/r/c_x"} {
		touch(t, filepath.Join(dir, name))
	}

	res, err := Run(context.Background(), Options{Path: dir, Term: "_x"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a_x", "b_x", "c_x", "z_x"}, res.Matches)
}

func TestRun_InvalidRoot(t *testing.T) {
	dir := fixture(t)

	_, err := Run(context.Background(), Options{Path: filepath.Join(dir, "missing"), Term: "x"})
	require.ErrorContains(t, err, "accessing path")
	require.ErrorIs(t, err, finder.ErrInvalidPath)

	_, err = Run(context.Background(), Options{Path: filepath.Join(dir, "b.txt"), Term: "x"})
	require.ErrorContains(t, err, "is not a directory")
	require.ErrorIs(t, err, finder.ErrInvalidPath)

	_, err = Run(context.Background(), Options{Path: dir, Excludes: []string{"["}})
	require.ErrorContains(t, err, "compiling exclusion pattern")
}

func TestRun_UnreadableSubtreeIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	dir := fixture(t)
	locked := filepath.Join(dir, "locked")
	touch(t, filepath.Join(locked, "d_test.md"))
	touch(t, filepath.Join(dir, "open", "e_test.md"))

	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	res, err := Run(context.Background(), Options{Path: dir, Term: "test"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a_test.txt", "c_test.log", "e_test.md"}, res.Matches)
	assert.Equal(t, int64(1), res.ErrorCount)
}

func TestRun_CancelledContext(t *testing.T) {
	dir := fixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{Path: dir, Term: "test"})
	require.ErrorIs(t, err, context.Canceled)
}
