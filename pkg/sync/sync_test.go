package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/errors"
)

const (
	sourceRoot  = "/source"
	replicaRoot = "/replica"
)

// dirMarker marks directories in a treeState.
const dirMarker = "<dir>"

// treeState maps relative paths to file contents, or to dirMarker for
// directories.
type treeState map[string]string

type memorySink struct {
	lines []string
}

func (s *memorySink) Write(line string) {
	s.lines = append(s.lines, line)
}

type mockComparator struct {
	mock.Mock
}

func (c *mockComparator) AreEqual(pathA, pathB string) (bool, error) {
	args := c.Called(pathA, pathB)
	return args.Bool(0), args.Error(1)
}

var testTime = time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)

func record(msg string) string {
	return testTime.Format(TimestampFormat) + " - " + msg
}

func writeTree(t *testing.T, root string, state treeState) {
	require.NoError(t, fs.MkdirAll(root, 0755))
	for rel, contents := range state {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if contents == dirMarker {
			require.NoError(t, fs.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0644))
	}
}

func readTree(t *testing.T, root string) treeState {
	state := treeState{}
	err := afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		require.NoError(t, err)
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		rel = filepath.ToSlash(rel)

		if fi.IsDir() {
			state[rel] = dirMarker
			return nil
		}

		contents, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		state[rel] = string(contents)
		return nil
	})
	require.NoError(t, err)
	return state
}

func newTestSynchronizer(t *testing.T, opts Options) *Synchronizer {
	opts.Clock = clockwork.NewFakeClockAt(testTime)
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func TestSync(t *testing.T) {
	tests := []struct {
		name       string
		source     treeState
		replica    treeState
		noReplica  bool
		opts       Options
		expReplica treeState
		expRecords []string
	}{
		{
			name:       "CopyNewFile",
			source:     treeState{"a.txt": "hello"},
			replica:    treeState{},
			expReplica: treeState{"a.txt": "hello"},
			expRecords: []string{
				record("Copied file from /source/a.txt to /replica/a.txt"),
			},
		},
		{
			name:       "RemoveStrayFile",
			source:     treeState{"dir/b.txt": "x"},
			replica:    treeState{"dir/b.txt": "x", "dir/stale.txt": "y"},
			expReplica: treeState{"dir": dirMarker, "dir/b.txt": "x"},
			expRecords: []string{
				record("Removed file: /replica/dir/stale.txt"),
			},
		},
		{
			name:       "RemoveEmptyStrayDir",
			source:     treeState{},
			replica:    treeState{"emptydir": dirMarker},
			expReplica: treeState{},
			expRecords: []string{
				record("Removed directory: /replica/emptydir"),
			},
		},
		{
			name:   "RemoveNestedStrayDirs",
			source: treeState{},
			replica: treeState{
				"old/deeper/deepest": dirMarker,
				"old/deeper/file":    "contents",
			},
			expReplica: treeState{},
			expRecords: []string{
				record("Removed file: /replica/old/deeper/file"),
				record("Removed directory: /replica/old"),
			},
		},
		{
			name:       "CreateEmptyDir",
			source:     treeState{"empty": dirMarker, "parent/child": dirMarker},
			replica:    treeState{},
			expReplica: treeState{"empty": dirMarker, "parent": dirMarker, "parent/child": dirMarker},
			expRecords: []string{
				record("Created directory: /replica/empty"),
				record("Created directory: /replica/parent"),
				record("Created directory: /replica/parent/child"),
			},
		},
		{
			name:       "OverwriteChangedFile",
			source:     treeState{"a": "new", "b": "same"},
			replica:    treeState{"a": "old", "b": "same"},
			expReplica: treeState{"a": "new", "b": "same"},
			expRecords: []string{
				record("Copied file from /source/a to /replica/a"),
			},
		},
		{
			name:       "CreateReplicaRoot",
			source:     treeState{"dir/a": "a"},
			noReplica:  true,
			expReplica: treeState{"dir": dirMarker, "dir/a": "a"},
			expRecords: []string{
				record("Created directory: /replica"),
				record("Created directory: /replica/dir"),
				record("Copied file from /source/dir/a to /replica/dir/a"),
			},
		},
		{
			name:       "FileReplacesDir",
			source:     treeState{"entry": "file"},
			replica:    treeState{"entry/nested": "x"},
			expReplica: treeState{"entry": "file"},
			expRecords: []string{
				record("Removed directory: /replica/entry"),
				record("Copied file from /source/entry to /replica/entry"),
			},
		},
		{
			name:       "DirReplacesFile",
			source:     treeState{"entry/nested": "x"},
			replica:    treeState{"entry": "file"},
			expReplica: treeState{"entry": dirMarker, "entry/nested": "x"},
			expRecords: []string{
				record("Removed file: /replica/entry"),
				record("Created directory: /replica/entry"),
				record("Copied file from /source/entry/nested to /replica/entry/nested"),
			},
		},
		{
			name:    "Exclude",
			source:  treeState{"a.tmp": "tmp", "b": "b", "cache/c": "c"},
			replica: treeState{"c.tmp": "kept", "cache/d": "kept"},
			opts:    Options{Exclude: []string{"**/*.tmp", "cache"}},
			expReplica: treeState{
				"b":       "b",
				"c.tmp":   "kept",
				"cache":   dirMarker,
				"cache/d": "kept",
			},
			expRecords: []string{
				record("Copied file from /source/b to /replica/b"),
			},
		},
		{
			name:   "KeepExcludedInStrayDir",
			source: treeState{},
			replica: treeState{
				"stray/keep.tmp":    "kept",
				"stray/drop.txt":    "dropped",
				"stray/sub":         dirMarker,
				"stray/deep/x.tmp":  "kept",
				"gone/nothing/here": "dropped",
			},
			opts: Options{Exclude: []string{"**/*.tmp"}},
			expReplica: treeState{
				"stray":            dirMarker,
				"stray/keep.tmp":   "kept",
				"stray/deep":       dirMarker,
				"stray/deep/x.tmp": "kept",
			},
			expRecords: []string{
				record("Removed file: /replica/gone/nothing/here"),
				record("Removed file: /replica/stray/drop.txt"),
				record("Removed directory: /replica/gone"),
				record("Removed directory: /replica/stray/sub"),
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			writeTree(t, sourceRoot, test.source)
			if !test.noReplica {
				writeTree(t, replicaRoot, test.replica)
			}

			sink := &memorySink{}
			_, err := newTestSynchronizer(t, test.opts).Sync(sourceRoot, replicaRoot, sink)
			assert.NoError(t, err)
			assert.Equal(t, test.expRecords, sink.lines)
			assert.Equal(t, test.expReplica, readTree(t, replicaRoot))
		})
	}
}

func TestSyncConvergesAndIsIdempotent(t *testing.T) {
	fs = afero.NewMemMapFs()
	source := treeState{
		"README":            "readme",
		"docs":              dirMarker,
		"docs/empty":        dirMarker,
		"src/main.go":       "package main",
		"src/lib/lib.go":    "package lib",
		"src/lib/lib_test":  "",
		"assets/logo.png":   "\x89PNG",
		"assets/icons/a.sv": "<svg/>",
	}
	writeTree(t, sourceRoot, source)
	writeTree(t, replicaRoot, treeState{
		"README":        "outdated",
		"stray":         "stray",
		"src/old":       dirMarker,
		"src/old/x.go":  "x",
		"assets/logo.x": "y",
	})

	s := newTestSynchronizer(t, Options{})

	first := &memorySink{}
	summary, err := s.Sync(sourceRoot, replicaRoot, first)
	require.NoError(t, err)
	assert.NotEmpty(t, first.lines)
	assert.Equal(t, len(first.lines), summary.Actions())
	assert.Equal(t, readTree(t, sourceRoot), readTree(t, replicaRoot))

	second := &memorySink{}
	summary, err = s.Sync(sourceRoot, replicaRoot, second)
	require.NoError(t, err)
	assert.Empty(t, second.lines)
	assert.Zero(t, summary.Actions())
	assert.Equal(t, readTree(t, sourceRoot), readTree(t, replicaRoot))
}

func TestSyncRecopiesOnlyChangedContent(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeTree(t, sourceRoot, treeState{"changed": "v1", "unchanged": "same"})

	s := newTestSynchronizer(t, Options{})
	_, err := s.Sync(sourceRoot, replicaRoot, &memorySink{})
	require.NoError(t, err)

	oldTime := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{"changed", "unchanged"} {
		require.NoError(t, fs.Chtimes(filepath.Join(replicaRoot, name), oldTime, oldTime))
	}

	require.NoError(t, afero.WriteFile(fs, filepath.Join(sourceRoot, "changed"), []byte("v2"), 0644))

	sink := &memorySink{}
	summary, err := s.Sync(sourceRoot, replicaRoot, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{
		record("Copied file from /source/changed to /replica/changed"),
	}, sink.lines)
	assert.Equal(t, 1, summary.FilesCopied)
	assert.Equal(t, int64(2), summary.BytesCopied)

	contents, err := afero.ReadFile(fs, filepath.Join(replicaRoot, "changed"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(contents))

	fi, err := fs.Stat(filepath.Join(replicaRoot, "unchanged"))
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(oldTime), "unchanged file should not be rewritten")
}

func TestSyncAbortsWithoutSource(t *testing.T) {
	fs = afero.NewMemMapFs()
	replica := treeState{"keep": "me", "dir": dirMarker}
	writeTree(t, replicaRoot, replica)

	s := newTestSynchronizer(t, Options{})

	sink := &memorySink{}
	summary, err := s.Sync("/missing", replicaRoot, sink)
	assert.Equal(t, errors.StructuralError{
		Reason: "source directory /missing does not exist"}, err)
	assert.Equal(t, []string{
		record("Error: sync aborted: source directory /missing does not exist"),
	}, sink.lines)
	assert.Zero(t, summary.Actions())
	assert.Equal(t, replica, readTree(t, replicaRoot))

	// The next pass isn't affected by the failed one.
	writeTree(t, "/missing", treeState{"keep": "me", "dir": dirMarker})
	sink = &memorySink{}
	_, err = s.Sync("/missing", replicaRoot, sink)
	assert.NoError(t, err)
	assert.Empty(t, sink.lines)
}

func TestSyncAbortsWhenSourceIsFile(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/file", []byte("x"), 0644))

	_, err := newTestSynchronizer(t, Options{}).Sync("/file", replicaRoot, &memorySink{})
	assert.Equal(t, errors.StructuralError{Reason: "source /file is not a directory"}, err)

	exists, err := afero.Exists(fs, replicaRoot)
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestSyncEntryErrors(t *testing.T) {
	tests := []struct {
		name       string
		failFast   bool
		expErr     error
		expRecords []string
		expReplica treeState
	}{
		{
			name: "SkipAndContinue",
			expRecords: []string{
				record("Warning: failed to compare /source/a: disk error"),
				record("Copied file from /source/b to /replica/b"),
			},
			expReplica: treeState{"a": "old", "b": "new"},
		},
		{
			name:     "FailFast",
			failFast: true,
			expErr: errors.StructuralError{
				Reason: "failed to compare /source/a: disk error"},
			expRecords: []string{
				record("Error: sync aborted: failed to compare /source/a: disk error"),
			},
			expReplica: treeState{"a": "old", "b": "old"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			writeTree(t, sourceRoot, treeState{"a": "new", "b": "new"})
			writeTree(t, replicaRoot, treeState{"a": "old", "b": "old"})

			comparator := &mockComparator{}
			comparator.On("AreEqual", "/source/a", "/replica/a").Return(false, errors.New("disk error"))
			comparator.On("AreEqual", "/source/b", "/replica/b").Return(false, nil)

			s := newTestSynchronizer(t, Options{Comparator: comparator, FailFast: test.failFast})
			sink := &memorySink{}
			summary, err := s.Sync(sourceRoot, replicaRoot, sink)
			assert.Equal(t, test.expErr, err)
			assert.Equal(t, test.expRecords, sink.lines)
			assert.Equal(t, 1, summary.Skipped)
			assert.Equal(t, test.expReplica, readTree(t, replicaRoot))
		})
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Exclude: []string{"[unclosed"}})
	assert.Equal(t, errors.NewFriendlyError("Invalid exclude pattern %q.", "[unclosed"), err)

	_, err = New(Options{Digest: "md5"})
	assert.Error(t, err)
}

// failingMkdirFs fails to create one directory.
type failingMkdirFs struct {
	afero.Fs
	path string
}

func (f failingMkdirFs) Mkdir(name string, perm os.FileMode) error {
	if name == f.path {
		return errors.New("mkdir denied")
	}
	return f.Fs.Mkdir(name, perm)
}

func TestSyncSkipsEntriesBelowFailedDir(t *testing.T) {
	mem := afero.NewMemMapFs()
	fs = mem
	writeTree(t, sourceRoot, treeState{"blocked/f": "x", "blocked/sub": dirMarker, "ok/g": "y"})
	writeTree(t, replicaRoot, treeState{})
	fs = failingMkdirFs{Fs: mem, path: "/replica/blocked"}

	sink := &memorySink{}
	summary, err := newTestSynchronizer(t, Options{}).Sync(sourceRoot, replicaRoot, sink)
	assert.NoError(t, err)
	assert.Equal(t, []string{
		record("Warning: failed to create directory /replica/blocked: mkdir denied"),
		record("Warning: failed to create directory /replica/blocked/sub: " +
			"parent directory /replica/blocked was not synced"),
		record("Created directory: /replica/ok"),
		record("Warning: failed to copy /source/blocked/f to /replica/blocked/f: " +
			"parent directory /replica/blocked was not synced"),
		record("Copied file from /source/ok/g to /replica/ok/g"),
	}, sink.lines)
	assert.Equal(t, 3, summary.Skipped)

	fs = mem
	assert.Equal(t, treeState{"ok": dirMarker, "ok/g": "y"}, readTree(t, replicaRoot))
}
