package util

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) Sync(source, replica string, sink sync.Sink) (sync.Summary, error) {
	args := m.Called(source, replica, sink)
	return args.Get(0).(sync.Summary), args.Error(1)
}

func TestHandleFatalError(t *testing.T) {
	var out bytes.Buffer
	var exitCode int
	stderr = &out
	exit = func(code int) { exitCode = code }

	HandleFatalError(errors.WithContext(errors.NewFriendlyError("Please fix %s.", "it"), "context"))
	assert.Equal(t, "Please fix it.\n", out.String())
	assert.Equal(t, 1, exitCode)
}

func TestSessionPass(t *testing.T) {
	settings := config.Settings{Source: "/source", Replica: "/replica"}
	sink := sync.SinkFunc(func(string) {})

	tests := []struct {
		name     string
		summary  sync.Summary
		syncErr  error
		expLevel logrus.Level
		expMsg   string
	}{
		{
			name: "Changes",
			summary: sync.Summary{
				DirsCreated:  1,
				FilesCopied:  2,
				BytesCopied:  2048,
				FilesRemoved: 3,
				Duration:     time.Second,
			},
			expLevel: logrus.InfoLevel,
			expMsg: "Created 1 directories, copied 2 files (2.0 kB), " +
				"removed 3 files and 0 directories, skipped 0 entries.",
		},
		{
			name:     "UpToDate",
			expLevel: logrus.DebugLevel,
			expMsg:   "Replica already up to date",
		},
		{
			name:     "Aborted",
			syncErr:  errors.StructuralError{Reason: "source directory /source does not exist"},
			expLevel: logrus.WarnLevel,
			expMsg:   "Sync pass aborted",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			hook := logrusTest.NewGlobal()
			defer hook.Reset()
			logrus.SetLevel(logrus.DebugLevel)
			defer logrus.SetLevel(logrus.InfoLevel)

			syncer := &mockSyncer{}
			syncer.On("Sync", "/source", "/replica", mock.Anything).Return(test.summary, test.syncErr)

			session := &Session{settings: settings, syncer: syncer, sink: sink}
			err := session.Pass()
			assert.Equal(t, test.syncErr, err)
			syncer.AssertExpectations(t)

			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, test.expLevel, hook.LastEntry().Level)
			assert.Equal(t, test.expMsg, hook.LastEntry().Message)
			assert.Equal(t, 1, hook.LastEntry().Data["pass"])
		})
	}
}

func TestLockReplica(t *testing.T) {
	replica := filepath.Join(t.TempDir(), "replica")

	lock, err := LockReplica(replica)
	require.NoError(t, err)

	_, err = LockReplica(replica)
	assert.Error(t, err)
	assert.Contains(t, errors.GetPrintableMessage(err), "Another foldersync process")

	_, err = LockReplica(replica + "-other")
	assert.NoError(t, err)

	require.NoError(t, lock.Unlock())
	relocked, err := LockReplica(replica)
	assert.NoError(t, err)
	assert.NoError(t, relocked.Unlock())
}

func TestStartSession(t *testing.T) {
	dir := t.TempDir()
	settings := config.Settings{
		Source:  filepath.Join(dir, "source"),
		Replica: filepath.Join(dir, "replica"),
		Log:     filepath.Join(dir, "sync.log"),
	}

	session, err := StartSession(settings, &bytes.Buffer{})
	require.NoError(t, err)

	_, err = StartSession(settings, &bytes.Buffer{})
	assert.Error(t, err, "the replica should still be locked")

	session.Close()
	session, err = StartSession(settings, &bytes.Buffer{})
	require.NoError(t, err)
	session.Close()
}
