package migrate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/keyring"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

func newStore(t *testing.T) (*docstore.Store, *keyring.Key) {
	t.Helper()
	dir := t.TempDir()
	m := keyring.NewManager(dir, logging.NewNopLogger())
	key, _, err := m.Resolve(context.Background())
	require.NoError(t, err)

	s, err := docstore.Open(filepath.Join(dir, "store.json"), key, logging.NewNopLogger())
	require.NoError(t, err)
	return s, key
}

// spySet builds n no-op migrations that record the order they ran in.
func spySet(n int, ran *[]int) []Migration {
	out := make([]Migration, 0, n)
	for v := 1; v <= n; v++ {
		v := v
		out = append(out, Migration{
			Version: v,
			Name:    fmt.Sprintf("step-%d", v),
			Apply: func(doc docstore.Document) error {
				*ran = append(*ran, v)
				return nil
			},
		})
	}
	return out
}

func TestRun_FreshStoreStampedWithoutRunningSteps(t *testing.T) {
	s, key := newStore(t)
	require.True(t, s.Fresh())

	var ran []int
	err := Run(context.Background(), s, spySet(3, &ran), logging.NewNopLogger())
	require.NoError(t, err)

	assert.Empty(t, ran, "no step may run against a fresh store")
	assert.Equal(t, 3, s.SchemaVersion())

	// the stamp must be on disk, not only in memory
	reopened, err := docstore.Open(s.Path(), key, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.SchemaVersion())
}

func TestRun_AppliesPendingStepsInOrder(t *testing.T) {
	s, _ := newStore(t)
	// existing pre-versioning store: data present, no stamp
	require.NoError(t, s.Set("legacy", true))

	var ran []int
	err := Run(context.Background(), s, spySet(3, &ran), logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, ran)
	assert.Equal(t, 3, s.SchemaVersion())
}

func TestRun_SecondRunIsNoOp(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Set("legacy", true))

	var ran []int
	set := spySet(3, &ran)
	require.NoError(t, Run(context.Background(), s, set, logging.NewNopLogger()))
	require.NoError(t, Run(context.Background(), s, set, logging.NewNopLogger()))

	assert.Equal(t, []int{1, 2, 3}, ran, "each step runs exactly once")
}

func TestRun_ResumesFromStoredVersion(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Set(docstore.VersionKey, 2))

	var ran []int
	err := Run(context.Background(), s, spySet(4, &ran), logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []int{3, 4}, ran)
	assert.Equal(t, 4, s.SchemaVersion())
}

func TestRun_GapDetectedBeforeAnythingRuns(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Set("legacy", true))

	var ran []int
	bad := []Migration{
		{Version: 1, Name: "one", Apply: func(doc docstore.Document) error { ran = append(ran, 1); return nil }},
		{Version: 3, Name: "three", Apply: func(doc docstore.Document) error { ran = append(ran, 3); return nil }},
	}

	err := Run(context.Background(), s, bad, logging.NewNopLogger())
	require.ErrorIs(t, err, common.ErrMigrationGap)
	assert.Empty(t, ran)
	assert.Equal(t, 0, s.SchemaVersion(), "version untouched on gap")
}

func TestRun_DuplicateVersionIsAGap(t *testing.T) {
	s, _ := newStore(t)

	bad := []Migration{
		{Version: 1, Name: "a", Apply: func(doc docstore.Document) error { return nil }},
		{Version: 1, Name: "b", Apply: func(doc docstore.Document) error { return nil }},
	}

	err := Run(context.Background(), s, bad, logging.NewNopLogger())
	assert.ErrorIs(t, err, common.ErrMigrationGap)
}

func TestRun_FailingStepKeepsPriorPersistedVersion(t *testing.T) {
	s, key := newStore(t)
	require.NoError(t, s.Set("legacy", true))

	boom := errors.New("boom")
	set := []Migration{
		{Version: 1, Name: "ok", Apply: func(doc docstore.Document) error { return nil }},
		{Version: 2, Name: "explodes", Apply: func(doc docstore.Document) error { return boom }},
		{Version: 3, Name: "never", Apply: func(doc docstore.Document) error {
			t.Fatal("step after a failure must not run")
			return nil
		}},
	}

	err := Run(context.Background(), s, set, logging.NewNopLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMigrationFailed)
	assert.ErrorIs(t, err, boom)

	var step *StepError
	require.ErrorAs(t, err, &step)
	assert.Equal(t, 2, step.Version)
	assert.Equal(t, "explodes", step.Name)

	// disk state: version 1 was persisted before the failure
	reopened, err := docstore.Open(s.Path(), key, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.SchemaVersion())
}

func TestRun_RetryAfterFailureResumes(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Set("legacy", true))

	var ran []int
	fail := true
	set := []Migration{
		{Version: 1, Name: "one", Apply: func(doc docstore.Document) error { ran = append(ran, 1); return nil }},
		{Version: 2, Name: "flaky", Apply: func(doc docstore.Document) error {
			if fail {
				return errors.New("transient")
			}
			ran = append(ran, 2)
			return nil
		}},
	}

	require.Error(t, Run(context.Background(), s, set, logging.NewNopLogger()))

	fail = false
	require.NoError(t, Run(context.Background(), s, set, logging.NewNopLogger()))
	assert.Equal(t, []int{1, 2}, ran, "step one must not repeat on retry")
	assert.Equal(t, 2, s.SchemaVersion())
}

func TestRun_FutureVersionRefused(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Set(docstore.VersionKey, 9))

	var ran []int
	err := Run(context.Background(), s, spySet(2, &ran), logging.NewNopLogger())
	require.ErrorIs(t, err, common.ErrFutureVersion)
	assert.Empty(t, ran)
	assert.Equal(t, 9, s.SchemaVersion(), "future store left untouched")
}

func TestRun_StepsTransformTheDocument(t *testing.T) {
	s, key := newStore(t)
	require.NoError(t, s.Set("endpoint", "http://localhost:11434"))

	set := []Migration{
		{Version: 1, Name: "baseline", Apply: func(doc docstore.Document) error { return nil }},
		{Version: 2, Name: "rename endpoint", Apply: func(doc docstore.Document) error {
			if v, ok := doc.Get("endpoint"); ok {
				if err := doc.Set("localEndpoint", v); err != nil {
					return err
				}
				doc.Delete("endpoint")
			}
			return nil
		}},
	}

	require.NoError(t, Run(context.Background(), s, set, logging.NewNopLogger()))

	reopened, err := docstore.Open(s.Path(), key, logging.NewNopLogger())
	require.NoError(t, err)

	v, ok := reopened.GetString("localEndpoint")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", v)
	assert.False(t, reopened.Has("endpoint"))
}

func TestRun_EmptySetDoesNothing(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, Run(context.Background(), s, nil, logging.NewNopLogger()))
	assert.True(t, s.Fresh(), "no migrations, no writes")
}
