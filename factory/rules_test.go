package factory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/transition-engine/factory"
	"github.com/warp/transition-engine/transition"
)

func TestParseRules_Valid(t *testing.T) {
	rules, err := factory.ParseRules(`{
		"task": {
			"pending": ["in_progress", "cancelled"],
			"in_progress": ["completed", "blocked"]
		},
		"reminder": {
			"scheduled": ["snoozed"]
		}
	}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"in_progress", "cancelled"}, rules["task"]["pending"])
	assert.Equal(t, []string{"snoozed"}, rules["reminder"]["scheduled"])
}

func TestParseRules_Invalid(t *testing.T) {
	_, err := factory.ParseRules(`{"task": `)
	assert.Error(t, err, "malformed JSON")

	_, err = factory.ParseRules(`{"task": {"": ["x"]}}`)
	assert.Error(t, err, "empty from-state")

	_, err = factory.ParseRules(`{"task": {"pending": [" "]}}`)
	assert.Error(t, err, "blank target state")
}

func TestParseStateRules(t *testing.T) {
	rules, err := factory.ParseStateRules(`{"pending": ["in_progress"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"in_progress"}, rules["pending"])

	_, err = factory.ParseStateRules(`{"": ["x"]}`)
	assert.Error(t, err)
}

func TestSerializeRules_RoundTrip(t *testing.T) {
	original, err := factory.ParseRules(`{"task": {"pending": ["in_progress"]}}`)
	require.NoError(t, err)

	data, err := factory.SerializeRules(original)
	require.NoError(t, err)

	parsed, err := factory.ParseRules(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestFileSource_LoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")

	write := func(content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write(`{"task": {"pending": ["in_progress", "cancelled"], "in_progress": ["completed", "blocked"]}}`)

	store, err := transition.NewRuleStoreFromSource(context.Background(), factory.FileSource{Path: path})
	require.NoError(t, err)
	assert.True(t, store.IsValidTransition("task", "in_progress", "blocked"))

	// Edit the file and reload
	write(`{"task": {"pending": ["cancelled"]}}`)
	require.NoError(t, store.Reload(context.Background()))
	assert.False(t, store.IsValidTransition("task", "pending", "in_progress"), "reload should pick up the edited file")
	assert.True(t, store.IsValidTransition("task", "pending", "cancelled"))
}

func TestFileSource_RejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"task": `), 0o644))

	_, err := factory.FileSource{Path: path}.LoadRules(context.Background())
	assert.Error(t, err, "malformed JSON")

	_, err = factory.FileSource{Path: filepath.Join(dir, "missing.json")}.LoadRules(context.Background())
	assert.Error(t, err, "missing file")
}
