package categorize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LiorShrago/BudgetBuddy/cmd/categorize"
)

func TestCategorizeCommand_Metadata(t *testing.T) {
	assert.Equal(t, "categorize", categorize.Cmd.Use)
	assert.Contains(t, categorize.Cmd.Short, "Categorize transactions")
}

func TestCategorizeCommand_SubCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range categorize.Cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["set"])
	assert.True(t, names["bulk"])
	assert.True(t, names["auto"])
}

func TestCategorizeCommand_Args(t *testing.T) {
	set, _, err := categorize.Cmd.Find([]string{"set"})
	if assert.NoError(t, err) {
		assert.Error(t, set.Args(set, []string{"1"}))
		assert.NoError(t, set.Args(set, []string{"1", "none"}))
	}

	bulk, _, err := categorize.Cmd.Find([]string{"bulk"})
	if assert.NoError(t, err) {
		assert.NotNil(t, bulk.Flags().Lookup("category"))
		assert.Error(t, bulk.Args(bulk, nil))
	}
}
