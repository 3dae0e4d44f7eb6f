package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range Cmd.Commands() {
		names[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"list": true, "create": true, "deactivate": true}, names)

	flag := createCmd.Flags().Lookup("priority")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "1", flag.DefValue)
	}
	assert.Error(t, createCmd.Args(createCmd, []string{"amazon"}))
}
