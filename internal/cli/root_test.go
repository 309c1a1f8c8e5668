package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sigil", cmd.Use)
	assert.Contains(t, cmd.Long, "instrument graphs")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"opcodes", "score", "graph"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestOpcodesCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	opcodesCmd, _, err := cmd.Find([]string{"opcodes"})
	require.NoError(t, err)

	dbFlag := opcodesCmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	// --db falls back to the builtin table, so default is empty
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestScoreCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"shift", "scale"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{"score", name})
			require.NoError(t, err)

			byFlag := sub.Flags().Lookup("by")
			require.NotNil(t, byFlag)

			outputFlag := sub.Flags().Lookup("output")
			require.NotNil(t, outputFlag)
			assert.Equal(t, "o", outputFlag.Shorthand)
		})
	}
}

func TestGraphCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	idCmd, _, err := cmd.Find([]string{"graph", "id"})
	require.NoError(t, err)
	cacheFlag := idCmd.Flags().Lookup("cache")
	require.NotNil(t, cacheFlag)
	assert.Equal(t, "", cacheFlag.DefValue)

	dumpCmd, _, err := cmd.Find([]string{"graph", "dump"})
	require.NoError(t, err)
	stmtsFlag := dumpCmd.Flags().Lookup("statements")
	require.NotNil(t, stmtsFlag)
	assert.Equal(t, "false", stmtsFlag.DefValue)
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	// Verify help text contains key elements
	assert.Contains(t, cmd.Short, "Sigil")
	assert.Contains(t, cmd.Long, "identifying")
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "opcodes", "list"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
