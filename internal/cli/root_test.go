package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		output := &bytes.Buffer{}
		err := executeCommand(context.Background(), output, "", "--version")
		require.NoError(t, err)

		assert.Contains(t, output.String(), "idesession version")
		assert.Contains(t, output.String(), GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		output := &bytes.Buffer{}
		err := executeCommand(context.Background(), output, "", "--help")
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "idesession")
		assert.Contains(t, helpText, "workspace sessions")
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()

		configFlag := cmd.PersistentFlags().Lookup("config")
		require.NotNil(t, configFlag)
		assert.Equal(t, "", configFlag.DefValue)

		logLevelFlag := cmd.PersistentFlags().Lookup("log-level")
		require.NotNil(t, logLevelFlag)
		assert.Equal(t, "info", logLevelFlag.DefValue)

		assert.NotNil(t, cmd.PersistentFlags().Lookup("sessions-dir"))
		assert.NotNil(t, cmd.PersistentFlags().Lookup("format"))
	})

	t.Run("subcommands registered", func(t *testing.T) {
		for _, name := range []string{
			"dir", "list", "last", "open", "save-as", "set", "unset", "get",
			"info", "delete", "watch", "serve-metrics", "status", "configure",
		} {
			assert.True(t, hasSubcommand(name), "%s command should exist", name)
		}
	})
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
}
