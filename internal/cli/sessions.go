package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harun/idesession/pkg/session"
	"github.com/harun/idesession/pkg/settings"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	listLong     bool
	openOutput   string
	saveAsFrom   string
	setCreate    bool
	setRawString bool
)

var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the sessions directory",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), env.mgr.SessionsDir())
		return nil
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available sessions",
	Long:  `List available sessions in lexicographic order. The last used session is marked with '*'.`,
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		out := cmd.OutOrStdout()
		last := env.mgr.LastSession()

		for _, name := range env.mgr.AvailableSessions() {
			marker := " "
			if name == last {
				marker = "*"
			}
			if !listLong {
				fmt.Fprintf(out, "%s %s\n", marker, name)
				continue
			}

			info, err := env.mgr.SessionInfo(name)
			if err != nil {
				fmt.Fprintf(out, "%s %s\t(unreadable: %v)\n", marker, name, err)
				continue
			}
			fmt.Fprintf(out, "%s %s\t%d keys\t%d bytes\t%s\n",
				marker, name, len(info.Keys), info.Size, info.ModTime.Format("2006-01-02 15:04:05"))
		}
		return nil
	}),
}

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the last saved or opened session",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		last := env.mgr.LastSession()
		if last == "" {
			return fmt.Errorf("no last session recorded")
		}
		fmt.Fprintln(cmd.OutOrStdout(), last)
		return nil
	}),
}

var openCmd = &cobra.Command{
	Use:   "open <name>",
	Short: "Open a session and print its content",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		codec := env.mgr.Codec()
		if openOutput != "" {
			var err error
			if codec, err = settings.CodecFor(openOutput); err != nil {
				return err
			}
		}

		sess, err := env.mgr.OpenSessionWithContext(env.ctx, args[0])
		if err != nil {
			return err
		}
		defer env.mgr.CloseSession()

		raw, err := codec.Marshal(sess.AllSettings())
		if err != nil {
			return fmt.Errorf("failed to render session: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	}),
}

var saveAsCmd = &cobra.Command{
	Use:   "save-as <name>",
	Short: "Save a session under a new name",
	Long: `Save a session under a new name. With --from the content of an existing
session is copied; otherwise an empty session is created. An existing session
with the target name is overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		if saveAsFrom != "" {
			if _, err := env.mgr.OpenSessionWithContext(env.ctx, saveAsFrom); err != nil {
				return err
			}
		}

		sess, err := env.mgr.SaveSessionAsWithContext(env.ctx, args[0])
		if err != nil {
			return err
		}
		defer env.mgr.CloseSession()

		fmt.Fprintf(cmd.OutOrStdout(), "Saved session %q to %s\n", sess.Name(), sess.Path())
		return nil
	}),
}

var setCmd = &cobra.Command{
	Use:   "set <name> <key> <value>",
	Short: "Set a key in a session and save it",
	Long: `Set a key in a session and save it. Keys are '/'-separated group paths
such as editor/font. The value is parsed as a YAML scalar or list unless
--string is given.`,
	Args: cobra.ExactArgs(3),
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		name, key := args[0], args[1]

		sess, err := env.mgr.OpenSessionWithContext(env.ctx, name)
		if errors.Is(err, session.ErrNotFound) && setCreate {
			sess, err = env.mgr.SaveSessionAsWithContext(env.ctx, name)
		}
		if err != nil {
			return err
		}
		defer env.mgr.CloseSession()

		value := any(args[2])
		if !setRawString {
			value = parseValue(args[2])
		}
		sess.Set(key, value)

		return env.mgr.SaveSessionWithContext(env.ctx)
	}),
}

var unsetCmd = &cobra.Command{
	Use:   "unset <name> <key>",
	Short: "Remove a key from a session and save it",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		sess, err := env.mgr.OpenSessionWithContext(env.ctx, args[0])
		if err != nil {
			return err
		}
		defer env.mgr.CloseSession()

		if !sess.Contains(args[1]) {
			return fmt.Errorf("key %q not found in session %q", args[1], args[0])
		}
		sess.Remove(args[1])

		return env.mgr.SaveSessionWithContext(env.ctx)
	}),
}

var getCmd = &cobra.Command{
	Use:   "get <name> <key>",
	Short: "Print a value from a session",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		sess, err := env.mgr.OpenSessionWithContext(env.ctx, args[0])
		if err != nil {
			return err
		}
		defer env.mgr.CloseSession()

		value, ok := sess.Get(args[1])
		if !ok {
			return fmt.Errorf("key %q not found in session %q", args[1], args[0])
		}

		out := cmd.OutOrStdout()
		switch v := value.(type) {
		case map[string]any:
			raw, err := env.mgr.Codec().Marshal(v)
			if err != nil {
				return err
			}
			_, err = out.Write(raw)
			return err
		case []any:
			for _, item := range cast.ToStringSlice(v) {
				fmt.Fprintln(out, item)
			}
		default:
			fmt.Fprintln(out, cast.ToString(v))
		}
		return nil
	}),
}

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show details about a session file",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		info, err := env.mgr.SessionInfo(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name: %s\n", info.Name)
		fmt.Fprintf(out, "Path: %s\n", info.Path)
		fmt.Fprintf(out, "Size: %d bytes\n", info.Size)
		fmt.Fprintf(out, "Modified: %s\n", info.ModTime.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Last: %t\n", env.mgr.LastSession() == info.Name)
		fmt.Fprintf(out, "Keys: %d\n", len(info.Keys))
		for _, key := range info.Keys {
			fmt.Fprintf(out, "  %s\n", key)
		}
		return nil
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a session file",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		if err := env.mgr.DeleteSession(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %q\n", args[0])
		return nil
	}),
}

func init() {
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "show key count, size and modification time")
	openCmd.Flags().StringVarP(&openOutput, "output", "o", "", "output format: toml or yaml (default is the session format)")
	saveAsCmd.Flags().StringVar(&saveAsFrom, "from", "", "copy content from this session")
	setCmd.Flags().BoolVar(&setCreate, "create", false, "create the session if it does not exist")
	setCmd.Flags().BoolVar(&setRawString, "string", false, "store the value as a string without parsing")

	rootCmd.AddCommand(dirCmd, listCmd, lastCmd, openCmd, saveAsCmd, setCmd, unsetCmd, getCmd, infoCmd, deleteCmd)
}

// parseValue decodes a command-line value as YAML so "12", "true" and
// "[a, b]" keep their types. Anything that does not decode to a scalar,
// list or map stays a string.
func parseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	switch t := v.(type) {
	case string, bool, int, float64, []any:
		return t
	case map[string]any:
		return t
	default:
		return raw
	}
}

// joinNames formats a session list for one-line output
func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
