package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// VersionInfo is stamped into the binary at build time.
type VersionInfo struct {
	Version string
	Commit  string
}

// NewRootCommand builds the snipctl command tree.
func NewRootCommand(info VersionInfo) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:           "snipctl",
		Short:         "SnipStash command-line client",
		Long:          "Browse, create and manage snippets on a SnipStash server.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(path)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&path, "config", "", "config file (default is $HOME/.snipctl.yaml)")
	flags.String("server", "", "server base URL")
	flags.String("token", "", "bearer access token")
	flags.String("api-key", "", "API key (sk_...)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag(keyServer, flags.Lookup("server"))
	_ = viper.BindPFlag(keyToken, flags.Lookup("token"))
	_ = viper.BindPFlag(keyAPIKey, flags.Lookup("api-key"))
	_ = viper.BindPFlag(keyLogLevel, flags.Lookup("log-level"))

	cmd.Version = fmt.Sprintf("%s.%s", info.Version, info.Commit)

	cmd.AddCommand(
		newLoginCommand(),
		newListCommand(),
		newShowCommand(),
		newCreateCommand(),
		newEditCommand(),
		newPinCommand(),
		newFavoriteCommand(),
		newRecycleCommand(),
		newRestoreCommand(),
		newDeleteCommand(),
		newMetaCommand(),
		newWatchCommand(),
	)

	return cmd
}
