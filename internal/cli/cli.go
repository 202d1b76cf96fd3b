// Package cli builds the forum command tree: the API server plus a small
// client for driving a running server from a terminal.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var (
	configFile string
	serverURL  string
)

func NewCommand() *cobra.Command {
	forumCli := &cobra.Command{
		Use:     "forum",
		Short:   "Forum API server and client",
		Long:    "Forum serves the threads/comments/votes/follows API and talks to a running server.",
		Example: fmt.Sprintf("  %s serve --addr :3000\n  %s register --name alice --password hunter22", os.Args[0], os.Args[0]),
		// Bare `forum` starts the server.
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	forumCli.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./forum.yaml if present)")
	forumCli.PersistentFlags().StringVar(&serverURL, "url", "", "Forum server URL for client commands (default from saved session or http://localhost:3000)")
	addServeFlags(forumCli)

	forumCli.AddCommand(initServeCommand())
	forumCli.AddCommand(initTokenCommand())
	forumCli.AddCommand(initVersionCommand())

	forumCli.AddCommand(initRegisterCommand())
	forumCli.AddCommand(initLoginCommand())
	forumCli.AddCommand(initStatusCommand())
	forumCli.AddCommand(initPostCommand())
	forumCli.AddCommand(initCommentCommand())
	forumCli.AddCommand(initVoteCommand())
	forumCli.AddCommand(initReadCommand())
	forumCli.AddCommand(initProfileCommand())
	forumCli.AddCommand(initFollowCommand(true))
	forumCli.AddCommand(initFollowCommand(false))

	return forumCli
}

func initVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forum %s\n", Version)
		},
	}
}
