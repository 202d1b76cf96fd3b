package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphabot-ai/forum/internal/auth"
	"github.com/alphabot-ai/forum/internal/client"
	"github.com/alphabot-ai/forum/internal/model"
)

func initRegisterCommand() *cobra.Command {
	var name, email, password string
	registerCommand := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(baseURL())
			u, err := c.Register(name, email, password)
			if err != nil {
				return err
			}
			if err := saveSession(session{BaseURL: c.BaseURL, Username: u.Username, Token: c.Token}); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered %s on %s\n", u.Username, c.BaseURL)
			return nil
		},
	}
	registerCommand.Flags().StringVar(&name, "name", "", "Username (required)")
	registerCommand.Flags().StringVar(&email, "email", "", "Email address")
	registerCommand.Flags().StringVar(&password, "password", "", "Password, at least 8 characters (required)")
	_ = registerCommand.MarkFlagRequired("name")
	_ = registerCommand.MarkFlagRequired("password")
	return registerCommand
}

func initLoginCommand() *cobra.Command {
	var name, password string
	loginCommand := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(baseURL())
			u, err := c.Login(name, password)
			if err != nil {
				return err
			}
			if err := saveSession(session{BaseURL: c.BaseURL, Username: u.Username, Token: c.Token}); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", u.Username)
			return nil
		},
	}
	loginCommand.Flags().StringVar(&name, "name", "", "Username (required)")
	loginCommand.Flags().StringVar(&password, "password", "", "Password (required)")
	_ = loginCommand.MarkFlagRequired("name")
	_ = loginCommand.MarkFlagRequired("password")
	return loginCommand
}

func initStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Show the saved session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s, err := loadSession()
			if errors.Is(err, errNoSession) {
				fmt.Fprintln(out, "Status: not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "User:   %s\n", s.Username)
			fmt.Fprintf(out, "Server: %s\n", s.BaseURL)
			exp, err := auth.ExpiresAt(s.Token)
			switch {
			case err != nil:
				fmt.Fprintln(out, "Token:  unreadable")
			case time.Now().Before(exp):
				fmt.Fprintf(out, "Token:  valid until %s\n", exp.Format(time.RFC3339))
			default:
				fmt.Fprintln(out, "Token:  expired")
			}
			return nil
		},
	}
}

func initPostCommand() *cobra.Command {
	var title, content string
	postCommand := &cobra.Command{
		Use:   "post",
		Short: "Start a thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authenticatedClient()
			if err != nil {
				return err
			}
			t, err := c.CreateThread(title, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Posted %q as /%s\n", t.Title, t.Slug)
			return nil
		},
	}
	postCommand.Flags().StringVar(&title, "title", "", "Thread title (required)")
	postCommand.Flags().StringVar(&content, "text", "", "Thread body")
	_ = postCommand.MarkFlagRequired("title")
	return postCommand
}

func initCommentCommand() *cobra.Command {
	var slug, parent, text string
	commentCommand := &cobra.Command{
		Use:   "comment",
		Short: "Comment on a thread or reply to a comment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authenticatedClient()
			if err != nil {
				return err
			}
			var cm *model.Comment
			if parent == "" {
				cm, err = c.PostComment(slug, text)
			} else {
				var id model.CommentID
				if id, err = model.ParseCommentID(parent); err != nil {
					return err
				}
				cm, err = c.Reply(slug, id, text)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Comment %s on /%s\n", cm.ID, slug)
			return nil
		},
	}
	commentCommand.Flags().StringVar(&slug, "thread", "", "Thread slug (required)")
	commentCommand.Flags().StringVar(&parent, "parent", "", "Parent comment id, for replies")
	commentCommand.Flags().StringVar(&text, "text", "", "Comment text (required)")
	_ = commentCommand.MarkFlagRequired("thread")
	_ = commentCommand.MarkFlagRequired("text")
	return commentCommand
}

func initVoteCommand() *cobra.Command {
	var slug, comment string
	var undo bool
	voteCommand := &cobra.Command{
		Use:   "vote",
		Short: "Vote on a thread or one of its comments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authenticatedClient()
			if err != nil {
				return err
			}
			var count int64
			target := "/" + slug
			if comment == "" {
				if undo {
					count, err = c.UnvoteThread(slug)
				} else {
					count, err = c.VoteThread(slug)
				}
			} else {
				id, perr := model.ParseCommentID(comment)
				if perr != nil {
					return perr
				}
				target += " comment " + id.String()
				if undo {
					count, err = c.UnvoteComment(slug, id)
				} else {
					count, err = c.VoteComment(slug, id)
				}
			}
			if err != nil {
				return err
			}
			action := "Voted on"
			if undo {
				action = "Removed vote from"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s (%d votes)\n", action, target, count)
			return nil
		},
	}
	voteCommand.Flags().StringVar(&slug, "thread", "", "Thread slug (required)")
	voteCommand.Flags().StringVar(&comment, "comment", "", "Comment id, to vote on a comment instead of the thread")
	voteCommand.Flags().BoolVar(&undo, "undo", false, "Remove the vote")
	_ = voteCommand.MarkFlagRequired("thread")
	return voteCommand
}

func initReadCommand() *cobra.Command {
	var slug string
	readCommand := &cobra.Command{
		Use:     "read",
		Aliases: []string{"list"},
		Short:   "List threads, or show one thread with its comment tree",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := anonymousClient()
			out := cmd.OutOrStdout()
			if slug == "" {
				threads, err := c.ListThreads()
				if err != nil {
					return err
				}
				printThreads(out, threads)
				return nil
			}

			t, err := c.GetThread(slug)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s\n", t.Title)
			fmt.Fprintf(out, "  %d votes%s | by %s | /%s\n", t.VoteCount, votedMark(t.IsVoted), t.Username, t.Slug)
			if t.Content != "" {
				fmt.Fprintf(out, "\n  %s\n", t.Content)
			}
			roots, err := c.ListComments(slug)
			if err != nil {
				return err
			}
			if len(roots) > 0 {
				fmt.Fprintln(out)
			}
			return printComments(out, c, slug, roots, 1)
		},
	}
	readCommand.Flags().StringVar(&slug, "thread", "", "Thread slug to show")
	return readCommand
}

func initProfileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <username>",
		Short: "Show a user's score and threads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := anonymousClient()
			p, err := c.GetProfile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s | score %d", p.Username, p.Score)
			if p.Following {
				fmt.Fprint(out, " | following")
			}
			fmt.Fprintln(out)
			threads, err := c.ProfileThreads(args[0])
			if err != nil {
				return err
			}
			printThreads(out, threads)
			return nil
		},
	}
}

func initFollowCommand(follow bool) *cobra.Command {
	use, short := "follow", "Follow a user"
	if !follow {
		use, short = "unfollow", "Stop following a user"
	}
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authenticatedClient()
			if err != nil {
				return err
			}
			var p *model.Profile
			if follow {
				p, err = c.Follow(args[0])
			} else {
				p, err = c.Unfollow(args[0])
			}
			if err != nil {
				return err
			}
			state := "not following"
			if p.Following {
				state = "following"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s (score %d)\n", p.Username, state, p.Score)
			return nil
		},
	}
}

func printThreads(out io.Writer, threads []model.Thread) {
	for i, t := range threads {
		fmt.Fprintf(out, "%d. %s\n", i+1, t.Title)
		fmt.Fprintf(out, "   %d votes%s | by %s | /%s\n\n", t.VoteCount, votedMark(t.IsVoted), t.Username, t.Slug)
	}
}

// printComments walks the tree one level per request, the way the API
// exposes it.
func printComments(out io.Writer, c *client.Client, slug string, comments []model.Comment, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, cm := range comments {
		fmt.Fprintf(out, "%s[%s] %s (%d%s): %s\n", indent, cm.ID, cm.Username, cm.VoteCount, votedMark(cm.IsVoted), cm.Content)
		children, err := c.ListChildren(slug, cm.ID)
		if err != nil {
			return err
		}
		if err := printComments(out, c, slug, children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func votedMark(voted bool) string {
	if voted {
		return " ▲"
	}
	return ""
}
