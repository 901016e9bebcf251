package cmd

import (
	"fmt"
	"text/tabwriter"

	"git-browser-web/internal/infrastructure/github"
	"git-browser-web/pkg/types"

	"github.com/spf13/cobra"
)

func newBranchesCmd(rt *app) *cobra.Command {
	return &cobra.Command{
		Use:   "branches <repo-url>",
		Short: "列出仓库分支",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoURL := github.AddScheme(args[0])
			if !github.IsGithubURL(repoURL) {
				return fmt.Errorf("%w: %q", types.ErrInvalidURL, args[0])
			}
			list, err := rt.client.GetBranches(cmd.Context(), repoURL)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCOMMIT\tPROTECTED")
			for _, b := range list.Branches {
				sha := b.Commit.SHA
				if len(sha) > 7 {
					sha = sha[:7]
				}
				fmt.Fprintf(w, "%s\t%s\t%t\n", b.Name, sha, b.Protected)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if list.Truncated {
				fmt.Fprintln(cmd.OutOrStdout(), "(more branches not shown)")
			}
			return nil
		},
	}
}
