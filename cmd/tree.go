package cmd

import (
	"fmt"

	"git-browser-web/internal/infrastructure/github"
	"git-browser-web/pkg/tree"
	"git-browser-web/pkg/types"

	"github.com/spf13/cobra"
)

func newTreeCmd(rt *app) *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "tree <repo-url>",
		Short: "打印仓库目录树",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoURL := github.AddScheme(args[0])
			if !github.IsGithubURL(repoURL) {
				return fmt.Errorf("%w: %q", types.ErrInvalidURL, args[0])
			}
			result, err := rt.client.GetTree(cmd.Context(), repoURL, branch)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s@%s\n", args[0], result.Branch)
			if err := tree.Print(tree.Treeify(result.Entries), out); err != nil {
				return err
			}
			if result.Truncated {
				fmt.Fprintln(out, "(tree truncated by the API)")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", types.DefaultBranch, "分支名称")
	return cmd
}
