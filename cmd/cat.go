package cmd

import (
	"context"
	"fmt"
	"io"

	"git-browser-web/internal/domain/navigation"
	"git-browser-web/internal/domain/render"
	"git-browser-web/internal/infrastructure/github"
	"git-browser-web/pkg/types"

	"github.com/spf13/cobra"
)

func newCatCmd(rt *app) *cobra.Command {
	var (
		branch string
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "cat <repo-url> <path>",
		Short: "输出仓库中的文件内容",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath, ok := github.ExtractRepoPath(args[0])
			if !ok || !github.IsGithubURL(github.AddScheme(args[0])) {
				return fmt.Errorf("%w: %q", types.ErrInvalidURL, args[0])
			}
			out := cmd.OutOrStdout()

			if raw {
				ref := branch
				if ref == "" || ref == types.DefaultBranch {
					var err error
					if ref, err = rt.client.GetDefaultBranch(cmd.Context(), github.RepoURL(repoPath)); err != nil {
						return err
					}
				}
				data, err := rt.client.DownloadFile(cmd.Context(), repoPath, ref, args[1])
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			loc := navigation.Location{RepoPath: repoPath, Branch: branch, File: args[1]}
			return catFile(cmd.Context(), out, rt.client, rt.cfg.GetMaxFileSize(), loc)
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", types.DefaultBranch, "分支名称")
	cmd.Flags().BoolVar(&raw, "raw", false, "直接输出原始字节")
	return cmd
}

// catFile 通过导航控制器加载文件并写入 out
//
// 双模式文件（markdown、csv 等）先切换到编辑器模式，输出解码后的文本。
func catFile(ctx context.Context, out io.Writer, client navigation.RepoClient, maxFileSize int64, loc navigation.Location) error {
	ctrl := navigation.NewController(client, maxFileSize)
	defer ctrl.Close()

	if err := ctrl.Restore(ctx, loc); err != nil {
		return err
	}
	ctrl.Wait()

	tab, err := ctrl.Tab(0)
	if err != nil {
		return fmt.Errorf("%w: %s", types.ErrFileNotFound, loc.File)
	}
	switch {
	case tab.IsTooLarge:
		return fmt.Errorf("%w: %s", types.ErrTooLarge, tab.Path)
	case tab.HasError:
		return fmt.Errorf("%w: %s", types.ErrorOf(tab.ErrorKind), tab.Path)
	}

	if !tab.CanEditorRender && render.IsDual(tab.Extension) {
		if err := ctrl.ToggleRenderMode(ctx, 0); err != nil {
			return err
		}
		if tab, err = ctrl.Tab(0); err != nil {
			return err
		}
	}
	if !tab.CanEditorRender {
		fmt.Fprintf(out, "%s: %s file (%s), use --raw to write its bytes\n",
			tab.Path, render.ForTab(tab), render.Select(tab.Extension).MIME)
		return nil
	}
	_, err = fmt.Fprint(out, tab.Content)
	return err
}
