package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/linkvault/internal/culler"
	"github.com/nikbrunner/linkvault/internal/exporter"
)

func exportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Export bookmarks as a browser-importable HTML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			store, err := repo.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			path := exporter.DefaultExportPath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := exporter.WriteFile(path, store); err != nil {
				return fmt.Errorf("export: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookmarks to %s\n", len(store.Bookmarks), path)
			return nil
		},
	}
}

func checkCmd(a *app) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every bookmark for dead links",
		Long: `Check requests every stored url and reports dead (404/410) and
unreachable links. With --delete, dead bookmarks are removed; unreachable
ones are only reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			store, err := repo.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			results := culler.CheckURLs(cmd.Context(), store.Bookmarks, culler.Options{
				Concurrency:    a.cfg.CullConcurrency,
				Timeout:        a.cfg.CullTimeout(),
				ExcludeDomains: a.cfg.CullExcludeDomains,
				OnProgress: func(completed, total int) {
					fmt.Fprintf(stderr, "\rchecked %d/%d", completed, total)
				},
			})
			if len(results) > 0 {
				fmt.Fprintln(stderr)
			}

			w := cmd.OutOrStdout()
			var healthy int
			for _, r := range results {
				switch r.Status {
				case culler.Healthy:
					healthy++
				case culler.Dead:
					fmt.Fprintf(w, "dead        %d  %s [%s]\n", r.StatusCode, r.Bookmark.URL, r.Bookmark.Category)
				default:
					fmt.Fprintf(w, "unreachable %s [%s]: %s\n", r.Bookmark.URL, r.Bookmark.Category, r.Error)
				}
			}

			dead := culler.DeadBookmarks(results)
			fmt.Fprintf(w, "%d healthy, %d dead, %d unreachable\n", healthy, len(dead), len(results)-healthy-len(dead))

			if !remove {
				return nil
			}
			for _, b := range dead {
				if _, err := repo.Delete(cmd.Context(), b.URL, b.Category); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "Deleted %d dead bookmarks\n", len(dead))
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "delete dead bookmarks")
	return cmd
}
