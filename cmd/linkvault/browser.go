package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/linkvault/internal/browser"
	"github.com/nikbrunner/linkvault/internal/picker"
)

// sourceFlags selects which browser bookmarks a command reads.
type sourceFlags struct {
	folder   string
	root     string
	files    []string
	noDedupe bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.folder, "folder", "", `folder path such as "Work/AWS"; includes subfolders`)
	cmd.Flags().StringVar(&f.root, "root", "", "bookmark root: bookmark_bar, other or synced")
	cmd.Flags().StringSliceVar(&f.files, "file", nil, "read a Bookmarks or exported HTML file instead of browser profiles")
	cmd.Flags().BoolVar(&f.noDedupe, "no-dedupe", false, "keep urls found in several profiles")
}

func (f *sourceFlags) filtered() bool {
	return f.folder != "" || f.root != "" || len(f.files) > 0
}

func (a *app) aggregate(cmd *cobra.Command, f *sourceFlags) browser.Result {
	src := a.browserSource()
	req := browser.Request{
		Locations: src.Locations,
		Filter: browser.Filter{
			Path: browser.ParsePath(f.folder),
			Root: strings.TrimSpace(f.root),
		},
		Dedupe: !f.noDedupe,
	}
	if len(f.files) > 0 {
		req.Locations = nil
		req.Files = f.files
	}

	res := src.Aggregator.Aggregate(cmd.Context(), req)
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
	}
	return res
}

func browserCmd(a *app) *cobra.Command {
	var f sourceFlags

	cmd := &cobra.Command{
		Use:   "browser",
		Short: "List bookmarks found in installed browsers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.aggregate(cmd, &f)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Found %d browser bookmarks in %d profiles\n", len(res.Bookmarks), len(res.Profiles))
			for _, b := range res.Bookmarks {
				folder := b.Folder()
				if folder == "" {
					folder = b.Root
				}
				fmt.Fprintf(w, "%s  %s  [%s/%s %s]\n", b.Title, b.URL, b.Browser, b.Profile, folder)
			}
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func importCmd(a *app) *cobra.Command {
	var (
		f        sourceFlags
		category string
		tags     []string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import browser bookmarks into a category",
		Long: `Import copies browser bookmarks into a category. Candidates are chosen
interactively unless --all is given, which requires a --folder, --root or
--file filter. Re-importing updates titles but keeps your tags unless --tags
is passed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && !f.filtered() {
				return errors.New("--all needs --folder, --root or --file")
			}

			rec, err := a.reconciler()
			if err != nil {
				return err
			}

			candidates := a.aggregate(cmd, &f).Bookmarks
			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No browser bookmarks found.")
				return nil
			}

			if !all {
				items := make([]picker.Item, len(candidates))
				for i, b := range candidates {
					items[i] = picker.Item{Title: b.Title, Detail: b.Folder(), URL: b.URL}
				}
				idx, err := a.pick(items, "Select bookmarks to import", true)
				if err != nil {
					return err
				}
				if len(idx) == 0 {
					return nil
				}
				selected := make([]browser.Bookmark, len(idx))
				for i, n := range idx {
					selected[i] = candidates[n]
				}
				candidates = selected
			}

			category = a.category(category)
			out, err := rec.ImportBrowser(cmd.Context(), category, candidates, tags)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			s := out.Summary
			fmt.Fprintf(w, "Imported %d browser bookmarks into %q: %d new, %d updated, %d unchanged, %d rejected\n",
				len(out.Results), category, s.Inserted, s.Updated, s.Unchanged, s.Rejected)
			for _, r := range out.Results {
				if err := outcomeError(r); err != nil {
					fmt.Fprintf(w, "  rejected %s: %v\n", r.Bookmark.URL, err)
				}
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&category, "category", "c", "", "target category (default from config)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags added to every imported bookmark")
	cmd.Flags().BoolVar(&all, "all", false, "import every matching bookmark without picking")
	return cmd
}
