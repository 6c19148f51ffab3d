package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/normalize"
	"github.com/nikbrunner/linkvault/internal/picker"
	"github.com/nikbrunner/linkvault/internal/reconcile"
	"github.com/nikbrunner/linkvault/internal/search"
)

func runPicker(items []picker.Item, header string, multi bool) ([]int, error) {
	p := picker.New(items, header)
	if multi {
		p = picker.NewMulti(items, header)
	}
	return picker.Run(p)
}

func addCmd(a *app) *cobra.Command {
	var (
		in         normalize.Input
		notes      string
		importance int
		noFetch    bool
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a bookmark or update the one already stored at the url",
		Long: `Add stores url in a category. When the category already holds the url,
only the flags you pass overwrite the stored fields. Missing titles and
descriptions are fetched from the page unless --no-fetch is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.reconciler()
			if err != nil {
				return err
			}

			in.URL = args[0]
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}
			if cmd.Flags().Changed("importance") {
				in.Importance = &importance
			}

			var ex extract.Extractor
			if !noFetch {
				ex = a.extractor()
			}

			res, err := rec.StoreFromURL(cmd.Context(), a.category(in.Category), in, ex)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %s\n", res.Outcome, formatBookmark(res.Bookmark))
			if res.ExtractionErr != nil {
				fmt.Fprintf(w, "note: page content could not be fetched (%v)\n", res.ExtractionErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Category, "category", "c", "", "category (default from config)")
	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "bookmark title")
	cmd.Flags().StringSliceVar(&in.Tags, "tags", nil, "comma separated tags")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "short description")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes; pass an empty value to clear")
	cmd.Flags().IntVarP(&importance, "importance", "i", 0, "importance from 1 to 5")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "don't fetch missing metadata from the page")
	return cmd
}

func categoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories with their bookmark counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(cmd)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			categories := engine.ListCategories()
			if len(categories) == 0 {
				fmt.Fprintln(w, "No categories yet.")
				return nil
			}
			for _, c := range categories {
				fmt.Fprintf(w, "%-30s %d\n", c.Name, c.Count)
			}
			return nil
		},
	}
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <category>",
		Short: "List the bookmarks in a category, most important first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(cmd)
			if err != nil {
				return err
			}
			printBookmarks(cmd.OutOrStdout(), engine.ListByCategory(args[0]))
			return nil
		},
	}
}

func searchCmd(a *app) *cobra.Command {
	var fuzzy bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, urls, descriptions and notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(cmd)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			if !fuzzy {
				printBookmarks(cmd.OutOrStdout(), engine.Search(query))
				return nil
			}

			matches := engine.Fuzzy(query)
			bookmarks := make([]model.Bookmark, len(matches))
			for i, m := range matches {
				bookmarks[i] = *m.Bookmark
			}
			printBookmarks(cmd.OutOrStdout(), bookmarks)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&fuzzy, "fuzzy", "f", false, "fuzzy match titles and urls")
	return cmd
}

func tagsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags with their usage counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(cmd)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			tags := engine.ListTags()
			if len(tags) == 0 {
				fmt.Fprintln(w, "No tags yet.")
				return nil
			}
			for _, t := range tags {
				fmt.Fprintf(w, "%-30s %d\n", t.Tag, t.Count)
			}
			return nil
		},
	}
}

func tagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <tag>",
		Short: "List bookmarks carrying a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(cmd)
			if err != nil {
				return err
			}
			printBookmarks(cmd.OutOrStdout(), engine.ListByTag(args[0]))
			return nil
		},
	}
}

func findCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <query>",
		Short: "Fuzzy find a bookmark and open it in the browser",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(cmd)
			if err != nil {
				return err
			}

			matches := engine.Fuzzy(strings.Join(args, " "))
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No bookmarks match.")
				return nil
			}

			chosen := *matches[0].Bookmark
			if len(matches) > 1 {
				items := make([]picker.Item, len(matches))
				for i, m := range matches {
					items[i] = picker.Item{Title: m.Bookmark.Title, Detail: m.Bookmark.Category, URL: m.Bookmark.URL}
				}
				idx, err := a.pick(items, fmt.Sprintf("%d matches", len(matches)), false)
				if err != nil {
					return err
				}
				if len(idx) == 0 {
					return nil
				}
				chosen = *matches[idx[0]].Bookmark
			}
			return a.open(cmd, chosen)
		},
	}
}

func openCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "Open a stored bookmark in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(cmd)
			if err != nil {
				return err
			}

			url, err := normalize.URL(args[0])
			if err != nil {
				return err
			}

			lookup := engine.FindByURL(url, category)
			switch lookup.Kind {
			case search.LookupNone:
				return fmt.Errorf("%s: %w", url, model.ErrNotFound)
			case search.LookupAmbiguous:
				return &model.AmbiguousError{URL: url, Categories: lookup.Categories()}
			}
			return a.open(cmd, lookup.Bookmarks[0])
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category holding the url")
	return cmd
}

// open launches b in the browser and records the visit.
func (a *app) open(cmd *cobra.Command, b model.Bookmark) error {
	if err := a.openURL(b.URL); err != nil {
		return fmt.Errorf("open %s: %w", b.URL, err)
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}
	if err := repo.MarkVisited(cmd.Context(), b.Category, b.URL); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", b.URL)
	return nil
}

func deleteCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete a bookmark",
		Long: `Delete removes the bookmark at url. When the url is stored in more than
one category, pass --category to choose which one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}

			url, err := normalize.URL(args[0])
			if err != nil {
				return err
			}

			removed, err := repo.Delete(cmd.Context(), url, category)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from %q\n", removed.URL, removed.Category)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category holding the url")
	return cmd
}

func renameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}

			oldName, newName := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			moved, err := repo.RenameCategory(cmd.Context(), oldName, newName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q (%d bookmarks)\n", oldName, newName, moved)
			return nil
		},
	}
}

func delcatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delcat <category>",
		Short: "Delete a category and every bookmark in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}

			name, err := normalize.Category(args[0])
			if err != nil {
				return err
			}
			removed, err := repo.DeleteCategory(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %q and its %d bookmarks\n", name, removed)
			return nil
		},
	}
}

func (a *app) engine(cmd *cobra.Command) (*search.Engine, error) {
	repo, err := a.repository()
	if err != nil {
		return nil, err
	}
	store, err := repo.Snapshot(cmd.Context())
	if err != nil {
		return nil, err
	}
	return search.New(store), nil
}

func formatBookmark(b model.Bookmark) string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s [%s] %s", b.Title, b.Category, b.URL)
	if len(b.Tags) > 0 {
		fmt.Fprintf(&s, " #%s", strings.Join(b.Tags, " #"))
	}
	return s.String()
}

func printBookmarks(w io.Writer, bookmarks []model.Bookmark) {
	if len(bookmarks) == 0 {
		fmt.Fprintln(w, "No bookmarks match.")
		return
	}
	for _, b := range bookmarks {
		fmt.Fprintf(w, "%d  %s\n", b.Importance, formatBookmark(b))
		if b.Description != "" {
			fmt.Fprintf(w, "   %s\n", b.Description)
		}
	}
}

// outcomeError reports a rejected import candidate, if any.
func outcomeError(r reconcile.Result) error {
	if r.Outcome != reconcile.Rejected {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	return errors.New("rejected")
}
