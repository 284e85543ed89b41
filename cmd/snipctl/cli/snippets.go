package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snipstash/snipstash-server/internal/client/listcache"
	"github.com/snipstash/snipstash-server/internal/client/optimistic"
	"github.com/snipstash/snipstash-server/internal/domain"
)

func newLoginCommand() *cobra.Command {
	var password string
	var save bool

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and obtain an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv("SNIPCTL_PASSWORD")
			}
			sess, err := s.client.Login(cmd.Context(), args[0], password)
			if err != nil {
				return explain(err)
			}
			if save {
				path, err := writeToken(sess.AccessToken)
				if err != nil {
					return fmt.Errorf("save token: %w", err)
				}
				fmt.Fprintf(s.out, "Logged in; token saved to %s (expires %s)\n", path, sess.ExpiresAt.Format("2006-01-02 15:04"))
				return nil
			}
			fmt.Fprintln(s.out, sess.AccessToken)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (default $SNIPCTL_PASSWORD)")
	cmd.Flags().BoolVar(&save, "save", true, "store the token in the config file")
	return cmd
}

// filterFlags are the listing flags shared by list and meta.
type filterFlags struct {
	search     string
	searchCode bool
	language   string
	categories []string
	favorites  bool
	pinned     bool
	recycled   bool
	sort       string
	public     bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.search, "search", "s", "", "match title, description or file name")
	fl.BoolVar(&f.searchCode, "code", false, "also match fragment code")
	fl.StringVarP(&f.language, "language", "l", "", "only snippets with a fragment in this language")
	fl.StringSliceVarP(&f.categories, "category", "c", nil, "require category (repeatable)")
	fl.BoolVar(&f.favorites, "favorites", false, "favorites only")
	fl.BoolVar(&f.pinned, "pinned", false, "pinned only")
	fl.BoolVar(&f.recycled, "recycled", false, "list the recycle bin")
	fl.StringVar(&f.sort, "sort", string(domain.SortNewest), "newest, oldest, alpha-asc or alpha-desc")
	fl.BoolVar(&f.public, "public", false, "browse public snippets from every user")
}

func (f *filterFlags) filter() domain.Filter {
	return domain.NewFilter().
		WithSearch(f.search).
		WithSearchCode(f.searchCode).
		WithLanguage(f.language).
		WithCategories(f.categories...).
		WithFavorites(f.favorites).
		WithPinned(f.pinned).
		WithRecycled(f.recycled).
		WithSort(domain.ParseSort(f.sort))
}

func (s *session) scopeFor(cmd *cobra.Command, public bool) (domain.Scope, error) {
	if public {
		return domain.PublicScope(), nil
	}
	if err := s.requireOwner(cmd.Context()); err != nil {
		return domain.Scope{}, err
	}
	return s.ownerScope(), nil
}

func newListCommand() *cobra.Command {
	var ff filterFlags
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snippets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			scope, err := s.scopeFor(cmd, ff.public)
			if err != nil {
				return err
			}

			key := listcache.NewKey(scope, ff.filter())
			var e *listcache.Entry
			if all {
				e, err = s.loader.LoadAll(cmd.Context(), key)
			} else {
				e, err = s.loader.Load(cmd.Context(), key)
			}
			if err != nil {
				return explain(err)
			}

			printList(s.out, e.Records(), e.Total(), e.HasMore())
			return nil
		},
	}

	ff.register(cmd)
	cmd.Flags().BoolVarP(&all, "all", "a", false, "keep loading pages until the listing is exhausted")
	return cmd
}

func newShowCommand() *cobra.Command {
	var public bool
	var raw string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a snippet and its fragments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			scope, err := s.scopeFor(cmd, public)
			if err != nil {
				return err
			}

			if raw != "" {
				code, err := s.client.RawFragment(cmd.Context(), scope, args[0], raw)
				if err != nil {
					return explain(err)
				}
				fmt.Fprint(s.out, code)
				return nil
			}

			sn, err := s.client.GetSnippet(cmd.Context(), scope, args[0])
			if err != nil {
				return explain(err)
			}
			printSnippet(s.out, sn)
			return nil
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "read through the public endpoint")
	cmd.Flags().StringVar(&raw, "raw", "", "print only this fragment's code")
	return cmd
}

// contentFlags are the writable snippet fields shared by create and edit.
type contentFlags struct {
	title       string
	description string
	public      bool
	categories  []string
	files       []string
	language    string
}

func (c *contentFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&c.title, "title", "t", "", "snippet title")
	fl.StringVarP(&c.description, "description", "d", "", "snippet description")
	fl.BoolVar(&c.public, "public", false, "make the snippet public")
	fl.StringSliceVarP(&c.categories, "category", "c", nil, "category (repeatable)")
	fl.StringSliceVarP(&c.files, "file", "f", nil, "source file to add as a fragment (repeatable)")
	fl.StringVarP(&c.language, "language", "l", "", "language for every fragment (default from extension)")
}

func (c *contentFlags) fragments() ([]domain.FragmentInput, error) {
	out := make([]domain.FragmentInput, 0, len(c.files))
	for _, path := range c.files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		lang := c.language
		if lang == "" {
			lang = languageFor(path)
		}
		out = append(out, domain.FragmentInput{
			FileName: filepath.Base(path),
			Language: lang,
			Code:     string(data),
		})
	}
	return out, nil
}

var extLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".rs":   "rust",
	".sql":  "sql",
	".sh":   "bash",
	".rb":   "ruby",
	".java": "java",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
}

func languageFor(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

func newCreateCommand() *cobra.Command {
	var cf contentFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a snippet from source files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frags, err := cf.fragments()
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			out, err := s.mutate(cmd.Context(), optimistic.Create(domain.SnippetInput{
				Title:       cf.title,
				Description: cf.description,
				IsPublic:    cf.public,
				Categories:  cf.categories,
				Fragments:   frags,
			}))
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, out.ID)
			return nil
		},
	}

	cf.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newEditCommand() *cobra.Command {
	var cf contentFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a snippet's content",
		Long:  "Fetches the snippet, overrides the fields given as flags and saves it. Passing --file replaces every fragment.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			if err := s.requireOwner(cmd.Context()); err != nil {
				return err
			}
			cur, err := s.client.GetSnippet(cmd.Context(), s.ownerScope(), args[0])
			if err != nil {
				return explain(err)
			}

			in := inputFrom(cur)
			fl := cmd.Flags()
			if fl.Changed("title") {
				in.Title = cf.title
			}
			if fl.Changed("description") {
				in.Description = cf.description
			}
			if fl.Changed("public") {
				in.IsPublic = cf.public
			}
			if fl.Changed("category") {
				in.Categories = cf.categories
			}
			if fl.Changed("file") {
				if in.Fragments, err = cf.fragments(); err != nil {
					return err
				}
			}

			out, err := s.mutate(cmd.Context(), optimistic.Edit(args[0], in))
			if err != nil {
				return err
			}
			printSnippet(s.out, out.Record)
			return nil
		},
	}

	cf.register(cmd)
	return cmd
}

func inputFrom(sn *domain.Snippet) domain.SnippetInput {
	in := domain.SnippetInput{
		Title:       sn.Title,
		Description: sn.Description,
		IsPublic:    sn.IsPublic,
		Categories:  sn.Categories,
	}
	for _, f := range sn.Fragments {
		in.Fragments = append(in.Fragments, domain.FragmentInput{FileName: f.FileName, Language: f.Language, Code: f.Code})
	}
	return in
}

func newFlagCommand(use, short string, mutation func(id string, on bool) optimistic.Mutation) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			out, err := s.mutate(cmd.Context(), mutation(args[0], !off))
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s pinned=%t favorite=%t\n", out.ID, out.Record.IsPinned, out.Record.IsFavorite)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "clear the flag instead of setting it")
	return cmd
}

func newPinCommand() *cobra.Command {
	return newFlagCommand("pin", "Pin a snippet", optimistic.SetPinned)
}

func newFavoriteCommand() *cobra.Command {
	return newFlagCommand("favorite", "Mark a snippet as favorite", optimistic.SetFavorite)
}

func newLifecycleCommand(use, short, done string, mutation func(id string) optimistic.Mutation) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			out, err := s.mutate(cmd.Context(), mutation(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s %s\n", out.ID, done)
			return nil
		},
	}
}

func newRecycleCommand() *cobra.Command {
	return newLifecycleCommand("recycle", "Move a snippet to the recycle bin", "recycled", optimistic.Recycle)
}

func newRestoreCommand() *cobra.Command {
	return newLifecycleCommand("restore", "Restore a snippet from the recycle bin", "restored", optimistic.Restore)
}

func newDeleteCommand() *cobra.Command {
	return newLifecycleCommand("delete", "Permanently delete a recycled snippet", "deleted", optimistic.Delete)
}

func newMetaCommand() *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:   "meta",
		Short: "List the categories and languages in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			scope, err := s.scopeFor(cmd, public)
			if err != nil {
				return err
			}
			md, err := s.client.Metadata(cmd.Context(), scope)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(s.out, "categories: %s\n", strings.Join(md.Categories, ", "))
			fmt.Fprintf(s.out, "languages:  %s\n", strings.Join(md.Languages, ", "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "public snippets from every user")
	return cmd
}
