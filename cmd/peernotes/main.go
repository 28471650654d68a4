package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/peernotes/peernotes/internal/client"
	"github.com/peernotes/peernotes/internal/feed"
	"github.com/peernotes/peernotes/internal/logging"
	"github.com/peernotes/peernotes/internal/notes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const previewChars = 80

func main() {
	if err := newRootCommand(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

// session wires the API client to the feed cache for one command run.
type session struct {
	api     *client.Client
	cache   *feed.Cache
	console *feed.AdminConsole
	out     io.Writer
}

func newRootCommand(settings *viper.Viper) *cobra.Command {
	settings.SetEnvPrefix("PEERNOTES")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	root := &cobra.Command{
		Use:           "peernotes",
		Short:         "Browse and share PeerNotes from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("api-url", client.DefaultBaseURL, "PeerNotes API base URL")
	root.PersistentFlags().String("state-file", defaultStateFile(), "File that remembers liked and reported notes")
	root.PersistentFlags().String("log-level", "error", "Log level (debug, info, warn, error)")
	for _, name := range []string{"api-url", "state-file", "log-level"} {
		if err := settings.BindPFlag(name, root.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	open := func(cmd *cobra.Command) (*session, error) {
		return openSession(settings, cmd.OutOrStdout())
	}

	root.AddCommand(
		newBrowseCommand(open),
		newShowCommand(open),
		newPostCommand(open),
		newLikeCommand(open),
		newReportCommand(open),
		newStatsCommand(open),
		newCatalogCommand(open),
		newAdminCommand(open),
	)
	return root
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "peernotes-state.json"
	}
	return filepath.Join(dir, "peernotes", "state.json")
}

func openSession(settings *viper.Viper, out io.Writer) (*session, error) {
	logger, err := logging.NewLogger(settings.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	api, err := client.New(client.Config{BaseURL: settings.GetString("api-url")})
	if err != nil {
		return nil, err
	}

	state, err := feed.OpenStateFile(settings.GetString("state-file"))
	if err != nil {
		return nil, err
	}

	notifier := feed.NewNotifier(feed.NotifierConfig{
		OnToast: func(toast feed.Toast) { fmt.Fprintf(out, "» %s\n", toast.Message) },
	})
	cache, err := feed.NewCache(feed.CacheConfig{
		API:      api,
		Liked:    state.Liked(),
		Reported: state.Reported(),
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	console, err := feed.NewAdminConsole(feed.AdminConfig{API: api, Cache: cache, Notifier: notifier, Logger: logger})
	if err != nil {
		return nil, err
	}
	return &session{api: api, cache: cache, console: console, out: out}, nil
}

type sessionOpener func(cmd *cobra.Command) (*session, error)

func parseID(raw string) (int64, error) {
	id, err := notes.ParseNoteID(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid note id %q", raw)
	}
	return id.Int64(), nil
}

func newBrowseCommand(open sessionOpener) *cobra.Command {
	var (
		subject string
		tag     string
		search  string
		order   string
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List notes with optional filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sortOrder, ok := feed.ParseSortOrder(order)
			if !ok {
				return fmt.Errorf("unknown sort order %q (use popular or newest)", order)
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			if err := s.cache.Load(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load notes: %w", err)
			}
			s.cache.SetFilter(feed.Filter{Subject: subject, Tag: tag, Search: search, Sort: sortOrder})
			visible := s.cache.Visible()
			if len(visible) == 0 {
				fmt.Fprintln(s.out, "No notes found. Try adjusting your search or filter, or be the first to post!")
				return nil
			}
			s.printNotes(visible)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", notes.FilterAll, "Only notes for this subject code")
	cmd.Flags().StringVar(&tag, "tag", notes.FilterAll, "Only notes with this tag")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive text in title or content")
	cmd.Flags().StringVar(&order, "sort", string(feed.SortPopular), "Sort order: popular or newest")
	return cmd
}

func newShowCommand(open sessionOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			note, err := s.api.GetNote(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "#%d %s\n", note.ID, note.Title)
			fmt.Fprintf(s.out, "%s · %s · %d likes · %s\n\n", note.Subject, strings.Join(note.Tags, ", "), note.Likes, note.CreatedAt.Local().Format(time.RFC822))
			fmt.Fprintln(s.out, note.Content)
			return nil
		},
	}
}

func newPostCommand(open sessionOpener) *cobra.Command {
	var (
		title    string
		subject  string
		tags     []string
		content  string
		fromFile string
	)
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Share a new note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromFile != "" {
				raw, err := os.ReadFile(fromFile)
				if err != nil {
					return err
				}
				content = string(raw)
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			created, err := s.cache.Post(cmd.Context(), client.NewNote{
				Title:   title,
				Subject: subject,
				Content: content,
				Tags:    tags,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "posted note #%d\n", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject code, for example CS333")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&content, "content", "", "Markdown content")
	cmd.Flags().StringVar(&fromFile, "file", "", "Read Markdown content from a file")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newLikeCommand(open sessionOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like a note once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			switch s.cache.Like(cmd.Context(), id) {
			case feed.OutcomeSkipped:
				fmt.Fprintf(s.out, "note #%d is already liked\n", id)
			case feed.OutcomeConfirmed:
				if note, ok := s.cache.Note(id); ok {
					fmt.Fprintf(s.out, "note #%d now has %d likes\n", id, note.Likes)
				} else {
					fmt.Fprintf(s.out, "liked note #%d\n", id)
				}
			case feed.OutcomeRolledBack:
				return fmt.Errorf("like was not recorded")
			}
			return nil
		},
	}
}

func newReportCommand(open sessionOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "report <id>",
		Short: "Report a note for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			if s.cache.Report(cmd.Context(), id) == feed.OutcomeRolledBack {
				return fmt.Errorf("report was not recorded")
			}
			return nil
		},
	}
}

func newStatsCommand(open sessionOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show moderation statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			stats, err := s.api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "Visible notes\t%d\n", stats.VisibleNotes)
			fmt.Fprintf(writer, "Removed by admin\t%d\n", stats.AdminRemoved)
			fmt.Fprintf(writer, "Blocked by moderation\t%d\n", stats.AutoModerated)
			return writer.Flush()
		},
	}
}

func newCatalogCommand(open sessionOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List subjects and tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			catalog, err := s.api.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			for _, subject := range catalog.Subjects {
				fmt.Fprintf(writer, "%s\t%s\n", subject.Code, subject.Name)
			}
			if err := writer.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "\nTags: %s\n", strings.Join(catalog.Tags, ", "))
			return nil
		},
	}
}

func newAdminCommand(open sessionOpener) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Review reported notes",
	}
	admin.AddCommand(&cobra.Command{
		Use:   "reports",
		Short: "List reported notes, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			if err := s.console.Load(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load reports: %w", err)
			}
			reports := s.console.Reports()
			if len(reports) == 0 {
				fmt.Fprintln(s.out, "No reported notes.")
				return nil
			}
			writer := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tSUBJECT\tTITLE\tREPORTED")
			for _, entry := range reports {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", entry.NoteID, entry.Subject, entry.Title, entry.ReportedAt.Local().Format(time.RFC822))
			}
			return writer.Flush()
		},
	})
	admin.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a note and its reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			return s.console.Delete(cmd.Context(), id)
		},
	})
	return admin
}

func (s *session) printNotes(list []notes.Note) {
	writer := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tLIKES\tSUBJECT\tTITLE\tPREVIEW")
	for _, note := range list {
		marker := ""
		if s.cache.IsLiked(note.ID) {
			marker = " ♥"
		}
		fmt.Fprintf(writer, "%d\t%d%s\t%s\t%s\t%s\n", note.ID, note.Likes, marker, note.Subject, note.Title, preview(note.Content))
	}
	_ = writer.Flush()
}

func preview(content string) string {
	flattened := strings.Join(strings.Fields(content), " ")
	runes := []rune(flattened)
	if len(runes) <= previewChars {
		return flattened
	}
	return string(runes[:previewChars]) + "…"
}
