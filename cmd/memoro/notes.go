package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/memoro/internal/cli"
	"github.com/hyperjump/memoro/internal/models"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var (
		summary  string
		tags     []string
		noEnrich bool
	)
	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Capture a note (reads stdin when no text is given)",
		Long: `Capture a note. By default the note is summarized, tagged and embedded.
With --no-enrich the summary and tags given on the command line are stored as is.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := noteText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()

			var id int64
			if noEnrich || summary != "" || len(tags) > 0 {
				id, err = s.comp.Notes.Create(cmd.Context(), models.NoteInput{Content: content, Summary: summary, Tags: tags})
			} else {
				var n *models.Note
				if n, err = s.comp.Notes.Capture(cmd.Context(), content); err == nil {
					id = n.ID
				}
			}
			if err != nil {
				return err
			}
			return printCreated(cmd.OutOrStdout(), s.format, id)
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "summary to store instead of generating one")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags to store instead of generating them")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "skip summary and tag generation")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			n, err := s.comp.Notes.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return cli.WriteNote(cmd.OutOrStdout(), n, s.format)
		},
	}
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var (
		content string
		summary string
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's content, summary or tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := cmd.Context()
			n, err := s.comp.Notes.Get(ctx, id)
			if err != nil {
				return err
			}
			upd := models.NoteUpdate{Content: n.Content, Summary: n.Summary, Tags: n.Tags}
			if cmd.Flags().Changed("content") {
				upd.Content = content
			}
			if cmd.Flags().Changed("summary") {
				upd.Summary = summary
			}
			if cmd.Flags().Changed("tags") {
				upd.Tags = tags
			}
			if err := s.comp.Notes.Update(ctx, id, upd); err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), s.format, id, "updated")
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&summary, "summary", "", "new summary")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "new comma-separated tags")
	return cmd
}

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.comp.Notes.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), s.format, id, "deleted")
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var byDay bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			if byDay {
				days, err := s.comp.Notes.ListGroupedByDay(cmd.Context())
				if err != nil {
					return err
				}
				return cli.WriteDays(cmd.OutOrStdout(), days, s.format)
			}
			all, err := s.comp.Notes.List(cmd.Context())
			if err != nil {
				return err
			}
			return cli.WriteNotes(cmd.OutOrStdout(), all, s.format)
		},
	}
	cmd.Flags().BoolVar(&byDay, "by-day", false, "group notes by calendar day")
	return cmd
}

func newReembedCmd(opts *rootOptions) *cobra.Command {
	var (
		all   bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "reembed [id]",
		Short: "Embed one note again, or every note without an embedding (--all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("give either a note id or --all")
			}
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := cmd.Context()
			if all {
				embedded, failed, err := s.comp.Notes.Backfill(ctx, limit)
				if err != nil {
					return err
				}
				if s.format == cli.OutputJSON {
					return cli.WriteJSON(cmd.OutOrStdout(), map[string]int{"embedded": embedded, "failed": failed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Embedded %d notes (%d failed)\n", embedded, failed)
				return nil
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := s.comp.Notes.Reembed(ctx, id, nil); err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), s.format, id, "embedded")
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "embed every note that has no embedding")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum notes to embed with --all (0 = no limit)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|dir>...",
		Short: "Capture files (txt, md, rst, pdf, docx, xlsx) as notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			total := 0
			var firstErr error
			for _, p := range args {
				info, err := os.Stat(p)
				if err != nil {
					return err
				}
				if info.IsDir() {
					n, err := s.comp.Notes.CaptureDirectory(ctx, p)
					total += n
					if err != nil && firstErr == nil {
						firstErr = err
					}
					continue
				}
				n, err := s.comp.Notes.CaptureFile(ctx, p)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				if n == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: already captured\n", p)
					continue
				}
				total++
			}
			if s.format == cli.OutputJSON {
				if err := cli.WriteJSON(out, map[string]int{"imported": total}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Imported %d notes\n", total)
			}
			return firstErr
		},
	}
}

func noteText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", s)
	}
	return id, nil
}

func printCreated(w io.Writer, format cli.OutputFormat, id int64) error {
	if format == cli.OutputJSON {
		return cli.WriteJSON(w, map[string]int64{"id": id})
	}
	fmt.Fprintf(w, "Note %d saved\n", id)
	return nil
}

func printStatus(w io.Writer, format cli.OutputFormat, id int64, status string) error {
	if format == cli.OutputJSON {
		return cli.WriteJSON(w, map[string]any{"id": id, "status": status})
	}
	fmt.Fprintf(w, "Note %d %s\n", id, status)
	return nil
}
