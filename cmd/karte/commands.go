package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/session"
)

func listCmd(o *options) *cobra.Command {
	var (
		limit  int
		search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recently updated kartes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			items, err := c.ListRecent(cmd.Context(), domain.ListQuery{Limit: limit, Search: search})
			if err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), items, search)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", domain.ListLimit, "maximum rows")
	cmd.Flags().StringVarP(&search, "search", "s", "", "show only rows whose list columns contain this text")
	return cmd
}

func printList(w io.Writer, items []domain.KarteListItem, search string) error {
	if search = strings.TrimSpace(search); search != "" && len(items) == 0 {
		_, err := fmt.Fprintln(w, domain.NoMatchText(search))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tカルテNo\t担当者\t団体名\t出発日\t人数\t更新\t編集中")
	now := time.Now()
	for _, it := range items {
		editing := len(domain.PruneEditors(it.Editors, now, domain.EditorTTL))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Info.KarteNo, it.Info.StaffName, it.Info.ClientOrg,
			it.Info.DepartureDate, it.Info.PersonCount, it.LastUpdated.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(editing))
	}
	return tw.Flush()
}

func exportCmd(o *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Download a karte as an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			file, err := c.Export(cmd.Context(), id)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = filepath.Base(file.Name)
			}
			if err := os.WriteFile(path, file.Content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default: server-suggested name)")
	return cmd
}

func deleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a karte",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			return c.Delete(cmd.Context(), id)
		},
	}
}

// printNotifier writes notifications and, after each one, the current
// figures of the watched karte.
type printNotifier struct {
	w io.Writer
	s *session.Session
}

func (p *printNotifier) Notify(level session.Level, message string) {
	prefix := "info"
	switch level {
	case session.LevelWarn:
		prefix = "warn"
	case session.LevelError:
		prefix = "error"
	}
	fmt.Fprintf(p.w, "[%s] %s [%s]\n", time.Now().Format("15:04:05"), message, prefix)
	if p.s != nil && level != session.LevelError {
		printSummary(p.w, p.s)
	}
}

func printSummary(w io.Writer, s *session.Session) {
	sum := s.Summary()
	b := s.Basic()
	fmt.Fprintf(w, "  %s %s  入金 %s / 支払 %s / 利益 %s (%s) / 一人粗利 %s  編集中 %d\n",
		b.KarteNo, b.ClientOrg,
		domain.FormatNumber(sum.PaymentTotal), domain.FormatNumber(sum.ExpenseTotal),
		domain.FormatNumber(sum.Profit), s.RateText(),
		domain.FormatNumber(float64(sum.ProfitPerPerson)), len(s.Editors()))
}

func watchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Open a karte as an editor and print changes until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			ident, err := o.loadIdentity()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			n := &printNotifier{w: cmd.OutOrStdout()}
			s := session.New(c, ident, session.WithNotifier(n), session.WithLogger(o.logger()))
			n.s = s
			// Close unregisters the editor, so it must outlive the signal ctx.
			defer func() {
				if cerr := s.Close(context.WithoutCancel(ctx)); err == nil {
					err = cerr
				}
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "%s として参加します\n", ident.Name)
			if err := s.Load(ctx, id); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
}
