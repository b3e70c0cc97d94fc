package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moneytalks-bot/moneytalks/internal/cli"
	"github.com/moneytalks-bot/moneytalks/internal/common"
)

func historyCmd() *cobra.Command {
	var (
		memberID int64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ledger commits",
		Long: `List the most recent rows this installation committed to your group's
ledger, newest first. The marker in the last column identifies the row for
'history undo'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initGroupStore()
			if err != nil {
				return err
			}

			group, err := store.GroupForMember(ctx, memberID)
			if err != nil {
				if errors.Is(err, common.ErrNotInGroup) {
					return fmt.Errorf("member %d does not belong to any group", memberID)
				}
				return err
			}

			journal, err := initJournal(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = journal.Close() }()

			entries, err := journal.RecentCommits(ctx, group.ID, limit)
			if err != nil {
				return fmt.Errorf("failed to read commit history: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println(cli.FormatInfo("No commits recorded yet. Run 'moneytalks process' to add one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Date"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("Sheet"),
				cli.TableHeaderStyle.Render("Marker"))
			for _, e := range entries {
				comment := e.Comment
				if comment != "" {
					comment = "  " + cli.SubtleStyle.Render(comment)
				}
				fmt.Fprintf(w, "%s\t%s%s\t%.2f %s\t%s\t%s\n",
					e.TxDate.Format("2006-01-02"),
					e.Category, comment,
					e.Amount, e.Currency,
					e.Section,
					e.RowMarker)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of commits to show")
	_ = cmd.MarkFlagRequired("member")

	cmd.AddCommand(undoCmd())

	return cmd
}

func undoCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "undo <marker>",
		Short: "Delete a committed row from the ledger",
		Long: `Remove the ledger row identified by its marker and forget the commit
locally, so the same event could be processed again.

Markers come from 'moneytalks history' or from the output of a commit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			marker := args[0]

			store, err := initGroupStore()
			if err != nil {
				return err
			}

			journal, err := initJournal(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = journal.Close() }()

			entry, err := journal.FindByMarker(ctx, marker)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("no commit with marker %q in the local journal", marker)
				}
				return err
			}

			group, err := store.Group(ctx, entry.GroupID)
			if err != nil {
				return fmt.Errorf("failed to resolve the commit's group: %w", err)
			}
			if !group.HasMember(memberID) {
				return fmt.Errorf("member %d does not belong to the group that owns this row", memberID)
			}

			client, _, err := initSheetsClient(ctx)
			if err != nil {
				return err
			}

			err = client.DeleteRowByMarker(ctx, group.SpreadsheetID, entry.Section, marker)
			switch {
			case errors.Is(err, common.ErrNotFound):
				// Row already gone from the sheet; still drop the journal
				// record so the key frees up.
				fmt.Println(cli.FormatWarning("Row was already missing from the sheet; cleaning up the local record."))
			case err != nil:
				return fmt.Errorf("failed to delete ledger row: %w", err)
			}

			if err := journal.DeleteCommit(ctx, entry.Key); err != nil {
				return fmt.Errorf("row deleted, but the local record remains: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Undid %s %.2f %s from %s",
				entry.Category, entry.Amount, entry.Currency, entry.TxDate.Format("2006-01-02"))))
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}
