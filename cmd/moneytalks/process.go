package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/moneytalks-bot/moneytalks/internal/cli"
	"github.com/moneytalks-bot/moneytalks/internal/model"
)

func processCmd() *cobra.Command {
	var (
		memberID  int64
		username  string
		text      string
		audioPath string
		eventID   string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one event through the pipeline",
		Long: `Process a single transaction event: resolve the member's group, transcribe
audio if present, classify the text, validate the result, and append it to
the group's ledger sheet.

Examples:
  moneytalks process --member 100 --text "вчера потратил 1200 на продукты"
  moneytalks process --member 100 --audio voice.oga`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(text) == "" && audioPath == "" {
				return fmt.Errorf("either --text or --audio is required")
			}

			event := model.Event{
				ID:         eventID,
				MemberID:   memberID,
				Username:   username,
				Text:       text,
				ReceivedAt: time.Now().UTC(),
			}
			if event.ID == "" {
				event.ID = uuid.NewString()
			}

			if audioPath != "" {
				audio, err := os.ReadFile(audioPath)
				if err != nil {
					return fmt.Errorf("failed to read audio file: %w", err)
				}
				event.Audio = audio
				event.AudioName = filepath.Base(audioPath)
			}

			app, err := initPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			outcome := app.pipeline.ProcessEvent(cmd.Context(), event)
			renderOutcome(&outcome)

			if !outcome.Committed() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID the event belongs to (required)")
	cmd.Flags().StringVar(&username, "username", "", "display name recorded next to the ledger row")
	cmd.Flags().StringVar(&text, "text", "", "transaction text (skips transcription)")
	cmd.Flags().StringVar(&audioPath, "audio", "", "path to an audio file to transcribe")
	cmd.Flags().StringVar(&eventID, "event-id", "", "idempotency key (defaults to a fresh UUID)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func renderOutcome(outcome *model.Outcome) {
	if outcome.Committed() {
		renderCommitted(outcome)
		return
	}
	renderRejected(outcome)
}

func renderCommitted(outcome *model.Outcome) {
	tx := outcome.Record
	receipt := outcome.Receipt

	title := "Committed"
	if receipt.Duplicate {
		title = "Already committed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", cli.BoldStyle.Render(typeLabel(tx.Type)), tx.Category)
	fmt.Fprintf(&b, "%s %s\n", cli.BoldStyle.Render(fmt.Sprintf("%.2f", tx.Amount)), tx.Currency)
	fmt.Fprintf(&b, "%s (%s)", tx.Date.Format("2006-01-02"), tx.MonthLabel)
	if tx.DateInferred {
		b.WriteString(cli.SubtleStyle.Render("  date assumed"))
	}
	if tx.Comment != "" {
		fmt.Fprintf(&b, "\n%s", tx.Comment)
	}
	fmt.Fprintf(&b, "\n%s", cli.SubtleStyle.Render(fmt.Sprintf("%s row %d · %s", receipt.Section, receipt.Row, receipt.RowMarker)))

	fmt.Println(cli.RenderBox(fmt.Sprintf("%s %s", cli.MoneyIcon, title), b.String()))

	if receipt.Duplicate {
		fmt.Println(cli.FormatInfo("This event was already in the ledger; no new row was written."))
	}
}

func typeLabel(t model.TransactionType) string {
	if t == model.TypeIncome {
		return "Income"
	}
	return "Expense"
}

func renderRejected(outcome *model.Outcome) {
	rej := outcome.Reject

	fmt.Println(cli.FormatError(fmt.Sprintf("rejected at %s: %s", rej.Stage, rej.Reason)))
	if rej.Field != "" {
		detail := rej.Field
		if rej.Value != "" {
			detail = fmt.Sprintf("%s = %q", rej.Field, rej.Value)
		}
		fmt.Println(cli.SubtleStyle.Render("  " + detail))
	}

	switch rej.Kind {
	case model.RejectNotInGroup:
		fmt.Println(cli.FormatInfo("Join a group first: moneytalks groups create <sheet-url> --member <id>, or groups join <code> --member <id>"))
	case model.RejectPermission:
		fmt.Println(cli.FormatInfo("Share the spreadsheet with the service account, or re-run: moneytalks auth sheets"))
	case model.RejectConfiguration:
		fmt.Println(cli.FormatInfo("Check that the ledger sheet matches the expected template and the configuration is complete."))
	case model.RejectTransient:
		fmt.Println(cli.FormatInfo("Temporary failure; try the same event again."))
	}
}
