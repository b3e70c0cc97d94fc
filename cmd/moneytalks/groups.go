package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moneytalks-bot/moneytalks/internal/cli"
	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/sheets"
)

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage ledger groups",
		Long: `Create, join, and inspect the groups that share a ledger spreadsheet.

A member belongs to at most one group at a time. To switch groups, leave
the current one first, then join or create another.`,
	}

	cmd.AddCommand(createGroupCmd())
	cmd.AddCommand(joinGroupCmd())
	cmd.AddCommand(leaveGroupCmd())
	cmd.AddCommand(inviteGroupCmd())
	cmd.AddCommand(showGroupCmd())
	cmd.AddCommand(setLanguageCmd())
	cmd.AddCommand(setCurrencyCmd())

	return cmd
}

func createGroupCmd() *cobra.Command {
	var (
		memberID int64
		title    string
	)

	cmd := &cobra.Command{
		Use:   "create <sheet-url-or-id>",
		Short: "Create a group around a ledger spreadsheet",
		Long: `Create a new group with you as owner and sole member.

The argument is either a bare spreadsheet id or a full Google Sheets URL;
the id is extracted automatically.

Example:
  moneytalks groups create "https://docs.google.com/spreadsheets/d/1Bxi.../edit" --member 100 --title "Family budget"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spreadsheetID := sheets.ExtractSpreadsheetID(args[0])
			if spreadsheetID == "" {
				return fmt.Errorf("could not extract a spreadsheet id from %q", args[0])
			}

			store, err := initGroupStore()
			if err != nil {
				return err
			}

			group, err := store.CreateGroup(cmd.Context(), title, spreadsheetID, memberID)
			if err != nil {
				if errors.Is(err, common.ErrAlreadyInGroup) {
					return fmt.Errorf("member %d already belongs to a group; run 'moneytalks groups leave --member %d' first", memberID, memberID)
				}
				return fmt.Errorf("failed to create group: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Group %q created", group.Title)))
			fmt.Println(renderGroup(group))
			fmt.Println(cli.FormatInfo("Invite others with: moneytalks groups invite --member " + fmt.Sprint(memberID)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID of the group owner (required)")
	cmd.Flags().StringVar(&title, "title", "", "group title (defaults to \"Family budget\")")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func joinGroupCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a group by invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initGroupStore()
			if err != nil {
				return err
			}

			group, err := store.JoinByInvite(cmd.Context(), args[0], memberID)
			if err != nil {
				switch {
				case errors.Is(err, common.ErrInvalidInvite):
					return fmt.Errorf("invite code %q is not valid; ask a group member for a fresh one", strings.TrimSpace(args[0]))
				case errors.Is(err, common.ErrAlreadyInGroup):
					return fmt.Errorf("member %d already belongs to a group; run 'moneytalks groups leave --member %d' first", memberID, memberID)
				default:
					return fmt.Errorf("failed to join group: %w", err)
				}
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Joined %q (%d members)", group.Title, len(group.Members))))
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "joining member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func leaveGroupCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Leave your current group",
		Long: `Leave the group you belong to.

If you own the group, leaving deletes it for everyone; other members lose
their membership and the invite code stops working. The spreadsheet itself
is never touched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initGroupStore()
			if err != nil {
				return err
			}

			group, err := store.GroupForMember(cmd.Context(), memberID)
			if err != nil {
				if errors.Is(err, common.ErrNotInGroup) {
					return fmt.Errorf("member %d does not belong to any group", memberID)
				}
				return err
			}

			wasOwner := group.OwnerID == memberID
			if err := store.RemoveMember(cmd.Context(), group.ID, memberID); err != nil {
				return fmt.Errorf("failed to leave group: %w", err)
			}

			if wasOwner {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("You owned %q, so the group was deleted for all %d members", group.Title, len(group.Members))))
			} else {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Left %q", group.Title)))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "leaving member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func inviteGroupCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Issue a fresh invite code for your group",
		Long: `Generate a new invite code for your group.

The code can be shared with any number of people and stays valid until the
next 'groups invite' replaces it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initGroupStore()
			if err != nil {
				return err
			}

			group, err := store.GroupForMember(cmd.Context(), memberID)
			if err != nil {
				if errors.Is(err, common.ErrNotInGroup) {
					return fmt.Errorf("member %d does not belong to any group", memberID)
				}
				return err
			}

			code, err := store.IssueInvite(cmd.Context(), group.ID)
			if err != nil {
				return fmt.Errorf("failed to issue invite: %w", err)
			}

			fmt.Println(cli.RenderBox(cli.MoneyIcon+" Invite code", cli.BoldStyle.Render(code)))
			fmt.Println(cli.FormatInfo("Others join with: moneytalks groups join " + code + " --member <their-id>"))
			if group.InviteCode != "" {
				fmt.Println(cli.SubtleStyle.Render("  The previous code no longer works."))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "requesting member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func showGroupCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your group's configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initGroupStore()
			if err != nil {
				return err
			}

			group, err := store.GroupForMember(cmd.Context(), memberID)
			if err != nil {
				if errors.Is(err, common.ErrNotInGroup) {
					return fmt.Errorf("member %d does not belong to any group", memberID)
				}
				return err
			}

			fmt.Println(cli.RenderBox(cli.MoneyIcon+" "+group.Title, renderGroup(group)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func setLanguageCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "set-language <lang>",
		Short: "Set the language used for month labels and relative dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initGroupStore()
			if err != nil {
				return err
			}

			group, err := store.GroupForMember(cmd.Context(), memberID)
			if err != nil {
				if errors.Is(err, common.ErrNotInGroup) {
					return fmt.Errorf("member %d does not belong to any group", memberID)
				}
				return err
			}

			if err := store.SetLanguage(cmd.Context(), group.ID, args[0]); err != nil {
				return fmt.Errorf("failed to set language: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Language for %q set to %s", group.Title, strings.ToLower(strings.TrimSpace(args[0])))))
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func setCurrencyCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "set-currency <code>",
		Short: "Set the default currency for transactions without one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initGroupStore()
			if err != nil {
				return err
			}

			group, err := store.GroupForMember(cmd.Context(), memberID)
			if err != nil {
				if errors.Is(err, common.ErrNotInGroup) {
					return fmt.Errorf("member %d does not belong to any group", memberID)
				}
				return err
			}

			if err := store.SetCurrency(cmd.Context(), group.ID, args[0]); err != nil {
				return fmt.Errorf("failed to set currency: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Default currency for %q set to %s", group.Title, strings.ToUpper(strings.TrimSpace(args[0])))))
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func renderGroup(group *model.Group) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s https://docs.google.com/spreadsheets/d/%s\n", cli.BoldStyle.Render("Sheet:"), group.SpreadsheetID)
	fmt.Fprintf(&b, "%s %d (owner %d)\n", cli.BoldStyle.Render("Members:"), len(group.Members), group.OwnerID)

	language := group.Language
	if language == "" {
		language = "ru " + cli.SubtleStyle.Render("(default)")
	}
	fmt.Fprintf(&b, "%s %s\n", cli.BoldStyle.Render("Language:"), language)

	currency := group.Currency
	if currency == "" {
		currency = "USD " + cli.SubtleStyle.Render("(default)")
	}
	fmt.Fprintf(&b, "%s %s\n", cli.BoldStyle.Render("Currency:"), currency)

	invite := group.InviteCode
	if invite == "" {
		invite = cli.SubtleStyle.Render("none issued")
	}
	fmt.Fprintf(&b, "%s %s\n", cli.BoldStyle.Render("Invite:"), invite)
	fmt.Fprintf(&b, "%s %s", cli.BoldStyle.Render("Created:"), group.CreatedAt.Format("2006-01-02"))

	return b.String()
}
