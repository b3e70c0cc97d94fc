package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moneytalks-bot/moneytalks/internal/cli"
	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/registry"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect the categories your ledger accepts",
		Long: `List or refresh the category set read from your group's spreadsheet.

Categories come from the data-validation rules on the ledger sheets, so
editing the dropdowns in the spreadsheet is how you change them. The set
is cached; run 'categories refresh' after editing the sheet.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(refreshCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories accepted by your group's ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			group, reg, err := initRegistry(ctx, memberID)
			if err != nil {
				return err
			}

			specs, err := reg.CategoriesFor(ctx, group)
			if err != nil {
				return fmt.Errorf("failed to read categories: %w", err)
			}

			if len(specs) == 0 {
				fmt.Println(cli.FormatWarning("The ledger sheets define no categories; check the dropdown validation in the spreadsheet."))
				return nil
			}

			printCategories(specs)
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func refreshCategoriesCmd() *cobra.Command {
	var memberID int64

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-read categories from the spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			group, reg, err := initRegistry(ctx, memberID)
			if err != nil {
				return err
			}

			if err := reg.Refresh(ctx, group); err != nil {
				return fmt.Errorf("failed to refresh categories: %w", err)
			}

			specs, err := reg.CategoriesFor(ctx, group)
			if err != nil {
				return fmt.Errorf("failed to read categories: %w", err)
			}

			income, expense := splitByType(specs)
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Categories refreshed: %d income, %d expense", len(income), len(expense))))
			return nil
		},
	}

	cmd.Flags().Int64Var(&memberID, "member", 0, "member ID (required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

// initRegistry resolves the member's group and wires a registry over a
// fresh sheets client.
func initRegistry(ctx context.Context, memberID int64) (*model.Group, *registry.Registry, error) {
	store, err := initGroupStore()
	if err != nil {
		return nil, nil, err
	}

	group, err := store.GroupForMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, common.ErrNotInGroup) {
			return nil, nil, fmt.Errorf("member %d does not belong to any group", memberID)
		}
		return nil, nil, err
	}

	client, cfg, err := initSheetsClient(ctx)
	if err != nil {
		return nil, nil, err
	}

	return group, registry.New(client, cfg.Sections(), slog.Default()), nil
}

func printCategories(specs []model.CategorySpec) {
	income, expense := splitByType(specs)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\n", cli.TableHeaderStyle.Render("Income"), cli.TableHeaderStyle.Render("Expense"))
	for i := 0; i < len(income) || i < len(expense); i++ {
		var in, ex string
		if i < len(income) {
			in = income[i]
		}
		if i < len(expense) {
			ex = expense[i]
		}
		fmt.Fprintf(w, "%s\t%s\n", in, ex)
	}
}

func splitByType(specs []model.CategorySpec) (income, expense []string) {
	for _, spec := range specs {
		if spec.Type == model.TypeIncome {
			income = append(income, spec.Name)
		} else {
			expense = append(expense, spec.Name)
		}
	}
	return income, expense
}
