package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stockroom/internal/core"
)

const userAgent = "inventoryctl"

func (a *app) cmdContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return core.WithOrigin(ctx, core.Origin{UserAgent: userAgent})
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// report prints a transaction result and turns a rejection into an error
// carrying the rejected exit code.
func (a *app) report(res core.Result) error {
	if a.jsonOutput() {
		if err := a.printJSON(res); err != nil {
			return err
		}
	} else if res.Success {
		fmt.Fprintln(a.out, res.Message)
	}
	if !res.Success {
		return &rejectedError{res: res}
	}
	return nil
}

func rejected(err error) core.Result {
	um := core.MapError(err)
	return core.Result{Success: false, Message: um.Message, Code: um.Code, Err: err}
}

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := a.service.Categories(a.cmdContext(cmd))
			if a.jsonOutput() {
				return a.printJSON(refs)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOKEN\tNAME")
			for _, ref := range refs {
				fmt.Fprintf(tw, "%s\t%s\n", ref.Sanitized, ref.Original)
			}
			return tw.Flush()
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <category>",
		Short: "Print a category's rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, grid, ok := a.service.Grid(a.cmdContext(cmd), args[0])
			if !ok {
				return a.report(rejected(core.ErrCategoryNotFound))
			}

			values := grid.Values()
			if a.jsonOutput() {
				return a.printJSON(values)
			}
			if len(values) == 0 {
				fmt.Fprintln(a.out, "(empty)")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for i, row := range values {
				// Row numbers match the row index accepted by add --row.
				fmt.Fprintf(tw, "%d\t%s\n", i+1, strings.Join(row, "\t"))
			}
			return tw.Flush()
		},
	}
}

type stockFunc func(ctx context.Context, category, itemID string, quantity int) core.Result

func (a *app) sell(ctx context.Context, category, itemID string, quantity int) core.Result {
	return a.service.ApplySale(ctx, category, itemID, quantity)
}

func (a *app) restock(ctx context.Context, category, itemID string, quantity int) core.Result {
	return a.service.ApplyRestock(ctx, category, itemID, quantity)
}

func (a *app) stockCmd(use, short string, apply stockFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <category> <item-id> <quantity>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := core.ParseQuantity(args[2])
			if err != nil {
				return a.report(rejected(err))
			}
			return a.report(apply(a.cmdContext(cmd), args[0], args[1], qty))
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	var (
		header string
		row    int
	)
	cmd := &cobra.Command{
		Use:   "add <category> <value>...",
		Short: "Add, merge or overwrite an entry",
		Long: `Add writes one row. Values are given in column order.

A row whose identifier or item name matches an existing row adds its stock to
that row; otherwise the row is appended. With --row the row at that position
(as printed by show) is overwritten. A category that does not exist yet is
created with the columns given by --header.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if row < 0 {
				return a.report(rejected(fmt.Errorf("%w: %d", core.ErrInvalidRowIndex, row)))
			}
			req := core.EntryRequest{
				Category: args[0],
				Values:   args[1:],
				RowIndex: row,
			}
			if header != "" {
				for _, h := range strings.Split(header, ",") {
					req.Header = append(req.Header, strings.TrimSpace(h))
				}
			}
			return a.report(a.service.ApplyEntry(a.cmdContext(cmd), req))
		},
	}
	cmd.Flags().StringVar(&header, "header", "", "comma-separated column names for a new category")
	cmd.Flags().IntVar(&row, "row", 0, "row to overwrite, counting the header as 1")
	return cmd
}

func (a *app) deleteEntryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-entry <category> <item-id>",
		Short: "Delete one entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.report(a.service.DeleteEntry(a.cmdContext(cmd), args[0], args[1]))
		},
	}
}

// confirmed guards destructive commands behind --yes.
func confirmed(cmd *cobra.Command) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("%s is destructive; pass --yes to confirm", cmd.Name())
	}
	return nil
}

func (a *app) clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <category>",
		Short: "Delete every entry of a category, keeping its header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirmed(cmd); err != nil {
				return err
			}
			return a.report(a.service.DeleteAll(a.cmdContext(cmd), args[0]))
		},
	}
	cmd.Flags().Bool("yes", false, "confirm the deletion")
	return cmd
}

func (a *app) deleteCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-category <category>",
		Short: "Delete a category and all of its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirmed(cmd); err != nil {
				return err
			}
			return a.report(a.service.DeleteCategory(a.cmdContext(cmd), args[0]))
		},
	}
	cmd.Flags().Bool("yes", false, "confirm the deletion")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the store and snapshot state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.service.Status()
			if a.jsonOutput() {
				return a.printJSON(st)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "store\t%s\n", st.Store)
			fmt.Fprintf(tw, "categories\t%d\n", st.Categories)
			fmt.Fprintf(tw, "loaded at\t%s\n", st.LoadedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(tw, "stale\t%t\n", st.Stale)
			if st.LastError != "" {
				fmt.Fprintf(tw, "last error\t%s\n", st.LastError)
			}
			fmt.Fprintf(tw, "serialize writes\t%t\n", st.SerializeWrites)
			return tw.Flush()
		},
	}
}
