package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/spf13/cobra"
)

type options struct {
	edits []string
	table bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "taskingctl",
		Short:         "Inspect tasking record stores offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringArrayVarP(&opts.edits, "edit", "e", nil,
		`edit to apply before the command, as ROW:FIELD=VALUE (e.g. 1:assignee=bob); repeatable`)

	rowsCmd := &cobra.Command{
		Use:   "rows <store.json|->",
		Short: "Build tree rows from a record store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, warnings, err := loadRows(cmd.InOrStdin(), args[0], opts.edits)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: record %s: %s\n", warningID(w), w.Reason)
			}
			if opts.table {
				return writeTable(cmd.OutOrStdout(), rows)
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	rowsCmd.Flags().BoolVar(&opts.table, "table", false, "print a text table instead of JSON")

	var imageID string
	aggregateCmd := &cobra.Command{
		Use:   "aggregate <store.json|->",
		Short: "Print the aggregate assignee of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := tasking.NewID(imageID)
			if !ok {
				return fmt.Errorf("--image: %w: %q", tasking.ErrInvalidID, imageID)
			}
			rows, _, err := loadRows(cmd.InOrStdin(), args[0], opts.edits)
			if err != nil {
				return err
			}
			idx, ok := tasking.Index(rows)[id]
			if !ok || !rows[idx].IsImage() {
				return fmt.Errorf("image %s: %w", id, tasking.ErrRowNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tasking.AggregateAssignee(rows, id))
			return nil
		},
	}
	aggregateCmd.Flags().StringVar(&imageID, "image", "", "image row id")
	_ = aggregateCmd.MarkFlagRequired("image")

	var selected []string
	assembleCmd := &cobra.Command{
		Use:   "assemble <store.json|->",
		Short: "Print the assign-tasks and update-priority payloads for a selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]tasking.ID, 0, len(selected))
			for _, raw := range selected {
				id, ok := tasking.NewID(raw)
				if !ok {
					return fmt.Errorf("--select: %w: %q", tasking.ErrInvalidID, raw)
				}
				ids = append(ids, id)
			}
			rows, _, err := loadRows(cmd.InOrStdin(), args[0], opts.edits)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tasking.Assemble(rows, ids))
		},
	}
	assembleCmd.Flags().StringSliceVarP(&selected, "select", "s", nil, "selected row ids, comma separated")

	root.AddCommand(rowsCmd, aggregateCmd, assembleCmd)
	return root
}

// loadRows reads a record store, builds rows and applies edits in order.
func loadRows(stdin io.Reader, path string, edits []string) ([]tasking.Row, []tasking.Warning, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read record store: %w", err)
	}

	store, warnings, err := tasking.DecodeStore(data)
	if err != nil {
		return nil, nil, err
	}
	rows, buildWarnings := tasking.BuildRows(store)
	rows = tasking.RefreshAggregates(rows)
	warnings = append(warnings, buildWarnings...)

	for _, raw := range edits {
		edit, err := parseEdit(raw)
		if err != nil {
			return nil, nil, err
		}
		rows, err = tasking.ApplyEdit(rows, edit)
		if err != nil {
			return nil, nil, fmt.Errorf("edit %q: %w", raw, err)
		}
	}
	return rows, warnings, nil
}

func parseEdit(raw string) (tasking.Edit, error) {
	row, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return tasking.Edit{}, fmt.Errorf("edit %q: want ROW:FIELD=VALUE", raw)
	}
	field, value, ok := strings.Cut(rest, "=")
	if !ok {
		return tasking.Edit{}, fmt.Errorf("edit %q: want ROW:FIELD=VALUE", raw)
	}
	id, ok := tasking.NewID(row)
	if !ok {
		return tasking.Edit{}, fmt.Errorf("edit %q: %w", raw, tasking.ErrInvalidID)
	}
	return tasking.Edit{RowID: id, Field: tasking.Field(strings.ToLower(field)), Value: value}, nil
}

func warningID(w tasking.Warning) string {
	if w.RecordID != "" {
		return string(w.RecordID)
	}
	return w.Key
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, rows []tasking.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tASSIGNEE\tPRIORITY")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, strings.Join(r.GroupName, " / "), r.Assignee, r.Priority)
	}
	return tw.Flush()
}
