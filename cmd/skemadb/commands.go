package main

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/skemadb"
	"github.com/reoring/skemadb/keypath"
)

// errNotFound is returned by get when nothing is stored at the key.
var errNotFound = errors.New("not found")

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key> [path...]",
		Short: "Print the value stored at a key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, found, err := a.coll.Get(cmd.Context(), args[0], args[1:]...)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s: %w", args[0], errNotFound)
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <json> [path...]",
		Short: "Validate and store a value",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[1])
			if err != nil {
				return err
			}
			out, err := a.coll.Set(cmd.Context(), args[0], v, args[2:]...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [key] [path...]",
		Short: "Delete a document or a property inside it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				n, err := a.coll.DeleteAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			}
			if len(args) == 0 {
				return errors.New("delete needs a key or --all")
			}
			ok, err := a.coll.Delete(cmd.Context(), args[0], args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every document in the namespace")
	return cmd
}

func newPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push <key> <json> [path...]",
		Short: "Append to the array stored at a key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[1])
			if err != nil {
				return err
			}
			out, err := a.coll.Push(cmd.Context(), args[0], v, args[2:]...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newPullCmd(a *app) *cobra.Command {
	var one bool
	cmd := &cobra.Command{
		Use:   "pull <key> <json> [path...]",
		Short: "Remove matching elements from the array stored at a key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pull := a.coll.Pull
			if one {
				pull = a.coll.PullOne
			}
			v, err := parseValue(args[1])
			if err != nil {
				return err
			}
			out, pulled, err := pull(cmd.Context(), args[0], v, args[2:]...)
			if err != nil {
				return err
			}
			if !pulled {
				fmt.Fprintln(cmd.OutOrStdout(), false)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&one, "one", false, "remove only the first match")
	return cmd
}

func newAllCmd(a *app) *cobra.Command {
	var (
		limit int
		by    string
		desc  bool
	)
	cmd := &cobra.Command{
		Use:   "all",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := skemadb.AllOptions{Max: limit}
			if by != "" || desc {
				opts.Sort = &skemadb.Sort{Target: keypath.Segments(by)}
				if desc {
					opts.Sort.Direction = skemadb.Descending
				}
			}
			docs, err := a.coll.All(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []skemadb.Document{}
			}
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().IntVar(&limit, "max", 0, "maximum number of documents (0 = all)")
	cmd.Flags().StringVar(&by, "sort", "", "dotted value path to sort by (default: id)")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.coll.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.coll.Export(cmd.Context())
			if err != nil {
				return err
			}
			if snap.Data == nil {
				snap.Data = []skemadb.Document{}
			}
			if file == "" {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			b, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(file, b, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d documents to %s\n", len(snap.Data), file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "output file (default: stdout)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Validate and load documents from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			if iss := skemadb.DetectDuplicateKeys(b); iss != nil {
				return fmt.Errorf("parse import: %w", iss)
			}
			var snap skemadb.Export
			if err := json.Unmarshal(b, &snap); err != nil {
				return fmt.Errorf("parse import: %w", err)
			}
			n, err := a.coll.Import(cmd.Context(), snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents\n", n)
			return nil
		},
	}
}

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Measure store latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.coll.Latency(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "latency %s\n", d)
			return nil
		},
	}
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [path]",
		Short: "Print the loaded schema, or the part at a dotted path, as JSON Schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := a.schema
			if len(args) == 1 {
				var ok bool
				if f, ok = a.schema.At(keypath.Segments(args[0])); !ok {
					return fmt.Errorf("schema: %q is not declared", args[0])
				}
			}
			return printJSON(cmd.OutOrStdout(), f.JSONSchema())
		},
	}
}
