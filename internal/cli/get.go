package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/docql/internal/doc"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <key>",
		Short: "Print a single document",
		Long: `Print a document with its _key and _rev attributes.

Examples:
  docql get users ada
  docql get users 0192f0c1-8e7a-7c3e-9d1a-3b5c6d7e8f90 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runGet(opts *RootOptions, cmd *cobra.Command, coll, key string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	db, err := opts.openDB(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := db.Collection(coll).Get(ctx, key)
	if err != nil {
		return failStore(f, "failed to get document", err)
	}

	if f.Format == "json" {
		return f.Success(d.Object())
	}
	data, err := doc.MarshalCanonical(d.Object())
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to render document", err)
	}
	fmt.Fprintln(f.Writer, string(data))
	return nil
}
