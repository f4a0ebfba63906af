package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/docql/internal/docstore"
)

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage collections",
		Long: `List, create and drop collections.

Examples:
  docql collections list
  docql collections create users
  docql collections drop users --format json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List collections with their document counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionsList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "create <name>",
		Short:         "Create an empty collection",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionsCreate(rootOpts, cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "drop <name>",
		Short:         "Drop a collection and all of its documents",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionsDrop(rootOpts, cmd, args[0])
		},
	})

	return cmd
}

func runCollectionsList(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	db, err := opts.openDB(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer db.Close()

	infos, err := db.Collections(ctx)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to list collections", err)
	}

	if f.Format == "json" {
		return f.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(f.Writer, "No collections")
		return nil
	}
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{info.Name, strconv.FormatInt(info.Count, 10)}
	}
	f.Table([]string{"name", "count"}, rows)
	return nil
}

func runCollectionsCreate(opts *RootOptions, cmd *cobra.Command, name string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	db, err := opts.openDB(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.CreateCollection(ctx, name); err != nil {
		if errors.Is(err, docstore.ErrCollectionExists) {
			return f.Fail(ExitFailure, ErrCodeConflict, "failed to create collection", err)
		}
		return f.Fail(ExitFailure, ErrCodeInvalidInput, "failed to create collection", err)
	}

	if f.Format == "json" {
		return f.Success(docstore.CollectionInfo{Name: name})
	}
	fmt.Fprintf(f.Writer, "Created collection %s\n", name)
	return nil
}

func runCollectionsDrop(opts *RootOptions, cmd *cobra.Command, name string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	db, err := opts.openDB(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DropCollection(ctx, name); err != nil {
		return failStore(f, "failed to drop collection", err)
	}

	if f.Format == "json" {
		return f.Success(map[string]string{"dropped": name})
	}
	fmt.Fprintf(f.Writer, "Dropped collection %s\n", name)
	return nil
}
