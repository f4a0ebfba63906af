package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/docql/internal/client"
	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/querydef"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Explain bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <definition-file>",
		Short: "Run a query definition",
		Long: `Run a query written as a YAML or CUE definition.

The query is folded (host-evaluable parts become constants), translated
to SQL and executed. With --explain the plan is printed instead: the
tree before and after folding, the captured failures and the generated
SQL with its parameters.

Examples:
  docql query adults.yaml
  docql query adults.cue --format json
  docql query adults.yaml --explain`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "print the query plan instead of running it")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	def, err := querydef.ParseFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, "failed to read query definition", err)
	}
	q, err := querydef.Node(def)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid query definition", err)
	}

	db, err := opts.openDB(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.Explain {
		plan, err := db.Explain(q)
		if err != nil {
			if f.Format == "json" {
				_ = f.Error(ErrCodeQueryFailed, err.Error(), plan)
				return WrapExitError(ExitFailure, "query failed", err)
			}
			writePlan(f, plan)
			return f.Fail(ExitFailure, ErrCodeQueryFailed, "query failed", err)
		}
		if f.Format == "json" {
			return f.Success(plan)
		}
		writePlan(f, plan)
		return nil
	}

	values, err := db.Query(ctx, q)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeQueryFailed, "query failed", err)
	}
	f.VerboseLog("%d result(s)", len(values))
	return f.Values(values)
}

func writePlan(f *OutputFormatter, plan *client.Plan) {
	w := f.Writer
	fmt.Fprintf(w, "original:  %s\n", plan.Original)
	fmt.Fprintf(w, "folded:    %s\n", plan.Folded)
	fmt.Fprintf(w, "evaluable: %d node(s), %d subtree(s) folded\n", plan.Evaluable, plan.FoldedCount)
	for _, failure := range plan.Failures {
		fmt.Fprintf(w, "failure:   %s\n", failure)
	}
	if plan.SQL == "" {
		return
	}
	fmt.Fprintf(w, "sql:       %s\n", strings.Join(strings.Fields(plan.SQL), " "))
	params := make([]string, len(plan.Params))
	for i, p := range plan.Params {
		data, err := doc.MarshalCanonical(p)
		if err != nil {
			params[i] = fmt.Sprint(p)
			continue
		}
		params[i] = string(data)
	}
	fmt.Fprintf(w, "params:    [%s]\n", strings.Join(params, ", "))
	fmt.Fprintf(w, "hash:      %s\n", plan.Hash)
}
