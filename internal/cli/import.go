package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/docstore"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Create      bool
	Overwrite   bool
	OnDuplicate string
	Complete    bool
	Details     bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <collection> <file>",
		Short: "Bulk-import documents into a collection",
		Long: `Import documents from a file in a single transaction.

Files ending in .json or .jsonl hold JSON documents: a top-level array,
or a stream of objects. Anything else is read as YAML: a list of
documents, or one document per YAML document. Use - to read YAML from
stdin.

Examples:
  docql import users users.json --create
  docql import users users.yaml --on-duplicate update --details
  docql import users users.jsonl --overwrite --complete --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.Create, "create", false, "create the collection if it does not exist")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "remove existing documents first")
	cmd.Flags().StringVar(&opts.OnDuplicate, "on-duplicate", "error", "policy for existing keys (error|update|replace|ignore)")
	cmd.Flags().BoolVar(&opts.Complete, "complete", false, "import nothing if any document fails")
	cmd.Flags().BoolVar(&opts.Details, "details", false, "report a message for every failed document")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command, coll, path string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	policy, err := docstore.ParseDuplicatePolicy(opts.OnDuplicate)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid --on-duplicate", err)
	}

	docs, err := readDocuments(cmd, path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, "failed to read documents", err)
	}
	f.VerboseLog("Read %d document(s) from %s", len(docs), path)

	db, err := opts.openDB(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.Collection(coll).Import(ctx, docs, docstore.ImportOptions{
		CreateCollection: opts.Create,
		Overwrite:        opts.Overwrite,
		OnDuplicate:      policy,
		Complete:         opts.Complete,
		Details:          opts.Details,
	})
	if err != nil {
		if f.Format == "json" && errors.Is(err, docstore.ErrImportIncomplete) {
			_ = f.Error(ErrCodeImportFailed, err.Error(), res)
			return WrapExitError(ExitFailure, "import failed", err)
		}
		if docstore.IsNotFound(err) {
			return f.Fail(ExitFailure, ErrCodeNotFound, "import failed", err)
		}
		return f.Fail(ExitFailure, ErrCodeImportFailed, "import failed", err)
	}

	if f.Format == "json" {
		return f.Success(res)
	}
	fmt.Fprintf(f.Writer, "created: %d, updated: %d, ignored: %d, empty: %d, errors: %d\n",
		res.Created, res.Updated, res.Ignored, res.Empty, res.Errors)
	for _, d := range res.Details {
		fmt.Fprintf(f.Writer, "  %s\n", d)
	}
	return nil
}

// readDocuments loads the documents in path; "-" reads stdin.
func readDocuments(cmd *cobra.Command, path string) ([]doc.Object, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl":
		return decodeJSONDocuments(data)
	}
	return decodeYAMLDocuments(data)
}

func decodeJSONDocuments(data []byte) ([]doc.Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var docs []doc.Object
	for i := 0; ; i++ {
		var raw any
		err := dec.Decode(&raw)
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		if docs, err = appendDocuments(docs, raw); err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
	}
}

func decodeYAMLDocuments(data []byte) ([]doc.Object, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []doc.Object
	for i := 0; ; i++ {
		var raw any
		err := dec.Decode(&raw)
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if docs, err = appendDocuments(docs, raw); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}
}

// appendDocuments adds raw to docs: a list contributes each element, a null
// contributes an empty document, an object contributes itself.
func appendDocuments(docs []doc.Object, raw any) ([]doc.Object, error) {
	if list, ok := raw.([]any); ok {
		for i, item := range list {
			if _, nested := item.([]any); nested {
				return nil, fmt.Errorf("[%d]: nested lists are not documents", i)
			}
			var err error
			if docs, err = appendDocuments(docs, item); err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return docs, nil
	}
	if raw == nil {
		return append(docs, nil), nil
	}
	obj, err := doc.NormalizeObject(raw)
	if err != nil {
		return nil, err
	}
	return append(docs, obj), nil
}
