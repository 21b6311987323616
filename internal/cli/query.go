package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/engine"
	"github.com/roach88/odataq/internal/entity"
	"github.com/roach88/odataq/internal/paging"
	"github.com/roach88/odataq/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Memory bool // ignore the configured database
}

// QueryResult is one page of a query.
type QueryResult struct {
	Source    string            `json:"source"` // "memory" or "database"
	Keys      []string          `json:"keys"`
	Entities  []json.RawMessage `json:"entities"`
	Count     *int              `json:"count,omitempty"`
	SkipToken string            `json:"skiptoken,omitempty"`
	NextLink  string            `json:"nextlink,omitempty"`
	ETags     []string          `json:"etags,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <request-file>",
		Short: "Run a request and print one page",
		Long: `Run the $filter, $orderby, $skip, $top, $skiptoken and $inlinecount
options of a request file against its data.

Without a database the entities are filtered, sorted and paged in memory.
With --database (or database in the config) the data is loaded into that
SQLite file and the request is pushed down when it compiles.

Examples:
  odataq query ./requests/adults.yaml
  odataq query ./requests/adults.yaml --page-size 50 --format json
  odataq query ./requests/adults.yaml --database ./people.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Memory, "memory", false, "evaluate in memory even if a database is configured")

	return cmd
}

func runQuery(opts *QueryOptions, requestFile string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	req, err := LoadRequest(requestFile)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.Progress("Loaded %d %s entities from %s", len(req.Entities), req.Set.Name, requestFile)

	engOpts := []engine.Option{
		engine.WithPageSize(cfg.PageSize),
		engine.WithTokenMode(cfg.Mode()),
		engine.WithLogger(logger),
	}

	source := "memory"
	var page *paging.PageResult
	if cfg.Database != "" && !opts.Memory {
		source = "database"
		st, err := store.Open(cfg.Database, logger)
		if err != nil {
			return formatter.Fail(&LoadError{Code: ErrCodeNotFound, Message: err.Error()})
		}
		defer st.Close()

		if err := st.CreateTable(ctx, req.Set); err != nil {
			return formatter.Fail(err)
		}
		if err := st.Insert(ctx, req.Set, entity.RecordAccessor{}, req.Entities); err != nil {
			return formatter.Fail(err)
		}
		formatter.Progress("Loaded data into %s", cfg.Database)

		eng := engine.New(entity.RecordAccessor{}, append(engOpts, engine.WithStore(st))...)
		page, err = eng.Execute(ctx, req.Set, nil, req.Options)
		if err != nil {
			return formatter.Fail(err)
		}
	} else {
		eng := engine.New(entity.RecordAccessor{}, engOpts...)
		page, err = eng.Query(ctx, req.Set, engine.MemorySource{req.Set.Name: req.Entities}, req.Options)
		if err != nil {
			return formatter.Fail(err)
		}
	}

	result, err := newQueryResult(req.Set, page, source)
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Emit(result)
}

func newQueryResult(set *edm.EntitySet, page *paging.PageResult, source string) (*QueryResult, error) {
	result := &QueryResult{
		Source:    source,
		Keys:      make([]string, len(page.Entities)),
		Entities:  make([]json.RawMessage, len(page.Entities)),
		Count:     page.Count,
		SkipToken: page.SkipToken,
		NextLink:  page.NextLink,
		ETags:     page.ETags,
	}
	for i, e := range page.Entities {
		key, err := entity.KeyString(entity.RecordAccessor{}, e, set.Type.Keys)
		if err != nil {
			return nil, err
		}
		data, err := edm.MarshalCanonicalJSON(e)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", key, err)
		}
		result.Keys[i] = key
		result.Entities[i] = data
	}
	return result, nil
}
