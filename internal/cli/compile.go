package cli

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/odataq/internal/config"
	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	All bool // compile for every dialect
}

// CompiledQuery is a request compiled for one dialect. Either the SQL
// fields or Error are set.
type CompiledQuery struct {
	Dialect  string    `json:"dialect"`
	Where    string    `json:"where,omitempty"`
	Select   string    `json:"select,omitempty"`
	Bindings []string  `json:"bindings,omitempty"` // URI literals, in placeholder order
	Count    string    `json:"count,omitempty"`
	Error    *CLIError `json:"error,omitempty"`
}

// CompileReport holds one CompiledQuery per requested dialect. It fails
// when any dialect cannot express the request.
type CompileReport []CompiledQuery

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request-file>",
		Short: "Compile a request to parameterized SQL",
		Long: `Compile the $filter and $orderby of a request file to a WHERE fragment
and a full SELECT statement for the configured dialect.

Literals are never inlined: every literal becomes a positional ?n
placeholder, and bindings are printed as URI literals.

Exit codes:
  0 - Compiled for every requested dialect
  1 - Some dialect cannot express the request (--all)
  2 - Command error or the request does not compile

Examples:
  odataq compile ./requests/adults.yaml
  odataq compile ./requests/adults.yaml --dialect jpql --alias P
  odataq compile ./requests/adults.yaml --all --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "compile for every dialect")

	return cmd
}

func runCompile(opts *CompileOptions, requestFile string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	req, err := LoadRequest(requestFile)
	if err != nil {
		return formatter.Fail(err)
	}

	dialects := []*querysql.Dialect{cfg.SQLDialect()}
	if opts.All {
		dialects = dialects[:0]
		for _, name := range slices.Sorted(maps.Keys(querysql.Dialects)) {
			dialects = append(dialects, querysql.Dialects[name])
		}
	}

	var results CompileReport
	for _, d := range dialects {
		formatter.Progress("Compiling %s for %s", req.Set.Name, d.Name)
		compiled, err := compileRequest(d, cfg, logger, req)
		if err != nil {
			if !opts.All {
				return formatter.Fail(err)
			}
			code, message := errorCode(err)
			compiled = CompiledQuery{Dialect: d.Name, Error: &CLIError{Code: code, Message: message}}
		}
		results = append(results, compiled)
	}

	return formatter.Emit(results)
}

func compileRequest(d *querysql.Dialect, cfg *config.Config, logger *slog.Logger, req *LoadedRequest) (CompiledQuery, error) {
	out := CompiledQuery{Dialect: d.Name}
	q := querysql.SelectQuery{
		Set:     req.Set,
		Alias:   cfg.Alias,
		Filter:  req.Options.Filter,
		OrderBy: req.Options.OrderBy,
		Skip:    req.Options.Skip,
		Top:     req.Options.Top,
	}

	if q.Filter != nil {
		where, _, err := d.Compile(q.Filter, cfg.Alias)
		if err != nil {
			return out, err
		}
		out.Where = where
	}

	compiler := querysql.NewCompiler(d, logger)
	stmt, err := compiler.CompileSelect(q)
	if err != nil {
		return out, err
	}
	out.Select = stmt.SQL
	out.Bindings = uriLiterals(stmt.Bindings)

	if req.Options.InlineCount {
		count, err := compiler.CompileCount(q)
		if err != nil {
			return out, err
		}
		out.Count = count.SQL
	}
	return out, nil
}

func uriLiterals(values []edm.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = edm.URILiteral(v)
	}
	return out
}
