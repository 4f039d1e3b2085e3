package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/restq/go-restq/core/query"
	"github.com/restq/go-restq/postgrest"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Method  string
	Decoded bool
}

// queryFile is the YAML description of one query.
type queryFile struct {
	Resource   string       `yaml:"resource"`
	Single     bool         `yaml:"single"`
	Select     []string     `yaml:"select"`
	Filters    []filterSpec `yaml:"filters"`
	Order      []orderSpec  `yaml:"order"`
	Limit      *int         `yaml:"limit"`
	Offset     int          `yaml:"offset"`
	Count      string       `yaml:"count"`
	Returning  string       `yaml:"returning"`
	Resolution string       `yaml:"resolution"`
	OnConflict string       `yaml:"on_conflict"`
	Missing    string       `yaml:"missing"`
	Profile    string       `yaml:"profile"`
	Columns    []string     `yaml:"columns"`
}

type filterSpec struct {
	Column  string `yaml:"column"`
	Op      string `yaml:"op"`
	Value   any    `yaml:"value"`
	Values  []any  `yaml:"values"`
	Negated bool   `yaml:"negated"`
}

type orderSpec struct {
	Column    string `yaml:"column"`
	Direction string `yaml:"direction"`
	Nulls     string `yaml:"nulls"`
	Top       bool   `yaml:"top"`
}

// compileOutput is the JSON shape of a compiled query.
type compileOutput struct {
	Resource    string              `json:"resource"`
	QueryString string              `json:"query_string"`
	Headers     map[string][]string `json:"headers"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query.yaml>",
		Short: "Compile a query description to its URL grammar and headers",
		Long: `Compile a YAML query description into the query string and request
headers that the target API expects. Build-time errors in the description
(malformed selectors, misplaced modifiers) are reported with a non-zero
exit status.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Method, "method", http.MethodGet, "request method used for header composition")
	cmd.Flags().BoolVar(&opts.Decoded, "decoded", false, "emit the human-readable, percent-decoded query string")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read query description: %w", err)
	}

	var file queryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse query description: %w", err)
	}
	if file.Resource == "" {
		return fmt.Errorf("query description must name a resource")
	}

	q, err := buildQuery(&file)
	if err != nil {
		return err
	}

	qs, err := postgrest.QueryString(q, postgrest.Options{Encoded: !opts.Decoded})
	if err != nil {
		return err
	}
	headers := postgrest.RequestHeaders(q, opts.Method, nil)

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(compileOutput{
			Resource:    q.Resource(),
			QueryString: qs,
			Headers:     headers,
		})
	}

	fmt.Fprintf(out, "resource: %s\n", q.Resource())
	fmt.Fprintf(out, "query:    %s\n", qs)
	for key, values := range headers {
		for _, v := range values {
			fmt.Fprintf(out, "header:   %s: %s\n", key, v)
		}
	}
	return nil
}

// buildQuery translates the file description into a Query value.
func buildQuery(file *queryFile) (*query.Query, error) {
	q := query.New(file.Resource)

	if len(file.Select) > 0 {
		selectors := make([]query.Selector, 0, len(file.Select))
		for _, s := range file.Select {
			selectors = append(selectors, parseSelector(s))
		}
		q = q.Select(selectors...)
	}

	for _, f := range file.Filters {
		op := query.FilterOperator(f.Op)
		if !op.IsStandard() {
			return nil, fmt.Errorf("unknown filter operator %q", f.Op)
		}
		target := q
		if f.Negated {
			target = q.Not()
		}
		if op == query.FilterOperatorIn {
			q = target.In(f.Column, f.Values...)
		} else {
			entry := query.FilterEntry{Column: f.Column, Value: f.Value}
			q = applyFilter(target, op, entry)
		}
	}

	if len(file.Order) > 0 {
		sorts := make([]query.Sort, 0, len(file.Order))
		for _, o := range file.Order {
			s := query.Sort{
				Column:    o.Column,
				Direction: query.SortDirection(o.Direction),
				Nulls:     query.NullsPosition(o.Nulls),
				TopLevel:  o.Top,
			}
			sorts = append(sorts, s)
		}
		q = q.Order(sorts...)
	}

	if file.Limit != nil {
		q = q.Limit(*file.Limit)
	}
	if file.Offset != 0 {
		q = q.Offset(file.Offset)
	}
	if file.Count != "" {
		q = q.Count(query.CountMode(file.Count))
	}
	if file.Returning != "" {
		q = q.Returning(query.ReturnMode(file.Returning))
	}
	if file.Resolution != "" {
		if file.OnConflict != "" {
			q = q.OnConflict(query.ConflictResolution(file.Resolution), file.OnConflict)
		} else {
			q = q.OnConflict(query.ConflictResolution(file.Resolution))
		}
	}
	if file.Missing != "" {
		q = q.Missing(query.MissingPolicy(file.Missing))
	}
	if file.Profile != "" {
		q = q.Profile(file.Profile)
	}
	if len(file.Columns) > 0 {
		q = q.Columns(file.Columns...)
	}
	if file.Single {
		q = q.Single()
	}

	return q, nil
}

func applyFilter(q *query.Query, op query.FilterOperator, e query.FilterEntry) *query.Query {
	switch op {
	case query.FilterOperatorEq:
		return q.Eq(e.Column, e.Value)
	case query.FilterOperatorGt:
		return q.Gt(e.Column, e.Value)
	case query.FilterOperatorGte:
		return q.Gte(e.Column, e.Value)
	case query.FilterOperatorLt:
		return q.Lt(e.Column, e.Value)
	case query.FilterOperatorLte:
		return q.Lte(e.Column, e.Value)
	case query.FilterOperatorNeq:
		return q.Neq(e.Column, e.Value)
	case query.FilterOperatorLike:
		return q.Like(e.Column, fmt.Sprintf("%v", e.Value))
	case query.FilterOperatorILike:
		return q.ILike(e.Column, fmt.Sprintf("%v", e.Value))
	default:
		return q.Is(e.Column, e.Value)
	}
}

// parseSelector understands the short selector notation used in query
// descriptions: "*", "col", "alias:col", "col::cast", "alias:col::cast"
// and arrow paths such as "data->attrs->>color".
func parseSelector(s string) query.Selector {
	rename := ""
	if i := strings.Index(s, ":"); i > 0 && i+1 < len(s) && s[i+1] != ':' {
		rename = s[:i]
		s = s[i+1:]
	}
	cast := ""
	if i := strings.Index(s, "::"); i >= 0 {
		cast = s[i+2:]
		s = s[:i]
	}

	var sel query.Selector
	switch {
	case s == "*":
		sel = query.Star()
	case strings.Contains(s, "->"):
		sel = query.Path(s)
	default:
		sel = query.Col(s)
	}
	if rename != "" {
		sel = sel.As(rename)
	}
	if cast != "" {
		sel = sel.WithCast(cast)
	}
	return sel
}
