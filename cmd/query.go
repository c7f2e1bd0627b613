package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/config"
	"github.com/oakwood-commons/fleetgrid/internal/demo"
	"github.com/oakwood-commons/fleetgrid/internal/expr"
	"github.com/oakwood-commons/fleetgrid/internal/loader"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
)

const demoSeed = 42

// sourceFlags pick where rows come from. With neither set the backend is
// queried.
type sourceFlags struct {
	file        string
	demoRows    int
	columnsFile string
}

func (s *sourceFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&s.file, "file", "f", "", "load rows from a JSON, NDJSON, YAML or TOML file (- for stdin) instead of the backend")
	fs.IntVar(&s.demoRows, "demo", 0, "generate this many demo rows locally instead of calling the backend")
	fs.StringVar(&s.columnsFile, "columns-file", "", "YAML file holding saved column layouts")
}

func (s *sourceFlags) local() bool { return s.file != "" || s.demoRows > 0 }

// stdin is where --file - reads from.
var stdin io.Reader = os.Stdin

func (s *sourceFlags) rows(res resources.Resource) ([]grid.Row, error) {
	switch s.file {
	case "":
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return loader.LoadRows(data, loader.FormatAuto)
	default:
		return loader.LoadFile(s.file)
	}
	return demo.NewStore(demoSeed, s.demoRows).Rows(res.Name), nil
}

// queryFlags are the sort, filter and paging options shared by list and
// export.
type queryFlags struct {
	sourceFlags
	where  []string
	conds  conditionsFlag
	values valuesFlag
	search string
	sort   string
	page   int
	limit  int
}

func (q *queryFlags) register(fs *pflag.FlagSet, defaultLimit int) {
	q.sourceFlags.register(fs)
	fs.StringArrayVar(&q.where, "where", nil, "CEL row predicate, e.g. 'row.battery < 20' (local rows only, repeatable)")
	fs.Var(&q.conds, "filter", "condition filter field:operator[:value], e.g. name:contains:north (repeatable)")
	fs.Var(&q.values, "in", "value filter field=a,b,c (repeatable)")
	fs.StringVarP(&q.search, "search", "s", "", "free-text search")
	fs.StringVar(&q.sort, "sort", "", "sort field, optionally field:asc|desc or -field")
	fs.IntVar(&q.page, "page", 1, "page number")
	fs.IntVar(&q.limit, "limit", defaultLimit, "rows per page (0 for all rows)")
}

// listQuery converts the flags into a backend query.
func (q *queryFlags) listQuery() (api.ListQuery, error) {
	if len(q.where) > 0 {
		return api.ListQuery{}, fmt.Errorf("--where needs local rows (--file or --demo)")
	}
	s, err := parseSort(q.sort)
	if err != nil {
		return api.ListQuery{}, err
	}
	return api.ListQuery{
		Page:    q.page,
		Limit:   q.limit,
		Sort:    s,
		Search:  q.search,
		Filters: api.EncodeFilters(q.conds.Conditions(), q.values.Filters()),
	}, nil
}

// buildGrid returns a grid holding the requested page. Local rows are
// filtered, sorted and paged by the grid itself; backend rows arrive already
// paged and the grid only records the totals.
func (q *queryFlags) buildGrid(ctx context.Context, res resources.Resource) (*grid.Grid, error) {
	lgr := logger.WithValues(logger.FromContext(ctx), logger.ResourceKey, res.Name)
	opts := []grid.Option{
		grid.WithPageSize(q.limit),
		grid.WithLocale(cfg.Locale()),
		grid.WithContext(ctx),
	}
	if !q.local() {
		opts = append(opts, grid.WithMode(grid.ServerMode))
	} else {
		search := q.search
		opts = append(opts, grid.WithPredicate(func(r grid.Row) bool { return res.Matches(r, search) }))
		if len(q.where) > 0 {
			pred, err := compileWhere(q.where)
			if err != nil {
				return nil, err
			}
			opts = append(opts, grid.WithPredicate(pred))
		}
	}
	g, err := grid.New(res.Columns, opts...)
	if err != nil {
		return nil, err
	}
	if q.columnsFile != "" {
		states, err := config.LoadColumnStates(q.columnsFile, res.Name)
		if err != nil {
			return nil, err
		}
		g.ApplyColumnStates(states)
	}

	if !q.local() {
		lq, err := q.listQuery()
		if err != nil {
			return nil, err
		}
		client, err := newClient(ctx)
		if err != nil {
			return nil, err
		}
		result, err := client.List(ctx, res.Name, lq)
		if err != nil {
			return nil, err
		}
		lgr.V(1).Info("page fetched", "rows", len(result.Rows), "total", result.Pagination.Total)
		g.SetRows(result.Rows)
		g.SetTotalRows(result.Pagination.Total)
		g.GoToPage(max(result.Pagination.Page, 1))
		return g, nil
	}

	rows, err := q.rows(res)
	if err != nil {
		return nil, err
	}
	g.SetRows(rows)
	for _, c := range q.conds.Conditions() {
		if err := g.SetCondition(c); err != nil {
			return nil, err
		}
	}
	for _, v := range q.values.Filters() {
		if err := g.SetValueFilter(v); err != nil {
			return nil, err
		}
	}
	s, err := parseSort(q.sort)
	if err != nil {
		return nil, err
	}
	if err := g.SetSort(s); err != nil {
		return nil, err
	}
	if q.page > 1 {
		if last := max(g.Pager().TotalPages(), 1); q.page > last {
			return nil, fmt.Errorf("page %d is out of range (1-%d)", q.page, last)
		}
		g.GoToPage(q.page)
	}
	lgr.V(1).Info("rows filtered", "rows", len(rows), "matching", g.TotalRows())
	return g, nil
}

func compileWhere(srcs []string) (grid.Predicate, error) {
	ev, err := expr.NewEvaluator()
	if err != nil {
		return nil, err
	}
	preds := make([]*expr.Predicate, 0, len(srcs))
	for _, src := range srcs {
		p, err := ev.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("--where %q: %w", src, err)
		}
		preds = append(preds, p)
	}
	return expr.All(preds...), nil
}
