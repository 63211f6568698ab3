package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/ngrok/sqlmw"
	"github.com/prometheus/client_golang/prometheus"
)

// instrumentedPostgresDriver is the pgx driver wrapped by queryMetrics.
const instrumentedPostgresDriver = "pgx-instrumented"

var (
	statementRegex = regexp.MustCompile(`^\s*(\w+)`)

	dbOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: "pipeline",
		Name:      "db_op_duration_milliseconds",
		Help:      "Time spent on a database operation",
		Buckets:   []float64{5, 25, 100, 300, 1000, 5000},
	}, []string{"op", "statement"})

	dbOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "pipeline",
		Name:      "db_op_total",
		Help:      "Number of database operations",
	}, []string{"op", "result"})
)

func init() {
	prometheus.MustRegister(dbOpLatency, dbOpTotal)
	sql.Register(instrumentedPostgresDriver, sqlmw.Driver(stdlib.GetDefaultDriver(), &queryMetrics{}))
}

// queryMetrics times connection, statement and transaction calls. Query
// calls are labelled with the leading SQL keyword (select, insert, ...).
type queryMetrics struct {
	sqlmw.NullInterceptor
}

func (q *queryMetrics) ConnBeginTx(ctx context.Context, conn driver.ConnBeginTx, opts driver.TxOptions) (context.Context, driver.Tx, error) {
	start := time.Now()
	tx, err := conn.BeginTx(ctx, opts)
	observe("begin", "", start, err)
	return ctx, tx, err
}

func (q *queryMetrics) ConnPrepareContext(ctx context.Context, conn driver.ConnPrepareContext, query string) (context.Context, driver.Stmt, error) {
	start := time.Now()
	stmt, err := conn.PrepareContext(ctx, query)
	observe("prepare", query, start, err)
	return ctx, stmt, err
}

func (q *queryMetrics) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, query, args)
	observe("exec", query, start, err)
	return res, err
}

func (q *queryMetrics) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, query, args)
	observe("query", query, start, err)
	return ctx, rows, err
}

func (q *queryMetrics) StmtExecContext(ctx context.Context, stmt driver.StmtExecContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := stmt.ExecContext(ctx, args)
	observe("stmt-exec", query, start, err)
	return res, err
}

func (q *queryMetrics) StmtQueryContext(ctx context.Context, stmt driver.StmtQueryContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := stmt.QueryContext(ctx, args)
	observe("stmt-query", query, start, err)
	return ctx, rows, err
}

func (q *queryMetrics) TxCommit(ctx context.Context, tx driver.Tx) error {
	start := time.Now()
	err := tx.Commit()
	observe("commit", "", start, err)
	return err
}

func (q *queryMetrics) TxRollback(ctx context.Context, tx driver.Tx) error {
	start := time.Now()
	err := tx.Rollback()
	observe("rollback", "", start, err)
	return err
}

func observe(op, query string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	dbOpTotal.With(prometheus.Labels{"op": op, "result": result}).Inc()
	dbOpLatency.With(prometheus.Labels{"op": op, "statement": statementKind(query)}).
		Observe(float64(time.Since(start).Milliseconds()))
}

func statementKind(query string) string {
	m := statementRegex.FindStringSubmatch(query)
	if len(m) < 2 {
		return "none"
	}
	return strings.ToLower(m[1])
}
