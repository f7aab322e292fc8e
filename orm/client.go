package orm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"go.opentelemetry.io/otel/trace"

	"github.com/syssam/veloxdb/batch"
	"github.com/syssam/veloxdb/concurrency"
	"github.com/syssam/veloxdb/config"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/expr"
	"github.com/syssam/veloxdb/include"
	"github.com/syssam/veloxdb/privacy"
	"github.com/syssam/veloxdb/schema"
)

// Client holds the driver, the entity registry and the components every
// repository shares.
type Client struct {
	cfg        config.Config
	driver     dialect.Driver
	stats      *sql.StatsDriver
	registry   *schema.Registry
	loader     *include.Loader
	controller *concurrency.Controller
	inserter   *batch.Inserter
	policies   map[string]privacy.Policy
	log        *slog.Logger
	now        func() time.Time
}

// options holds the configuration of NewClient.
type options struct {
	cfg      *config.Config
	driver   dialect.Driver
	registry *schema.Registry
	log      *slog.Logger
	tracer   trace.TracerProvider
	policies map[string]privacy.Policy
	now      func() time.Time
}

// Option function to configure the client.
type Option func(*options)

// Config sets the configuration of the client.
func Config(cfg config.Config) Option {
	return func(o *options) { o.cfg = &cfg }
}

// Driver sets the driver for the client.
func Driver(drv dialect.Driver) Option {
	return func(o *options) { o.driver = drv }
}

// Registry sets the entity registry.
func Registry(r *schema.Registry) Option {
	return func(o *options) { o.registry = r }
}

// Log sets the logger. By default a logger is built from the configuration.
func Log(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// TracerProvider enables statement tracing with the given provider.
func TracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// Clock sets the clock used for timestamps and timestamp versions.
func Clock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Policy sets the privacy policy evaluated by the repositories of entity.
func Policy(entity string, p privacy.Policy) Option {
	return func(o *options) {
		if o.policies == nil {
			o.policies = make(map[string]privacy.Policy)
		}
		o.policies[entity] = p
	}
}

// NewClient creates a new client configured with the given options. A driver
// is required.
func NewClient(opts ...Option) (*Client, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.driver == nil {
		return nil, errors.New("orm: missing driver")
	}
	cfg := config.Default()
	if o.cfg != nil {
		cfg = *o.cfg
	}
	cfg.Dialect = o.driver.Dialect()
	if cfg.MaxBatchParams == 0 {
		cfg.MaxBatchParams = dialect.Caps(cfg.Dialect).MaxParams
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.log == nil {
		o.log = cfg.Logger(os.Stderr)
	}
	if o.registry == nil {
		o.registry = schema.NewRegistry()
	}
	c := &Client{
		cfg:      cfg,
		registry: o.registry,
		policies: o.policies,
		log:      o.log,
		now:      o.now,
	}
	c.stats = sql.NewStatsDriver(o.driver,
		sql.WithSlowThreshold(cfg.SlowQueryThreshold),
		sql.WithSlowQueryLog(o.log),
		sql.WithMetricsName(cfg.MetricsName),
	)
	c.driver = c.stats
	if cfg.Debug {
		c.driver = sql.NewDebugDriver(c.driver, sql.DebugWithLogger(o.log))
	}
	switch {
	case o.tracer != nil:
		c.driver = sql.NewTraceDriver(c.driver, sql.WithTracerProvider(o.tracer))
	case cfg.Tracing:
		c.driver = sql.NewTraceDriver(c.driver)
	}
	c.loader = include.NewLoader(cfg.Dialect,
		include.WithLogger(o.log),
		include.WithMaxParams(cfg.MaxBatchParams),
		include.WithFilter(c.authorizeQuery),
	)
	c.controller = concurrency.NewController(cfg.Dialect,
		concurrency.WithLogger(o.log),
		concurrency.WithMaxRetries(cfg.MaxConflictRetries),
		concurrency.WithClock(o.now),
	)
	c.inserter = batch.NewInserter(cfg.Dialect,
		batch.WithMaxRows(cfg.MaxBatchRows),
		batch.WithMaxParams(cfg.MaxBatchParams),
		batch.WithLogger(o.log),
		batch.WithController(c.controller),
	)
	return c, nil
}

// Open opens the database named by cfg and returns the client.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	var (
		drv *sql.Driver
		err error
	)
	switch cfg.Dialect {
	case dialect.SQLite:
		drv, err = sql.OpenSQLite(ctx, cfg.DSN)
	case dialect.MySQL:
		var dsn string
		if dsn, err = mysqlDSN(cfg.DSN); err == nil {
			drv, err = sql.Open(dialect.MySQL, dialect.MySQL, dsn)
		}
	case dialect.Postgres:
		drv, err = sql.Open(dialect.Postgres, dialect.Postgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver: %q", cfg.Dialect)
	}
	if err != nil {
		return nil, err
	}
	c, err := NewClient(append([]Option{Config(cfg), Driver(drv)}, opts...)...)
	if err != nil {
		return nil, errors.Join(err, drv.Close())
	}
	return c, nil
}

// mysqlDSN makes the server report matched rows for UPDATE, so an update
// writing the stored values is not taken for a missing row or a conflict.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("orm: parse mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// Tx starts a transaction. Pass it to Repository.WithTx to run operations
// inside it.
func (c *Client) Tx(ctx context.Context) (dialect.Tx, error) {
	return c.driver.Tx(ctx)
}

// Close closes the database connection and prevents new queries from starting.
func (c *Client) Close() error {
	return c.driver.Close()
}

// Driver returns the driver statements run through.
func (c *Client) Driver() dialect.Driver { return c.driver }

// Registry returns the entity registry.
func (c *Client) Registry() *schema.Registry { return c.registry }

// Stats returns the statement statistics. The returned driver is a
// prometheus.Collector.
func (c *Client) Stats() *sql.StatsDriver { return c.stats }

// Settings returns the effective configuration.
func (c *Client) Settings() config.Config { return c.cfg }

// WithTx runs the given function within a transaction.
// If the function returns an error, the transaction is rolled back.
// If the function panics, the transaction is rolled back and the panic is re-raised.
// Otherwise, the transaction is committed.
func WithTx(ctx context.Context, client *Client, fn func(tx dialect.Tx) error) error {
	tx, err := client.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (c *Client) authorizeMutation(ctx context.Context, m *privacy.Mutation) error {
	p, ok := c.policies[m.Entity.Name]
	if !ok {
		return nil
	}
	return p.EvalMutation(ctx, m)
}

// authorizeQuery evaluates the query policy of d and returns the filters
// its rules added.
func (c *Client) authorizeQuery(ctx context.Context, d *schema.Descriptor) ([]expr.Expr, error) {
	p, ok := c.policies[d.Name]
	if !ok {
		return nil, nil
	}
	q := privacy.NewQuery(d)
	if err := p.EvalQuery(ctx, q); err != nil {
		return nil, err
	}
	return q.Filters(), nil
}
