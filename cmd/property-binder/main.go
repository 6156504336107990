// Package main provides the CLI entrypoint for property-binder.
//
// property-binder registers the bundled example value types, prints their
// discovered bindings and round-trips a few values through an in-memory
// SQLite database:
//   - Train, built through a pointer builder
//   - FooBarBaz, with optional attributes and a modifiable implementation
//   - SubValue[string, int], a generic definition
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"property-binder/examples/foobarbaz"
	"property-binder/examples/subvalue"
	"property-binder/examples/train"
	"property-binder/internal/config"
	"property-binder/internal/metrics"
	"property-binder/optional"
	"property-binder/property"
	"property-binder/registry"
	"property-binder/rowmap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "property-binder:", err)
		stop()
		os.Exit(1)
	}
}

type options struct {
	configPath string
	logLevel   string
	dump       bool
}

func parseFlags(args []string) (options, error) {
	var o options

	fs := pflag.NewFlagSet("property-binder", pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "path to a YAML config file")
	fs.StringVar(&o.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	fs.BoolVar(&o.dump, "dump", false, "dump every mapped value")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	return o, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "build logger")
	}
	defer func() { _ = logger.Sync() }()

	collector := metrics.NewCollector(cfg.MetricsNamespace)
	reg := registry.New(
		registry.WithLogger(logger),
		registry.WithMetrics(collector),
		registry.WithCacheTTL(cfg.CacheTTL),
	)

	sweepCtx, cancel := context.WithCancel(ctx)

	var wg conc.WaitGroup
	wg.Go(func() { reg.Run(sweepCtx, cfg.SweepInterval) })

	defer wg.Wait()
	defer cancel()

	if err := register(reg); err != nil {
		return err
	}

	if err := describe(out, reg); err != nil {
		return err
	}

	values, err := roundTrip(ctx, rowmap.New(reg, rowmap.WithLogger(logger)))
	if err != nil {
		return err
	}

	for _, v := range values {
		fmt.Fprintf(out, "%T %v\n", v, v)
	}

	if o.dump {
		spew.Fdump(out, values...)
	}

	logger.Info("done", zap.Int("values", len(values)), zap.Int("definitions", len(reg.Definitions())))

	return nil
}

func register(reg *registry.Registry) error {
	if err := registry.RegisterImmutable[train.Train, train.ImmutableTrain](reg,
		registry.WithBuilder(train.NewBuilder),
		registry.WithMetadata("Name", rowmap.Column("train_name")),
	); err != nil {
		return err
	}

	if err := registry.RegisterModifiable[
		foobarbaz.FooBarBaz, foobarbaz.ImmutableFooBarBaz, *foobarbaz.ModifiableFooBarBaz,
	](reg, registry.WithCreate(foobarbaz.New)); err != nil {
		return err
	}

	return registry.RegisterImmutable[subvalue.SubValue[string, int], subvalue.ImmutableSubValue[string, int]](reg)
}

func describe(out io.Writer, reg *registry.Registry) error {
	types := append(reg.Definitions(), reflect.TypeFor[*foobarbaz.ModifiableFooBarBaz]())

	for _, t := range types {
		b, _, err := reg.Resolve(t)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, property.Describe(b))
	}

	return nil
}

const schema = `
CREATE TABLE train (train_name TEXT, carriages INTEGER, observation_car BOOLEAN);
CREATE TABLE foo_bar_baz (id INTEGER, foo TEXT, bar INTEGER, baz REAL);
`

func roundTrip(ctx context.Context, m *rowmap.Mapper) ([]any, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	defer db.Close()

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	zephyr, err := train.NewBuilder().Name("Zephyr").Carriages(8).ObservationCar(true).Build()
	if err != nil {
		return nil, err
	}

	inserts := []struct {
		query string
		value any
	}{
		{`INSERT INTO train VALUES (:train_name, :carriages, :observation_car)`, zephyr},
		{`INSERT INTO foo_bar_baz VALUES (:id, :foo, :bar, :baz)`, foobarbaz.New().SetID(1).SetFoo(optional.Of("foo"))},
	}

	for _, ins := range inserts {
		args, err := m.Bind(ins.value)
		if err != nil {
			return nil, err
		}

		if _, err := db.ExecContext(ctx, ins.query, args...); err != nil {
			return nil, errors.Wrapf(err, "insert %T", ins.value)
		}
	}

	var values []any

	for _, q := range []struct {
		query  string
		target reflect.Type
	}{
		{`SELECT * FROM train`, reflect.TypeFor[train.Train]()},
		{`SELECT * FROM foo_bar_baz`, reflect.TypeFor[*foobarbaz.ModifiableFooBarBaz]()},
		{`SELECT * FROM foo_bar_baz`, reflect.TypeFor[foobarbaz.ImmutableFooBarBaz]()},
	} {
		mapped, err := query(ctx, db, m, q.query, q.target)
		if err != nil {
			return nil, err
		}

		values = append(values, mapped...)
	}

	return values, nil
}

func query(ctx context.Context, db *sql.DB, m *rowmap.Mapper, q string, target reflect.Type) ([]any, error) {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", q)
	}
	defer rows.Close()

	return m.Map(ctx, rows, target)
}
