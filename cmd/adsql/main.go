package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/jakoblorz/adsql"
	adssqlite "github.com/jakoblorz/adsql/lib/go-sqlite3"
	"github.com/jakoblorz/adsql/x/config"
)

const statsDriverName = "adsql-sqlite3-stats"

var (
	version string
	app     = kingpin.New("adsql", "Inspect and manage an Advantage database")

	debug = app.Flag(
		"debug", "enable debug logging").
		Short('d').
		Default("false").
		Envar("ADSQL_DEBUG").
		Bool()

	configFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		Required().
		ExistingFiles()

	dataSource = app.Flag(
		"data-source", "Advantage data source, overrides database.name").
		Envar("ADSQL_DATA_SOURCE").
		String()

	stats = app.Flag(
		"stats", "print driver counters on exit (SQLite adapter only)").
		Bool()

	tablesCmd = app.Command("tables", "List the tables of the database.")

	describeCmd   = app.Command("describe", "Describe the columns of a table.")
	describeTable = describeCmd.Arg("table", "table name").Required().String()

	indexesCmd   = app.Command("indexes", "List the indexes of a table.")
	indexesTable = indexesCmd.Arg("table", "table name").Required().String()

	ddlCmd   = app.Command("ddl", "Print CREATE statements for the configured models.")
	ddlApply = ddlCmd.Flag("apply", "execute the statements").Bool()

	flushCmd    = app.Command("flush", "Delete all rows of the given tables and pack them.")
	flushTables = flushCmd.Arg("tables", "table names").Required().Strings()

	shellCmd = app.Command("shell", "Run an interactive SQL shell.")
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	log.WithField("files", *configFiles).Debug("Loading adsql config")

	var cfg config.Config
	if err := config.Parse(&cfg, *configFiles...); err != nil {
		log.WithField("error", err).Fatal("Cannot parse yaml config")
	}
	if err := cfg.Logging.Apply(); err != nil {
		log.WithError(err).Fatal("Invalid logging config")
	}
	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	if *dataSource != "" {
		cfg.Database.Name = *dataSource
	}

	if err := run(cmd, cfg); err != nil {
		log.WithError(err).WithField("command", cmd).Fatal("Command failed")
	}
}

func run(cmd string, cfg config.Config) error {
	var scope tally.TestScope
	if *stats && cfg.Database.Driver == adssqlite.DriverName {
		scope = tally.NewTestScope("adsql", nil)
		adssqlite.Register(statsDriverName, adsql.WithMetrics(scope))
		cfg.Database.Driver = statsDriverName
	}

	ctx := context.Background()
	b := adsql.New(cfg.Database)
	defer func() {
		if cerr := b.Close(); cerr != nil {
			log.WithError(cerr).Warn("Closing connection failed")
		}
		if scope != nil {
			printCounters(os.Stderr, scope)
		}
	}()

	switch cmd {
	case tablesCmd.FullCommand():
		return listTables(ctx, b)
	case describeCmd.FullCommand():
		return describe(ctx, b, *describeTable)
	case indexesCmd.FullCommand():
		return listIndexes(ctx, b, *indexesTable)
	case ddlCmd.FullCommand():
		return ddl(ctx, b, cfg.Models, *ddlApply)
	case flushCmd.FullCommand():
		return execAll(ctx, b, b.Ops.SQLFlush(nil, *flushTables, nil))
	case shellCmd.FullCommand():
		return b.Client.RunShell(ctx, os.Stdin, os.Stdout)
	}
	return nil
}

func listTables(ctx context.Context, b *adsql.Backend) error {
	cur, err := b.Cursor(ctx)
	if err != nil {
		return err
	}
	defer cur.Close()

	names, err := b.Introspection.TableNames(ctx, cur)
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func describe(ctx context.Context, b *adsql.Backend, table string) error {
	cur, err := b.Cursor(ctx)
	if err != nil {
		return err
	}
	defer cur.Close()

	desc, err := b.Introspection.TableDescription(ctx, cur, table)
	if err != nil {
		return err
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"column", "type", "field", "length", "precision", "scale", "nullable"})
	for _, d := range desc {
		ft, err := b.Introspection.FieldType(d)
		if err != nil {
			ft = "?"
		}
		w.Append([]string{
			d.Name, d.TypeName, string(ft),
			fmt.Sprint(d.Length), fmt.Sprint(d.Precision), fmt.Sprint(d.Scale), fmt.Sprint(d.Nullable),
		})
	}
	w.Render()
	return nil
}

func listIndexes(ctx context.Context, b *adsql.Backend, table string) error {
	cur, err := b.Cursor(ctx)
	if err != nil {
		return err
	}
	defer cur.Close()

	indexes, err := b.Introspection.Indexes(ctx, cur, table)
	if err != nil {
		return err
	}
	exprs := make([]string, 0, len(indexes))
	for e := range indexes {
		exprs = append(exprs, e)
	}
	sort.Strings(exprs)

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"expression", "primary key", "unique"})
	for _, e := range exprs {
		w.Append([]string{e, fmt.Sprint(indexes[e].PrimaryKey), fmt.Sprint(indexes[e].Unique)})
	}
	w.Render()
	return nil
}

func ddl(ctx context.Context, b *adsql.Backend, models []adsql.Model, apply bool) error {
	var stmts []string
	for _, m := range models {
		if err := b.Validation.ValidateModel(m); err != nil {
			return err
		}
		create, err := b.Creation.CreateModelSQL(m, nil)
		if err != nil {
			return err
		}
		stmts = append(stmts, create...)
		stmts = append(stmts, b.Creation.IndexesForModelSQL(m, nil)...)
	}
	if !apply {
		for _, s := range stmts {
			fmt.Println(s)
		}
		return nil
	}
	return execAll(ctx, b, stmts)
}

func execAll(ctx context.Context, b *adsql.Backend, stmts []string) error {
	cur, err := b.Cursor(ctx)
	if err != nil {
		return err
	}
	defer cur.Close()

	for _, s := range stmts {
		log.WithField("sql", s).Debug("Executing")
		if err := cur.Execute(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func printCounters(out io.Writer, scope tally.TestScope) {
	counters := scope.Snapshot().Counters()
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tablewriter.NewWriter(out)
	w.SetHeader([]string{"counter", "value"})
	for _, name := range names {
		w.Append([]string{counters[name].Name(), fmt.Sprint(counters[name].Value())})
	}
	w.Render()
}
