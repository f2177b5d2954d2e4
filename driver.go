package adsql

import (
	"database/sql"
	"database/sql/driver"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
)

// Driver wraps a native Advantage driver. Connections opened through it
// rewrite placeholders, relabel native errors and convert column values;
// every other call is forwarded to the native driver.
type Driver struct {
	native driver.Driver

	style      PlaceholderStyle
	classifier *classifier
	converters map[TypeCode]Converter
	typeNames  map[string]TypeCode
	dsn        func(string) string
	catalog    Catalog
	metrics    *Metrics
}

type Option func(*driverOptions)

type driverOptions struct {
	style      PlaceholderStyle
	coder      ErrorCoder
	codes      []int
	converters map[TypeCode]Converter
	typeNames  map[string]TypeCode
	dsn        func(string) string
	catalog    Catalog
	scope      tally.Scope
}

// WithPlaceholders selects the placeholder style of incoming queries.
func WithPlaceholders(style PlaceholderStyle) Option {
	return func(o *driverOptions) { o.style = style }
}

// WithErrorCoder adapts errors of a native driver that does not
// implement NativeError.
func WithErrorCoder(coder ErrorCoder) Option {
	return func(o *driverOptions) { o.coder = coder }
}

// WithIntegrityCodes replaces the table of operational error codes
// reclassified as integrity violations.
func WithIntegrityCodes(codes ...int) Option {
	return func(o *driverOptions) { o.codes = codes }
}

// WithConverter registers a value converter for a type code. A nil
// converter removes the default one.
func WithConverter(code TypeCode, c Converter) Option {
	return func(o *driverOptions) { o.converters[code] = c }
}

// WithTypeNames teaches the driver additional database type names.
func WithTypeNames(names map[string]TypeCode) Option {
	return func(o *driverOptions) {
		for k, v := range names {
			o.typeNames[k] = v
		}
	}
}

// WithConnString translates the Advantage connection string handed to
// Open into the form the native driver expects.
func WithConnString(fn func(string) string) Option {
	return func(o *driverOptions) { o.dsn = fn }
}

// WithCatalog replaces the system table queries run by Introspection.
func WithCatalog(c Catalog) Option {
	return func(o *driverOptions) { o.catalog = c }
}

func WithMetrics(scope tally.Scope) Option {
	return func(o *driverOptions) { o.scope = scope }
}

func WrapDriver(native driver.Driver, opts ...Option) *Driver {
	o := &driverOptions{
		style:      PlaceholderFormat,
		codes:      IntegrityErrorCodes,
		converters: defaultConverters(),
		typeNames:  make(map[string]TypeCode, len(typeNames)),
		catalog:    DefaultCatalog(),
		scope:      tally.NoopScope,
	}
	for k, v := range typeNames {
		o.typeNames[k] = v
	}
	for _, opt := range opts {
		opt(o)
	}
	for code, c := range o.converters {
		if c == nil {
			delete(o.converters, code)
		}
	}

	d := &Driver{
		native:     native,
		style:      o.style,
		classifier: newClassifier(o.coder, o.codes),
		converters: o.converters,
		typeNames:  o.typeNames,
		dsn:        o.dsn,
		catalog:    o.catalog,
		metrics:    NewMetrics(o.scope),
	}
	d.classifier.onRelabel = func(code int) {
		d.metrics.IntegrityRelabel.Inc(1)
		log.WithField("code", code).Debug("Relabelled operational error as integrity error")
	}
	return d
}

// Register makes a wrapped native driver available to sql.Open under name.
func Register(name string, native driver.Driver, opts ...Option) *Driver {
	d := WrapDriver(native, opts...)
	sql.Register(name, d)
	return d
}

func (d *Driver) Open(name string) (driver.Conn, error) {
	if d.dsn != nil {
		name = d.dsn(name)
	}
	nc, err := d.native.Open(name)
	if err != nil {
		d.metrics.ConnectFail.Inc(1)
		return nil, d.classifier.classify(err)
	}
	d.metrics.Connect.Inc(1)
	return newConn(d, nc), nil
}

func (d *Driver) Native() driver.Driver {
	return d.native
}

func (d *Driver) Style() PlaceholderStyle {
	return d.style
}

func (d *Driver) Catalog() Catalog {
	return d.catalog
}

func (d *Driver) rewrite(query string) (string, error) {
	if d.style == PlaceholderQMark {
		return query, nil
	}
	out, _, err := rewritePlaceholders(query)
	return out, err
}

func (d *Driver) rewriteN(query string, n int) (string, error) {
	if d.style == PlaceholderQMark {
		return query, nil
	}
	return ConvertQuery(query, n)
}

func (d *Driver) typeCode(name string) TypeCode {
	return typeCodeIn(d.typeNames, name)
}
