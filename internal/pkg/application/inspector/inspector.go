package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/diwise/odata-values/pkg/odata/convert"
	"github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/serialize"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/diwise/odata-values/pkg/odata/types/descriptors"
	"github.com/diwise/odata-values/pkg/odata/types/structured"
	"github.com/diwise/odata-values/pkg/odata/types/values"
	"github.com/diwise/odata-values/pkg/weakcache"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceAttributeTypeName string = "edm-type"
	TraceAttributeKey      string = "edm-key"
)

var tracer = otel.Tracer("edm-inspect/inspector")
var meter = otel.Meter("edm-inspect/inspector")

// Inspector projects JSON records through an EDM model and remembers the projection of
// every record that is still alive
type Inspector interface {
	Project(ctx context.Context, typeName string, body io.Reader) (*descriptors.Record, *structured.StructuredValue, error)
	Lookup(record *descriptors.Record) (*Projection, bool)
	Tracked() int
	Sweep(ctx context.Context) int
	Render(ctx context.Context, v types.Value) ([]byte, error)
	Model() *descriptors.Model
}

// Projection is what the inspector remembers about a projected record. It must not
// reference the record, or the record would never be collected from the cache.
type Projection struct {
	Key         string
	Descriptor  descriptors.TypeDescriptor
	ProjectedAt time.Time
}

type inspectorApp struct {
	model  *descriptors.Model
	indent string

	mu    sync.Mutex
	cache *weakcache.Cache[descriptors.Record, *Projection]

	projected metric.Int64Counter
	swept     metric.Int64Counter
}

func New(ctx context.Context, cfg Config) (Inspector, error) {
	model, err := cfg.LoadModel()
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	app := &inspectorApp{
		model:  model,
		indent: cfg.Output.Indent,
	}

	app.projected, err = meter.Int64Counter("inspector.records.projected",
		metric.WithDescription("number of records projected through the model"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	app.swept, err = meter.Int64Counter("inspector.records.swept",
		metric.WithDescription("number of collected records removed from the projection cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	options := []weakcache.Option[descriptors.Record]{
		weakcache.WithComparer(weakcache.KeyComparer(app.recordKey)),
		weakcache.WithLogger[descriptors.Record](logging.GetFromContext(ctx)),
	}
	if cfg.RefreshInterval > 0 {
		options = append(options, weakcache.RefreshInterval[descriptors.Record](cfg.RefreshInterval))
	}

	app.cache = weakcache.New[descriptors.Record, *Projection](options...)

	return app, nil
}

func (app *inspectorApp) Model() *descriptors.Model {
	return app.model
}

func (app *inspectorApp) Project(ctx context.Context, typeName string, body io.Reader) (rec *descriptors.Record, sv *structured.StructuredValue, err error) {
	ctx, span := tracer.Start(ctx, "project-record",
		trace.WithAttributes(attribute.String(TraceAttributeTypeName, typeName)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	logger := logging.GetFromContext(ctx)

	// numbers stay json.Number so that int64 and decimal fields keep every digit
	dec := json.NewDecoder(body)
	dec.UseNumber()

	fields := map[string]any{}
	if err = dec.Decode(&fields); err != nil {
		err = fmt.Errorf("failed to decode %s record: %w", typeName, err)
		return nil, nil, err
	}

	rec = descriptors.NewRecord(typeName, fields)

	sv, err = structured.FromObject(rec, app.model, app.model)
	if err != nil {
		return nil, nil, err
	}

	key := app.recordKey(rec)
	span.SetAttributes(attribute.String(TraceAttributeKey, key))

	app.mu.Lock()
	defer app.mu.Unlock()

	// a live record with the same key gives way to the newer one
	if app.cache.Remove(rec) {
		logger.Debug("replacing projection of live record", "key", key)
	}

	projection := &Projection{
		Key:         key,
		Descriptor:  sv.Descriptor(),
		ProjectedAt: time.Now().UTC(),
	}

	if err = app.cache.Add(rec, projection); err != nil {
		return nil, nil, err
	}

	app.projected.Add(ctx, 1, metric.WithAttributes(attribute.String(TraceAttributeTypeName, projection.Descriptor.FullName())))
	logger.Debug("projected record", "key", key, "tracked", app.cache.Count())

	return rec, sv, nil
}

func (app *inspectorApp) Lookup(record *descriptors.Record) (*Projection, bool) {
	app.mu.Lock()
	defer app.mu.Unlock()

	return app.cache.Get(record)
}

func (app *inspectorApp) Tracked() int {
	app.mu.Lock()
	defer app.mu.Unlock()

	return app.cache.Count()
}

func (app *inspectorApp) Sweep(ctx context.Context) int {
	app.mu.Lock()
	defer app.mu.Unlock()

	removed := app.cache.RemoveCollectedEntries()
	app.swept.Add(ctx, int64(removed))
	logging.GetFromContext(ctx).Info("swept collected records", "removed", removed, "tracked", app.cache.Count())

	return removed
}

func (app *inspectorApp) Render(ctx context.Context, v types.Value) (body []byte, err error) {
	if v == nil {
		return nil, errors.NewArgumentError("cannot render a nil value")
	}

	_, span := tracer.Start(ctx, "render-value")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if v.Type() != nil {
		span.SetAttributes(attribute.String(TraceAttributeTypeName, v.Type().FullName()))
	}

	if app.indent != "" {
		return serialize.MarshalIndent(v, "", app.indent)
	}

	return serialize.Marshal(v)
}

// recordKey identifies a record by its type and the canonical text of its key fields.
// Records of types without keys, or whose key fields do not convert, are only equal to
// themselves.
func (app *inspectorApp) recordKey(rec *descriptors.Record) string {
	td, err := app.model.Descriptor(rec.Type)
	if err != nil || len(td.Keys()) == 0 {
		return fmt.Sprintf("%s@%p", rec.Type, rec)
	}

	parts := make([]string, 0, len(td.Keys()))
	for _, key := range td.Keys() {
		prop, _ := td.Property(key)

		kind := types.KindNone
		if ptr, ok := prop.Type().(*values.PrimitiveTypeReference); ok {
			kind = ptr.PrimitiveKind()
		}

		v, err := convert.ToTypedValue(rec.Fields[key], kind)
		if err != nil {
			return fmt.Sprintf("%s@%p", rec.Type, rec)
		}

		text, err := convert.Canonical(v)
		if err != nil {
			return fmt.Sprintf("%s@%p", rec.Type, rec)
		}

		parts = append(parts, key+"="+text)
	}

	return td.FullName() + "(" + strings.Join(parts, ",") + ")"
}
