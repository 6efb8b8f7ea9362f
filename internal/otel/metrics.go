package otel

import "go.opentelemetry.io/otel/metric"

// Metrics holds all scratchdb metric instruments.
type Metrics struct {
	BatchDuration     metric.Float64Histogram
	StatementsRun     metric.Int64Counter
	StatementsBlocked metric.Int64Counter
	StatementErrors   metric.Int64Counter
	SyncChanges       metric.Int64Counter
	SyncErrors        metric.Int64Counter
	DigestDuration    metric.Float64Histogram
	RestoreDuration   metric.Float64Histogram
	PersistedBytes    metric.Int64Counter
	ArchivesWiped     metric.Int64Counter
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.BatchDuration, err = meter.Float64Histogram("scratchdb.batch.duration",
		metric.WithDescription("SQL batch execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.StatementsRun, err = meter.Int64Counter("scratchdb.statements.run",
		metric.WithDescription("Statements executed against the guarded session"),
	)
	if err != nil {
		return nil, err
	}

	m.StatementsBlocked, err = meter.Int64Counter("scratchdb.statements.blocked",
		metric.WithDescription("Statements refused by the sandbox guard"),
	)
	if err != nil {
		return nil, err
	}

	m.StatementErrors, err = meter.Int64Counter("scratchdb.statements.errors",
		metric.WithDescription("Statements that failed during engine execution"),
	)
	if err != nil {
		return nil, err
	}

	m.SyncChanges, err = meter.Int64Counter("scratchdb.sync.changes",
		metric.WithDescription("Durable records created, updated, or removed by sync-back"),
	)
	if err != nil {
		return nil, err
	}

	m.SyncErrors, err = meter.Int64Counter("scratchdb.sync.errors",
		metric.WithDescription("Validation errors collected during sync-back"),
	)
	if err != nil {
		return nil, err
	}

	m.DigestDuration, err = meter.Float64Histogram("scratchdb.digest.duration",
		metric.WithDescription("Schema digest computation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.RestoreDuration, err = meter.Float64Histogram("scratchdb.restore.duration",
		metric.WithDescription("Blob restore duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.PersistedBytes, err = meter.Int64Counter("scratchdb.persist.bytes",
		metric.WithDescription("Compressed archive bytes written to blob storage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	m.ArchivesWiped, err = meter.Int64Counter("scratchdb.persist.wiped",
		metric.WithDescription("Archives deleted because the scratch file exceeded the hard ceiling"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
