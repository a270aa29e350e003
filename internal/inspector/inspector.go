// Package inspector loads sources into snapshots and serves filtered views
// of them.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"inspector.onebusaway.org/internal/clock"
	"inspector.onebusaway.org/internal/feed"
	"inspector.onebusaway.org/internal/fetch"
	"inspector.onebusaway.org/internal/filter"
	"inspector.onebusaway.org/internal/logging"
	"inspector.onebusaway.org/internal/memo"
	"inspector.onebusaway.org/internal/metrics"
	"inspector.onebusaway.org/internal/registry"
)

// Fetcher downloads a feed body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// SnapshotStore keeps loaded snapshots by ID.
type SnapshotStore interface {
	memo.Store
	Len() int
}

// Config wires an Inspector. Registry and Fetcher are required.
type Config struct {
	Registry registry.Store
	Fetcher  Fetcher
	// DecodeCache memoizes decoded feeds by content. Nil disables it.
	DecodeCache memo.Store
	// FilterCache memoizes filter results. Nil disables it.
	FilterCache memo.Store
	// Snapshots holds loaded snapshots. Nil keeps the 32 most recent for an
	// hour.
	Snapshots SnapshotStore
	Columns   *filter.Columns
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Inspector is safe for concurrent use.
type Inspector struct {
	registry    registry.Store
	fetcher     Fetcher
	decodeCache memo.Store
	snapshots   SnapshotStore
	filter      *filter.Memo
	clock       clock.Clock
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(cfg Config) *Inspector {
	cols := filter.DefaultColumns()
	if cfg.Columns != nil {
		cols = *cfg.Columns
	}
	in := &Inspector{
		registry:    cfg.Registry,
		fetcher:     cfg.Fetcher,
		decodeCache: cfg.DecodeCache,
		snapshots:   cfg.Snapshots,
		filter:      filter.New(cols).Memoized(cfg.FilterCache),
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
	if in.decodeCache == nil {
		in.decodeCache = memo.Nop{}
	}
	if in.snapshots == nil {
		in.snapshots = memo.NewLRU(32, time.Hour)
	}
	if in.clock == nil {
		in.clock = clock.RealClock{}
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	in.logger = in.logger.With(slog.String("component", "inspector"))
	return in
}

// Registry returns the source registry the inspector loads from.
func (in *Inspector) Registry() registry.Store { return in.registry }

// Load reads the named source and fetches and decodes both of its feeds
// concurrently. A failing feed is reported in its FeedResult and does not
// affect the other; only registry errors fail the load.
func (in *Inspector) Load(ctx context.Context, name string) (*Snapshot, error) {
	def, err := in.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:         uuid.New(),
		Source:     name,
		Definition: def,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		snap.Vehicles = in.loadFeed(ctx, name, FeedVehicles, def.VehiclePositionsURL)
	}()
	go func() {
		defer wg.Done()
		snap.Trips = in.loadFeed(ctx, name, FeedTrips, def.TripUpdatesURL)
	}()
	wg.Wait()

	snap.FetchedAt = in.clock.Now()
	in.snapshots.Set(snap.ID.String(), snap)
	if in.metrics != nil {
		in.metrics.SnapshotsCached.Set(float64(in.snapshots.Len()))
	}

	logging.LogOperation(in.logger, "source_loaded",
		slog.String("source", name),
		slog.String("snapshot", snap.ID.String()),
		slog.String("vehicles", string(snap.Vehicles.Status)),
		slog.Int("vehicle_records", snap.Vehicles.Records.Len()),
		slog.String("trips", string(snap.Trips.Status)),
		slog.Int("trip_records", snap.Trips.Records.Len()))
	return snap, nil
}

func (in *Inspector) loadFeed(ctx context.Context, source string, kind FeedKind, url string) FeedResult {
	res := FeedResult{URL: url, Status: StatusNotRequested, Records: feed.Empty()}
	if url == "" {
		return res
	}

	// Durations use the wall clock; the injected clock only stamps snapshots.
	start := time.Now()
	raw, err := in.fetcher.Fetch(ctx, url)
	elapsed := time.Since(start)
	if err != nil {
		logging.LogError(in.logger, "feed fetch failed", err,
			slog.String("source", source),
			slog.String("feed", string(kind)),
			slog.String("url", url))
		return in.failed(res, kind, err, elapsed)
	}

	records, err := in.decode(raw)
	if err != nil {
		logging.LogError(in.logger, "feed decode failed", err,
			slog.String("source", source),
			slog.String("feed", string(kind)))
		return in.failed(res, kind, err, elapsed)
	}

	if summary, err := feed.Summarize(raw); err == nil {
		res.Summary = &summary
	} else {
		in.logger.Warn("feed summary unavailable",
			slog.String("feed", string(kind)),
			slog.String("error", err.Error()))
	}

	res.Records = records
	res.Status = StatusOK
	if records.IsEmpty() {
		res.Status = StatusEmpty
	}
	if in.metrics != nil {
		in.metrics.ObserveFeedLoad(string(kind), string(res.Status), elapsed)
		in.metrics.FeedRecords.WithLabelValues(source, string(kind)).Set(float64(records.Len()))
	}
	return res
}

func (in *Inspector) failed(res FeedResult, kind FeedKind, err error, elapsed time.Duration) FeedResult {
	res.Status = StatusFailed
	res.Error = err.Error()
	if in.metrics != nil {
		outcome := "decode_error"
		if k, ok := fetch.KindOf(err); ok {
			outcome = k.String()
		} else if !errors.Is(err, feed.ErrMalformed) {
			outcome = "error"
		}
		in.metrics.ObserveFeedLoad(string(kind), outcome, elapsed)
	}
	return res
}

// decode goes through the decode cache; identical bodies decode once.
func (in *Inspector) decode(raw []byte) (*feed.RecordSet, error) {
	key := memo.BytesKey("decode", raw)
	if cached, ok := in.decodeCache.Get(key); ok {
		if rs, ok := cached.(*feed.RecordSet); ok {
			in.countDecodeLookup("hit")
			return rs, nil
		}
	}
	in.countDecodeLookup("miss")
	rs, err := feed.Decode(raw)
	if err != nil {
		return nil, err
	}
	in.decodeCache.Set(key, rs)
	return rs, nil
}

func (in *Inspector) countDecodeLookup(result string) {
	if in.metrics != nil {
		in.metrics.DecodeCacheLookups.WithLabelValues(result).Inc()
	}
}

// ErrSnapshotNotFound is returned for unknown or expired snapshot IDs.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot returns a previously loaded snapshot.
func (in *Inspector) Snapshot(id string) (*Snapshot, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a snapshot id", ErrSnapshotNotFound, id)
	}
	v, ok := in.snapshots.Get(parsed.String())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, parsed)
	}
	snap, ok := v.(*Snapshot)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, parsed)
	}
	return snap, nil
}

// Filter applies spec to the snapshot's records.
func (in *Inspector) Filter(snap *Snapshot, spec filter.Spec) (vehicles, trips *feed.RecordSet) {
	return in.filter.Apply(snap.Vehicles.Records, snap.Trips.Records, spec)
}

// Identifiers lists the sorted identifiers of kind found in the snapshot.
func (in *Inspector) Identifiers(snap *Snapshot, kind filter.Kind) []string {
	return in.filter.AvailableIdentifiers(kind, snap.Vehicles.Records, snap.Trips.Records)
}
