// Package engine composes ingest, template caching, render state, level of
// detail and the snapshot cache into a MapEngine that owns one map view.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/parser"
	"github.com/agv-mapview/backend/internal/render"
	"github.com/agv-mapview/backend/internal/snapshot"
	"github.com/benbjohnson/clock"
	"github.com/bep/debounce"
	"github.com/dhconnelly/rtreego"
	"go.uber.org/zap"
)

// DefaultFilterDebounce is the coalescing window of SetFilter.
const DefaultFilterDebounce = 200 * time.Millisecond

var (
	ErrNotLoaded      = errors.New("no map loaded")
	ErrInvalidFloor   = errors.New("floor must be 1 or greater")
	ErrInvalidOverlay = errors.New("unknown path overlay")
	ErrInvalidStatus  = errors.New("unknown park status")
)

// Options configures a MapEngine. Zero values take defaults.
type Options struct {
	Frame          geometry.Frame
	CriticalScale  float64
	PointScale     float64
	PointRadius    float64
	FloorCapacity  int
	FilterDebounce time.Duration
	FrameInterval  time.Duration
	Style          *models.StyleSheet

	// Cache is optional; without it every load ingests.
	Cache    *snapshot.Cache
	Registry *parser.Registry
	Clock    clock.Clock
	Logger   *zap.Logger
}

// LoadResult describes a completed load.
type LoadResult struct {
	Hash     string         `json:"hash"`
	CacheHit bool           `json:"cacheHit"`
	Format   string         `json:"format,omitempty"`
	Skipped  int            `json:"skipped"`
	Counts   map[string]int `json:"counts"`
	Duration time.Duration  `json:"duration"`
}

// MapEngine renders one map. All exported methods are safe for concurrent
// use; they are serialised on one mutex, so no entity is touched by two
// operations at once.
type MapEngine struct {
	opts     Options
	logger   *zap.Logger
	clock    clock.Clock
	registry *parser.Registry
	cache    *snapshot.Cache
	ingester *parser.Ingester

	scene     *render.Scene
	templates *render.TemplateCache
	painter   *render.Painter
	state     *render.RenderState
	lod       *render.LodPolicy
	scheduler *render.FrameScheduler
	debounced func(func())

	mu     sync.Mutex
	tables *models.MapTables
	result LoadResult

	floor       int
	filter      Filter
	visible     models.IDSet
	selected    models.IDSet
	candidates  models.IDSet
	stock       models.IDSet
	tags        map[string]string
	statuses    map[string]models.ParkStatus
	overlays    map[render.OverlayKind]models.IDSet
	pointFactor float64

	marks      map[string]*models.Mark
	lines      map[string]*models.LineShape
	texts      map[string]*models.Text
	byEndpoint map[string][]string

	parkTree    *rtreego.Rtree
	parkEntries map[string]*parkEntry

	aggregate    render.Group
	aggregateKey string
	// Key of the one aggregate template kept in the cache.
	aggregateTpl string
	geomRev      int

	outline          *render.OutlineEditor
	outlineTemplates *render.TemplateCache
}

// New creates an engine with an empty scene.
func New(opts Options) *MapEngine {
	if opts.Frame.UnitScale == 0 {
		opts.Frame = geometry.NewFrame(geometry.DefaultUnitScale, opts.Frame.OffsetX, opts.Frame.OffsetY, opts.Frame.Precision)
	}
	if opts.FloorCapacity <= 0 {
		opts.FloorCapacity = models.DefaultFloorCapacity
	}
	if opts.FilterDebounce <= 0 {
		opts.FilterDebounce = DefaultFilterDebounce
	}
	if opts.Style == nil {
		opts.Style = models.DefaultStyleSheet()
	}
	if opts.Registry == nil {
		opts.Registry = parser.GetGlobalRegistry()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	scene := render.NewScene()
	templates := render.NewTemplateCache(scene)
	ingester := parser.NewIngester(opts.Frame, opts.Logger)
	ingester.SetPointRadius(opts.PointRadius)

	e := &MapEngine{
		opts:      opts,
		logger:    opts.Logger.Named("engine"),
		clock:     opts.Clock,
		registry:  opts.Registry,
		cache:     opts.Cache,
		ingester:  ingester,
		scene:     scene,
		templates: templates,
		painter:   render.NewPainter(scene, templates, opts.Style),
		state:     render.NewRenderState(scene),
		lod:       render.NewLodPolicy(opts.CriticalScale, opts.PointScale, 1),
		scheduler: render.NewFrameScheduler(opts.Clock, opts.FrameInterval),
		debounced: debounce.New(opts.FilterDebounce),
		floor:     1,

		outlineTemplates: render.NewTemplateCache(scene),
	}
	e.resetDynamic()
	e.pointFactor = e.lod.PointFactor()
	for _, kind := range Kinds {
		ops := dispatch[kind]
		e.lod.Register(ops.category, func(simplified bool) {
			ops.lodSwitch(e, simplified)
		})
	}
	return e
}

// Scene returns the retained scene the engine draws on.
func (e *MapEngine) Scene() *render.Scene { return e.scene }

// Frame returns the coordinate frame.
func (e *MapEngine) Frame() geometry.Frame { return e.opts.Frame }

// FloorCapacity returns the id stride between floors.
func (e *MapEngine) FloorCapacity() int { return e.opts.FloorCapacity }

// Close stops deferred work and releases the outline editor.
func (e *MapEngine) Close() {
	e.scheduler.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outline != nil {
		e.outline.Close()
		e.outline = nil
	}
}

// Load replaces the current map with the one in payload. The snapshot
// cache is validated and consulted first; on a miss the payload is
// decoded and ingested, then written back. Cache failures never fail the
// load.
func (e *MapEngine) Load(ctx context.Context, payload []byte) (LoadResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.clock.Now()
	res := LoadResult{Hash: snapshot.Hash(payload)}

	var tables *models.MapTables
	if e.cache != nil {
		tables, res.CacheHit = e.cache.Load(ctx, res.Hash)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if !res.CacheHit {
		raw, format, err := e.registry.Decode(payload)
		if err != nil {
			return res, fmt.Errorf("failed to decode map payload: %w", err)
		}
		res.Format = format
		var skipped int
		tables, skipped = e.ingest(raw)
		res.Skipped = skipped
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if e.cache != nil {
			if err := e.cache.Save(ctx, res.Hash, tables); err != nil {
				e.logger.Warn("snapshot write failed", zap.String("hash", res.Hash), zap.Error(err))
			}
		}
	}

	e.install(tables)
	res.Counts = tables.Counts()
	res.Duration = e.clock.Since(start)
	e.result = res

	e.logger.Info("map loaded",
		zap.String("hash", res.Hash),
		zap.Bool("cacheHit", res.CacheHit),
		zap.Int("parks", len(tables.Parks)),
		zap.Int("paths", len(tables.Paths)),
		zap.Int("templates", e.templates.Len()),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// Loaded reports whether a map is installed.
func (e *MapEngine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tables != nil
}

// Tables returns the installed tables. Callers must not mutate them.
func (e *MapEngine) Tables() (*models.MapTables, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tables == nil {
		return nil, ErrNotLoaded
	}
	return e.tables, nil
}

// install drops the previous map's drawables and renders tables through the
// dispatch table.
func (e *MapEngine) install(tables *models.MapTables) {
	e.state.Clear()
	e.hideAggregate()
	e.aggregateTpl = ""
	e.templates.Clear()
	e.resetDynamic()

	e.tables = tables
	e.indexTables()
	e.visible = e.computeVisible()
	for _, kind := range Kinds {
		dispatch[kind].render(e)
	}
}

func (e *MapEngine) resetDynamic() {
	e.visible = models.NewIDSet()
	e.selected = models.NewIDSet()
	e.candidates = models.NewIDSet()
	e.stock = models.NewIDSet()
	e.tags = make(map[string]string)
	e.statuses = make(map[string]models.ParkStatus)
	e.overlays = make(map[render.OverlayKind]models.IDSet, len(render.OverlayKinds))
	for _, k := range render.OverlayKinds {
		e.overlays[k] = models.NewIDSet()
	}
}

// indexTables builds the lookups the shape tables lack: keys for marks,
// lines and texts, paths by unordered endpoint pair and the park hit-test
// index.
func (e *MapEngine) indexTables() {
	t := e.tables
	e.marks = make(map[string]*models.Mark, len(t.Marks))
	for i, m := range t.Marks {
		key := "mark:" + m.MarkID
		if _, dup := e.marks[key]; dup {
			key += "#" + strconv.Itoa(i)
		}
		e.marks[key] = m
	}
	e.lines = make(map[string]*models.LineShape, len(t.Lines))
	for i, l := range t.Lines {
		e.lines["line:"+strconv.Itoa(i)] = l
	}
	e.texts = make(map[string]*models.Text, len(t.Texts))
	for i, x := range t.Texts {
		e.texts["text:"+strconv.Itoa(i)] = x
	}
	e.byEndpoint = make(map[string][]string, len(t.Paths))
	for id, p := range t.Paths {
		k := models.EndpointKey(p.X1, p.Y1, p.X2, p.Y2)
		e.byEndpoint[k] = append(e.byEndpoint[k], id)
	}
	for _, ids := range e.byEndpoint {
		sort.Strings(ids)
	}
	e.indexParks()
}

func (e *MapEngine) requireLoaded() error {
	if e.tables == nil {
		return ErrNotLoaded
	}
	return nil
}
