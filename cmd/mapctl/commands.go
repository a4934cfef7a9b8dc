package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/agv-mapview/backend/internal/config"
	"github.com/agv-mapview/backend/internal/engine"
	"github.com/agv-mapview/backend/internal/logging"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/parser"
	"github.com/agv-mapview/backend/internal/render"
	"github.com/agv-mapview/backend/internal/snapshot"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	flagConfig     = "config"
	flagSnapshotDB = "snapshot-db"
	flagLogLevel   = "log-level"
	flagOut        = "out"
	flagWidth      = "width"
	flagHeight     = "height"
	flagFloor      = "floor"
	flagScale      = "scale"
	flagBackground = "background"
	flagSelect     = "select"
	flagTravel     = "travel"
)

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "mapctl",
		Usage:     "inspect and render AGV map payloads",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagConfig,
				Usage: "server XML config providing the coordinate frame and styles",
			},
			&cli.StringFlag{
				Name:  flagSnapshotDB,
				Usage: "DuckDB snapshot database to read and populate",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "print entity counts and render statistics of a payload",
				ArgsUsage: "<payload>",
				Action:    inspectAction,
			},
			{
				Name:      "render",
				Usage:     "render a payload to PNG",
				ArgsUsage: "<payload>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagOut,
						Aliases:  []string{"o"},
						Required: true,
					},
					&cli.IntFlag{Name: flagWidth, Value: 1600},
					&cli.IntFlag{Name: flagHeight, Value: 1200},
					&cli.IntFlag{Name: flagFloor, Value: 1},
					&cli.Float64Flag{Name: flagScale, Value: 1},
					&cli.StringFlag{Name: flagBackground, Value: "#1e1e1e"},
					&cli.IntSliceFlag{Name: flagSelect, Usage: "park ids to highlight"},
					&cli.StringFlag{Name: flagTravel, Usage: "AGV travel string to highlight"},
				},
				Action: renderAction,
			},
		},
	}
}

// inspectReport is printed as YAML by inspect.
type inspectReport struct {
	File      string         `yaml:"file"`
	Format    string         `yaml:"format"`
	Hash      string         `yaml:"hash"`
	CacheHit  bool           `yaml:"cacheHit"`
	Skipped   int            `yaml:"skipped"`
	Entities  map[string]int `yaml:"entities"`
	Templates int            `yaml:"templates"`
	Tables    map[string]int `yaml:"tables"`
	Floors    map[int]int    `yaml:"floors"`
}

func inspectAction(c *cli.Context) (err error) {
	path := c.Args().First()
	if path == "" {
		return cli.ShowSubcommandHelp(c)
	}
	eng, closeFn, err := openEngine(c)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeFn()) }()

	res, err := loadFile(c.Context, eng, path)
	if err != nil {
		return err
	}

	stats := eng.Stats()
	report := inspectReport{
		File:      path,
		Format:    res.Format,
		Hash:      res.Hash,
		CacheHit:  res.CacheHit,
		Skipped:   res.Skipped,
		Entities:  res.Counts,
		Templates: stats.Templates,
		Tables:    stats.Tables,
		Floors:    map[int]int{},
	}
	tables, err := eng.Tables()
	if err != nil {
		return err
	}
	for _, floor := range occupiedFloors(tables) {
		if _, err := eng.SetFloor(floor); err != nil {
			return err
		}
		report.Floors[floor] = len(eng.VisibleParks())
	}

	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

func renderAction(c *cli.Context) (err error) {
	path := c.Args().First()
	if path == "" {
		return cli.ShowSubcommandHelp(c)
	}
	eng, closeFn, err := openEngine(c)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeFn()) }()

	if _, err := loadFile(c.Context, eng, path); err != nil {
		return err
	}
	if floor := c.Int(flagFloor); floor != 1 {
		if _, err := eng.SetFloor(floor); err != nil {
			return err
		}
	}
	eng.SetScale(c.Float64(flagScale))
	if ids := c.IntSlice(flagSelect); len(ids) > 0 {
		change, err := eng.SelectParks(ids)
		if err != nil {
			return err
		}
		if len(change.Unknown) > 0 {
			fmt.Fprintf(c.App.ErrWriter, "unknown parks: %v\n", change.Unknown)
		}
	}
	if travel := c.String(flagTravel); travel != "" {
		if _, err := eng.ShowTravel(travel); err != nil {
			return err
		}
	}
	eng.FlushFrame()

	f, err := os.Create(c.String(flagOut))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return eng.RenderPNG(f, render.RasterOptions{
		Width:      c.Int(flagWidth),
		Height:     c.Int(flagHeight),
		Background: c.String(flagBackground),
		Padding:    16,
	})
}

// openEngine builds an engine from the global flags. The returned function
// releases the engine and any snapshot store.
func openEngine(c *cli.Context) (*engine.MapEngine, func() error, error) {
	logger, err := logging.NewLogger(c.String(flagLogLevel))
	if err != nil {
		return nil, nil, err
	}
	opts := engine.Options{
		Registry: parser.GetGlobalRegistry(),
		Logger:   logger,
	}

	version := snapshot.DefaultVersion
	if path := c.String(flagConfig); path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, nil, err
		}
		opts.Frame = cfg.Render.Frame()
		opts.CriticalScale = cfg.Render.CriticalScale
		opts.PointScale = cfg.Render.PointScale
		opts.PointRadius = cfg.Render.PointRadius
		opts.FloorCapacity = cfg.Render.FloorCapacity
		version = cfg.Render.SchemaVersion
		if cfg.Render.StyleSheet != "" {
			if opts.Style, err = parser.ParseStyleSheet(cfg.Render.StyleSheet); err != nil {
				return nil, nil, err
			}
		}
	}

	var store snapshot.Store
	if path := c.String(flagSnapshotDB); path != "" {
		duck, err := snapshot.NewDuckStore(path, snapshot.DuckOptions{})
		if err != nil {
			return nil, nil, err
		}
		store = duck
		opts.Cache = snapshot.NewCache(store, version, logger)
	}

	eng := engine.New(opts)
	return eng, func() error {
		eng.Close()
		_ = logger.Sync()
		if store != nil {
			return store.Close()
		}
		return nil
	}, nil
}

func loadFile(ctx context.Context, eng *engine.MapEngine, path string) (engine.LoadResult, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return engine.LoadResult{}, fmt.Errorf("reading map file: %w", err)
	}
	res, err := eng.Load(ctx, payload)
	if err != nil {
		return res, fmt.Errorf("loading %s: %w", path, err)
	}
	return res, nil
}

// occupiedFloors lists floor 1 and every floor a park is restricted to.
func occupiedFloors(t *models.MapTables) []int {
	floors := []int{1}
	for _, p := range t.Parks {
		floors = append(floors, p.Layers...)
	}
	floors = lo.Uniq(floors)
	sort.Ints(floors)
	return floors
}
