package main

import (
	"context"

	"github.com/earthrise-media/assetmap/api/config"
	"github.com/earthrise-media/assetmap/api/database"
	"github.com/earthrise-media/assetmap/api/handler"
	"github.com/earthrise-media/assetmap/api/importer"
	"github.com/earthrise-media/assetmap/api/mapdoc"
	"github.com/earthrise-media/assetmap/api/records"
	"github.com/earthrise-media/assetmap/api/search"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

//deps is everything the routes need, built once by preflight
type deps struct {
	cfg      *config.Config
	store    database.Store
	check    func(ctx context.Context) error
	renderer *mapdoc.Renderer
	records  *records.Service
	search   *search.Engine
	importer *importer.Importer
}

func main() {

	cfg, err := config.Load()
	if err != nil {
		config.Logger("ERROR").Fatal("invalid configuration", zap.Error(err))
	}
	logger := config.Logger(cfg.LogLevel)
	defer logger.Sync()

	d, db := preflight(cfg)
	if db != nil {
		defer db.Close()
	}
	app := assetApi(d)
	app.Listen(":" + cfg.Port)
}

func assetApi(d *deps) *iris.Application {

	app := iris.New()

	//TODO add CORS once the map is served from a separate origin

	//healthcheck endpoint
	hh := handler.HealthHandler{Check: d.check}
	app.Get("/healthz", hh.Ok)
	app.Get("/health", hh.Ok)

	//map endpoints
	mh := handler.MapHandler{
		Renderer:  d.renderer,
		Records:   d.records,
		Stager:    d.importer.Stager(),
		ImportTTL: d.cfg.ImportTTL,
	}
	app.Get("/", mh.Home)
	mapEndpoint := app.Party("/map")
	{
		mapEndpoint.Get("/", mh.Map)
		mapEndpoint.Post("/render", mh.Render)
	}

	//record endpoints
	rh := handler.RecordHandler{Records: d.records, Search: d.search}
	recordEndpoint := app.Party("/records")
	{
		recordEndpoint.Get("/", rh.List)
		recordEndpoint.Get("/search", rh.SearchRecords)
		recordEndpoint.Post("/{kind}", rh.Create)
		recordEndpoint.Get("/{kind}/{id:int64}", rh.Get)
		recordEndpoint.Get("/{kind}/{id:int64}/edit", rh.Edit)
		recordEndpoint.Post("/{kind}/{id:int64}", rh.Update)
		recordEndpoint.Post("/{kind}/{id:int64}/delete", rh.Delete)
		recordEndpoint.Delete("/{kind}/{id:int64}", rh.Delete)
	}

	//shapefile imports
	ih := handler.ImportHandler{Importer: d.importer, Records: d.records}
	importEndpoint := app.Party("/imports")
	{
		importEndpoint.Post("/", ih.Upload)
		importEndpoint.Get("/{id}/preview", ih.Preview)
		importEndpoint.Post("/{id}/commit", ih.Commit)
		importEndpoint.Delete("/{id}", ih.Discard)
	}
	return app
}

//preflight connects the store and wires the services, the pool is nil for the memory driver
func preflight(cfg *config.Config) (*deps, *pgxpool.Pool) {

	d := &deps{cfg: cfg}
	var db *pgxpool.Pool

	switch cfg.StoreDriver {
	case "memory":
		d.store = database.NewMemoryStore()
		zap.L().Warn("using the in-memory store, records will not survive a restart")
	default:
		var err error
		db, err = database.Connect(context.Background(), cfg.ConnString(), zap.L())
		if err != nil {
			zap.L().Fatal("failed to connect to database", zap.Error(err))
		}
		if cfg.DbInit {
			if err := database.SetupSchema(db); err != nil {
				zap.L().Fatal("unable to setup database", zap.Error(err))
			}
		}
		d.store = database.NewPostgresStore(db)
		d.check = db.Ping
	}

	wire(d)

	//write the map up front so GET /map never serves a stale file from a previous run
	if _, err := d.renderer.Render(context.Background()); err != nil {
		zap.L().Error("initial map render failed", zap.Error(err))
	}
	zap.L().Info("Preflight complete!")
	return d, db
}

//wire builds the services on top of d.store
func wire(d *deps) {

	cfg := d.cfg
	d.renderer = mapdoc.NewRenderer(d.store, mapdoc.Options{
		Path:       cfg.MapPath,
		Center:     cfg.MapCenter,
		CenterMode: mapdoc.CenterMode(cfg.MapCenterMode),
		Zoom:       cfg.MapZoom,
		TileURL:    cfg.MapTileURL,
	})
	d.records = records.NewService(d.store, d.renderer)
	d.search = search.NewEngine(d.store)

	stager, err := importer.NewStager(cfg.ImportDir)
	if err != nil {
		zap.L().Fatal("unable to prepare import directory", zap.Error(err))
	}
	d.importer = importer.New(stager, d.records, cfg.ImportPreviewRows)
}
