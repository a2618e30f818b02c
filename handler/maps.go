package handler

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/earthrise-media/assetmap/api/importer"
	"github.com/earthrise-media/assetmap/api/mapdoc"
	"github.com/earthrise-media/assetmap/api/records"
	"github.com/kataras/iris/v12"
)

type MapHandler struct {
	Renderer  *mapdoc.Renderer
	Records   *records.Service
	Stager    *importer.Stager
	ImportTTL time.Duration
}

//Home sweeps stale uploads and summarizes what is stored
func (mh *MapHandler) Home(ctx iris.Context) {

	swept := 0
	if mh.Stager != nil {
		swept = mh.Stager.Sweep(mh.ImportTTL)
	}
	listing, err := mh.Records.Listing(ctx.Request().Context())
	if err != nil {
		problem(ctx, "/", "database issue", err)
		return
	}
	ctx.JSON(iris.Map{
		"customers":     len(listing.Customers),
		"lights":        len(listing.Lights),
		"map":           "/map",
		"records":       "/records",
		"swept_imports": swept,
	})
}

//Map serves the materialized document, rendering it first if it was never written
func (mh *MapHandler) Map(ctx iris.Context) {

	doc, err := ioutil.ReadFile(mh.Renderer.Path())
	if os.IsNotExist(err) {
		if _, err = mh.Renderer.Render(ctx.Request().Context()); err == nil {
			doc, err = ioutil.ReadFile(mh.Renderer.Path())
		}
	}
	if err != nil {
		problem(ctx, "/map", "map unavailable", err)
		return
	}
	ctx.ContentType("text/html; charset=utf-8")
	ctx.Write(doc)
}

func (mh *MapHandler) Render(ctx iris.Context) {

	summary, err := mh.Renderer.Render(ctx.Request().Context())
	if err != nil {
		problem(ctx, "/map", "map render failed", err)
		return
	}
	ctx.JSON(summary)
}
