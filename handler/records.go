package handler

import (
	"strconv"
	"strings"

	"github.com/earthrise-media/assetmap/api/model"
	"github.com/earthrise-media/assetmap/api/records"
	"github.com/earthrise-media/assetmap/api/search"
	"github.com/kataras/iris/v12"
)

type RecordHandler struct {
	Records *records.Service
	Search  *search.Engine
}

//render writes the current listing with an optional notice or error
func (rh *RecordHandler) render(ctx iris.Context, status int, notice string, errMsg string) {

	listing, err := rh.Records.Listing(ctx.Request().Context())
	if err != nil {
		problem(ctx, "/records", "database issue", err)
		return
	}
	view := newView(listing.Customers, listing.Lights)
	view.Notice = notice
	view.Error = errMsg
	ctx.StatusCode(status)
	ctx.JSON(view)
}

//fail turns an error into a listing, or a problem when the store itself failed
func (rh *RecordHandler) fail(ctx iris.Context, err error) {

	status, soft := classify(err)
	switch {
	case soft:
		rh.render(ctx, status, err.Error(), "")
	case status == iris.StatusInternalServerError:
		problem(ctx, "/records", "database issue", err)
	default:
		rh.render(ctx, status, "", err.Error())
	}
}

func (rh *RecordHandler) List(ctx iris.Context) {
	rh.render(ctx, iris.StatusOK, "", "")
}

func (rh *RecordHandler) SearchRecords(ctx iris.Context) {

	res, err := rh.Search.Search(ctx.Request().Context(), ctx.URLParam("q"))
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	view := newView(res.Customers, res.Lights)
	view.Fallback = res.Fallback
	if res.Fallback {
		view.Notice = "unrecognized search field, showing all records. Search by one of: " +
			strings.Join(search.Labels(), ", ")
	}
	ctx.JSON(view)
}

func (rh *RecordHandler) Create(ctx iris.Context) {

	kind, err := parseKind(ctx, "kind")
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	fields, err := submittedFields(ctx)
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	rec, err := rh.Records.Create(ctx.Request().Context(), kind, fields)
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	ctx.Header("Location", recordPath(rec))
	rh.render(ctx, iris.StatusCreated, "", "")
}

func (rh *RecordHandler) Get(ctx iris.Context) {

	kind, err := parseKind(ctx, "kind")
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	id, _ := ctx.Params().GetInt64("id")
	rec, err := rh.Records.Get(ctx.Request().Context(), kind, id)
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	ctx.JSON(recordJSON(rec))
}

//Edit is where a map popup's update link lands, it echoes the record and the link values
func (rh *RecordHandler) Edit(ctx iris.Context) {

	kind, err := parseKind(ctx, "kind")
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	id, _ := ctx.Params().GetInt64("id")
	rec, err := rh.Records.Get(ctx.Request().Context(), kind, id)
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	ctx.JSON(iris.Map{
		"record": recordJSON(rec),
		"link":   ctx.URLParams(),
		"submit": recordPath(rec),
	})
}

func (rh *RecordHandler) Update(ctx iris.Context) {

	kind, err := parseKind(ctx, "kind")
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	id, _ := ctx.Params().GetInt64("id")
	fields, err := submittedFields(ctx)
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	if _, err := rh.Records.Update(ctx.Request().Context(), kind, id, fields); err != nil {
		rh.fail(ctx, err)
		return
	}
	rh.render(ctx, iris.StatusOK, "", "")
}

func (rh *RecordHandler) Delete(ctx iris.Context) {

	kind, err := parseKind(ctx, "kind")
	if err != nil {
		rh.fail(ctx, err)
		return
	}
	id, _ := ctx.Params().GetInt64("id")
	if err := rh.Records.Delete(ctx.Request().Context(), kind, id); err != nil {
		rh.fail(ctx, err)
		return
	}
	rh.render(ctx, iris.StatusOK, "", "")
}

func recordPath(rec model.GeoRecord) string {
	return "/records/" + string(rec.Kind()) + "/" + strconv.FormatInt(rec.GetId(), 10)
}
