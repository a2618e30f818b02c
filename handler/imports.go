package handler

import (
	"io"
	"mime/multipart"

	"github.com/earthrise-media/assetmap/api/importer"
	"github.com/earthrise-media/assetmap/api/model"
	"github.com/earthrise-media/assetmap/api/records"
	"github.com/kataras/iris/v12"
	"github.com/pkg/errors"
)

//uploads above this spill to temp files instead of memory
const maxUploadMemory = 32 << 20

type ImportHandler struct {
	Importer *importer.Importer
	Records  *records.Service
}

func (ih *ImportHandler) fail(ctx iris.Context, err error) {

	status, _ := classify(err)
	if status == iris.StatusInternalServerError {
		problem(ctx, "/imports", "import failed", err)
		return
	}
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"error": err.Error()})
}

//Upload stages the submitted shapefile set and, when a kind is given, previews it
func (ih *ImportHandler) Upload(ctx iris.Context) {

	req := ctx.Request()
	if err := req.ParseMultipartForm(maxUploadMemory); err != nil {
		ih.fail(ctx, errors.Wrap(importer.ErrIncompleteShapefile, "expected a multipart upload"))
		return
	}
	var headers []*multipart.FileHeader
	for _, key := range []string{"files", "file"} {
		headers = append(headers, req.MultipartForm.File[key]...)
	}
	if len(headers) == 0 {
		ih.fail(ctx, errors.Wrap(importer.ErrIncompleteShapefile, "no files uploaded"))
		return
	}

	uploads := make([]importer.Upload, 0, len(headers))
	var opened []io.Closer
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			ih.fail(ctx, errors.Wrapf(err, "reading upload %s", fh.Filename))
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, importer.Upload{Name: fh.Filename, Body: f})
	}

	id, err := ih.Importer.Stage(uploads)
	if err != nil {
		ih.fail(ctx, err)
		return
	}

	resp := iris.Map{"id": id}
	if raw := ctx.FormValue("kind"); raw != "" {
		kind, ok := model.ParseKind(raw)
		if !ok {
			ih.fail(ctx, errors.Wrapf(model.ErrInvalidField, "unknown record kind %q", raw))
			return
		}
		preview, err := ih.Importer.Preview(id, kind)
		if err != nil {
			ih.fail(ctx, err)
			return
		}
		resp["preview"] = preview
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(resp)
}

func (ih *ImportHandler) Preview(ctx iris.Context) {

	kind, err := parseKind(ctx, "kind")
	if err != nil {
		ih.fail(ctx, err)
		return
	}
	preview, err := ih.Importer.Preview(ctx.Params().Get("id"), kind)
	if err != nil {
		ih.fail(ctx, err)
		return
	}
	ctx.JSON(preview)
}

//Commit writes every row of the staged import and answers with the new listing
func (ih *ImportHandler) Commit(ctx iris.Context) {

	kind, err := parseKind(ctx, "kind")
	if err != nil {
		ih.fail(ctx, err)
		return
	}
	n, err := ih.Importer.Commit(ctx.Request().Context(), ctx.Params().Get("id"), kind)
	if err != nil {
		ih.fail(ctx, err)
		return
	}
	listing, err := ih.Records.Listing(ctx.Request().Context())
	if err != nil {
		problem(ctx, "/imports", "database issue", err)
		return
	}
	view := newView(listing.Customers, listing.Lights)
	ctx.JSON(iris.Map{
		"imported":  n,
		"customers": view.Customers,
		"lights":    view.Lights,
	})
}

func (ih *ImportHandler) Discard(ctx iris.Context) {

	if err := ih.Importer.Discard(ctx.Params().Get("id")); err != nil {
		ih.fail(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusNoContent)
}
