package handler

import (
	"encoding/json"
	"fmt"
	"mime"

	"github.com/earthrise-media/assetmap/api/database"
	"github.com/earthrise-media/assetmap/api/importer"
	"github.com/earthrise-media/assetmap/api/model"
	"github.com/earthrise-media/assetmap/api/search"
	"github.com/kataras/iris/v12"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//View is the listing every record route degrades to
type View struct {
	Customers []map[string]interface{} `json:"customers"`
	Lights    []map[string]interface{} `json:"lights"`
	Fallback  bool                     `json:"fallback,omitempty"`
	Notice    string                   `json:"notice,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func newView(customers, lights []model.GeoRecord) *View {
	return &View{Customers: properties(customers), Lights: properties(lights)}
}

func properties(recs []model.GeoRecord) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordJSON(rec))
	}
	return out
}

func recordJSON(rec model.GeoRecord) map[string]interface{} {
	props := rec.Properties()
	props["kind"] = string(rec.Kind())
	return props
}

//classify decides how an error reaches the caller. Missing records are soft
//failures, bad input is the caller's fault, anything else is ours.
func classify(err error) (status int, soft bool) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return iris.StatusOK, true
	case errors.Is(err, database.ErrInvalidField),
		errors.Is(err, database.ErrInvalidValue),
		errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, importer.ErrSchemaMismatch),
		errors.Is(err, importer.ErrIncompleteShapefile),
		errors.Is(err, importer.ErrUnknownImport):
		return iris.StatusBadRequest, false
	}
	return iris.StatusInternalServerError, false
}

func problem(ctx iris.Context, typ string, detail string, err error) {
	zap.S().Errorf("%s: %s", detail, err.Error())
	ctx.Problem(iris.NewProblem().Type(typ).Detail(detail).Status(iris.StatusInternalServerError))
}

func parseKind(ctx iris.Context, name string) (model.Kind, error) {
	raw := ctx.Params().Get(name)
	if raw == "" {
		raw = ctx.URLParam(name)
	}
	kind, ok := model.ParseKind(raw)
	if !ok {
		return "", errors.Wrapf(database.ErrInvalidField, "unknown record kind %q", raw)
	}
	return kind, nil
}

//submittedFields reads a form or json body into field name -> raw value
func submittedFields(ctx iris.Context) (map[string]string, error) {

	fields := make(map[string]string)
	if isJSON(ctx.GetHeader("Content-Type")) {
		var body map[string]interface{}
		//numbers stay as written, float64 would turn 1234567 into 1.234567e+06
		dec := json.NewDecoder(ctx.Request().Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return nil, errors.Wrap(database.ErrInvalidValue, "unreadable json body")
		}
		for k, v := range body {
			switch val := v.(type) {
			case nil:
				fields[k] = ""
			case json.Number:
				fields[k] = val.String()
			case string:
				fields[k] = val
			default:
				fields[k] = fmt.Sprint(val)
			}
		}
	} else {
		for k, vs := range ctx.FormValues() {
			if len(vs) > 0 {
				fields[k] = vs[0]
			}
		}
	}
	//routing values, not record fields
	delete(fields, "kind")
	delete(fields, model.Id)
	return fields, nil
}

//isJSON ignores parameters such as charset
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
