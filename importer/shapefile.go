package importer

import (
	"io/ioutil"
	"sort"
	"strconv"
	"strings"

	"github.com/earthrise-media/assetmap/api/encoding"
	"github.com/earthrise-media/assetmap/api/model"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrSchemaMismatch = errors.New("shapefile columns do not match")

//attribute columns expected for each import kind, dbf names are at most 10 characters
var expectedColumns = map[model.Kind]map[string]string{
	model.KindCustomer: {
		"customer_n": model.CustomerName,
		"service_ad": model.Address,
		"account_nu": model.AccountNumber,
		"premise_nu": model.PremiseNumber,
		"componen_1": model.ComponentId,
		"componen_2": model.ComponentType,
		"number_acc": model.NumberAccounted,
		"number_off": model.NumberOff,
		"area":       model.Area,
		"job_set":    model.JobSet,
	},
	model.KindLight: {
		"title":      model.Title,
		"address":    model.Address,
		"status":     model.Status,
		"ptag":       model.Ptag,
		"lr_number":  model.LrNumber,
		"area":       model.Area,
		"job_set":    model.JobSet,
		"customer_i": model.CustomerId,
	},
}

//Table is a shapefile read for one kind of record
type Table struct {
	Kind    model.Kind
	CRS     encoding.CRS
	Columns []string
	//Rows holds the raw attribute values in Columns order
	Rows    [][]string
	Records []model.GeoRecord
	//Mapped is dbf column to record field for every expected column found
	Mapped map[string]string
	//Missing lists expected columns that fell back to defaults
	Missing []string
	//Skipped counts rows without a geometry, they are not imported
	Skipped int
}

//ReadShapefile reads every feature of the staged shapefile in dir
func ReadShapefile(dir string, kind model.Kind) (*Table, error) {

	path, err := shapefilePath(dir)
	if err != nil {
		return nil, err
	}

	crs := encoding.WGS84
	if prj, err := ioutil.ReadFile(strings.TrimSuffix(path, ".shp") + ".prj"); err == nil {
		crs = encoding.DetectCRS(string(prj))
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening shapefile")
	}
	defer reader.Close()

	table := &Table{Kind: kind, CRS: crs, Mapped: make(map[string]string)}
	expected := expectedColumns[kind]
	fieldIndex := make(map[string]int)
	for i, f := range reader.Fields() {
		name := clean(f.String())
		table.Columns = append(table.Columns, name)
		if field, ok := expected[strings.ToLower(name)]; ok {
			table.Mapped[name] = field
			fieldIndex[field] = i
		}
	}
	if len(table.Mapped) == 0 {
		return nil, errors.Wrapf(ErrSchemaMismatch, "none of the %s columns are present", kind)
	}
	for col, field := range expected {
		if _, ok := fieldIndex[field]; !ok {
			table.Missing = append(table.Missing, col)
		}
	}
	sort.Strings(table.Missing)

	for reader.Next() {
		n, shape := reader.Shape()
		point, ok := location(shape)
		if !ok {
			zap.S().Warnf("row %d of %s import has no geometry, skipping", n, kind)
			table.Skipped++
			continue
		}
		row := make([]string, len(table.Columns))
		for i := range table.Columns {
			row[i] = clean(reader.ReadAttribute(n, i))
		}
		table.Rows = append(table.Rows, row)

		rec := model.New(kind)
		fields := make(map[string]string, len(fieldIndex))
		for field, i := range fieldIndex {
			fields[field] = normalize(kind, field, row[i])
		}
		if _, err := model.Apply(rec, fields); err != nil {
			//best effort, a bad cell leaves the whole row at defaults rather than failing the import
			zap.S().Warnf("row %d of %s import: %s", n, kind, err.Error())
		}
		rec.SetPoint(encoding.Reproject(point, crs))
		table.Records = append(table.Records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, errors.Wrap(err, "reading shapefile")
	}
	return table, nil
}

//Preview is the first rows of a table
func (t *Table) Preview(n int) [][]string {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

//normalize turns a dbf cell into something Apply accepts. Numeric columns
//are often stored with a decimal part, unreadable numbers become the default.
func normalize(kind model.Kind, field, value string) string {

	f, err := model.LookupField(kind, field)
	if err != nil || f.Type == model.TextField || value == "" {
		return value
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return value
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

//clean strips the space and NUL padding of dbf values
func clean(s string) string {
	return strings.Trim(s, " \x00")
}

//location is the point of a point shape, or the middle of anything else.
//ok is false for a null shape.
func location(shape shp.Shape) (orb.Point, bool) {

	switch s := shape.(type) {
	case nil, *shp.Null:
		return orb.Point{}, false
	case *shp.Point:
		return orb.Point{s.X, s.Y}, true
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}, true
	case *shp.PointM:
		return orb.Point{s.X, s.Y}, true
	}
	box := shape.BBox()
	return orb.Point{(box.MinX + box.MaxX) / 2, (box.MinY + box.MaxY) / 2}, true
}
