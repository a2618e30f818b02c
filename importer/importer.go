package importer

import (
	"context"

	"github.com/earthrise-media/assetmap/api/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//Inserter stores a batch of imported records
type Inserter interface {
	Insert(ctx context.Context, recs []model.GeoRecord) (int, error)
}

//Preview is what an import would write, shown before committing
type Preview struct {
	Id      string            `json:"id"`
	Kind    model.Kind        `json:"kind"`
	CRS     string            `json:"crs"`
	Columns []string          `json:"columns"`
	Rows    [][]string        `json:"rows"`
	Total   int               `json:"total"`
	Mapped  map[string]string `json:"mapped"`
	Missing []string          `json:"missing"`
	Skipped int               `json:"skipped"`
}

type Importer struct {
	stager      *Stager
	inserter    Inserter
	previewRows int
}

func New(stager *Stager, inserter Inserter, previewRows int) *Importer {
	if previewRows <= 0 {
		previewRows = 10
	}
	return &Importer{stager: stager, inserter: inserter, previewRows: previewRows}
}

func (im *Importer) Stage(uploads []Upload) (string, error) {
	return im.stager.Stage(uploads)
}

func (im *Importer) Discard(id string) error {
	return im.stager.Discard(id)
}

func (im *Importer) Stager() *Stager {
	return im.stager
}

func (im *Importer) read(id string, kind model.Kind) (*Table, error) {
	dir, err := im.stager.Dir(id)
	if err != nil {
		return nil, err
	}
	return ReadShapefile(dir, kind)
}

//Preview reads a staged import as kind without writing anything
func (im *Importer) Preview(id string, kind model.Kind) (*Preview, error) {

	table, err := im.read(id, kind)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Id:      id,
		Kind:    kind,
		CRS:     string(table.CRS),
		Columns: table.Columns,
		Rows:    table.Preview(im.previewRows),
		Total:   len(table.Records),
		Mapped:  table.Mapped,
		Missing: table.Missing,
		Skipped: table.Skipped,
	}, nil
}

//Commit inserts one record per row then drops the staged files
func (im *Importer) Commit(ctx context.Context, id string, kind model.Kind) (int, error) {

	table, err := im.read(id, kind)
	if err != nil {
		return 0, err
	}
	n, err := im.inserter.Insert(ctx, table.Records)
	if err != nil {
		return n, errors.Wrapf(err, "committing import %s", id)
	}
	if err := im.stager.Discard(id); err != nil {
		zap.S().Warnf("import %s committed but not cleaned up: %s", id, err.Error())
	}
	zap.S().Infof("imported %d %s records from %s", n, kind, id)
	return n, nil
}
