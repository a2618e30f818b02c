package database

import (
	"context"
	"strconv"
	"strings"

	"github.com/earthrise-media/assetmap/api/model"
	"github.com/pkg/errors"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidField = model.ErrInvalidField
	ErrInvalidValue = model.ErrInvalidValue
)

//Store is the geo record store. Every call is a single point operation,
//nothing spans more than one row.
type Store interface {
	//Insert persists a new record and assigns its id
	Insert(ctx context.Context, rec model.GeoRecord) (int64, error)
	Get(ctx context.Context, kind model.Kind, id int64) (model.GeoRecord, error)
	//Save overwrites every column of an existing record
	Save(ctx context.Context, rec model.GeoRecord) error
	Delete(ctx context.Context, kind model.Kind, id int64) error
	//List returns every record of a kind by ascending id
	List(ctx context.Context, kind model.Kind) ([]model.GeoRecord, error)
	//Filter returns the records whose field equals value exactly, by ascending id
	Filter(ctx context.Context, kind model.Kind, field string, value string) ([]model.GeoRecord, error)
}

//filterArg converts a filter value to what the column holds. ok is false when
//the value cannot exist in that column, so nothing can match.
func filterArg(f model.Field, value string) (interface{}, bool) {
	if f.Type == model.TextField {
		return value, true
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}
