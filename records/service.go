package records

import (
	"context"
	"strings"

	"github.com/earthrise-media/assetmap/api/database"
	"github.com/earthrise-media/assetmap/api/mapdoc"
	"github.com/earthrise-media/assetmap/api/model"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//MapRenderer is rerun after every mutation that reaches the store
type MapRenderer interface {
	Render(ctx context.Context) (*mapdoc.Summary, error)
}

//Listing is every record of both kinds by ascending id
type Listing struct {
	Customers []model.GeoRecord
	Lights    []model.GeoRecord
}

//Service owns the create, update and delete lifecycle for geo records
type Service struct {
	store    database.Store
	renderer MapRenderer
}

func NewService(store database.Store, renderer MapRenderer) *Service {
	return &Service{store: store, renderer: renderer}
}

type coordinates struct {
	Latitude  string `validate:"required,latitude"`
	Longitude string `validate:"required,longitude"`
}

var validate = validator.New()

//Create builds a record from submitted fields. Anything not submitted keeps
//its zero value, a location is required.
func (s *Service) Create(ctx context.Context, kind model.Kind, fields map[string]string) (model.GeoRecord, error) {

	loc := coordinates{
		Latitude:  strings.TrimSpace(fields[model.Latitude]),
		Longitude: strings.TrimSpace(fields[model.Longitude]),
	}
	if err := validate.Struct(loc); err != nil {
		return nil, errors.Wrapf(database.ErrInvalidValue, "a %s needs a valid latitude and longitude", kind)
	}
	rec := model.New(kind)
	if _, err := model.Apply(rec, fields); err != nil {
		return nil, err
	}
	if _, err := s.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	zap.S().Infof("created %s %d", kind, rec.GetId())
	s.rerender(ctx)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, kind model.Kind, id int64) (model.GeoRecord, error) {
	return s.store.Get(ctx, kind, id)
}

//Update merges non empty fields into an existing record. The map is only
//rendered again when a stored value actually changed.
func (s *Service) Update(ctx context.Context, kind model.Kind, id int64, fields map[string]string) (model.GeoRecord, error) {

	rec, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	changed, err := model.Apply(rec, fields)
	if err != nil {
		return nil, err
	}
	if !changed {
		zap.S().Debugf("update of %s %d changed nothing", kind, id)
		return rec, nil
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	zap.S().Infof("updated %s %d", kind, id)
	s.rerender(ctx)
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, kind model.Kind, id int64) error {

	if err := s.store.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.rerender(ctx)
	return nil
}

func (s *Service) Listing(ctx context.Context) (*Listing, error) {

	customers, err := s.store.List(ctx, model.KindCustomer)
	if err != nil {
		return nil, err
	}
	lights, err := s.store.List(ctx, model.KindLight)
	if err != nil {
		return nil, err
	}
	return &Listing{Customers: customers, Lights: lights}, nil
}

//Insert stores records that were prepared elsewhere (imports) and renders once at the end.
//Rows the store rejects as invalid are logged and skipped, n counts what was written.
func (s *Service) Insert(ctx context.Context, recs []model.GeoRecord) (int, error) {

	n := 0
	for i, rec := range recs {
		if _, err := s.store.Insert(ctx, rec); err != nil {
			//a row the store refuses does not stop the rest of the batch
			if errors.Is(err, database.ErrInvalidValue) {
				zap.S().Warnf("skipping %s row %d: %s", rec.Kind(), i+1, err.Error())
				continue
			}
			s.rerender(ctx)
			return n, errors.Wrapf(err, "inserted %d of %d records", n, len(recs))
		}
		n++
	}
	s.rerender(ctx)
	return n, nil
}

//rerender keeps the map in step with the store. The mutation already
//happened so a render failure is logged rather than returned.
func (s *Service) rerender(ctx context.Context) {
	if s.renderer == nil {
		return
	}
	if _, err := s.renderer.Render(ctx); err != nil {
		zap.S().Errorf("error rendering map: %s", err.Error())
	}
}
