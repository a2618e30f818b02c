package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/earthrise-media/assetmap/api/database"
	"github.com/earthrise-media/assetmap/api/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrInvalidQuery = errors.New("invalid query")

//Query is a parsed "label: value" search
type Query struct {
	Label string
	Value string
}

//columns maps a normalized label to the field it filters for each kind
var columns = map[string]map[model.Kind]string{
	"name":             {model.KindCustomer: model.CustomerName},
	"address":          {model.KindCustomer: model.Address, model.KindLight: model.Address},
	"account":          {model.KindCustomer: model.AccountNumber},
	"account number":   {model.KindCustomer: model.AccountNumber},
	"premise":          {model.KindCustomer: model.PremiseNumber},
	"premise number":   {model.KindCustomer: model.PremiseNumber},
	"component id":     {model.KindCustomer: model.ComponentId},
	"component type":   {model.KindCustomer: model.ComponentType},
	"number accounted": {model.KindCustomer: model.NumberAccounted},
	"number off":       {model.KindCustomer: model.NumberOff},
	"area":             {model.KindCustomer: model.Area, model.KindLight: model.Area},
	"job set":          {model.KindCustomer: model.JobSet, model.KindLight: model.JobSet},
	"title":            {model.KindLight: model.Title},
	"status":           {model.KindLight: model.Status},
	"ptag":             {model.KindLight: model.Ptag},
	"lr number":        {model.KindLight: model.LrNumber},
	"customer id":      {model.KindLight: model.CustomerId},
	"c id":             {model.KindCustomer: model.Id},
	"l id":             {model.KindLight: model.Id},
}

var separators = regexp.MustCompile(`[\s_-]+`)

//Parse splits a query on its first colon and normalizes the label
func Parse(q string) (Query, error) {

	i := strings.Index(q, ":")
	if i < 0 {
		return Query{}, errors.Wrapf(ErrInvalidQuery, "%q has no field label, use \"field: value\"", q)
	}
	label := separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(q[:i])), " ")
	value := strings.TrimSpace(q[i+1:])
	if label == "" || value == "" {
		return Query{}, errors.Wrapf(ErrInvalidQuery, "%q needs both a field and a value", q)
	}
	return Query{Label: label, Value: value}, nil
}

//Result holds matches per kind. Fallback is set when the label was not
//recognized and the full listing was returned instead.
type Result struct {
	Customers []model.GeoRecord `json:"customers"`
	Lights    []model.GeoRecord `json:"lights"`
	Fallback  bool              `json:"fallback"`
}

func (r *Result) set(kind model.Kind, recs []model.GeoRecord) {
	if kind == model.KindLight {
		r.Lights = recs
	} else {
		r.Customers = recs
	}
}

type Engine struct {
	store database.Store
}

func NewEngine(store database.Store) *Engine {
	return &Engine{store: store}
}

//Search runs a query. A blank query returns everything.
func (e *Engine) Search(ctx context.Context, q string) (*Result, error) {

	if strings.TrimSpace(q) == "" {
		return e.all(ctx, false)
	}
	query, err := Parse(q)
	if err != nil {
		return nil, err
	}

	fields, ok := columns[query.Label]
	if !ok {
		zap.S().Infof("unrecognized search label %q, returning full listing", query.Label)
		return e.all(ctx, true)
	}

	res := &Result{Customers: []model.GeoRecord{}, Lights: []model.GeoRecord{}}
	for _, kind := range model.Kinds {
		field, ok := fields[kind]
		if !ok {
			continue
		}
		recs, err := e.store.Filter(ctx, kind, field, query.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "searching %s", kind.Table())
		}
		res.set(kind, recs)
	}
	return res, nil
}

func (e *Engine) all(ctx context.Context, fallback bool) (*Result, error) {

	res := &Result{Fallback: fallback}
	for _, kind := range model.Kinds {
		recs, err := e.store.List(ctx, kind)
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s", kind.Table())
		}
		res.set(kind, recs)
	}
	return res, nil
}

//Labels lists every recognized search label
func Labels() []string {
	out := make([]string, 0, len(columns))
	for label := range columns {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
