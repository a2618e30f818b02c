package model

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	CustomerName    = "name"
	Address         = "address"
	AccountNumber   = "account_number"
	PremiseNumber   = "premise_number"
	ComponentId     = "component_id"
	ComponentType   = "component_type"
	NumberAccounted = "number_accounted"
	NumberOff       = "number_off"
	Area            = "area"
	JobSet          = "job_set"

	Title      = "title"
	Status     = "status"
	Ptag       = "ptag"
	LrNumber   = "lr_number"
	CustomerId = "customer_id"
)

var (
	ErrInvalidField = errors.New("invalid field")
	ErrInvalidValue = errors.New("invalid value")
)

type FieldType int

const (
	TextField FieldType = iota
	IntField
	//NullableIntField is an integer column that may be NULL (foreign keys)
	NullableIntField
)

//Field maps a submitted field name to its backing column
type Field struct {
	Name   string
	Column string
	Type   FieldType
}

var customerFields = []Field{
	{Id, "id", IntField},
	{CustomerName, "name", TextField},
	{Address, "address", TextField},
	{AccountNumber, "account_number", IntField},
	{PremiseNumber, "premise_number", IntField},
	{ComponentId, "component_id", TextField},
	{ComponentType, "component_type", TextField},
	{NumberAccounted, "number_accounted", IntField},
	{NumberOff, "number_off", IntField},
	{Area, "area", TextField},
	{JobSet, "job_set", TextField},
}

var lightFields = []Field{
	{Id, "id", IntField},
	{Title, "title", TextField},
	{Address, "address", TextField},
	{Status, "status", TextField},
	{Ptag, "ptag", IntField},
	{LrNumber, "lr_number", TextField},
	{Area, "area", TextField},
	{JobSet, "job_set", TextField},
	{CustomerId, "customer_id", NullableIntField},
}

//Fields returns the closed set of recognized fields for a kind, id first
func Fields(kind Kind) []Field {
	if kind == KindLight {
		return lightFields
	}
	return customerFields
}

//LookupField finds a recognized field by name
func LookupField(kind Kind, name string) (Field, error) {
	for _, f := range Fields(kind) {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, errors.Wrapf(ErrInvalidField, "%s has no field %q", kind, name)
}

var validate = validator.New()

//Apply merges submitted fields into rec. Blank values leave the stored value
//alone, everything else overwrites. Every name is checked before rec is
//touched so a bad request never half applies.
func Apply(rec GeoRecord, fields map[string]string) (bool, error) {

	for name, raw := range fields {
		if name == Latitude || name == Longitude {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			if err := validate.Var(strings.TrimSpace(raw), name); err != nil {
				return false, errors.Wrapf(ErrInvalidValue, "%s %q is not a valid coordinate", name, raw)
			}
			continue
		}
		if name == Id {
			return false, errors.Wrap(ErrInvalidField, "id cannot be changed")
		}
		f, err := LookupField(rec.Kind(), name)
		if err != nil {
			return false, err
		}
		if f.Type != TextField && strings.TrimSpace(raw) != "" {
			if _, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err != nil {
				return false, errors.Wrapf(ErrInvalidValue, "%s must be an integer, got %q", name, raw)
			}
		}
	}

	changed := false
	for name, raw := range fields {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		switch name {
		case Latitude, Longitude:
			changed = setCoordinate(rec, name, value) || changed
		default:
			changed = set(rec, name, value) || changed
		}
	}
	return changed, nil
}

func setCoordinate(rec GeoRecord, name, value string) bool {
	v, _ := strconv.ParseFloat(value, 64)
	p := rec.Point()
	var next orb.Point
	if name == Latitude {
		next = orb.Point{p.Lon(), v}
	} else {
		next = orb.Point{v, p.Lat()}
	}
	rec.SetPoint(next)
	return !next.Equal(p)
}

func set(rec GeoRecord, name, value string) bool {
	n, _ := strconv.ParseInt(value, 10, 64)
	switch r := rec.(type) {
	case *Customer:
		switch name {
		case CustomerName:
			return setText(&r.Name, value)
		case Address:
			return setText(&r.Address, value)
		case AccountNumber:
			return setInt(&r.AccountNumber, n)
		case PremiseNumber:
			return setInt(&r.PremiseNumber, n)
		case ComponentId:
			return setText(&r.ComponentId, value)
		case ComponentType:
			return setText(&r.ComponentType, value)
		case NumberAccounted:
			return setInt(&r.NumberAccounted, n)
		case NumberOff:
			return setInt(&r.NumberOff, n)
		case Area:
			return setText(&r.Area, value)
		case JobSet:
			return setText(&r.JobSet, value)
		}
	case *Light:
		switch name {
		case Title:
			return setText(&r.Title, value)
		case Address:
			return setText(&r.Address, value)
		case Status:
			return setText(&r.Status, value)
		case Ptag:
			return setInt(&r.Ptag, n)
		case LrNumber:
			return setText(&r.LrNumber, value)
		case Area:
			return setText(&r.Area, value)
		case JobSet:
			return setText(&r.JobSet, value)
		case CustomerId:
			//ids start at 1, a 0 is the dbf default for "no customer"
			if n <= 0 {
				if r.CustomerId == nil {
					return false
				}
				r.CustomerId = nil
				return true
			}
			if r.CustomerId != nil && *r.CustomerId == n {
				return false
			}
			r.CustomerId = &n
			return true
		}
	}
	return false
}

func setText(dst *string, v string) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func setInt(dst *int64, v int64) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

//Value reads a recognized field off a record as a comparable value
func Value(rec GeoRecord, name string) interface{} {
	if name == Id {
		return rec.GetId()
	}
	return rec.Properties()[name]
}
