package model

import (
	"github.com/paulmach/orb"
)

//Kind tags which table a geo record lives in
type Kind string

const (
	KindCustomer Kind = "customer"
	KindLight    Kind = "light"
)

//Kinds lists every record kind in render order
var Kinds = []Kind{KindCustomer, KindLight}

//ParseKind accepts the singular or plural form of a kind
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "customer", "customers":
		return KindCustomer, true
	case "light", "lights":
		return KindLight, true
	}
	return "", false
}

//Table is the backing table name for the kind
func (k Kind) Table() string {
	return string(k) + "s"
}

const (
	Id        = "id"
	Latitude  = "latitude"
	Longitude = "longitude"
)

//GeoRecord is the capability shared by customers and lights
type GeoRecord interface {
	Kind() Kind
	GetId() int64
	SetId(id int64)
	Point() orb.Point
	SetPoint(p orb.Point)
	//Properties are the attributes carried onto a map feature
	Properties() map[string]interface{}
	//LinkFields are the attributes passed along with the update link
	LinkFields() []string
}

type Customer struct {
	Id              int64     `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	AccountNumber   int64     `json:"account_number"`
	PremiseNumber   int64     `json:"premise_number"`
	ComponentId     string    `json:"component_id"`
	ComponentType   string    `json:"component_type"`
	NumberAccounted int64     `json:"number_accounted"`
	NumberOff       int64     `json:"number_off"`
	Area            string    `json:"area"`
	JobSet          string    `json:"job_set"`
	Location        orb.Point `json:"-"`
}

type Light struct {
	Id         int64     `json:"id"`
	Title      string    `json:"title"`
	Address    string    `json:"address"`
	Status     string    `json:"status"`
	Ptag       int64     `json:"ptag"`
	LrNumber   string    `json:"lr_number"`
	Area       string    `json:"area"`
	JobSet     string    `json:"job_set"`
	CustomerId *int64    `json:"customer_id"`
	Location   orb.Point `json:"-"`
}

//New returns an empty record of the given kind
func New(kind Kind) GeoRecord {
	if kind == KindLight {
		return &Light{}
	}
	return &Customer{}
}

func (c *Customer) Kind() Kind { return KindCustomer }
func (c *Customer) GetId() int64 { return c.Id }
func (c *Customer) SetId(id int64) { c.Id = id }
func (c *Customer) Point() orb.Point { return c.Location }
func (c *Customer) SetPoint(p orb.Point) { c.Location = p }

func (c *Customer) Properties() map[string]interface{} {
	return map[string]interface{}{
		Id:              c.Id,
		CustomerName:    c.Name,
		Address:         c.Address,
		AccountNumber:   c.AccountNumber,
		PremiseNumber:   c.PremiseNumber,
		ComponentId:     c.ComponentId,
		ComponentType:   c.ComponentType,
		NumberAccounted: c.NumberAccounted,
		NumberOff:       c.NumberOff,
		Area:            c.Area,
		JobSet:          c.JobSet,
		Latitude:        c.Location.Lat(),
		Longitude:       c.Location.Lon(),
	}
}

func (c *Customer) LinkFields() []string {
	return []string{CustomerName, Address, AccountNumber, PremiseNumber}
}

func (l *Light) Kind() Kind { return KindLight }
func (l *Light) GetId() int64 { return l.Id }
func (l *Light) SetId(id int64) { l.Id = id }
func (l *Light) Point() orb.Point { return l.Location }
func (l *Light) SetPoint(p orb.Point) { l.Location = p }

func (l *Light) Properties() map[string]interface{} {
	props := map[string]interface{}{
		Id:        l.Id,
		Title:     l.Title,
		Address:   l.Address,
		Status:    l.Status,
		Ptag:      l.Ptag,
		LrNumber:  l.LrNumber,
		Area:      l.Area,
		JobSet:    l.JobSet,
		Latitude:  l.Location.Lat(),
		Longitude: l.Location.Lon(),
	}
	if l.CustomerId != nil {
		props[CustomerId] = *l.CustomerId
	} else {
		props[CustomerId] = nil
	}
	return props
}

func (l *Light) LinkFields() []string {
	return []string{Title, Address, Status, Ptag}
}
