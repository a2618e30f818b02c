package search

import (
	"context"
	"testing"

	"github.com/earthrise-media/assetmap/api/database"
	"github.com/earthrise-media/assetmap/api/model"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *Engine {
	store := database.NewMemoryStore()
	ctx := context.Background()
	recs := []model.GeoRecord{
		&model.Customer{Name: "Acme", Address: "1 Main St", AccountNumber: 100, PremiseNumber: 5, Area: "North", Location: orb.Point{-86.8, 33.5}},
		&model.Customer{Name: "Bolt", Address: "2 Oak Ave", AccountNumber: 200, PremiseNumber: 6, Area: "South", Location: orb.Point{-86.7, 33.6}},
		&model.Light{Title: "Pole 1", Address: "1 Main St", Status: "on", Ptag: 11, Area: "North", Location: orb.Point{-86.8, 33.5}},
		&model.Light{Title: "Pole 2", Address: "9 Elm Rd", Status: "off", Ptag: 12, Area: "North", Location: orb.Point{-86.6, 33.4}},
	}
	for _, rec := range recs {
		_, err := store.Insert(ctx, rec)
		require.NoError(t, err)
	}
	return NewEngine(store)
}

func names(recs []model.GeoRecord) []string {
	out := []string{}
	for _, rec := range recs {
		switch r := rec.(type) {
		case *model.Customer:
			out = append(out, r.Name)
		case *model.Light:
			out = append(out, r.Title)
		}
	}
	return out
}

func TestParse(t *testing.T) {

	q, err := Parse("  Account Number :  100 ")
	require.NoError(t, err)
	assert.Equal(t, Query{Label: "account number", Value: "100"}, q)

	q, err = Parse("LR_Number: A:12")
	require.NoError(t, err)
	assert.Equal(t, Query{Label: "lr number", Value: "A:12"}, q)

	for _, bad := range []string{"Acme", ": Acme", "name:", "name:   "} {
		_, err := Parse(bad)
		assert.True(t, errors.Is(err, ErrInvalidQuery), bad)
	}
}

func TestSearch_ExactMatch(t *testing.T) {

	e := seeded(t)
	ctx := context.Background()

	res, err := e.Search(ctx, "account: 100")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, names(res.Customers))
	assert.Empty(t, res.Lights)
	assert.False(t, res.Fallback)

	res, err = e.Search(ctx, "account: 999")
	require.NoError(t, err)
	assert.Empty(t, res.Customers)
	assert.Empty(t, res.Lights)

	res, err = e.Search(ctx, "name: acme")
	require.NoError(t, err)
	assert.Empty(t, res.Customers, "matching is exact, not case folded")

	res, err = e.Search(ctx, "name: Acm")
	require.NoError(t, err)
	assert.Empty(t, res.Customers, "matching is exact, not substring")
}

func TestSearch_PairsKinds(t *testing.T) {

	e := seeded(t)
	ctx := context.Background()

	res, err := e.Search(ctx, "Address: 1 Main St")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, names(res.Customers))
	assert.Equal(t, []string{"Pole 1"}, names(res.Lights))

	res, err = e.Search(ctx, "area: North")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, names(res.Customers))
	assert.Equal(t, []string{"Pole 1", "Pole 2"}, names(res.Lights))

	res, err = e.Search(ctx, "l id: 2")
	require.NoError(t, err)
	assert.Empty(t, res.Customers)
	assert.Equal(t, []string{"Pole 2"}, names(res.Lights))

	res, err = e.Search(ctx, "c id: 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt"}, names(res.Customers))
	assert.Empty(t, res.Lights)
}

func TestSearch_UnknownLabelFallsBack(t *testing.T) {

	e := seeded(t)
	res, err := e.Search(context.Background(), "bogus: x")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, []string{"Acme", "Bolt"}, names(res.Customers))
	assert.Equal(t, []string{"Pole 1", "Pole 2"}, names(res.Lights))
}

func TestSearch_Malformed(t *testing.T) {

	e := seeded(t)
	_, err := e.Search(context.Background(), "Acme")
	assert.True(t, errors.Is(err, ErrInvalidQuery))

	res, err := e.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Len(t, res.Customers, 2)
}

func TestColumnsAreRecognizedFields(t *testing.T) {

	for label, fields := range columns {
		for kind, field := range fields {
			_, err := model.LookupField(kind, field)
			assert.NoError(t, err, label)
		}
	}
	assert.Contains(t, Labels(), "c id")
}
