package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/earthrise-media/assetmap/api/config"
	"github.com/earthrise-media/assetmap/api/database"
	"github.com/gavv/httpexpect"
	"github.com/jonas-p/go-shp"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/httptest"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

//testApp serves the api over the memory store with the map and imports under a temp dir
func testApp(t *testing.T) (*httpexpect.Expect, *deps) {

	dir := t.TempDir()
	d := &deps{
		cfg: &config.Config{
			StoreDriver:       "memory",
			MapPath:           filepath.Join(dir, "map.html"),
			MapCenter:         orb.Point{-86.8104, 33.5186},
			MapCenterMode:     "fixed",
			MapZoom:           12,
			ImportDir:         filepath.Join(dir, "imports"),
			ImportTTL:         time.Hour,
			ImportPreviewRows: 10,
		},
		store: database.NewMemoryStore(),
	}
	wire(d)
	return httptest.New(t, assetApi(d)), d
}

func TestHealth(t *testing.T) {

	e, _ := testApp(t)
	e.GET("/health").Expect().Status(iris.StatusOK).JSON().Object().ValueEqual("status", "ok")
	e.GET("/healthz").Expect().Status(iris.StatusOK)
	e.GET("/nowhere").Expect().Status(iris.StatusNotFound)
}

func TestHome(t *testing.T) {

	e, _ := testApp(t)
	obj := e.GET("/").Expect().Status(iris.StatusOK).JSON().Object()
	obj.ValueEqual("customers", 0)
	obj.ValueEqual("lights", 0)
	obj.ValueEqual("swept_imports", 0)
}

func createCustomer(e *httpexpect.Expect, name string, account string) {
	e.POST("/records/customer").
		WithFormField("name", name).
		WithFormField("address", "1 Main St").
		WithFormField("account_number", account).
		WithFormField("latitude", "33.52").
		WithFormField("longitude", "-86.81").
		Expect().Status(iris.StatusCreated)
}

func TestCreateAndSearch(t *testing.T) {

	e, _ := testApp(t)

	e.POST("/records/customer").
		WithFormField("name", "Ada").
		WithFormField("account_number", "100").
		WithFormField("latitude", "33.52").
		WithFormField("longitude", "-86.81").
		Expect().Status(iris.StatusCreated).
		Header("Location").Equal("/records/customer/1")
	createCustomer(e, "Grace", "200")

	res := e.GET("/records/search").WithQuery("q", "account: 100").
		Expect().Status(iris.StatusOK).JSON().Object()
	res.Value("customers").Array().Length().Equal(1)
	res.Value("customers").Array().Element(0).Object().ValueEqual("name", "Ada")
	res.Value("lights").Array().Empty()
	res.NotContainsKey("fallback")

	e.GET("/records/search").WithQuery("q", "account: 999").
		Expect().Status(iris.StatusOK).
		JSON().Object().Value("customers").Array().Empty()

	fallback := e.GET("/records/search").WithQuery("q", "bogus: x").
		Expect().Status(iris.StatusOK).JSON().Object()
	fallback.ValueEqual("fallback", true)
	fallback.Value("notice").String().Contains("account number")
	fallback.Value("customers").Array().Length().Equal(2)

	e.GET("/records/search").WithQuery("q", "no colon here").
		Expect().Status(iris.StatusBadRequest).
		JSON().Object().Value("error").String().NotEmpty()
}

func TestCreateRejects(t *testing.T) {

	e, _ := testApp(t)

	//no location
	e.POST("/records/customer").WithFormField("name", "Ada").
		Expect().Status(iris.StatusBadRequest)
	e.POST("/records/pole").
		WithFormField("latitude", "33.52").WithFormField("longitude", "-86.81").
		Expect().Status(iris.StatusBadRequest)
	e.POST("/records/customer").
		WithFormField("latitude", "33.52").WithFormField("longitude", "-86.81").
		WithFormField("colour", "red").
		Expect().Status(iris.StatusBadRequest)

	e.GET("/records").Expect().Status(iris.StatusOK).
		JSON().Object().Value("customers").Array().Empty()
}

func TestCreateJSON(t *testing.T) {

	e, _ := testApp(t)
	e.POST("/records/light").WithJSON(map[string]interface{}{
		"title":     "Pole 7",
		"status":    "on",
		"ptag":      7,
		"latitude":  33.51,
		"longitude": -86.80,
	}).Expect().Status(iris.StatusCreated)

	light := e.GET("/records/light/1").Expect().Status(iris.StatusOK).JSON().Object()
	light.ValueEqual("title", "Pole 7")
	light.ValueEqual("ptag", 7)
	light.ValueEqual("kind", "light")
}

func TestCreateJSON_Numbers(t *testing.T) {

	e, _ := testApp(t)
	e.POST("/records/customer").
		WithHeader("Content-Type", "application/json; charset=utf-8").
		WithBytes([]byte(`{"name":"Ada","account_number":1234567,"premise_number":20000001,"latitude":0.00001,"longitude":-0.00002}`)).
		Expect().Status(iris.StatusCreated)

	obj := e.GET("/records/customer/1").Expect().Status(iris.StatusOK).JSON().Object()
	obj.ValueEqual("account_number", 1234567)
	obj.ValueEqual("premise_number", 20000001)
	obj.Value("latitude").Number().EqualDelta(0.00001, 1e-12)
	obj.Value("longitude").Number().EqualDelta(-0.00002, 1e-12)

	e.GET("/records/search").WithQuery("q", "account number: 1234567").
		Expect().Status(iris.StatusOK).
		JSON().Object().Value("customers").Array().Length().Equal(1)
}

func TestUpdateJSON(t *testing.T) {

	e, _ := testApp(t)
	createCustomer(e, "Ada", "100")

	e.POST("/records/customer/1").WithJSON(map[string]interface{}{
		"name":           nil,
		"account_number": 7654321,
	}).Expect().Status(iris.StatusOK)

	obj := e.GET("/records/customer/1").Expect().Status(iris.StatusOK).JSON().Object()
	obj.ValueEqual("name", "Ada")
	obj.ValueEqual("account_number", 7654321)
}

func TestLightCustomerReference(t *testing.T) {

	e, _ := testApp(t)
	createCustomer(e, "Ada", "100")

	e.POST("/records/light").
		WithFormField("title", "stray").
		WithFormField("customer_id", "999").
		WithFormField("latitude", "33.52").
		WithFormField("longitude", "-86.81").
		Expect().Status(iris.StatusBadRequest).
		JSON().Object().Value("error").String().NotEmpty()

	e.POST("/records/light").
		WithFormField("title", "no owner").
		WithFormField("customer_id", "0").
		WithFormField("latitude", "33.52").
		WithFormField("longitude", "-86.81").
		Expect().Status(iris.StatusCreated)
	e.GET("/records/light/1").Expect().Status(iris.StatusOK).
		JSON().Object().Value("customer_id").Null()
}

func TestPartialUpdate(t *testing.T) {

	e, _ := testApp(t)
	createCustomer(e, "Ada", "100")

	e.POST("/records/customer/1").
		WithFormField("name", "").
		WithFormField("address", "New Ave").
		Expect().Status(iris.StatusOK)

	obj := e.GET("/records/customer/1").Expect().Status(iris.StatusOK).JSON().Object()
	obj.ValueEqual("name", "Ada")
	obj.ValueEqual("address", "New Ave")
	obj.ValueEqual("account_number", 100)

	e.POST("/records/customer/1").WithFormField("account_number", "lots").
		Expect().Status(iris.StatusBadRequest)
	e.POST("/records/customer/9").WithFormField("name", "Nobody").
		Expect().Status(iris.StatusOK).
		JSON().Object().Value("notice").String().NotEmpty()
}

func TestDeleteTwice(t *testing.T) {

	e, _ := testApp(t)
	createCustomer(e, "Ada", "100")
	createCustomer(e, "Grace", "200")

	first := e.POST("/records/customer/1/delete").Expect().Status(iris.StatusOK).JSON().Object()
	first.Value("customers").Array().Length().Equal(1)
	first.NotContainsKey("notice")

	second := e.DELETE("/records/customer/1").Expect().Status(iris.StatusOK).JSON().Object()
	second.Value("notice").String().NotEmpty()
	second.Value("customers").Array().Length().Equal(1)
}

func TestMapFollowsMutations(t *testing.T) {

	e, _ := testApp(t)

	e.GET("/map").Expect().Status(iris.StatusOK).
		ContentType("text/html").Body().NotContains("/records/customer/1/edit")

	createCustomer(e, "Ada", "100")
	e.GET("/map").Expect().Status(iris.StatusOK).
		Body().Contains("/records/customer/1/edit")

	e.GET("/records/customer/1/edit").WithQuery("name", "Ada").
		Expect().Status(iris.StatusOK).JSON().Object().
		ValueEqual("submit", "/records/customer/1")

	e.POST("/records/customer/1/delete").Expect().Status(iris.StatusOK)
	e.GET("/map").Expect().Status(iris.StatusOK).
		Body().NotContains("/records/customer/1/edit")

	summary := e.POST("/map/render").Expect().Status(iris.StatusOK).JSON().Object()
	summary.Value("markers").Object().ValueEqual("customer", 0)
}

//billingShapefile writes a two row customer shapefile and returns file name -> bytes
func billingShapefile(t *testing.T) map[string][]byte {

	dir := t.TempDir()
	w, err := shp.Create(filepath.Join(dir, "billing.shp"), shp.POINT)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("CUSTOMER_N", 40),
		shp.NumberField("ACCOUNT_NU", 10),
	})
	rows := []struct {
		name    string
		account int
		x, y    float64
	}{
		{"Ada", 100, -86.81, 33.52},
		{"Grace", 200, -86.79, 33.50},
	}
	for _, r := range rows {
		n := w.Write(&shp.Point{X: r.x, Y: r.y})
		require.NoError(t, w.WriteAttribute(int(n), 0, r.name))
		require.NoError(t, w.WriteAttribute(int(n), 1, r.account))
	}
	w.Close()
	//go-shp names the attribute table "<base>dbf"
	require.NoError(t, os.Rename(filepath.Join(dir, "billingdbf"), filepath.Join(dir, "billing.dbf")))
	prj := `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "billing.prj"), []byte(prj), 0644))

	files := make(map[string][]byte)
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		raw, err := ioutil.ReadFile(filepath.Join(dir, "billing"+ext))
		require.NoError(t, err)
		files["billing"+ext] = raw
	}
	return files
}

func TestImportFlow(t *testing.T) {

	e, _ := testApp(t)
	files := billingShapefile(t)

	req := e.POST("/imports").WithMultipart().WithFormField("kind", "customers")
	for name, raw := range files {
		req = req.WithFileBytes("files", name, raw)
	}
	staged := req.Expect().Status(iris.StatusCreated).JSON().Object()
	id := staged.Value("id").String().NotEmpty().Raw()
	staged.Value("preview").Object().ValueEqual("total", 2)

	preview := e.GET("/imports/" + id + "/preview").WithQuery("kind", "customer").
		Expect().Status(iris.StatusOK).JSON().Object()
	preview.Value("rows").Array().Length().Equal(2)
	preview.ValueEqual("crs", "EPSG:4326")

	committed := e.POST("/imports/" + id + "/commit").WithQuery("kind", "customer").
		Expect().Status(iris.StatusOK).JSON().Object()
	committed.ValueEqual("imported", 2)
	committed.Value("customers").Array().Length().Equal(2)

	//the staging directory went with the commit
	e.POST("/imports/" + id + "/commit").WithQuery("kind", "customer").
		Expect().Status(iris.StatusBadRequest)

	e.GET("/records/search").WithQuery("q", "account: 200").
		Expect().Status(iris.StatusOK).
		JSON().Object().Value("customers").Array().Element(0).Object().ValueEqual("name", "Grace")
	e.GET("/map").Expect().Status(iris.StatusOK).Body().Contains("/records/customer/2/edit")
}

func TestImportRejectsIncompleteUpload(t *testing.T) {

	e, d := testApp(t)
	files := billingShapefile(t)

	e.POST("/imports").WithMultipart().
		WithFileBytes("files", "billing.shp", files["billing.shp"]).
		WithFileBytes("files", "billing.dbf", files["billing.dbf"]).
		Expect().Status(iris.StatusBadRequest)

	e.POST("/imports").WithMultipart().WithFormField("kind", "customer").
		Expect().Status(iris.StatusBadRequest)

	e.DELETE("/imports/not-an-id").Expect().Status(iris.StatusBadRequest)

	entries, err := ioutil.ReadDir(d.cfg.ImportDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestImportDiscard(t *testing.T) {

	e, _ := testApp(t)
	req := e.POST("/imports").WithMultipart()
	for name, raw := range billingShapefile(t) {
		req = req.WithFileBytes("file", name, raw)
	}
	id := req.Expect().Status(iris.StatusCreated).JSON().Object().Value("id").String().Raw()

	e.DELETE("/imports/" + id).Expect().Status(iris.StatusNoContent)
	e.GET("/imports/" + id + "/preview").WithQuery("kind", "customer").
		Expect().Status(iris.StatusBadRequest)
}
