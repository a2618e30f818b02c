package mapdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/earthrise-media/assetmap/api/database"
	"github.com/earthrise-media/assetmap/api/encoding"
	"github.com/earthrise-media/assetmap/api/model"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type CenterMode string

const (
	//CenterFixed always uses the configured center
	CenterFixed CenterMode = "fixed"
	//CenterExtent uses the middle of everything on the map
	CenterExtent CenterMode = "extent"
	//CenterFirst uses the first record loaded
	CenterFirst CenterMode = "first"
)

type Options struct {
	Path       string
	Center     orb.Point
	CenterMode CenterMode
	Zoom       int
	TileURL    string
	Title      string
}

//Summary describes the last document written
type Summary struct {
	Path    string             `json:"path"`
	Center  [2]float64         `json:"center"`
	Markers map[model.Kind]int `json:"markers"`
}

//Renderer materializes the map document. Renders are serialized and each one
//replaces the file atomically, so readers only ever see a complete document.
type Renderer struct {
	store database.Store
	opts  Options
	mu    sync.Mutex
}

func NewRenderer(store database.Store, opts Options) *Renderer {
	if opts.CenterMode == "" {
		opts.CenterMode = CenterFixed
	}
	if opts.Zoom == 0 {
		opts.Zoom = 12
	}
	if opts.Title == "" {
		opts.Title = "Utility Assets"
	}
	return &Renderer{store: store, opts: opts}
}

func (r *Renderer) Path() string {
	return r.opts.Path
}

//Render recomputes the whole document from the store
func (r *Renderer) Render(ctx context.Context) (*Summary, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := make(map[model.Kind][]model.GeoRecord, len(model.Kinds))
	var all []model.GeoRecord
	for _, kind := range model.Kinds {
		recs, err := r.store.List(ctx, kind)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s for map", kind)
		}
		loaded[kind] = recs
		all = append(all, recs...)
	}

	center := r.center(all)
	data := pageData{
		Title:   r.opts.Title,
		Lat:     center.Lat(),
		Lon:     center.Lon(),
		Zoom:    r.opts.Zoom,
		TileURL: r.opts.TileURL,
	}
	summary := &Summary{
		Path:    r.opts.Path,
		Center:  [2]float64{center.Lat(), center.Lon()},
		Markers: make(map[model.Kind]int, len(model.Kinds)),
	}

	for _, kind := range model.Kinds {
		fc := encoding.RecordsToFeatureCollection(loaded[kind], Popup)
		raw, err := json.Marshal(fc)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s features", kind)
		}
		style := styles[string(kind)]
		data.Layers = append(data.Layers, layerData{
			Name:     style.Name,
			Color:    style.Color,
			Features: template.JS(raw),
		})
		summary.Markers[kind] = len(fc.Features)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(err, "executing map template")
	}
	if err := writeAtomic(r.opts.Path, buf.Bytes()); err != nil {
		return nil, err
	}

	zap.L().Info("rendered map",
		zap.String("path", r.opts.Path),
		zap.Int("customers", summary.Markers[model.KindCustomer]),
		zap.Int("lights", summary.Markers[model.KindLight]))
	return summary, nil
}

//center never looks into an empty record set, it falls back to the fixed center
func (r *Renderer) center(all []model.GeoRecord) orb.Point {

	switch r.opts.CenterMode {
	case CenterFirst:
		if len(all) > 0 {
			return all[0].Point()
		}
	case CenterExtent:
		if b, ok := encoding.Extent(all); ok {
			return b.Center()
		}
	}
	if r.opts.CenterMode != CenterFixed {
		zap.L().Debug("no records to center on, using fixed center")
	}
	return r.opts.Center
}

//Popup is the html shown when a marker is clicked
func Popup(rec model.GeoRecord) string {

	props := rec.Properties()
	q := url.Values{}
	var rows strings.Builder
	for _, name := range rec.LinkFields() {
		v := fmt.Sprintf("%v", props[name])
		q.Set(name, v)
		rows.WriteString("<b>" + template.HTMLEscapeString(label(name)) + ":</b> " +
			template.HTMLEscapeString(v) + "<br/>")
	}
	return fmt.Sprintf("%s<a href=\"%s\" target=\"_top\">Update Record</a>",
		rows.String(), template.HTMLEscapeString(UpdateLink(rec.Kind(), rec.GetId(), q)))
}

//UpdateLink is the edit view for a record
func UpdateLink(kind model.Kind, id int64, q url.Values) string {
	link := fmt.Sprintf("/records/%s/%d/edit", kind, id)
	if len(q) > 0 {
		link += "?" + q.Encode()
	}
	return link
}

func label(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

//writeAtomic writes next to the target then renames over it
func writeAtomic(path string, data []byte) error {

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := ioutil.TempFile(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temporary map file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing map")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing map")
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.Wrap(err, "setting map permissions")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "replacing map")
}
