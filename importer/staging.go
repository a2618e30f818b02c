package importer

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrIncompleteShapefile = errors.New("incomplete shapefile")
	ErrUnknownImport       = errors.New("unknown import")
)

//companions must sit next to the .shp with the same base name
var companions = []string{".shx", ".dbf", ".prj"}

//Upload is one file of a shapefile set
type Upload struct {
	Name string
	Body io.Reader
}

//Stager gives every upload its own scratch directory under root
type Stager struct {
	root string
}

func NewStager(root string) (*Stager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating import directory %s", root)
	}
	return &Stager{root: root}, nil
}

//Stage writes the uploads into a new directory and checks they form a complete shapefile
func (s *Stager) Stage(uploads []Upload) (string, error) {

	id := uuid.New().String()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating staging directory")
	}

	for _, up := range uploads {
		if err := writeUpload(dir, up); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	if _, err := shapefilePath(dir); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	zap.S().Infof("staged import %s with %d files", id, len(uploads))
	return id, nil
}

func writeUpload(dir string, up Upload) error {

	name := filepath.Base(up.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return errors.Wrapf(ErrIncompleteShapefile, "bad file name %q", up.Name)
	}
	//the reader opens companions by the .shp base name, so every file shares one case
	name = strings.ToLower(name)

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return errors.Wrapf(err, "creating %s", name)
	}
	defer f.Close()
	if _, err := io.Copy(f, up.Body); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return nil
}

//Dir resolves a staging id to its directory
func (s *Stager) Dir(id string) (string, error) {

	if _, err := uuid.Parse(id); err != nil {
		return "", errors.Wrapf(ErrUnknownImport, "%q", id)
	}
	dir := filepath.Join(s.root, id)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", errors.Wrapf(ErrUnknownImport, "%q", id)
	}
	return dir, nil
}

//Discard removes a staged import
func (s *Stager) Discard(id string) error {
	dir, err := s.Dir(id)
	if err != nil {
		return err
	}
	return errors.Wrap(os.RemoveAll(dir), "removing staged import")
}

//Sweep removes staged imports older than maxAge and returns how many went
func (s *Stager) Sweep(maxAge time.Duration) int {

	entries, err := ioutil.ReadDir(s.root)
	if err != nil {
		zap.S().Warnf("unable to read import directory: %s", err.Error())
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || e.ModTime().After(cutoff) {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			zap.S().Warnf("unable to remove stale import %s: %s", e.Name(), err.Error())
			continue
		}
		removed++
	}
	if removed > 0 {
		zap.S().Infof("swept %d stale imports", removed)
	}
	return removed
}

//shapefilePath finds the single .shp in dir and checks its companions exist
func shapefilePath(dir string) (string, error) {

	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(err, "reading staging directory")
	}
	byName := make(map[string]bool, len(entries))
	var shps []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		byName[strings.ToLower(e.Name())] = true
		if strings.ToLower(filepath.Ext(e.Name())) == ".shp" {
			shps = append(shps, e.Name())
		}
	}
	if len(shps) != 1 {
		return "", errors.Wrapf(ErrIncompleteShapefile, "expected one .shp file, found %d", len(shps))
	}

	base := strings.ToLower(strings.TrimSuffix(shps[0], filepath.Ext(shps[0])))
	var missing []string
	for _, ext := range companions {
		if !byName[base+ext] {
			missing = append(missing, base+ext)
		}
	}
	if len(missing) > 0 {
		return "", errors.Wrapf(ErrIncompleteShapefile, "missing %s", strings.Join(missing, ", "))
	}
	return filepath.Join(dir, shps[0]), nil
}
