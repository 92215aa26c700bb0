package exposure

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ciboulette/astrolab/archive"
	"github.com/ciboulette/astrolab/astrometry"
	"github.com/ciboulette/astrolab/generichttp"
	"github.com/ciboulette/astrolab/imgrec"
	"github.com/ciboulette/astrolab/profile"
	"github.com/ciboulette/astrolab/server"
	"github.com/ciboulette/astrolab/server/middleware/locker"
)

// DefaultPreviewWidth is the width of the PNG served for the last frame
const DefaultPreviewWidth = 800

// HTTPWrapper exposes an Orchestrator and its profile over HTTP
type HTTPWrapper struct {
	O      *Orchestrator
	Locker *locker.Locker

	// PreviewWidth is the maximum width of the last frame preview
	PreviewWidth int

	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a wrapper with its route table populated.  The
// locker is shared with the middleware guarding the router.
func NewHTTPWrapper(o *Orchestrator, l *locker.Locker) HTTPWrapper {
	w := HTTPWrapper{O: o, Locker: l, PreviewWidth: DefaultPreviewWidth}
	rt := generichttp.RouteTable{
		{Method: http.MethodPost, Path: "/exposure"}:         w.Expose,
		{Method: http.MethodGet, Path: "/state"}:             w.GetState,
		{Method: http.MethodGet, Path: "/pointing"}:          w.GetPointing,
		{Method: http.MethodPost, Path: "/pointing"}:         w.SetPointing,
		{Method: http.MethodGet, Path: "/site"}:              w.GetSite,
		{Method: http.MethodPost, Path: "/site"}:             w.SetSite,
		{Method: http.MethodGet, Path: "/profile"}:           w.GetProfile,
		{Method: http.MethodGet, Path: "/profile/table"}:     w.GetProfileTable,
		{Method: http.MethodPost, Path: "/profile/camera"}:   generichttp.SetString(w.applyCamera, StatusCode),
		{Method: http.MethodPost, Path: "/profile/lens"}:     w.SetLens,
		{Method: http.MethodPost, Path: "/profile/object"}:   generichttp.SetString(w.setObject, StatusCode),
		{Method: http.MethodGet, Path: "/filter"}:            generichttp.GetString(w.filter),
		{Method: http.MethodPost, Path: "/filter"}:           generichttp.SetString(w.selectFilter, StatusCode),
		{Method: http.MethodPost, Path: "/slew"}:             w.Slew,
		{Method: http.MethodGet, Path: "/fov"}:               w.GetFOV,
		{Method: http.MethodGet, Path: "/fov/stars"}:         w.GetStars,
		{Method: http.MethodGet, Path: "/last/preview.png"}:  w.GetPreview,
		{Method: http.MethodGet, Path: "/last/frame.fits"}:   w.GetFrame,
		{Method: http.MethodGet, Path: "/archives/file"}:     w.GetArchiveFile,
		{Method: http.MethodGet, Path: "/archives"}:          w.GetArchives,
		{Method: http.MethodGet, Path: "/archives/sectors"}:  w.GetSectors,
		{Method: http.MethodGet, Path: "/camera/ccdtemp"}:    generichttp.GetFloat(w.O.Rig.Temperature),
		{Method: http.MethodGet, Path: "/camera/imageready"}: generichttp.GetBool(w.O.Rig.ImageReady),
	}
	w.RouteTable = rt
	if l != nil {
		locker.Inject(w, l)
	}
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

func httpError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), StatusCode(err))
}

// ExposureResponse is returned by a successful POST /exposure
type ExposureResponse struct {
	FrameID int    `json:"frameid"`
	Path    string `json:"path"`
}

// Expose takes one frame described by a JSON Request
func (h HTTPWrapper) Expose(w http.ResponseWriter, r *http.Request) {
	req := Request{}
	err := json.NewDecoder(r.Body).Decode(&req)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.Locker != nil {
		if !h.Locker.TryLock() {
			httpError(w, ErrBusy)
			return
		}
		defer h.Locker.Unlock()
	}
	id, err := h.O.Expose(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	_, a, _ := h.O.Recorder.Last()
	generichttp.EncodeJSON(w, ExposureResponse{FrameID: id, Path: a.Path})
}

// StateResponse is returned by GET /state
type StateResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// GetState returns the orchestrator state
func (h HTTPWrapper) GetState(w http.ResponseWriter, r *http.Request) {
	s, err := h.O.State()
	resp := StateResponse{State: s.String()}
	if err != nil {
		resp.Error = err.Error()
	}
	generichttp.EncodeJSON(w, resp)
}

// GetPointing returns the stored pointing
func (h HTTPWrapper) GetPointing(w http.ResponseWriter, r *http.Request) {
	generichttp.EncodeJSON(w, h.O.Session.Snapshot().Pointing)
}

// SetPointing applies a JSON PointingUpdate.  Rejected fields are listed in
// the response; in strict mode they are a 400.
func (h HTTPWrapper) SetPointing(w http.ResponseWriter, r *http.Request) {
	u := profile.PointingUpdate{}
	err := json.NewDecoder(r.Body).Decode(&u)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.O.Session.SetPointing(u)
	respondResult(w, res, err)
}

// GetSite returns the stored site
func (h HTTPWrapper) GetSite(w http.ResponseWriter, r *http.Request) {
	generichttp.EncodeJSON(w, h.O.Session.Snapshot().Site)
}

// SetSite applies a JSON SiteUpdate, as SetPointing
func (h HTTPWrapper) SetSite(w http.ResponseWriter, r *http.Request) {
	u := profile.SiteUpdate{}
	err := json.NewDecoder(r.Body).Decode(&u)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.O.Session.SetSite(u)
	respondResult(w, res, err)
}

func respondResult(w http.ResponseWriter, res profile.Result, err error) {
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(StatusCode(err))
		json.NewEncoder(w).Encode(res)
		return
	}
	generichttp.EncodeJSON(w, res)
}

// GetProfile returns the whole profile
func (h HTTPWrapper) GetProfile(w http.ResponseWriter, r *http.Request) {
	generichttp.EncodeJSON(w, h.O.Session.Snapshot())
}

// GetProfileTable returns the flat profile listing
func (h HTTPWrapper) GetProfileTable(w http.ResponseWriter, r *http.Request) {
	generichttp.EncodeJSON(w, h.O.Session.Table())
}

func (h HTTPWrapper) applyCamera(key string) error {
	var err error
	h.O.Session.Update(func(p *profile.Profile) { err = p.Instrument.ApplyCamera(key) })
	return err
}

// LensRequest selects a lens preset and, for zooms, a focal length
type LensRequest struct {
	Key   string  `json:"key"`
	Focal float64 `json:"focal"`
}

// SetLens applies a JSON LensRequest
func (h HTTPWrapper) SetLens(w http.ResponseWriter, r *http.Request) {
	req := LensRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.O.Session.Update(func(p *profile.Profile) { err = p.Instrument.ApplyLens(req.Key, req.Focal) })
	if err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) setObject(name string) error {
	if name == "" {
		return fmt.Errorf("%w: object name must not be empty", ErrInvalidRequest)
	}
	h.O.Session.SetObject(name)
	return nil
}

func (h HTTPWrapper) filter() (string, error) {
	return h.O.Rig.ReadFilter()
}

func (h HTTPWrapper) selectFilter(name string) error {
	if _, err := h.O.Rig.SelectFilter(name); err != nil {
		return err
	}
	h.O.Session.SetFilter(name)
	return nil
}

// Slew sends the mount to the stored pointing
func (h HTTPWrapper) Slew(w http.ResponseWriter, r *http.Request) {
	if err := h.O.Rig.Slew(h.O.Session.Snapshot().Pointing); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetFOV returns the catalog region covered by the stored profile
func (h HTTPWrapper) GetFOV(w http.ResponseWriter, r *http.Request) {
	reg, err := h.fov()
	if err != nil {
		httpError(w, err)
		return
	}
	generichttp.EncodeJSON(w, reg)
}

func (h HTTPWrapper) fov() (astrometry.Region, error) {
	p := h.O.Session.Snapshot()
	i := p.Instrument
	wcs, err := astrometry.ComputeWCS(p.Pointing.RA, p.Pointing.Dec, astrometry.Geometry{
		Width: i.Width, Height: i.Height, Binning: i.Binning, PixelSize: i.PixelSizeX, FocalLength: i.FocalLength,
	})
	if err != nil {
		return astrometry.Region{}, err
	}
	return astrometry.FieldOfView(wcs, i.Width, i.Height), nil
}

// GetStars returns the catalog objects in the field of view
func (h HTTPWrapper) GetStars(w http.ResponseWriter, r *http.Request) {
	if h.O.Catalog == nil {
		http.Error(w, "no star catalog configured", http.StatusNotImplemented)
		return
	}
	reg, err := h.fov()
	if err != nil {
		httpError(w, err)
		return
	}
	stars, err := h.O.Catalog.Query(r.Context(), reg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	generichttp.EncodeJSON(w, stars)
}

// GetPreview serves a PNG of the last frame
func (h HTTPWrapper) GetPreview(w http.ResponseWriter, r *http.Request) {
	f, _, ok := h.O.Recorder.Last()
	if !ok {
		http.Error(w, "no frame has been taken", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := imgrec.WritePNG(w, f, h.PreviewWidth); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetFrame serves the FITS file of the last frame
func (h HTTPWrapper) GetFrame(w http.ResponseWriter, r *http.Request) {
	_, a, ok := h.O.Recorder.Last()
	if !ok {
		http.Error(w, "no frame has been taken", http.StatusNotFound)
		return
	}
	server.ReplyWithFile(w, r, filepath.Base(a.Path), filepath.Dir(a.Path))
}

// GetArchiveFile serves ?name= from the archive directory, or from the
// dataset directory new frames are written to and indexed from
func (h HTTPWrapper) GetArchiveFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		http.Error(w, fmt.Sprintf("invalid file name %q", name), http.StatusBadRequest)
		return
	}
	i := h.O.Session.Snapshot().Instrument
	dir := i.Archives
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil && i.Dataset != "" {
		dir = i.Dataset
	}
	server.ReplyWithFile(w, r, name, dir)
}

func (h HTTPWrapper) archives(r *http.Request) ([]archive.Entry, error) {
	if h.O.Index != nil {
		return h.O.Index.List(r.Context())
	}
	return archive.Scan(h.O.Session.Snapshot().Instrument.Archives)
}

// GetArchives lists archived frames, from the index if there is one
func (h HTTPWrapper) GetArchives(w http.ResponseWriter, r *http.Request) {
	entries, err := h.archives(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	generichttp.EncodeJSON(w, entries)
}

// GetSectors lists archived survey sector frames
func (h HTTPWrapper) GetSectors(w http.ResponseWriter, r *http.Request) {
	entries, err := h.archives(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	generichttp.EncodeJSON(w, archive.Sectors(entries))
}
