package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/jask/crystalgen/internal/metrics"
	"github.com/jask/crystalgen/internal/viewer"
)

const xyz = "2\nFeO\nFe 0 0 0\nO 2.15 0 0\n"

func libraryServer(t *testing.T, hits *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, "window.$3Dmol = {};")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAcquireDownloadsOnceAndCaches(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := libraryServer(t, &hits, http.StatusOK)
	dir := t.TempDir()

	path, err := Acquire(context.Background(), srv.URL+"/build/3Dmol-min.js", dir, nil)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "3Dmol-min.js"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "window.$3Dmol = {};", string(data))

	_, err = Acquire(context.Background(), srv.URL+"/build/3Dmol-min.js", dir, nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
}

func TestAcquireFailureLeavesNoCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := libraryServer(t, &hits, http.StatusNotFound)
	lib := &Library{URL: srv.URL + "/3Dmol-min.js", CacheDir: t.TempDir()}

	err := lib.Fetch(context.Background())
	require.ErrorContains(t, err, "404")
	require.False(t, lib.Present())
}

func TestLoaderWithLibrary(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := libraryServer(t, &hits, http.StatusOK)
	lib := &Library{URL: srv.URL + "/3Dmol-min.js", CacheDir: t.TempDir()}
	l := viewer.NewLoader(lib.Present, lib.Fetch)

	state, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, viewer.Ready, state)
	require.Equal(t, int32(1), hits.Load())

	// A fresh process with the cache already filled skips the download.
	l2 := viewer.NewLoader(lib.Present, lib.Fetch)
	state, err = l2.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, viewer.Ready, state)
	require.Equal(t, int32(1), hits.Load())
}

func TestSurfaceRoutes(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	libSrv := libraryServer(t, &hits, http.StatusOK)
	lib := &Library{URL: libSrv.URL + "/3Dmol-min.js", CacheDir: t.TempDir()}

	rec := metrics.New()
	rec.Export()
	surf := NewSurface(lib, rec, nil)
	srv := httptest.NewServer(surf.Handler())
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/health")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "ok")

	code, body = get("/")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `<script src="/static/viewer.js">`)
	require.Contains(t, body, "$3Dmol.createViewer")

	code, _ = get("/static/viewer.js")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.NoError(t, lib.Fetch(context.Background()))
	code, body = get("/static/viewer.js")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "$3Dmol")

	code, body = get("/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "crystalgen_cif_exports_total 1")
}

func TestRenderPublishesSceneOverWebsocket(t *testing.T) {
	t.Parallel()

	surf := NewSurface(nil, nil, nil)
	srv := httptest.NewServer(surf.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first Scene
	require.NoError(t, conn.ReadJSON(&first))
	require.Empty(t, first.Models)

	c := &viewer.Controller{Engine: Engine{}, Surface: surf}
	did, err := c.Observe(viewer.Ready, "1", xyz)
	require.NoError(t, err)
	require.True(t, did)
	require.Equal(t, 1, surf.Attached())

	// Clear and render publish; zoom re-sends the render revision.
	var last Scene
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for last.Zoom == nil {
		var next Scene
		require.NoError(t, conn.ReadJSON(&next))
		last = next
	}
	require.Len(t, last.Models, 1)
	require.Equal(t, "xyz", last.Models[0].Format)
	require.Equal(t, "#f8f9fa", last.Config.BackgroundColor)
	require.True(t, last.Config.Antialias)
	require.True(t, last.ZoomTo)
	require.InDelta(t, 1.3, last.Zoom.Factor, 1e-9)
	require.Equal(t, int64(1000), last.Zoom.DurationMS)
	require.Len(t, last.Styles, 1)
	require.InDelta(t, 0.5, last.Styles[0].Style.Sphere.Radius, 1e-9)
	require.Equal(t, "spectrum", last.Styles[0].Style.Sphere.Color)
	require.InDelta(t, 0.15, last.Styles[0].Style.Stick.Radius, 1e-9)
	require.Equal(t, "grey", last.Styles[0].Style.Stick.Color)

	resp, err := http.Get(srv.URL + "/scene")
	require.NoError(t, err)
	defer resp.Body.Close()
	var current Scene
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&current))
	require.Equal(t, last.Revision, current.Revision)

	require.NoError(t, c.Close())
	require.Zero(t, surf.Attached())
	require.Empty(t, surf.Current().Models)
}

func TestRenderAddsOneRevisionPerStructure(t *testing.T) {
	t.Parallel()

	surf := NewSurface(nil, nil, nil)
	c := &viewer.Controller{Engine: Engine{}, Surface: surf}
	defer c.Close()

	before := surf.Current().Revision
	did, err := c.Observe(viewer.Ready, "1", xyz)
	require.NoError(t, err)
	require.True(t, did)

	// one for the clear, one for the structure
	cur := surf.Current()
	require.Equal(t, before+2, cur.Revision)
	require.Len(t, cur.Models, 1)
	require.NotNil(t, cur.Zoom)
	require.InDelta(t, 1.3, cur.Zoom.Factor, 1e-9)

	did, err = c.Observe(viewer.Ready, "2", xyz)
	require.NoError(t, err)
	require.True(t, did)
	// release of the first session, clear, structure
	require.Equal(t, before+5, surf.Current().Revision)
	require.NotNil(t, surf.Current().Zoom)
}

func TestEngineRejectsForeignSurface(t *testing.T) {
	t.Parallel()

	_, err := Engine{}.CreateSession(nil, viewer.DefaultConfig)
	require.ErrorIs(t, err, ErrWrongSurface)
}

func TestStartServesOnAddress(t *testing.T) {
	t.Parallel()

	surf := NewSurface(nil, nil, nil)
	require.NoError(t, surf.Start("127.0.0.1:0"))
	defer surf.Close()
	require.True(t, strings.HasPrefix(surf.URL(), "http://127.0.0.1:"))

	resp, err := http.Get(surf.URL() + "health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
