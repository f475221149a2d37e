package web

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jask/crystalgen/internal/metrics"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { margin: 0; font-family: system-ui; background: {{.Background}}; }
  #viewer { position: absolute; inset: 0; }
  #status { position: absolute; left: 1rem; bottom: 1rem; color: #6c757d; font-size: 0.85rem; }
</style>
<script src="/static/viewer.js"></script>
</head>
<body>
<div id="viewer"></div>
<div id="status">waiting for a structure</div>
<script>
(function () {
  var el = document.getElementById("viewer");
  var status = document.getElementById("status");
  var v = null;
  var shown = -1;
  function apply(scene) {
    if (v && scene.revision === shown) {
      if (scene.zoom) { v.zoom(scene.zoom.factor, scene.zoom.durationMs); }
      return;
    }
    shown = scene.revision;
    if (v) { v.clear(); v = null; }
    el.innerHTML = "";
    if (!scene || !scene.models || scene.models.length === 0) {
      status.textContent = "waiting for a structure";
      return;
    }
    v = $3Dmol.createViewer(el, scene.config);
    scene.models.forEach(function (m) { v.addModel(m.data, m.format); });
    (scene.styles || []).forEach(function (s) { v.setStyle(s.selector, s.style); });
    if (scene.zoomTo) { v.zoomTo(); }
    v.render();
    if (scene.zoom) { v.zoom(scene.zoom.factor, scene.zoom.durationMs); }
    status.textContent = "revision " + scene.revision;
  }
  fetch("/scene").then(function (r) { return r.json(); }).then(apply);
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.onmessage = function (ev) { apply(JSON.parse(ev.data)); };
})();
</script>
</body>
</html>
`))

// Surface serves the viewer page and pushes scenes to connected browsers.
type Surface struct {
	Library *Library
	Metrics *metrics.Recorder
	Logger  *slog.Logger
	Title   string

	mu      sync.Mutex
	scene   Scene
	live    int
	clients map[*websocket.Conn]struct{}
	server  *http.Server
	addr    string
}

func NewSurface(lib *Library, rec *metrics.Recorder, logger *slog.Logger) *Surface {
	return &Surface{
		Library: lib,
		Metrics: rec,
		Logger:  logger,
		Title:   "crystalgen viewer",
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler builds the gin router.
func (s *Surface) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleIndex)
	r.GET("/static/viewer.js", s.handleLibrary)
	r.GET("/scene", s.handleScene)
	r.GET("/ws", s.handleWS)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	return r
}

func (s *Surface) handleIndex(c *gin.Context) {
	s.mu.Lock()
	bg := s.scene.Config.BackgroundColor
	s.mu.Unlock()
	if bg == "" {
		bg = "#f8f9fa"
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	data := struct {
		Title      string
		Background template.CSS
	}{Title: s.Title, Background: template.CSS(bg)}
	if err := pageTmpl.Execute(c.Writer, data); err != nil {
		s.logger().Warn("render viewer page", "error", err)
	}
}

func (s *Surface) handleLibrary(c *gin.Context) {
	if s.Library == nil || !s.Library.Present() {
		c.String(http.StatusServiceUnavailable, "viewer library not available")
		return
	}
	c.Header("Content-Type", "application/javascript")
	c.File(s.Library.Path())
}

func (s *Surface) handleScene(c *gin.Context) {
	s.mu.Lock()
	scene := s.scene
	s.mu.Unlock()
	c.JSON(http.StatusOK, scene)
}

func (s *Surface) handleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger().Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	s.mu.Lock()
	s.clients[ws] = struct{}{}
	scene := s.scene
	err = writeScene(ws, scene)
	s.mu.Unlock()
	s.logger().Debug("viewer client connected", "remote", c.Request.RemoteAddr)
	if err == nil {
		// Reads only detect the close; the page never sends.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
	}

	s.mu.Lock()
	delete(s.clients, ws)
	s.mu.Unlock()
}

func writeScene(ws *websocket.Conn, scene Scene) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(scene)
}

// Clear publishes an empty scene.
func (s *Surface) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(Scene{})
	return nil
}

func (s *Surface) publish(scene Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(scene)
	return nil
}

func (s *Surface) publishLocked(scene Scene) {
	scene.Revision = s.scene.Revision + 1
	s.scene = scene
	s.broadcastLocked()
}

func (s *Surface) broadcastLocked() {
	for ws := range s.clients {
		if err := writeScene(ws, s.scene); err != nil {
			s.logger().Debug("dropping viewer client", "error", err)
			_ = ws.Close()
			delete(s.clients, ws)
		}
	}
}

// amendZoom attaches zoom to the published scene of session without a new
// revision. The page animates it on the viewer it already built.
func (s *Surface) amendZoom(session string, zoom *SceneZoom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene.Revision == 0 || s.scene.Session != session {
		return
	}
	s.scene.Zoom = zoom
	s.broadcastLocked()
}

func (s *Surface) attach() {
	s.mu.Lock()
	s.live++
	s.mu.Unlock()
}

func (s *Surface) detach(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live--
	if s.scene.Session == session {
		s.publishLocked(Scene{})
	}
}

// Attached is the number of sessions not yet released.
func (s *Surface) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Current returns the last published scene.
func (s *Surface) Current() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

// Start listens on addr and serves in the background.
func (s *Surface) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.server = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger().Error("viewer server stopped", "error", err)
		}
	}()
	s.logger().Info("viewer page available", "url", s.URL())
	return nil
}

// URL of the running page, or "" before Start.
func (s *Surface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == "" {
		return ""
	}
	return "http://" + s.addr + "/"
}

func (s *Surface) Close() error {
	s.mu.Lock()
	srv := s.server
	for ws := range s.clients {
		_ = ws.Close()
		delete(s.clients, ws)
	}
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Surface) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
