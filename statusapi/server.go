package statusapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sharedcode/multipathd/corestate"
	_ "github.com/sharedcode/multipathd/statusapi/docs"
)

// NewRouter builds the gin engine serving the status API, grounded on
// teacher rest_api/rest_main.go's router assembly: a versioned route
// group plus a /swagger/*any doc-serving route. Every route here is an
// unauthenticated GET, so rest_main.go's per-route bearer-token wrapper
// has no counterpart.
func NewRouter(state *corestate.State) *gin.Engine {
	router := gin.Default()
	a := newAPI(state)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/maps", a.GetMaps)
		v1.GET("/maps/:alias", a.GetMapByAlias)
		v1.GET("/paths", a.GetPaths)
	}
	router.GET("/healthz", a.GetHealthz)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return router
}

// Server wraps an http.Server that listens on the address it is given;
// nothing here restricts that address to loopback (cmd/multipathd's
// -status-addr default is 127.0.0.1:8081). Unlike the teacher's
// router.Run("localhost:8080") shortcut, this holds the *http.Server so
// callers can Shutdown it from cmd/multipathd's signal handling alongside
// the control socket.
type Server struct {
	http *http.Server
}

// NewServer returns a Server listening on addr (e.g. "127.0.0.1:8081")
// once Serve is called.
func NewServer(state *corestate.State, addr string) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(state),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Serve blocks serving HTTP until the listener errors or Shutdown is
// called; http.ErrServerClosed is not treated as a failure.
func (s *Server) Serve() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
