package statusapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sharedcode/multipathd"
	"github.com/sharedcode/multipathd/corestate"
)

// api holds the read-only state handle every handler closes over.
// Grounded on teacher rest_api/stores.go's storesRestApi receiver-struct
// shape, narrowed to a single state dependency.
type api struct {
	state *corestate.State
}

func newAPI(state *corestate.State) *api {
	return &api{state: state}
}

// GetMaps godoc
// @Summary List multipath maps
// @Description Returns every registered multipath map with its groups and paths.
// @Tags Maps
// @Produce json
// @Success 200 {object} []MapView
// @Router /api/v1/maps [get]
func (a *api) GetMaps(c *gin.Context) {
	a.state.RLock()
	defer a.state.RUnlock()

	views := make([]MapView, 0, a.state.Maps.Len())
	a.state.Maps.ForEach(func(_ int, m *multipath.Map) bool {
		views = append(views, newMapView(m))
		return true
	})
	c.JSON(http.StatusOK, views)
}

// GetMapByAlias godoc
// @Summary Get one multipath map by alias
// @Description Returns the map whose alias matches the path parameter.
// @Tags Maps
// @Produce json
// @Param alias path string true "Map alias"
// @Failure 404 {object} map[string]any
// @Success 200 {object} MapView
// @Router /api/v1/maps/{alias} [get]
func (a *api) GetMapByAlias(c *gin.Context) {
	alias := c.Param("alias")

	a.state.RLock()
	defer a.state.RUnlock()

	m := a.state.FindMapByAlias(alias)
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "no such map: " + alias})
		return
	}
	c.JSON(http.StatusOK, newMapView(m))
}

// GetPaths godoc
// @Summary List paths
// @Description Returns every path the daemon currently tracks, mapped or not.
// @Tags Paths
// @Produce json
// @Success 200 {object} []PathView
// @Router /api/v1/paths [get]
func (a *api) GetPaths(c *gin.Context) {
	a.state.RLock()
	defer a.state.RUnlock()

	views := make([]PathView, 0, a.state.Paths.Len())
	a.state.Paths.ForEach(func(_ int, p *multipath.Path) bool {
		views = append(views, newPathView(p))
		return true
	})
	c.JSON(http.StatusOK, views)
}

// GetHealthz godoc
// @Summary Liveness probe
// @Description Always returns 200 while the daemon's HTTP server is up.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /healthz [get]
func (a *api) GetHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
