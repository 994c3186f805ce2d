package extractor

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paramx/paramx/internal/rules"
	"github.com/paramx/paramx/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSet(params ...rules.EchoParameter) *store.Live[[]rules.EchoParameter] {
	return store.Static("echo", params)
}

func TestManglerIgnoresNonCapabilities(t *testing.T) {
	m := NewMangler(echoSet(rules.EchoParameter{ID: "0", Parameter: "CQL_FILTER", Activated: true}))
	req := httptest.NewRequest(http.MethodGet, "/ows?REQUEST=GetMap&CQL_FILTER=a", nil)

	assert.False(t, m.Applies(req))
	assert.Equal(t, "http://h/ows?SERVICE=WMS", m.Mangle(req, "http://h/ows?SERVICE=WMS"))
}

func TestManglerEchoesOriginalParameters(t *testing.T) {
	m := NewMangler(echoSet(
		rules.EchoParameter{ID: "0", Parameter: "CQL_FILTER", Activated: true},
		rules.EchoParameter{ID: "1", Parameter: "ENV", Activated: false},
		rules.EchoParameter{ID: "2", Parameter: "VIEWPARAMS", Activated: true},
	))
	req := httptest.NewRequest(http.MethodGet, "/ows?request=getcapabilities&cql_filter=CFCC%3D%27H11%27&ENV=x", nil)

	require.True(t, m.Applies(req))
	got := m.Mangle(req, "http://h/geoserver/ows?SERVICE=WMS&")
	assert.Equal(t, "http://h/geoserver/ows?SERVICE=WMS&CQL_FILTER=CFCC%3D%27H11%27", got)
}

func TestManglerKeepsExistingParameters(t *testing.T) {
	m := NewMangler(echoSet(rules.EchoParameter{ID: "0", Parameter: "CQL_FILTER", Activated: true}))
	req := httptest.NewRequest(http.MethodGet, "/ows?REQUEST=GetCapabilities&CQL_FILTER=a", nil)

	raw := "http://h/ows?cql_filter=b"
	assert.Equal(t, raw, m.Mangle(req, raw))
}

func TestManglerUsesPreRewriteRequest(t *testing.T) {
	filter := dispatcherFilter(t, PlacementDispatcher, layerRule())
	m := NewMangler(echoSet(rules.EchoParameter{ID: "0", Parameter: "CQL_FILTER", Activated: true}))

	req := httptest.NewRequest(http.MethodGet, "/geoserver/tiger/wms/H11?SERVICE=WMS&REQUEST=GetCapabilities", nil)
	out, err := filter.Rewrite(req)
	require.NoError(t, err)

	// The filter added CQL_FILTER, so it is not an original parameter. The
	// rewritten path maps back to the virtual endpoint.
	got := m.Mangle(out, "http://h/geoserver/tiger/wms?SERVICE=WMS")
	assert.Equal(t, "http://h/geoserver/tiger/wms/H11?SERVICE=WMS", got)

	other := "http://h/geoserver/ows?SERVICE=WMS"
	assert.Equal(t, other, m.Mangle(out, other))
}

func TestManglerKeepsRepeatedLinkParameters(t *testing.T) {
	m := NewMangler(echoSet(rules.EchoParameter{ID: "0", Parameter: "VIEWPARAMS", Activated: true}))
	req := httptest.NewRequest(http.MethodGet, "/ows?REQUEST=GetCapabilities&VIEWPARAMS=a:1&VIEWPARAMS=b:2", nil)

	got := m.Mangle(req, "http://h/ows?LAYERS=x&LAYERS=y&SERVICE=WMS")
	assert.Equal(t, "http://h/ows?LAYERS=x&LAYERS=y&SERVICE=WMS&VIEWPARAMS=a%3A1&VIEWPARAMS=b%3A2", got)
}
