package transform

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformUnchangedRoundTrip(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/geoserver/ows?service=WMS&request=GetCapabilities&version=1.3.0", nil)
	tr := FromRequest(req)

	assert.False(t, tr.HaveChanged())
	assert.Equal(t, "/geoserver/ows", tr.RequestURI())

	got, err := url.Parse(tr.String())
	require.NoError(t, err)
	assert.Equal(t, "/geoserver/ows", got.Path)
	assert.Equal(t, req.URL.Query(), got.Query())
}

func TestTransformRemovalsInOrder(t *testing.T) {
	tr := New("/geoserver/tiger/wms/H11", nil)
	tr.RemoveMatch("/H11")
	tr.RemoveMatch("/tiger")

	assert.True(t, tr.HaveChanged())
	assert.Equal(t, "/geoserver/wms", tr.RequestURI())
	assert.Equal(t, "/geoserver/tiger/wms/H11", tr.OriginalRequestURI())
}

func TestTransformParametersCaseInsensitive(t *testing.T) {
	tr := New("/ows", ParseQuery("Layers=a&STYLES="))
	tr.SetParameter("LAYERS", "b")

	value, ok := tr.Parameter("layers")
	require.True(t, ok)
	assert.Equal(t, "b", value)
	assert.Equal(t, "Layers=b&STYLES=", tr.QueryString())
}

func TestTransformQueryStringEncodesValues(t *testing.T) {
	tr := New("/ows", nil)
	tr.SetParameter("CQL_FILTER", "CFCC='H11' AND x>1")
	tr.SetParameter("service", "WMS")

	assert.Equal(t, "CQL_FILTER=CFCC%3D%27H11%27+AND+x%3E1&service=WMS", tr.QueryString())
	assert.Equal(t, "/ows?CQL_FILTER=CFCC%3D%27H11%27+AND+x%3E1&service=WMS", tr.String())
}

func TestParseQueryKeepsOrderAndFirstValue(t *testing.T) {
	p := ParseQuery("b=1&a=2&B=3&bad=%zz&&flag")

	assert.Equal(t, []string{"b", "a", "bad", "flag"}, p.Names())
	assert.Equal(t, []string{"1", "3"}, p.Values("B"))
	value, _ := p.Get("bad")
	assert.Equal(t, "%zz", value)
	assert.Equal(t, "b=1&a=2&bad=%25zz&flag=", p.Encode())
}

func TestParamsDelAndClone(t *testing.T) {
	p := ParseQuery("a=1&b=2&c=3")
	c := p.Clone()
	p.Del("B")

	assert.Equal(t, []string{"a", "c"}, p.Names())
	assert.Equal(t, []string{"a", "b", "c"}, c.Names())
	assert.False(t, p.Has("b"))
}

func TestTransformParametersIsACopy(t *testing.T) {
	tr := New("/ows", ParseQuery("a=1"))
	params := tr.Parameters()
	params.Set("a", "2")
	params.Add("b", "3")

	value, _ := tr.Parameter("a")
	assert.Equal(t, "1", value)
	assert.Equal(t, "a=1", tr.QueryString())
	assert.Equal(t, map[string][]string{"a": {"2"}, "b": {"3"}}, map[string][]string(params.URLValues()))
}

func TestParamsEncodeAllKeepsRepeatedValues(t *testing.T) {
	p := ParseQuery("a=1&b=x y&a=2")

	assert.Equal(t, "a=1&b=x+y", p.Encode())
	assert.Equal(t, "a=1&a=2&b=x+y", p.EncodeAll())
}
