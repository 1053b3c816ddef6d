package report

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderHeatmapHTML(t *testing.T) {
	m, err := Crosstab([]string{"oxide", "fresh"}, []string{"oxide", "oxide"})
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, RenderHeatmapHTML(m, "Domain comparison", &buf))
	out := buf.String()

	require.Contains(t, out, "echarts")
	require.Contains(t, out, "Domain comparison")
	require.Contains(t, out, "oxide")
}

func TestHeatmapHandler(t *testing.T) {
	m, err := Crosstab([]string{"a"}, []string{"a"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	HeatmapHandler(m, "matrix").ServeHTTP(rec, httptest.NewRequest("GET", "/matrix", nil))

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "matrix")
}
