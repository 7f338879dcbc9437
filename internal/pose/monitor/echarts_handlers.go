package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/posture.report/internal/httputil"
	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleAlignmentChart renders each region's latest metric against its
// threshold. Bars take the region's feedback colour.
func (ws *WebServer) handleAlignmentChart(w http.ResponseWriter, r *http.Request) {
	limits := make(map[l3alignment.Region]float64)
	for _, c := range ws.session.Analyzer().Checks() {
		limits[c.Region] = c.Threshold
	}

	entries := ws.board.Snapshot()
	x := make([]string, 0, len(entries))
	metrics := make([]opts.BarData, 0, len(entries))
	thresholds := make([]opts.BarData, 0, len(entries))
	for _, e := range entries {
		x = append(x, string(e.Region))
		color := "#555555"
		if e.Set {
			color = l3alignment.Hex(e.Color)
		}
		metrics = append(metrics, opts.BarData{Value: e.Metric, ItemStyle: &opts.ItemStyle{Color: color}})
		thresholds = append(thresholds, opts.BarData{Value: limits[e.Region]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Posture alignment",
			Subtitle: fmt.Sprintf("session %s, revision %d, %s", ws.session.ID(), ws.board.Revision(), time.Now().Format(time.RFC3339)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "px"}),
	)
	bar.SetXAxis(x).
		AddSeries("metric", metrics, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("threshold", thresholds, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
