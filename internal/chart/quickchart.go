// Package chart builds declarative chart descriptions for the external
// rendering service. No rendering happens here; the composer embeds the
// resulting URL and the service draws it on open.
package chart

import (
	"encoding/json"
	"fmt"
	"net/url"
)

const defaultRenderBase = "https://quickchart.io/chart"

// dataset mirrors the Chart.js line dataset shape the render service accepts.
type dataset struct {
	Label       string     `json:"label"`
	Data        []*float64 `json:"data"`
	BorderColor string     `json:"borderColor"`
	BorderWidth int        `json:"borderWidth"`
	BorderDash  []int      `json:"borderDash,omitempty"`
	Fill        bool       `json:"fill"`
	PointRadius int        `json:"pointRadius"`
}

type lineConfig struct {
	Type string `json:"type"`
	Data struct {
		Labels   []string  `json:"labels"`
		Datasets []dataset `json:"datasets"`
	} `json:"data"`
	Options map[string]any `json:"options"`
}

// TrendURL builds a render-service URL for a history series plus a one-step
// prediction with upper and lower bounds. history is oldest first.
func TrendURL(label string, history []float64, prediction, upper, lower float64) string {
	if len(history) == 0 {
		return ""
	}

	n := len(history)
	labels := make([]string, 0, n+1)
	for i := range history {
		labels = append(labels, fmt.Sprintf("D-%d", n-i))
	}
	labels = append(labels, "Tomorrow")

	last := history[n-1]

	historyData := make([]*float64, n+1)
	for i := range history {
		v := history[i]
		historyData[i] = &v
	}

	// The prediction and bound series anchor at the last close so the lines
	// connect visually instead of floating on the forecast slot.
	anchor := func(end float64) []*float64 {
		data := make([]*float64, n+1)
		a, e := last, end
		data[n-1] = &a
		data[n] = &e
		return data
	}

	cfg := lineConfig{Type: "line"}
	cfg.Data.Labels = labels
	cfg.Data.Datasets = []dataset{
		{Label: label, Data: historyData, BorderColor: "rgb(255, 255, 255)", BorderWidth: 2, PointRadius: 0},
		{Label: "Prediction", Data: anchor(prediction), BorderColor: "rgb(16, 185, 129)", BorderDash: []int{5, 5}, BorderWidth: 2},
		{Label: "Upper Limit", Data: anchor(upper), BorderColor: "rgb(239, 68, 68)", BorderWidth: 1, BorderDash: []int{2, 2}, PointRadius: 0},
		{Label: "Lower Limit", Data: anchor(lower), BorderColor: "rgb(239, 68, 68)", BorderWidth: 1, BorderDash: []int{2, 2}, PointRadius: 0},
	}
	cfg.Options = map[string]any{
		"maintainAspectRatio": false,
		"legend": map[string]any{
			"display": true,
			"labels":  map[string]any{"fontColor": "#ccc"},
		},
		"scales": map[string]any{
			"xAxes": []map[string]any{
				{"display": false, "gridLines": map[string]any{"display": false}},
			},
			"yAxes": []map[string]any{
				{
					"gridLines": map[string]any{"color": "rgba(255,255,255,0.1)"},
					"ticks":     map[string]any{"fontColor": "#999"},
				},
			},
		},
	}

	encoded, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%s?c=%s&backgroundColor=transparent&width=500&height=300&format=png",
		defaultRenderBase, url.QueryEscape(string(encoded)))
}
