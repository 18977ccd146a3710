package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metricDefinition struct {
	Name   string
	Help   string
	Type   string
	Labels []string
}

var metricsOpts []metricDefinition

func NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	metricsOpts = append(metricsOpts, metricDefinition{
		Name:   opts.Name,
		Help:   opts.Help,
		Type:   "counter",
		Labels: labelNames,
	})
	return promauto.NewCounterVec(opts, labelNames)
}

func NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	metricsOpts = append(metricsOpts, metricDefinition{
		Name:   opts.Name,
		Help:   opts.Help,
		Type:   "gauge",
		Labels: labelNames,
	})
	return promauto.NewGaugeVec(opts, labelNames)
}

var (
	LoadsTotal = NewCounterVec(prometheus.CounterOpts{
		Name: "ipforest_loads_total",
		Help: "Rule file loads per set and result",
	}, []string{"set", "status"})

	LinesTotal = NewCounterVec(prometheus.CounterOpts{
		Name: "ipforest_lines_total",
		Help: "Rule lines inserted per set",
	}, []string{"set"})

	LookupsTotal = NewCounterVec(prometheus.CounterOpts{
		Name: "ipforest_lookups_total",
		Help: "Address lookups per set and result",
	}, []string{"set", "result"})

	TrieNodes = NewGaugeVec(prometheus.GaugeOpts{
		Name: "ipforest_trie_nodes",
		Help: "Trie nodes per set and arena pool",
	}, []string{"set", "pool"})
)

// GetDocumentation renders every registered metric as Markdown.
func GetDocumentation() string {
	defs := make([]metricDefinition, len(metricsOpts))
	copy(defs, metricsOpts)
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	var doc strings.Builder
	for _, opts := range defs {
		doc.WriteString(fmt.Sprintf(
			`
### %s
| **Name** | %s | 
|:---|:---|
| **Description** | %s | 
| **Type** | %s | 
| **Labels** | %s | 

`,
			opts.Name,
			opts.Name,
			opts.Help,
			opts.Type,
			strings.Join(opts.Labels, ", "),
		))
	}
	return doc.String()
}
