package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "docgen_build_info",
		Help: "A constant metric with labels for version, commit hash and the active AI provider.",
	},
	[]string{"version", "commit", "go_version", "ai_provider"},
)

func SetBuildInfo(version, commit, provider string) {
	buildInfo.WithLabelValues(version, commit, runtime.Version(), norm(provider)).Set(1)
}
