package server

import (
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prebid/prebid-server-floors/config"
)

// withPrometheus serves the floors metrics on /metrics next to the admin endpoints.
func withPrometheus(cfg *config.Configuration, adminHandler http.Handler, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		glog.Warning("No Prometheus gatherer given, /metrics is not served")
		return adminHandler
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:            loggerForPrometheus{},
		MaxRequestsInFlight: 5,
		Timeout:             cfg.Metrics.Prometheus.Timeout(),
	}))
	if adminHandler != nil {
		mux.Handle("/", adminHandler)
	}
	return mux
}

type loggerForPrometheus struct{}

func (loggerForPrometheus) Println(v ...interface{}) {
	glog.Warningln(v...)
}
