package main

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	compilations     *prometheus.CounterVec
	probeInsertions  prometheus.Counter
	finalizedSockets prometheus.Counter
	handler          fiber.Handler
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockpipe_compilations_total",
			Help: "Workspaces compiled to pipeline text, by output mode.",
		}, []string{"mode"}),
		probeInsertions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockpipe_probe_insertions_total",
			Help: "Sockets opened by connection probes.",
		}),
		finalizedSockets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockpipe_finalized_sockets_total",
			Help: "Empty dynamic sockets removed when drags ended.",
		}),
	}
	reg.MustRegister(m.compilations, m.probeInsertions, m.finalizedSockets)
	m.handler = adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return m
}
