package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// This file defines the Prometheus metrics that are exposed by the application.

// httpRequestsTotal tracks the total number of HTTP requests served,
// partitioned by the request's URL path, HTTP method, and the resulting
// status code.
var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "weatherdash_http_requests_total",
	Help: "Total number of HTTP requests by path, method and code.",
}, []string{"path", "method", "code"})

// upstreamRequestsTotal tracks calls against the OpenWeatherMap endpoints,
// partitioned by endpoint kind and outcome ("ok", an HTTP status code, or
// "transport_error").
var upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "weatherdash_upstream_requests_total",
	Help: "Total number of upstream weather API requests by endpoint and outcome.",
}, []string{"endpoint", "outcome"})
