// Package metric provides Prometheus-based metrics collection and an HTTP
// server for ChronoSynth observability.
//
// The package offers a centralized metrics registry managing both core
// generation metrics (datasets, samples, parse failures, batch activity,
// NATS publishing) and custom component metrics. It includes an HTTP server
// exposing metrics in Prometheus format.
//
// Core metrics are registered automatically at construction; components
// such as the batch worker pool attach their own through the Registrar
// interface under a component-scoped key, and everything is served from a
// single endpoint.
package metric
