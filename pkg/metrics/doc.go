// Package metrics registers the scheduler's Prometheus collectors: host
// cache size, inventory refresh duration, filter/weigher chain timing,
// selection outcome counters, attestation cache activity, and RPC
// request metrics. All collectors are registered at init() and exposed
// via Handler() for scraping.
package metrics
