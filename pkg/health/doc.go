// Package health provides dependency reachability checks: HTTP and TCP
// checkers with hysteresis (ConsecutiveFailures/Retries) so a single
// transient failure doesn't flip a dependency to unhealthy. Used by
// cmd/gantt-scheduler to probe a remote inventory service and feed
// pkg/metrics' readiness endpoint; the attestation service is not probed.
package health
