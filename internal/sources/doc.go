// Package sources defines the contract every account source adapter satisfies
// and the error taxonomy used to report source failures.
//
// Adapters live in subpackages (grafana, sentry, newrelic, snapshot). The factory
// subpackage builds them from configuration.
package sources
