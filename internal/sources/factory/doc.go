// Package factory turns configured source definitions into account source
// adapters. Every definition is validated before any adapter is returned so a
// misconfigured source stops the run before a single account system is queried.
package factory
