// Package find provides the find command: it searches every configured account
// source for a query fragment and prints a per-source report.
package find
