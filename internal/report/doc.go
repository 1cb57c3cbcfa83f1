// Package report renders search reports for operators. Every searched source
// appears in the output, including the sources that could not be checked.
package report
