// Package report turns Sholl profiles into artefacts: summary statistics,
// static plots, interactive HTML charts, CSV tables and labels image stacks.
// Writers go through fsutil.FileSystem so tests can run in memory.
package report
