// Package exporter renders report tables for download.
//
// Tables are converted from a dataprocessing.Report into a display-ready
// form (header names and string cells) and can then be written as:
//
// CSV: one file per table with a UTF-8 BOM so Excel detects the encoding.
// CSVWriter writes into the configured reports directory; WriteTable writes
// to any io.Writer (used by the HTTP download handlers).
//
// XLSX: WorkbookExporter puts every table on its own sheet of one workbook.
//
// Example usage:
//
//	tables := exporter.ReportTables(report)
//	writer := exporter.NewCSVWriter(paths)
//	files, err := writer.WriteTables(tables)
package exporter
