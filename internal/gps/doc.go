// Package gps extracts the time and date fields of NMEA 0183 RMC sentences
// from a raw serial byte stream.
//
// The Classifier consumes one byte at a time, with no line buffering and no
// checksum check, and captures:
//   - field 1 (hhmmss.ss) into a 10-byte time buffer
//   - field 9 (ddmmyy) into a 6-byte date buffer
//
// Each completed sentence is handed to a RecordSink as a copied Record.
package gps
