// Package transmit holds the two byte-wise output state machines driven by
// completed RMC records: the monitor echo and the RTC clock-set transaction.
//
// Both take a copy of the record when armed, so they never read a buffer the
// classifier is still writing.
package transmit
