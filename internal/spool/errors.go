package spool

import (
	"github.com/hyp3rd/ewrap"
)

// Common errors for the spool package.
var (
	// ErrSpoolClosed is returned when operating on a closed spool.
	ErrSpoolClosed = ewrap.New("spool is closed")

	// ErrInvalidRecordID is returned when a record identifier does not name
	// a record in the spool directory.
	ErrInvalidRecordID = ewrap.New("invalid record identifier")
)
