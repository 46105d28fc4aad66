// Package schema parses buffham schema text into validated messages.
//
// Grammar is line oriented:
//
//	message Ping:
//	    uint16 seq
//	    uint64 timestamp
//	    # comment
//
// A blank line or end of input closes the open message. Message ids come
// from a Counter in the order blocks close.
package schema
