// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

// ParseError is returned by Parser.Parse when the input bytes cannot form
// a valid HTTP/1.x message. The zero ParseError is OtherParseError, which
// Parse also returns for every call made after the parser has crashed;
// callers test for failure via the non-nil error return of Parse.
type ParseError uint8

// Error taxonomy. These mirror the fatal conditions a byte-oriented HTTP/1.x
// scanner can hit; none of them are raised for a merely incomplete message
// (running out of bytes mid-token is reported as consumed < len(data) with
// a nil error, not as one of these).
const (
	// OtherParseError covers failures that don't fit a more specific
	// category below, including any Parse call made after the parser has
	// already latched into its crashed state.
	OtherParseError ParseError = iota
	InvalidMethod
	InvalidURL
	InvalidVersion
	InvalidRequestLine
	InvalidStatusCode
	InvalidStatusLine
	InvalidHeaderField
	InvalidHeaders
	InvalidChunk
	InvalidEOFState
)

var parseErrorStr = [...]string{
	OtherParseError:     "other parse error",
	InvalidMethod:       "invalid method",
	InvalidURL:          "invalid url",
	InvalidVersion:      "invalid version",
	InvalidRequestLine:  "invalid request line",
	InvalidStatusCode:   "invalid status code",
	InvalidStatusLine:   "invalid status line",
	InvalidHeaderField:  "invalid header field",
	InvalidHeaders:      "invalid headers",
	InvalidChunk:        "invalid chunk",
	InvalidEOFState:     "invalid eof state",
}

// String returns a short human readable description of the error.
func (e ParseError) String() string {
	if int(e) < len(parseErrorStr) {
		return parseErrorStr[e]
	}
	return "unknown parse error"
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return e.String()
}
