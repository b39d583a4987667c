// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

// pstate is the parser core's state. It is never exposed directly; callers
// observe it only indirectly through accessors and callback ordering.
type pstate uint8

const (
	stStartRequest pstate = iota
	stStartResponse
	stStartEither
	stStartEitherH
	stMethod
	stRequestURL
	stHTTPVersionStart
	stHTTPMajor
	stHTTPMinor
	stRequestLineAlmostDone
	stResponseStatusCode
	stResponseReasonPhrase
	stResponseLineAlmostDone
	stHeaderFieldStart
	stHeaderField
	stHeaderValueLeadingWS
	stHeaderValueLeadingWSAlmostDone
	stHeaderValueLeadingLWS
	stHeaderValue
	stHeaderAlmostDone
	stHeadersAlmostDone
	stBodyIdentityKnown
	stBodyIdentityEOF
	stChunkSize
	stChunkExtension
	stChunkSizeAlmostDone
	stChunkData
	stChunkDataCR
	stChunkDataLF
	stChunkTrailerCR
	stChunkTrailerLF
	stDead
	stCrashed
)

// hstate is the header recognizer's substate: which of the four framing
// headers (and, within a value, which of the four framing tokens) is
// still a candidate match for the bytes seen so far.
type hstate uint8

const (
	hGeneral hstate = iota
	hMatchingConnection
	hMatchingContentLength
	hMatchingTransferEncoding
	hMatchingUpgrade
	hMatchingValueClose
	hMatchingValueKeepAlive
	hMatchingValueUpgrade
	hMatchingValueChunked
	hAccumulatingContentLength
)

// Target token lengths checked at end-of-value against the value
// submatcher's byte index. wordLenUpgrade is intentionally one short of
// len("upgrade"): this mirrors an off-by-one in the parser this header
// recognizer is grounded on, where the index has already advanced past 6
// by the time all seven letters of "upgrade" are matched, so the check
// never fires for a literal "Connection: Upgrade" value. Preserved rather
// than silently corrected; see DESIGN.md.
const (
	wordLenClose     = 5
	wordLenKeepAlive = 10
	wordLenUpgrade   = 6
	wordLenChunked   = 7
)

const bodyRemainingUnknown int64 = -1
