// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

import (
	"github.com/intuitivelabs/bytescase"
)

const (
	cr = '\r'
	lf = '\n'
)

// connectionName, contentLengthName, transferEncodingName and upgradeHdrName
// are the lowercase canonical header names the recognizer matches
// byte-by-byte, indexed the same way the method branch table indexes
// method names: position i holds the byte expected at that zero-based
// offset into the name.
const (
	connectionName       = "connection"
	contentLengthName    = "content-length"
	transferEncodingName = "transfer-encoding"
	upgradeHdrName       = "upgrade"
)

const (
	closeWord     = "close"
	keepAliveWord = "keep-alive"
	upgradeWord   = "upgrade"
	chunkedWord   = "chunked"
)

// Parser is an incremental HTTP/1.x message parser. A Parser is a plain
// value: zero value is not usable, construct with New. It holds no heap
// buffers of its own and performs no I/O; all payload bytes reach the
// Handler as subslices of whatever was passed to Parse.
type Parser struct {
	kind   Kind
	state  pstate
	hstate hstate
	index  int

	reqMode bool

	methodGuess HTTPMethod
	verMajor    uint8
	verMinor    uint8

	version    Version
	statusCode int

	bodyRemaining int64

	keepAlive bool
	upgrade   bool
	chunked   bool

	crashed bool
}

// New constructs a Parser ready to parse messages of the given kind.
func New(kind Kind) *Parser {
	p := &Parser{}
	p.Reset(kind)
	return p
}

// Reset reinitializes the parser to the start state for kind, discarding
// any in-progress message. Use it to recycle a Parser across unrelated
// connections instead of allocating a new one.
func (p *Parser) Reset(kind Kind) {
	*p = Parser{kind: kind}
	p.resetFields()
	p.state = p.startState()
}

func (p *Parser) resetFields() {
	p.hstate = hGeneral
	p.index = 0
	p.reqMode = p.kind == RequestOnly
	p.methodGuess = MUndef
	p.verMajor = 0
	p.verMinor = 0
	p.version = Version{}
	p.statusCode = 0
	p.bodyRemaining = bodyRemainingUnknown
	p.keepAlive = false
	p.upgrade = false
	p.chunked = false
}

func (p *Parser) startState() pstate {
	switch p.kind {
	case RequestOnly:
		return stStartRequest
	case ResponseOnly:
		return stStartResponse
	default:
		return stStartEither
	}
}

// Kind returns the parser's configured kind.
func (p *Parser) Kind() Kind { return p.kind }

// Version returns the last parsed HTTP version. Valid after OnVersion /
// OnMessageComplete has fired for the current message.
func (p *Parser) Version() Version { return p.version }

// StatusCode returns the last parsed response status code, or 0 if none
// has been parsed (e.g. for a request parser).
func (p *Parser) StatusCode() int { return p.statusCode }

// Method returns the last recognized request method, or MUndef.
func (p *Parser) Method() HTTPMethod { return p.methodGuess }

// KeepAlive reports whether the connection should be kept open per the
// last completed message.
func (p *Parser) KeepAlive() bool { return p.keepAlive }

// Upgrade reports whether the last completed message requested a
// protocol upgrade. The flag comes only from a Connection header value
// checked against wordLenUpgrade, so a full "Connection: upgrade" value
// does not set it, and the Upgrade header's value is not inspected.
func (p *Parser) Upgrade() bool { return p.upgrade }

// Chunked reports whether the last completed message used chunked
// transfer encoding.
func (p *Parser) Chunked() bool { return p.chunked }

// Crashed reports whether the parser has latched into its terminal error
// state. Once true, every Parse call returns (0, OtherParseError) until the
// caller either discards the instance or calls Reset, which reinitializes
// the parser (including clearing this flag) for a new kind/connection.
func (p *Parser) Crashed() bool { return p.crashed }

func isToken(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '|', '~':
		return true
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func hexVal(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	}
	return 0, false
}

func isNoBodyStatus(code int) bool {
	return code/100 == 1 || code == 204 || code == 304
}

func validVersion(v Version) bool {
	return v == version09 || v == version10 || v == version11
}

// advanceHeaderName checks the next header-name byte against the static
// per-substate table, dropping to hGeneral on any mismatch. idx is the
// zero-based position of b within the candidate name (the first byte,
// which selects the substate, is not passed here).
func (p *Parser) advanceHeaderName(idx int, b byte) {
	c := bytescase.ByteToLower(b)
	switch p.hstate {
	case hMatchingConnection:
		if idx == 3 && c == 't' {
			p.hstate = hMatchingContentLength
			return
		}
		if idx < len(connectionName) && connectionName[idx] == c {
			return
		}
	case hMatchingContentLength:
		if idx < len(contentLengthName) && contentLengthName[idx] == c {
			return
		}
	case hMatchingTransferEncoding:
		if idx < len(transferEncodingName) && transferEncodingName[idx] == c {
			return
		}
	case hMatchingUpgrade:
		if idx < len(upgradeHdrName) && upgradeHdrName[idx] == c {
			return
		}
	default:
		return
	}
	p.hstate = hGeneral
}

// advanceValueWordState is the header-value analogue of advanceHeaderName,
// applied to whichever framing-token word the value submatcher is
// currently tracking.
func advanceValueWordState(hs hstate, idx int, c byte) hstate {
	var word string
	switch hs {
	case hMatchingValueClose:
		word = closeWord
	case hMatchingValueKeepAlive:
		word = keepAliveWord
	case hMatchingValueUpgrade:
		word = upgradeWord
	case hMatchingValueChunked:
		word = chunkedWord
	default:
		return hs
	}
	if idx < len(word) && byte(word[idx]) == c {
		return hs
	}
	return hGeneral
}

// finishHeaders applies the end-of-headers termination policy (spec
// priority order: skip_body/upgrade, then chunked, then known
// Content-Length, then no-body cases, then identity-to-EOF). It returns
// true if the message completed right here (on_message_complete has
// already fired).
func (p *Parser) finishHeaders(h Handler) bool {
	skip := h.OnHeadersComplete()
	switch {
	case skip || p.upgrade:
		p.completeMessage(h)
		return true
	case p.chunked:
		p.state = stChunkSize
		p.bodyRemaining = 0
		return false
	case p.bodyRemaining > 0:
		p.state = stBodyIdentityKnown
		return false
	case p.bodyRemaining == 0,
		p.bodyRemaining == bodyRemainingUnknown && p.reqMode,
		p.bodyRemaining == bodyRemainingUnknown && !p.reqMode && isNoBodyStatus(p.statusCode):
		p.completeMessage(h)
		return true
	default:
		p.state = stBodyIdentityEOF
		return false
	}
}

// completeMessage returns the parser to its start state and reports the
// message as complete. The per-message fields are left in place so the
// accessors still describe this message; resetFields clears them when the
// next message begins.
func (p *Parser) completeMessage(h Handler) {
	p.state = p.startState()
	h.OnMessageComplete()
}

// Parse feeds data to the parser. It returns the number of bytes
// consumed (which may be less than len(data) if a message completed
// mid-slice: the remainder belongs to the next message and is not
// touched) and a non-nil error if the input is malformed. Once an error
// is returned the parser is crashed: every later call returns
// (0, OtherParseError) until the caller discards it.
func (p *Parser) Parse(data []byte, h Handler) (int, error) {
	if p.crashed {
		return 0, OtherParseError
	}
	if len(data) == 0 {
		return 0, nil
	}

	n := len(data)
	i := 0
	mark := 0 // start offset, within data, of the currently open URL/header-name/header-value token

	fail := func(e ParseError) (int, error) {
		p.crashed = true
		p.state = stCrashed
		return i, e
	}

	for i < n {
		switch p.state {
		case stBodyIdentityKnown:
			take := n - i
			if int64(take) > p.bodyRemaining {
				take = int(p.bodyRemaining)
			}
			if take > 0 {
				h.Write(data[i : i+take])
				i += take
				p.bodyRemaining -= int64(take)
				h.OnBody(take)
			}
			if p.bodyRemaining == 0 {
				p.completeMessage(h)
				return i, nil
			}
			continue

		case stBodyIdentityEOF:
			if n-i > 0 {
				h.Write(data[i:n])
				h.OnBody(n - i)
				i = n
			}
			continue

		case stChunkData:
			take := n - i
			if int64(take) > p.bodyRemaining {
				take = int(p.bodyRemaining)
			}
			if take > 0 {
				h.Write(data[i : i+take])
				i += take
				p.bodyRemaining -= int64(take)
				h.OnBody(take)
			}
			if p.bodyRemaining == 0 {
				p.state = stChunkDataCR
			}
			continue
		}

		b := data[i]

		switch p.state {
		case stStartRequest:
			if b == cr || b == lf {
				i++
				continue
			}
			p.resetFields()
			h.OnMessageBegin()
			g, ok := methodGuess[b]
			if !ok {
				return fail(InvalidMethod)
			}
			p.methodGuess = g
			p.index = 1
			p.state = stMethod
			i++

		case stStartResponse:
			if b == cr || b == lf {
				i++
				continue
			}
			p.resetFields()
			h.OnMessageBegin()
			if b != 'H' {
				return fail(InvalidVersion)
			}
			p.reqMode = false
			p.index = 1
			p.state = stHTTPVersionStart
			i++

		case stStartEither:
			if b == cr || b == lf {
				i++
				continue
			}
			p.resetFields()
			h.OnMessageBegin()
			if b == 'H' {
				p.state = stStartEitherH
				i++
				continue
			}
			g, ok := methodGuess[b]
			if !ok {
				return fail(InvalidMethod)
			}
			p.reqMode = true
			p.methodGuess = g
			p.index = 1
			p.state = stMethod
			i++

		case stStartEitherH:
			if b == 'T' {
				p.reqMode = false
				p.index = 2
				p.state = stHTTPVersionStart
				i++
				continue
			}
			p.reqMode = true
			p.methodGuess = MHead
			p.index = 1
			p.state = stMethod
			// reprocess b as the second byte of the method token

		case stMethod:
			if b == ' ' {
				if p.index != len(methodName[p.methodGuess]) {
					return fail(InvalidMethod)
				}
				h.OnMethod(p.methodGuess)
				p.index = 0
				p.state = stRequestURL
				mark = i + 1
				i++
				continue
			}
			g, ok := methodAdvance(p.methodGuess, p.index, b)
			if !ok {
				return fail(InvalidMethod)
			}
			p.methodGuess = g
			p.index++
			i++

		case stRequestURL:
			switch b {
			case ' ':
				if i > mark {
					h.Write(data[mark:i])
					p.index += i - mark
				}
				h.OnURL(p.index)
				p.index = 0
				p.state = stHTTPVersionStart
				i++
			case cr, lf:
				if i > mark {
					h.Write(data[mark:i])
					p.index += i - mark
				}
				h.OnURL(p.index)
				p.index = 0
				p.version = version09
				h.OnVersion(p.version)
				i++
				p.state = stDead
				h.OnMessageComplete()
				return i, nil
			default:
				i++
			}

		case stHTTPVersionStart:
			const lit = "HTTP/"
			if p.index >= len(lit) || lit[p.index] != b {
				return fail(InvalidVersion)
			}
			p.index++
			i++
			if p.index == len(lit) {
				p.state = stHTTPMajor
				p.index = 0
				p.verMajor = 0
			}

		case stHTTPMajor:
			if isDigit(b) {
				p.verMajor = p.verMajor*10 + (b - '0')
				p.index++
				i++
				continue
			}
			if b == '.' && p.index > 0 {
				p.state = stHTTPMinor
				p.index = 0
				p.verMinor = 0
				i++
				continue
			}
			return fail(InvalidVersion)

		case stHTTPMinor:
			if isDigit(b) {
				p.verMinor = p.verMinor*10 + (b - '0')
				p.index++
				i++
				continue
			}
			if p.index == 0 {
				return fail(InvalidVersion)
			}
			v := Version{p.verMajor, p.verMinor}
			if !validVersion(v) {
				return fail(InvalidVersion)
			}
			if p.reqMode {
				switch b {
				case cr:
					p.version = v
					p.keepAlive = v == version11
					h.OnVersion(v)
					p.state = stRequestLineAlmostDone
					i++
				case lf:
					p.version = v
					p.keepAlive = v == version11
					h.OnVersion(v)
					p.state = stHeaderFieldStart
					i++
				default:
					return fail(InvalidVersion)
				}
			} else {
				if b != ' ' {
					return fail(InvalidVersion)
				}
				p.version = v
				p.keepAlive = v == version11
				h.OnVersion(v)
				p.state = stResponseStatusCode
				p.index = 0
				p.statusCode = 0
				i++
			}

		case stRequestLineAlmostDone:
			if b != lf {
				return fail(InvalidRequestLine)
			}
			p.state = stHeaderFieldStart
			i++

		case stResponseStatusCode:
			switch {
			case isDigit(b):
				if p.index >= 3 {
					return fail(InvalidStatusCode)
				}
				p.statusCode = p.statusCode*10 + int(b-'0')
				p.index++
				i++
			case b == ' ':
				if p.index != 3 {
					return fail(InvalidStatusCode)
				}
				h.OnStatus(p.statusCode)
				p.index = 0
				p.state = stResponseReasonPhrase
				i++
			case b == cr:
				if p.index != 3 {
					return fail(InvalidStatusCode)
				}
				h.OnStatus(p.statusCode)
				p.index = 0
				p.state = stResponseLineAlmostDone
				i++
			case b == lf:
				if p.index != 3 {
					return fail(InvalidStatusCode)
				}
				h.OnStatus(p.statusCode)
				p.index = 0
				p.state = stHeaderFieldStart
				i++
			default:
				return fail(InvalidStatusCode)
			}

		case stResponseReasonPhrase:
			switch b {
			case cr:
				p.state = stResponseLineAlmostDone
			case lf:
				p.state = stHeaderFieldStart
			}
			i++

		case stResponseLineAlmostDone:
			if b != lf {
				return fail(InvalidStatusLine)
			}
			p.state = stHeaderFieldStart
			i++

		case stHeaderFieldStart:
			switch {
			case b == cr:
				p.state = stHeadersAlmostDone
				i++
			case b == lf:
				i++
				if p.finishHeaders(h) {
					return i, nil
				}
			case isToken(b):
				switch bytescase.ByteToLower(b) {
				case 'c':
					p.hstate = hMatchingConnection
				case 't':
					p.hstate = hMatchingTransferEncoding
				case 'u':
					p.hstate = hMatchingUpgrade
				default:
					p.hstate = hGeneral
				}
				mark = i
				p.index = 0
				p.state = stHeaderField
				i++
			default:
				return fail(InvalidHeaderField)
			}

		case stHeaderField:
			switch {
			case b == ':':
				if i > mark {
					h.Write(data[mark:i])
					p.index += i - mark
				}
				h.OnHeaderField(p.index)
				p.index = 0
				p.state = stHeaderValueLeadingWS
				i++
			case isToken(b):
				idx := p.index + (i - mark)
				p.advanceHeaderName(idx, b)
				i++
			default:
				return fail(InvalidHeaderField)
			}

		case stHeaderValueLeadingWS:
			switch b {
			case ' ', '\t':
				i++
			case cr:
				p.state = stHeaderValueLeadingWSAlmostDone
				i++
			case lf:
				p.state = stHeaderValueLeadingLWS
				i++
			default:
				mark = i
				switch p.hstate {
				case hMatchingConnection:
					switch bytescase.ByteToLower(b) {
					case 'c':
						p.hstate = hMatchingValueClose
					case 'k':
						p.hstate = hMatchingValueKeepAlive
					case 'u':
						p.hstate = hMatchingValueUpgrade
					default:
						p.hstate = hGeneral
					}
				case hMatchingTransferEncoding:
					if bytescase.ByteToLower(b) == 'c' {
						p.hstate = hMatchingValueChunked
					} else {
						p.hstate = hGeneral
					}
				case hMatchingContentLength:
					if isDigit(b) {
						p.bodyRemaining = int64(b - '0')
						p.hstate = hAccumulatingContentLength
					} else {
						p.hstate = hGeneral
					}
				}
				p.index = 0
				p.state = stHeaderValue
				i++
			}

		case stHeaderValueLeadingWSAlmostDone:
			if b != lf {
				return fail(InvalidHeaderField)
			}
			p.state = stHeaderValueLeadingLWS
			i++

		case stHeaderValueLeadingLWS:
			switch b {
			case ' ', '\t':
				p.state = stHeaderValueLeadingWS
				i++
			default:
				h.OnHeaderValue(0)
				p.hstate = hGeneral
				p.state = stHeaderFieldStart
				// b not consumed: reprocessed as HeaderFieldStart
			}

		case stHeaderValue:
			switch b {
			case cr, lf:
				total := p.index + (i - mark)
				switch p.hstate {
				case hMatchingValueClose:
					if total == wordLenClose {
						p.keepAlive = false
					}
				case hMatchingValueKeepAlive:
					if total == wordLenKeepAlive {
						p.keepAlive = true
					}
				case hMatchingValueUpgrade:
					if total == wordLenUpgrade {
						p.upgrade = true
					}
				case hMatchingValueChunked:
					if total == wordLenChunked {
						p.chunked = true
					}
				}
				if i > mark {
					h.Write(data[mark:i])
					p.index += i - mark
				}
				h.OnHeaderValue(p.index)
				p.index = 0
				p.hstate = hGeneral
				if b == cr {
					p.state = stHeaderAlmostDone
				} else {
					p.state = stHeaderFieldStart
				}
				i++
			default:
				switch p.hstate {
				case hMatchingValueClose, hMatchingValueKeepAlive, hMatchingValueUpgrade, hMatchingValueChunked:
					if isToken(b) {
						idx := p.index + (i - mark)
						p.hstate = advanceValueWordState(p.hstate, idx, bytescase.ByteToLower(b))
					} else {
						p.hstate = hGeneral
					}
				case hAccumulatingContentLength:
					switch {
					case isDigit(b):
						p.bodyRemaining = p.bodyRemaining*10 + int64(b-'0')
					case b == ' ' || b == '\t':
						// Trailing whitespace ends the number; from here on
						// hMatchingContentLength accepts only more whitespace.
						p.hstate = hMatchingContentLength
					default:
						p.bodyRemaining = bodyRemainingUnknown
						p.hstate = hGeneral
					}
				case hMatchingContentLength:
					if b != ' ' && b != '\t' {
						p.bodyRemaining = bodyRemainingUnknown
						p.hstate = hGeneral
					}
				}
				i++
			}

		case stHeaderAlmostDone:
			if b != lf {
				return fail(InvalidHeaderField)
			}
			p.state = stHeaderFieldStart
			i++

		case stHeadersAlmostDone:
			if b != lf {
				return fail(InvalidHeaders)
			}
			i++
			if p.finishHeaders(h) {
				return i, nil
			}

		case stChunkSize:
			switch {
			case b == ';':
				p.state = stChunkExtension
				i++
			case b == cr:
				p.state = stChunkSizeAlmostDone
				i++
			default:
				v, ok := hexVal(b)
				if !ok {
					return fail(InvalidChunk)
				}
				p.bodyRemaining = p.bodyRemaining*16 + int64(v)
				i++
			}

		case stChunkExtension:
			if b == cr {
				p.state = stChunkSizeAlmostDone
			}
			i++

		case stChunkSizeAlmostDone:
			if b != lf {
				return fail(InvalidChunk)
			}
			i++
			if p.bodyRemaining == 0 {
				p.state = stChunkTrailerCR
				continue
			}
			p.state = stChunkData

		case stChunkTrailerCR:
			// Trailer headers are never parsed (see DESIGN.md); only the
			// blank line that would terminate an empty trailer block is
			// expected here.
			switch b {
			case lf:
				i++
				p.completeMessage(h)
				return i, nil
			case cr:
				p.state = stChunkTrailerLF
				i++
			default:
				return fail(InvalidChunk)
			}

		case stChunkTrailerLF:
			if b != lf {
				return fail(InvalidChunk)
			}
			i++
			p.completeMessage(h)
			return i, nil

		case stChunkDataCR:
			if b != cr {
				return fail(InvalidChunk)
			}
			p.state = stChunkDataLF
			i++

		case stChunkDataLF:
			if b != lf {
				return fail(InvalidChunk)
			}
			p.bodyRemaining = 0
			p.state = stChunkSize
			i++

		case stDead:
			return i, nil

		case stCrashed:
			return fail(OtherParseError)
		}
	}

	switch p.state {
	case stRequestURL, stHeaderField, stHeaderValue:
		if n > mark {
			h.Write(data[mark:n])
			p.index += n - mark
		}
	}
	return n, nil
}
