// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package httpwire implements an incremental, allocation-free HTTP/1.x
// message parser. The parser does no I/O: it consumes byte slices handed
// to it by the caller, in any chunking, and drives a Handler through a
// sequence of callbacks describing the message structure as it is
// recognized. All byte slices passed to the Handler point into the slice
// given to the current Parse call; none of them survive past that call.
package httpwire

// Kind selects which side of the protocol a Parser expects to read.
type Kind uint8

const (
	// RequestOnly parses HTTP requests (method SP url SP version).
	RequestOnly Kind = iota
	// ResponseOnly parses HTTP responses (version SP status SP reason).
	ResponseOnly
	// Either disambiguates on the first bytes of the start line: 'H'
	// followed by "TTP/" selects the response path, any other
	// method-leading byte selects the request path.
	Either
)

func (k Kind) String() string {
	switch k {
	case RequestOnly:
		return "RequestOnly"
	case ResponseOnly:
		return "ResponseOnly"
	case Either:
		return "Either"
	}
	return "Kind(?)"
}

// Version is an HTTP version pair. Only 0.9, 1.0 and 1.1 are accepted by
// the parser.
type Version struct {
	Major, Minor uint8
}

func (v Version) String() string {
	return string([]byte{'0' + v.Major, '.', '0' + v.Minor})
}

var (
	version09 = Version{0, 9}
	version10 = Version{1, 0}
	version11 = Version{1, 1}
)

// Handler receives the structural callbacks a Parser emits while walking
// one or more messages. All methods are optional in spirit (a caller
// embedding NoopHandler only needs to override the ones it cares about);
// Write is the one callback that matters for anyone who needs the raw
// body or token bytes, since that is the only place they are delivered.
type Handler interface {
	// OnMessageBegin fires on the first significant byte of a message.
	OnMessageBegin()
	// OnMethod fires once a request method token is fully recognized.
	OnMethod(m HTTPMethod)
	// OnURL fires at the end of the URL token; length is the number of
	// URL bytes already delivered via Write.
	OnURL(length int)
	// OnVersion fires once the HTTP version digits are parsed, for both
	// requests and responses.
	OnVersion(v Version)
	// OnStatus fires once the three status digits are parsed (responses
	// only).
	OnStatus(code int)
	// OnHeaderField fires at the end of a header name; length is the
	// number of name bytes already delivered via Write.
	OnHeaderField(length int)
	// OnHeaderValue fires at the end of a header value; length is the
	// number of value bytes already delivered via Write.
	OnHeaderValue(length int)
	// OnHeadersComplete fires once the blank line ending the header
	// block is seen. Returning true forces the body to be skipped
	// (the HEAD-response pattern).
	OnHeadersComplete() bool
	// OnBody fires at the end of a body segment; length is the number
	// of bytes delivered via Write for that segment.
	OnBody(length int)
	// OnMessageComplete fires once a message is fully parsed. The
	// parser is already back in its start state for the next message
	// (or, after an HTTP/0.9 request, in its terminal state) by this
	// point; the accessors keep reporting the completed message's
	// version, status, method and framing flags until the next message
	// begins.
	OnMessageComplete()
	// Write delivers raw payload bytes (URL, header name/value, body)
	// as they are produced. The slice is only valid until Write
	// returns; the handler must copy anything it needs to keep.
	Write(b []byte)
}

// NoopHandler implements Handler with all-empty bodies. Embed it in a
// caller's handler type to avoid having to define every callback.
type NoopHandler struct{}

func (NoopHandler) OnMessageBegin()          {}
func (NoopHandler) OnMethod(HTTPMethod)      {}
func (NoopHandler) OnURL(int)                {}
func (NoopHandler) OnVersion(Version)        {}
func (NoopHandler) OnStatus(int)             {}
func (NoopHandler) OnHeaderField(int)        {}
func (NoopHandler) OnHeaderValue(int)        {}
func (NoopHandler) OnHeadersComplete() bool  { return false }
func (NoopHandler) OnBody(int)               {}
func (NoopHandler) OnMessageComplete()       {}
func (NoopHandler) Write([]byte)             {}
