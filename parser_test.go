// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

import (
	"math/rand"
	"testing"
)

// recordHandler collects every callback into a simple log, for asserting
// against in table-driven tests without having to hand-write a bespoke
// handler per test.
type recordHandler struct {
	NoopHandler

	begins   int
	method   HTTPMethod
	url      []byte
	version  Version
	status   int
	headers  []string // alternating name, value
	body     []byte
	complete int

	mode     writeMode
	curField []byte
	curValue []byte
	inValue  bool
}

func (h *recordHandler) Write(b []byte) {
	cp := append([]byte(nil), b...)
	switch {
	case h.pendingURL():
		h.url = append(h.url, cp...)
	case h.inValue:
		h.curValue = append(h.curValue, cp...)
	case h.pendingBody():
		h.body = append(h.body, cp...)
	default:
		h.curField = append(h.curField, cp...)
	}
}

// pendingURL/pendingBody are resolved via explicit mode flags instead of
// guessing from parser state, since Write is state-agnostic by contract.
func (h *recordHandler) pendingURL() bool  { return h.mode == modeURL }
func (h *recordHandler) pendingBody() bool { return h.mode == modeBody }

type writeMode int

const (
	modeNone writeMode = iota
	modeURL
	modeHeader
	modeBody
)

func (h *recordHandler) OnMessageBegin() {
	h.begins++
	h.mode = modeURL
}

func (h *recordHandler) OnMethod(m HTTPMethod) { h.method = m }

func (h *recordHandler) OnURL(int) { h.mode = modeHeader; h.inValue = false }

func (h *recordHandler) OnVersion(v Version) { h.version = v }

func (h *recordHandler) OnStatus(code int) { h.status = code; h.mode = modeHeader }

func (h *recordHandler) OnHeaderField(int) {
	h.headers = append(h.headers, string(h.curField))
	h.curField = nil
	h.inValue = true
}

func (h *recordHandler) OnHeaderValue(int) {
	h.headers = append(h.headers, string(h.curValue))
	h.curValue = nil
	h.inValue = false
}

func (h *recordHandler) OnHeadersComplete() bool {
	h.mode = modeBody
	return false
}

func (h *recordHandler) OnBody(int) {}

func (h *recordHandler) OnMessageComplete() {
	h.complete++
	h.mode = modeNone
}

func newRecordHandler() *recordHandler { return &recordHandler{} }

func TestScenarioS1HTTP09RequestLine(t *testing.T) {
	p := New(RequestOnly)
	h := newRecordHandler()
	data := []byte("GET /\r\n")
	n, err := p.Parse(data, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 6 {
		t.Errorf("consumed = %d, want 6", n)
	}
	if p.version != version09 {
		t.Errorf("version = %v, want 0.9", p.version)
	}
}

func TestScenarioS2HTTP10NoKeepAlive(t *testing.T) {
	p := New(RequestOnly)
	h := newRecordHandler()
	data := []byte("GET / HTTP/1.0\r\n\r\n")
	n, err := p.Parse(data, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed = %d, want %d", n, len(data))
	}
	if p.keepAlive {
		t.Errorf("keepAlive = true, want false")
	}
}

func TestScenarioS3ConnectionClose(t *testing.T) {
	p := New(RequestOnly)
	h := newRecordHandler()
	data := []byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	_, err := p.Parse(data, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.keepAlive {
		t.Errorf("keepAlive = true, want false")
	}
}

func TestScenarioS4NoBody304(t *testing.T) {
	p := New(ResponseOnly)
	h := newRecordHandler()
	data := []byte("HTTP/1.1 304 Not Modified\r\nContent-Length: 0\r\n\r\n")
	n, err := p.Parse(data, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed = %d, want %d", n, len(data))
	}
	if len(h.body) != 0 {
		t.Errorf("body = %q, want empty", h.body)
	}
	if h.complete != 1 {
		t.Errorf("complete = %d, want 1", h.complete)
	}
}

func TestScenarioS5ContentLengthBody(t *testing.T) {
	p := New(RequestOnly)
	h := newRecordHandler()
	data := []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	n, err := p.Parse(data, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed = %d, want %d", n, len(data))
	}
	if string(h.body) != "hello" {
		t.Errorf("body = %q, want %q", h.body, "hello")
	}
}

func TestScenarioS6ChunkedResponse(t *testing.T) {
	p := New(ResponseOnly)
	h := newRecordHandler()
	data := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n0\r\n\r\n")
	n, err := p.Parse(data, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed = %d, want %d (trailing blank-line CRLF must be consumed)", n, len(data))
	}
	if string(h.body) != "hello" {
		t.Errorf("body = %q, want %q", h.body, "hello")
	}
	if !p.chunked {
		t.Errorf("chunked = false, want true")
	}
}

func TestChunkBoundaryIndependence(t *testing.T) {
	full := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")

	for iter := 0; iter < 50; iter++ {
		p := New(ResponseOnly)
		h := newRecordHandler()
		off := 0
		for off < len(full) {
			step := 1 + rand.Intn(4)
			end := off + step
			if end > len(full) {
				end = len(full)
			}
			chunk := full[off:end]
			for len(chunk) > 0 {
				n, err := p.Parse(chunk, h)
				if err != nil {
					t.Fatalf("unexpected error at offset %d: %v", off, err)
				}
				if n == 0 {
					break
				}
				chunk = chunk[n:]
			}
			off = end
		}
		if string(h.body) != "hello world" {
			t.Fatalf("body = %q, want %q (iteration %d)", h.body, "hello world", iter)
		}
		if h.complete != 1 {
			t.Fatalf("complete = %d, want 1 (iteration %d)", h.complete, iter)
		}
	}
}

func TestPipelinedRequests(t *testing.T) {
	p := New(RequestOnly)
	h := newRecordHandler()
	data := []byte("GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\n")

	n1, err := p.Parse(data, h)
	if err != nil {
		t.Fatalf("first message: unexpected error: %v", err)
	}
	if h.complete != 1 {
		t.Fatalf("complete = %d after first message, want 1", h.complete)
	}
	rest := data[n1:]
	if len(rest) == 0 {
		t.Fatalf("first Parse call consumed the whole pipelined buffer")
	}
	n2, err := p.Parse(rest, h)
	if err != nil {
		t.Fatalf("second message: unexpected error: %v", err)
	}
	if n1+n2 != len(data) {
		t.Errorf("total consumed = %d, want %d", n1+n2, len(data))
	}
	if h.complete != 2 {
		t.Errorf("complete = %d, want 2", h.complete)
	}
}

func TestCrashedLatches(t *testing.T) {
	p := New(RequestOnly)
	h := newRecordHandler()
	_, err := p.Parse([]byte("BOGUS / HTTP/1.1\r\n\r\n"), h)
	if err == nil {
		t.Fatalf("expected error for invalid method")
	}
	if !p.Crashed() {
		t.Fatalf("Crashed() = false after parse error")
	}
	n, err := p.Parse([]byte("GET / HTTP/1.1\r\n\r\n"), h)
	if n != 0 || err != OtherParseError {
		t.Errorf("Parse after crash = (%d, %v), want (0, OtherParseError)", n, err)
	}
}

func TestEmptyInputIdempotent(t *testing.T) {
	p := New(RequestOnly)
	h := newRecordHandler()
	n, err := p.Parse(nil, h)
	if n != 0 || err != nil {
		t.Errorf("Parse(nil) = (%d, %v), want (0, nil)", n, err)
	}
	n, err = p.Parse([]byte{}, h)
	if n != 0 || err != nil {
		t.Errorf("Parse([]byte{}) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestIdentityToEOFBody(t *testing.T) {
	p := New(ResponseOnly)
	h := newRecordHandler()
	data := []byte("HTTP/1.0 200 OK\r\n\r\nhello world, no content-length here")
	n, err := p.Parse(data, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed = %d, want %d", n, len(data))
	}
	if string(h.body) != "hello world, no content-length here" {
		t.Errorf("body = %q, want full remainder", h.body)
	}
	if h.complete != 0 {
		t.Errorf("complete = %d, want 0 (identity-to-EOF never completes without a connection-close signal)", h.complete)
	}
}

func TestFramingFlagsDefaults(t *testing.T) {
	cases := []struct {
		name    string
		request string
		keep    bool
	}{
		{"http/1.1 default keep-alive", "GET / HTTP/1.1\r\n\r\n", true},
		{"http/1.0 default close", "GET / HTTP/1.0\r\n\r\n", false},
		{"http/1.1 explicit close", "GET / HTTP/1.1\r\nConnection: close\r\n\r\n", false},
		{"http/1.0 explicit keep-alive", "GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", true},
	}
	for _, c := range cases {
		p := New(RequestOnly)
		h := newRecordHandler()
		if _, err := p.Parse([]byte(c.request), h); err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if p.KeepAlive() != c.keep {
			t.Errorf("%s: keepAlive = %v, want %v", c.name, p.KeepAlive(), c.keep)
		}
	}
}

func TestRandomWhitespaceAndCaseInHeaders(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := New(RequestOnly)
		h := newRecordHandler()
		req := "GET / HTTP/1.1\r\n" +
			randCase("content-length") + ":" + randWS() + "5" + randWS() + "\r\n" +
			"\r\nhello"
		n, err := p.Parse([]byte(req), h)
		if err != nil {
			t.Fatalf("unexpected error: %v (req=%q)", err, req)
		}
		if n != len(req) {
			t.Fatalf("consumed = %d, want %d (req=%q)", n, len(req), req)
		}
		if string(h.body) != "hello" {
			t.Fatalf("body = %q, want %q (req=%q)", h.body, "hello", req)
		}
	}
}

func TestEitherModeDisambiguatesResponseVsHeadRequest(t *testing.T) {
	p := New(Either)
	h := newRecordHandler()
	if _, err := p.Parse([]byte("HTTP/1.1 200 OK\r\n\r\n"), h); err != nil {
		t.Fatalf("response: unexpected error: %v", err)
	}
	if p.reqMode {
		t.Errorf("reqMode = true after response, want false")
	}

	p2 := New(Either)
	h2 := newRecordHandler()
	if _, err := p2.Parse([]byte("HEAD / HTTP/1.1\r\n\r\n"), h2); err != nil {
		t.Fatalf("HEAD request: unexpected error: %v", err)
	}
	if !p2.reqMode {
		t.Errorf("reqMode = false after HEAD request, want true")
	}
	if h2.method != MHead {
		t.Errorf("method = %v, want MHead", h2.method)
	}
}

func TestMoveIsUnreachable(t *testing.T) {
	p := New(RequestOnly)
	h := newRecordHandler()
	_, err := p.Parse([]byte("MOVE / HTTP/1.1\r\n\r\n"), h)
	if err != InvalidMethod {
		t.Errorf("err = %v, want InvalidMethod", err)
	}
}
