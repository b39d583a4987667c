// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Command httpwiredump feeds a raw HTTP/1.x message (from a file or
// stdin) through httpwire.Parser in fixed-size chunks and prints the
// callback trace. Feeding the input in small chunks regardless of where
// the real boundaries in the message fall is a cheap live demonstration
// of chunk-boundary independence: the library never sees more than
// -chunk bytes at a time.
package main

import (
	"bytes"
	"flag"
	"io"
	"log"
	"os"

	"github.com/arkady-k/httpwire"
)

func main() {
	kindFlag := flag.String("kind", "request", "request, response or either")
	chunkSize := flag.Int("chunk", 16, "number of bytes fed to Parse per call")
	path := flag.String("file", "", "file to read (default: stdin)")
	flag.Parse()

	var kind httpwire.Kind
	switch *kindFlag {
	case "request":
		kind = httpwire.RequestOnly
	case "response":
		kind = httpwire.ResponseOnly
	case "either":
		kind = httpwire.Either
	default:
		log.Fatalf("unknown -kind %q", *kindFlag)
	}

	in := os.Stdin
	if *path != "" {
		f, err := os.Open(*path)
		if err != nil {
			log.Fatalf("open %s: %v", *path, err)
		}
		defer f.Close()
		in = f
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	p := httpwire.New(kind)
	h := &traceHandler{}

	off := 0
	for off < len(raw) {
		end := off + *chunkSize
		if end > len(raw) {
			end = len(raw)
		}
		chunk := raw[off:end]
		for len(chunk) > 0 {
			n, err := p.Parse(chunk, h)
			if err != nil {
				log.Fatalf("parse error at byte %d: %v", off+(len(raw[off:end])-len(chunk))+n, err)
			}
			if n == 0 {
				break
			}
			chunk = chunk[n:]
		}
		off = end
	}
	log.Printf("done: %d bytes, keep-alive=%v chunked=%v upgrade=%v",
		len(raw), p.KeepAlive(), p.Chunked(), p.Upgrade())
}

// writeMode tells traceHandler.Write which in-progress token the bytes it
// receives belong to, since Write itself carries no framing information.
type writeMode int

const (
	modeNone writeMode = iota
	modeField
	modeValue
)

// traceHandler prints one line per callback. Header field/value bytes are
// buffered just long enough to run them through header_catalog.go's
// ClassifyHeader/ClassifyUpgradeProto, so the trace names the framing
// headers the catalog knows about and, for Upgrade, the protocol tokens
// requested.
type traceHandler struct {
	httpwire.NoopHandler

	mode      writeMode
	curField  []byte
	curValue  []byte
	fieldKind httpwire.HeaderKind
}

func (h *traceHandler) OnMessageBegin() {
	log.Printf("message begin")
}

func (h *traceHandler) OnMethod(m httpwire.HTTPMethod) {
	log.Printf("method: %s", m)
}

func (h *traceHandler) OnURL(n int) {
	log.Printf("url: %d bytes", n)
	h.mode = modeField
}

func (h *traceHandler) OnVersion(v httpwire.Version) {
	log.Printf("version: %s", v)
}

func (h *traceHandler) OnStatus(code int) {
	log.Printf("status: %d", code)
	h.mode = modeField
}

func (h *traceHandler) OnHeaderField(n int) {
	h.fieldKind = httpwire.ClassifyHeader(h.curField)
	log.Printf("header field: %q (%d bytes, kind=%d)", h.curField, n, h.fieldKind)
	h.curField = nil
	h.mode = modeValue
}

func (h *traceHandler) OnHeaderValue(n int) {
	log.Printf("header value: %q (%d bytes)", h.curValue, n)
	if h.fieldKind == httpwire.HdrUpgrade {
		for _, tok := range bytes.Split(h.curValue, []byte(",")) {
			tok = bytes.TrimSpace(tok)
			if len(tok) == 0 {
				continue
			}
			log.Printf("  upgrade protocol: %q -> %d", tok, httpwire.ClassifyUpgradeProto(tok))
		}
	}
	h.curValue = nil
	h.mode = modeField
}

func (h *traceHandler) OnHeadersComplete() bool {
	log.Printf("headers complete")
	h.mode = modeNone
	return false
}

func (h *traceHandler) OnBody(n int) {
	log.Printf("body: %d bytes", n)
}

func (h *traceHandler) OnMessageComplete() {
	log.Printf("message complete")
}

func (h *traceHandler) Write(b []byte) {
	switch h.mode {
	case modeField:
		h.curField = append(h.curField, b...)
	case modeValue:
		h.curValue = append(h.curValue, b...)
	}
}
