// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

import (
	"github.com/intuitivelabs/bytescase"
)

// HeaderKind names a header that a caller displaying a trace (see
// cmd/httpwiredump) may want to label: the four framing headers plus a few
// that the core parser does not itself recognize. The parsing core only
// ever tracks the four framing headers internally; this catalog is purely
// a presentation aid layered on top.
type HeaderKind uint8

const (
	HdrOther HeaderKind = iota
	HdrContentLength
	HdrTransferEncoding
	HdrUpgrade
	HdrConnection
	HdrContentEncoding
	HdrHost
	HdrServer
	HdrOrigin
	HdrSecWebSocketKey
	HdrSecWebSocketProtocol
	HdrSecWebSocketAccept
	HdrSecWebSocketVersion
)

type knownHeader struct {
	name []byte
	kind HeaderKind
}

var knownHeaders = []knownHeader{
	{[]byte("content-length"), HdrContentLength},
	{[]byte("transfer-encoding"), HdrTransferEncoding},
	{[]byte("upgrade"), HdrUpgrade},
	{[]byte("connection"), HdrConnection},
	{[]byte("content-encoding"), HdrContentEncoding},
	{[]byte("host"), HdrHost},
	{[]byte("server"), HdrServer},
	{[]byte("origin"), HdrOrigin},
	{[]byte("sec-websocket-key"), HdrSecWebSocketKey},
	{[]byte("sec-websocket-protocol"), HdrSecWebSocketProtocol},
	{[]byte("sec-websocket-accept"), HdrSecWebSocketAccept},
	{[]byte("sec-websocket-version"), HdrSecWebSocketVersion},
}

// ClassifyHeader returns the HeaderKind for name, or HdrOther if name is
// not one of the headers the catalog knows about. name should have no
// leading or trailing whitespace.
func ClassifyHeader(name []byte) HeaderKind {
	for _, kh := range knownHeaders {
		if bytescase.CmpEq(name, kh.name) {
			return kh.kind
		}
	}
	return HdrOther
}

// UpgradeProto is a coarse classification of an Upgrade header's value,
// used only for friendlier trace output.
type UpgradeProto uint8

const (
	UpgradeProtoOther UpgradeProto = iota
	UpgradeProtoWebSocket
	UpgradeProtoH2C
)

// ClassifyUpgradeProto resolves a single Upgrade protocol token (already
// split on commas by the caller) to a coarse classification.
func ClassifyUpgradeProto(tok []byte) UpgradeProto {
	switch {
	case bytescase.CmpEq(tok, []byte("websocket")):
		return UpgradeProtoWebSocket
	case bytescase.CmpEq(tok, []byte("h2c")), bytescase.CmpEq(tok, []byte("http/2.0")):
		return UpgradeProtoH2C
	}
	return UpgradeProtoOther
}
