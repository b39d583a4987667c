// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

// HTTPMethod identifies a recognized HTTP request method.
type HTTPMethod uint8

// The 29 recognized methods. MUndef is the zero value, used before a
// request method has been identified.
const (
	MUndef HTTPMethod = iota
	MCheckout
	MConnect
	MCopy
	MDelete
	MGet
	MHead
	MLink
	MLock
	MMerge
	MMkActivity
	MMkCalendar
	MMkCol
	MMove
	MMSearch
	MNotify
	MOptions
	MPatch
	MPost
	MPropFind
	MPropPatch
	MPurge
	MPut
	MReport
	MSearch
	MSubscribe
	MTrace
	MUnlink
	MUnlock
	MUnsubscribe
	methodMax
)

var methodName = [...]string{
	MCheckout:    "CHECKOUT",
	MConnect:     "CONNECT",
	MCopy:        "COPY",
	MDelete:      "DELETE",
	MGet:         "GET",
	MHead:        "HEAD",
	MLink:        "LINK",
	MLock:        "LOCK",
	MMerge:       "MERGE",
	MMkActivity:  "MKACTIVITY",
	MMkCalendar:  "MKCALENDAR",
	MMkCol:       "MKCOL",
	MMove:        "MOVE",
	MMSearch:     "M-SEARCH",
	MNotify:      "NOTIFY",
	MOptions:     "OPTIONS",
	MPatch:       "PATCH",
	MPost:        "POST",
	MPropFind:    "PROPFIND",
	MPropPatch:   "PROPPATCH",
	MPurge:       "PURGE",
	MPut:         "PUT",
	MReport:      "REPORT",
	MSearch:      "SEARCH",
	MSubscribe:   "SUBSCRIBE",
	MTrace:       "TRACE",
	MUnlink:      "UNLINK",
	MUnlock:      "UNLOCK",
	MUnsubscribe: "UNSUBSCRIBE",
}

// String returns the canonical wire spelling of the method, or "UNDEF" for
// the zero value.
func (m HTTPMethod) String() string {
	if m == MUndef || int(m) >= len(methodName) {
		return "UNDEF"
	}
	return methodName[m]
}

// methodGuess maps the first byte of a request method token to the method
// guessed for that byte. Every method reachable purely by its first byte
// (no later branching needed) lands here directly; methods sharing a first
// byte with another method are corrected via methodBranch as later bytes
// arrive.
var methodGuess = map[byte]HTTPMethod{
	'C': MConnect,
	'D': MDelete,
	'G': MGet,
	'H': MHead,
	'L': MLink,
	'M': MMkCol,
	'N': MNotify,
	'O': MOptions,
	'P': MPut,
	'R': MReport,
	'S': MSearch,
	'T': MTrace,
	'U': MUnlink,
}

// methodBranchKey identifies one entry of the method correction table: the
// method guessed so far, the zero-based byte position within that guess's
// canonical name where the mismatch occurs, and the byte actually seen.
type methodBranchKey struct {
	guess HTTPMethod
	index int
	b     byte
}

// methodBranch corrects the initial first-byte guess once a later byte
// rules it out. A byte at a given index that matches neither the current
// guess's canonical name nor an entry here is a fatal InvalidMethod: this
// is also how MOVE ends up permanently unreachable (MKCOL has no ('O',
// idx 1) branch), matching the parser this design is grounded on.
var methodBranch = map[methodBranchKey]HTTPMethod{
	{MConnect, 1, 'H'}:   MCheckout,
	{MConnect, 2, 'P'}:   MCopy,
	{MLink, 1, 'O'}:      MLock,
	{MMkCol, 1, '-'}:     MMSearch,
	{MMkCol, 1, 'E'}:     MMerge,
	{MMkCol, 2, 'A'}:     MMkActivity,
	{MMkCol, 3, 'A'}:     MMkCalendar,
	{MPut, 1, 'A'}:       MPatch,
	{MPut, 1, 'O'}:       MPost,
	{MPut, 1, 'R'}:       MPropPatch,
	{MPut, 2, 'R'}:       MPurge,
	{MPropPatch, 4, 'F'}: MPropFind,
	{MSearch, 1, 'U'}:    MSubscribe,
	{MUnlink, 2, 'S'}:    MUnsubscribe,
	{MUnlink, 3, 'O'}:    MUnlock,
}

// methodAdvance checks the next method-token byte b, arriving at zero-based
// position idx, against the current guess. It returns the (possibly
// corrected) guess and whether the byte was acceptable. The caller is
// responsible for comparing idx against the final guess's name length on
// a token-terminating byte (SP).
func methodAdvance(guess HTTPMethod, idx int, b byte) (HTTPMethod, bool) {
	name := methodName[guess]
	if idx < len(name) && name[idx] == b {
		return guess, true
	}
	if g, ok := methodBranch[methodBranchKey{guess, idx, b}]; ok {
		return g, true
	}
	return guess, false
}
