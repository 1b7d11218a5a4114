// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package demoframe is a thin structural-framing seam over a raw Source
// engine demo file: enough to read the outer header and iterate top-level
// commands, and to scan a packet's embedded net-message stream for the
// few message kinds cmd/demodump cares about (svc_SendTable and its
// server/class-info counterparts). It does not implement the protobuf-ish
// message catalogue itself — that is a separate subsystem this module
// treats as a consumed contract, matching SPEC_FULL.md §4.4.
package demoframe

import (
	"errors"
	"fmt"
	"io"

	"github.com/lipsanen/demogoblin/bitstream"
	"github.com/lipsanen/demogoblin/internal/sync2"
)

// payloadPool reuses command payload buffers across Reader.Next calls, since
// a batch run allocates one per top-level command otherwise.
var payloadPool sync2.Pool[[]byte]

// Header is the fixed-layout preamble of a .dem file.
type Header struct {
	Magic            string
	DemoProtocol     int32
	NetworkProtocol  int32
	ServerName       string
	ClientName       string
	MapName          string
	GameDirectory    string
	PlaybackTime     float32
	PlaybackTicks    int32
	PlaybackFrames   int32
	SignonLength     int32
}

const (
	magicLen  = 8
	stringLen = 260 // Matches the source engine's fixed-width path/name fields.
)

// ErrTruncated is returned when the underlying reader runs out of bytes
// mid-structure.
var ErrTruncated = errors.New("demoframe: truncated demo file")

// Reader frames a .dem file's top-level structure.
type Reader struct {
	r      io.Reader
	header Header

	// dropPayload releases the previous command's pooled payload buffer.
	// Deferred until the next Next() call since the caller is expected to
	// be done consuming the previous Command by then.
	dropPayload func()
}

// Open reads and validates the demo header, returning a Reader positioned
// at the first top-level command.
func Open(r io.Reader) (*Reader, Header, error) {
	buf := make([]byte, magicLen+4+4+stringLen*4+4+4+4+4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, Header{}, fmt.Errorf("demoframe: reading header: %w", ErrTruncated)
	}

	b := bitstream.New(buf, uint64(len(buf))*8)

	magic := make([]byte, magicLen)
	b.ReadFixedString(magic)

	h := Header{
		Magic:           trimNul(magic),
		DemoProtocol:    b.ReadSint32(),
		NetworkProtocol: b.ReadSint32(),
	}
	h.ServerName = readFixedCString(&b, stringLen)
	h.ClientName = readFixedCString(&b, stringLen)
	h.MapName = readFixedCString(&b, stringLen)
	h.GameDirectory = readFixedCString(&b, stringLen)
	h.PlaybackTime = b.ReadFloat()
	h.PlaybackTicks = b.ReadSint32()
	h.PlaybackFrames = b.ReadSint32()
	h.SignonLength = b.ReadSint32()

	if b.Overflow() {
		return nil, Header{}, ErrTruncated
	}

	return &Reader{r: r, header: h}, h, nil
}

func readFixedCString(b *bitstream.Bitstream, n int) string {
	dest := make([]byte, n)
	b.ReadFixedString(dest)
	return trimNul(dest)
}

func trimNul(b []byte) string {
	if i := indexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Command is one top-level demo command.
type Command struct {
	Kind       byte
	Tick       int32
	PlayerSlot byte
	Payload    []byte
}

// Demo command kinds this seam recognizes enough to route; the rest of the
// catalogue is out of scope and passed through as opaque Payload bytes.
const (
	CmdSignonPacket byte = 1
	CmdPacket       byte = 2
	CmdStop         byte = 6
)

// Next reads the next top-level command. It returns io.EOF once the
// underlying reader has no bytes left at a command boundary. A CmdStop does
// not end iteration by itself; Next keeps reading any bytes that follow it.
func (rd *Reader) Next() (*Command, error) {
	if rd.dropPayload != nil {
		rd.dropPayload()
		rd.dropPayload = nil
	}

	head := make([]byte, 1+4+1+4)
	n, err := io.ReadFull(rd.r, head)
	if err != nil {
		if n == 0 {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("demoframe: reading command header: %w", ErrTruncated)
	}

	b := bitstream.New(head, uint64(len(head))*8)
	cmd := &Command{
		Kind:       byte(b.ReadUint(8)),
		Tick:       b.ReadSint32(),
		PlayerSlot: byte(b.ReadUint(8)),
	}
	size := b.ReadSint32()
	if size < 0 {
		return nil, fmt.Errorf("demoframe: negative payload size %d", size)
	}

	buf, drop := payloadPool.Get()
	if cap(*buf) < int(size) {
		*buf = make([]byte, size)
	}
	*buf = (*buf)[:size]

	if _, err := io.ReadFull(rd.r, *buf); err != nil {
		drop()
		return nil, fmt.Errorf("demoframe: reading command payload: %w", ErrTruncated)
	}

	cmd.Payload = *buf
	rd.dropPayload = drop
	return cmd, nil
}

// NetMessage is one parsed entry of a packet's embedded net-message
// stream: a protocol tag, its raw bytes, and a Bitstream already
// positioned to read them.
type NetMessage struct {
	Kind    uint32
	Raw     []byte
	Payload *bitstream.Bitstream
}

// Net message kinds this seam routes to the caller; decoding their
// contents is out of scope (a separate subsystem owns the actual
// protobuf-ish wire schema).
const (
	NetMsgSendTable  uint32 = 9
	NetMsgServerInfo uint32 = 8
	NetMsgClassInfo  uint32 = 10
)

// NetMessages scans a CmdSignonPacket/CmdPacket's payload for
// length-delimited (tag, size, bytes) net messages, calling yield for
// each. Scanning stops early if yield returns false, or if the payload is
// exhausted or malformed (overflow on the underlying Bitstream).
//
// This is the framing seam SPEC_FULL.md §4.4 calls for: it does not
// interpret message bodies, only the tag+size envelope around them, via
// ReadVarUint32 exactly as the real engine's net channel does.
func (c *Command) NetMessages(yield func(msg NetMessage) bool) {
	if c.Kind != CmdSignonPacket && c.Kind != CmdPacket {
		return
	}

	// Source demo packets reserve a fixed-size "in/out sequence" prefix
	// ahead of the net-message stream proper.
	const packetPrefix = 8
	if len(c.Payload) < packetPrefix {
		return
	}

	b := bitstream.New(c.Payload[packetPrefix:], uint64(len(c.Payload)-packetPrefix)*8)
	for {
		if b.Overflow() || b.BitsLeft() < 8 {
			return
		}

		kind := b.ReadVarUint32()
		if b.Overflow() {
			return
		}
		size := b.ReadVarUint32()
		if b.Overflow() || uint64(size)*8 > b.BitsLeft() {
			return
		}

		sub := b.ForkAndAdvance(uint64(size) * 8)
		raw := make([]byte, size)
		sub.ReadFixedString(raw)

		payload := bitstream.New(raw, uint64(size)*8)
		if !yield(NetMessage{Kind: kind, Raw: raw, Payload: &payload}) {
			return
		}
	}
}
