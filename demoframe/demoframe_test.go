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

package demoframe_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lipsanen/demogoblin/demoframe"
)

func fixedString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func buildHeader() []byte {
	var buf bytes.Buffer
	buf.Write(fixedString("HL2DEMO", 8))
	binary.Write(&buf, binary.LittleEndian, int32(4))
	binary.Write(&buf, binary.LittleEndian, int32(24))
	buf.Write(fixedString("server", 260))
	buf.Write(fixedString("client", 260))
	buf.Write(fixedString("de_test", 260))
	buf.Write(fixedString("csgo", 260))
	binary.Write(&buf, binary.LittleEndian, float32(12.5))
	binary.Write(&buf, binary.LittleEndian, int32(100))
	binary.Write(&buf, binary.LittleEndian, int32(200))
	binary.Write(&buf, binary.LittleEndian, int32(0))
	return buf.Bytes()
}

func appendCommand(buf *bytes.Buffer, kind byte, tick int32, payload []byte) {
	buf.WriteByte(kind)
	binary.Write(buf, binary.LittleEndian, tick)
	buf.WriteByte(0) // player slot
	binary.Write(buf, binary.LittleEndian, int32(len(payload)))
	buf.Write(payload)
}

func TestOpenParsesHeader(t *testing.T) {
	t.Parallel()

	_, h, err := demoframe.Open(bytes.NewReader(buildHeader()))
	require.NoError(t, err)
	require.Equal(t, "HL2DEMO", h.Magic)
	require.Equal(t, int32(4), h.DemoProtocol)
	require.Equal(t, int32(24), h.NetworkProtocol)
	require.Equal(t, "server", h.ServerName)
	require.Equal(t, "de_test", h.MapName)
	require.Equal(t, int32(100), h.PlaybackTicks)
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	t.Parallel()

	_, _, err := demoframe.Open(bytes.NewReader(buildHeader()[:10]))
	require.ErrorIs(t, err, demoframe.ErrTruncated)
}

func TestNextIteratesCommandsUntilStop(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.Write(buildHeader())
	appendCommand(&buf, demoframe.CmdSignonPacket, 1, []byte{1, 2, 3})
	appendCommand(&buf, demoframe.CmdPacket, 2, []byte{4, 5, 6, 7})
	appendCommand(&buf, demoframe.CmdStop, 3, nil)

	reader, _, err := demoframe.Open(&buf)
	require.NoError(t, err)

	cmd, err := reader.Next()
	require.NoError(t, err)
	require.Equal(t, demoframe.CmdSignonPacket, cmd.Kind)
	require.Equal(t, []byte{1, 2, 3}, cmd.Payload)

	cmd, err = reader.Next()
	require.NoError(t, err)
	require.Equal(t, demoframe.CmdPacket, cmd.Kind)
	require.Equal(t, []byte{4, 5, 6, 7}, cmd.Payload)

	cmd, err = reader.Next()
	require.NoError(t, err)
	require.Equal(t, demoframe.CmdStop, cmd.Kind)

	_, err = reader.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestNetMessagesScansTagSizePayload(t *testing.T) {
	t.Parallel()

	var inner bytes.Buffer
	inner.Write(make([]byte, 8)) // packet prefix

	// One varuint-tagged, varuint-sized sub-message: kind=9, size=2, bytes{0xAB,0xCD}.
	inner.WriteByte(9)
	inner.WriteByte(2)
	inner.Write([]byte{0xAB, 0xCD})

	cmd := &demoframe.Command{Kind: demoframe.CmdPacket, Payload: inner.Bytes()}

	var seen []demoframe.NetMessage
	cmd.NetMessages(func(msg demoframe.NetMessage) bool {
		seen = append(seen, msg)
		return true
	})

	require.Len(t, seen, 1)
	require.Equal(t, demoframe.NetMsgSendTable, seen[0].Kind)
	require.Equal(t, []byte{0xAB, 0xCD}, seen[0].Raw)
}

func TestNetMessagesIgnoresNonPacketCommands(t *testing.T) {
	t.Parallel()

	cmd := &demoframe.Command{Kind: demoframe.CmdStop, Payload: []byte{1, 2, 3}}

	called := false
	cmd.NetMessages(func(demoframe.NetMessage) bool {
		called = true
		return true
	})
	require.False(t, called)
}
