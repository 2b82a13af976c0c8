package audio

import (
	"bytes"
	"encoding/binary"
)

const wavHeaderSize = 44

// WAV wraps the samples in a canonical RIFF/WAVE container for APIs that
// expect a file upload.
func (p PCM) WAV() []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(p))

	byteRate := SampleRate * Channels * BytesPerSample
	blockAlign := Channels * BytesPerSample

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(p)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(BytesPerSample*8))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(p)))
	buf.Write(p)

	return buf.Bytes()
}
