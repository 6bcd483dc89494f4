package audio

import (
	"bytes"
	"encoding/binary"

	"github.com/gabriel-vasile/mimetype"
)

// PCMPayload returns the sample bytes of a RIFF/WAVE recording by locating
// its data chunk. Anything that is not WAV is assumed to be raw PCM already
// and returned unchanged.
func PCMPayload(data []byte) []byte {
	if !isWAV(data) {
		return data
	}
	off := 12
	for off+8 <= len(data) {
		id := data[off : off+4]
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if bytes.Equal(id, []byte("data")) {
			end := body + size
			if end > len(data) {
				end = len(data)
			}
			return data[body:end]
		}
		// chunks are word aligned
		off = body + size + size%2
	}
	return nil
}

// IsFrameable reports whether a recording can be cut into PCM frames: a WAV
// file or signature-less raw PCM. Compressed containers such as webm or mp3
// cannot.
func IsFrameable(data []byte) bool {
	return isWAV(data) || mimetype.Detect(data).Is("application/octet-stream")
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}
