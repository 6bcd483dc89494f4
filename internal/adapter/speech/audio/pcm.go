package audio

import (
	"encoding/binary"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// DefaultTTSSampleRate matches the pcm_22050_16bit synthesis format.
const DefaultTTSSampleRate = 22050

// DecodePCM16 converts little-endian signed 16-bit mono PCM into float
// samples in [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(data []byte, sampleRate int) domain.AudioBuffer {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float32(v) / 32768
	}
	return domain.AudioBuffer{Samples: samples, SampleRate: sampleRate, Raw: data[:2*n]}
}

// PCMDecoder decodes a chunked PCM stream, carrying a sample split across
// chunk boundaries over to the next chunk.
type PCMDecoder struct {
	sampleRate int
	carry      []byte
}

// NewPCMDecoder returns a decoder for mono 16-bit PCM at sampleRate.
func NewPCMDecoder(sampleRate int) *PCMDecoder {
	if sampleRate <= 0 {
		sampleRate = DefaultTTSSampleRate
	}
	return &PCMDecoder{sampleRate: sampleRate}
}

// Decode returns the buffer for chunk. ok is false when the chunk held no whole sample.
func (d *PCMDecoder) Decode(chunk []byte) (buf domain.AudioBuffer, ok bool) {
	data := chunk
	if len(d.carry) > 0 {
		data = append(append([]byte(nil), d.carry...), chunk...)
		d.carry = d.carry[:0]
	} else {
		data = append([]byte(nil), chunk...)
	}
	if len(data)%2 == 1 {
		d.carry = append(d.carry, data[len(data)-1])
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return domain.AudioBuffer{}, false
	}
	return DecodePCM16(data, d.sampleRate), true
}
