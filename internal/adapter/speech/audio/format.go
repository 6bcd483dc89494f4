// Package audio holds the speech audio helpers: upload format detection,
// PCM decoding and strict FIFO playback.
package audio

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Formats accepted by the chat-audio input.
var chatFormats = map[string]string{
	"wav":   "wav",
	"x-wav": "wav",
	"wave":  "wav",
	"mp3":   "mp3",
	"mpeg":  "mp3",
	"m4a":   "m4a",
	"x-m4a": "m4a",
	"mp4":   "m4a",
	"pcm":   "pcm",
}

// ChatFormat picks the input_audio format for a recording. The declared MIME
// type wins; without one the bytes are sniffed. Anything unsupported,
// including webm, is sent as wav.
func ChatFormat(data []byte, declared string) string {
	mime := strings.TrimSpace(declared)
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(data).String()
	}
	sub := mime
	if i := strings.IndexByte(sub, '/'); i >= 0 {
		sub = sub[i+1:]
	}
	if i := strings.IndexByte(sub, ';'); i >= 0 {
		sub = sub[:i]
	}
	if f, ok := chatFormats[strings.ToLower(strings.TrimSpace(sub))]; ok {
		return f
	}
	return "wav"
}

// IsAudioUpload reports whether data sniffs as audio, or as an opaque stream
// that the vendor may still accept (raw PCM has no signature).
func IsAudioUpload(data []byte) bool {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") || m.Is("video/webm") || m.Is("video/mp4") {
			return true
		}
	}
	return mt.Is("application/octet-stream")
}
