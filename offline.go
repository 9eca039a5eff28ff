package bmschart

import (
	"encoding/binary"
	"math"

	intaud "github.com/Bobini1/bmschart-go/internal/audition"
	intclick "github.com/Bobini1/bmschart-go/internal/click"
)

// RenderClickTrack renders song's audition mix offline and returns
// interleaved stereo samples covering the whole chart plus the blip
// tail.
func RenderClickTrack(song *Song, sampleRate int) []float32 {
	return renderAudition(song, sampleRate, false)
}

// RenderClickTrackMetronome renders the audition mix with a tick on
// every measure line.
func RenderClickTrackMetronome(song *Song, sampleRate int) []float32 {
	return renderAudition(song, sampleRate, true)
}

func renderAudition(song *Song, sampleRate int, metronome bool) []float32 {
	engine := intclick.New(sampleRate, intclick.DefaultParams())
	seq := intaud.NewWithOptions(song.Timeline, engine, sampleRate, intaud.Options{
		Metronome: metronome,
	})
	var out []float32
	buf := make([]float32, 8192)
	for !seq.Finished() {
		seq.Process(buf)
		out = append(out, buf...)
	}
	return out
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
