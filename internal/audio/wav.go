package audio

import "encoding/binary"

// WAV wraps raw 16-bit PCM in a RIFF container. External players accept the
// result as a .wav file without caring where the samples came from.
func WAV(data []byte, sampleRate, channels int) []byte {
	const headerSize = 44
	blockAlign := channels * bytesPerSample
	byteRate := sampleRate * blockAlign

	out := make([]byte, headerSize+len(data))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(data)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], 16) // bits per sample
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(data)))
	copy(out[headerSize:], data)
	return out
}

// EncodeWAV renders the clip for an external player.
func EncodeWAV(clip *Clip) []byte {
	return WAV(clip.pcm, clip.SampleRate, clip.Channels())
}
