package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Frame is one encoded block of captured audio, ready for the transcription channel
type Frame struct {
	PCM     []byte // 16-bit signed little-endian mono samples
	Samples int
}

// Base64 returns the text-safe representation sent as audio_data
func (f Frame) Base64() string {
	return base64.StdEncoding.EncodeToString(f.PCM)
}

// EncodeFrame clamps float samples to [-1, 1] and scales them to PCM16
func EncodeFrame(samples []float32) Frame {
	return Frame{
		PCM:     Float32ToPCM16(samples),
		Samples: len(samples),
	}
}

// Float32ToPCM16 converts normalized float samples to little-endian 16-bit PCM.
// Samples are clamped and scaled by 0x7FFF, so -1 maps to -32767 rather than -32768.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 0x7FFF)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PCM16ToFloat32 converts little-endian 16-bit PCM to normalized float samples
func PCM16ToFloat32(pcmData []byte) ([]float32, error) {
	if len(pcmData)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples)")
	}

	samples := make([]float32, len(pcmData)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcmData[i*2:]))
		samples[i] = float32(v) / 0x8000
	}
	return samples, nil
}

// DecodeF32LE decodes raw 32-bit float little-endian samples (ffmpeg -f f32le)
func DecodeF32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("f32le data length must be a multiple of 4, got %d", len(data))
	}

	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples, nil
}

// Resample performs simple linear interpolation resampling
func Resample(samples []float32, inputRate, outputRate int) []float32 {
	if inputRate == outputRate || inputRate <= 0 || outputRate <= 0 || len(samples) == 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	outputLength := int(float64(len(samples)) * ratio)
	output := make([]float32, outputLength)

	for i := 0; i < outputLength; i++ {
		srcPos := float64(i) / ratio

		idx0 := int(srcPos)
		if idx0 >= len(samples) {
			idx0 = len(samples) - 1
		}
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}

		fraction := float32(srcPos - float64(idx0))
		output[i] = samples[idx0]*(1-fraction) + samples[idx1]*fraction
	}

	return output
}

// Downmix averages interleaved channels into mono
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}

	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// CalculateRMS calculates the root mean square (RMS) of normalized samples
func CalculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}
