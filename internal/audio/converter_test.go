package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"
)

func TestFloat32ToPCM16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"full scale positive", 1, 0x7FFF},
		{"full scale negative", -1, -0x7FFF},
		{"half", 0.5, 16383},
		{"clamped above", 1.7, 0x7FFF},
		{"clamped below", -3, -0x7FFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := Float32ToPCM16([]float32{tt.input})
			if len(pcm) != 2 {
				t.Fatalf("Expected 2 bytes, got %d", len(pcm))
			}
			got := int16(binary.LittleEndian.Uint16(pcm))
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	samples := make([]float32, 4096)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) / 10))
	}

	frame := EncodeFrame(samples)
	if frame.Samples != 4096 {
		t.Errorf("Expected 4096 samples, got %d", frame.Samples)
	}
	if len(frame.PCM) != 8192 {
		t.Errorf("Expected 8192 PCM bytes, got %d", len(frame.PCM))
	}

	decoded, err := base64.StdEncoding.DecodeString(frame.Base64())
	if err != nil {
		t.Fatalf("Base64 output did not decode: %v", err)
	}
	if len(decoded) != len(frame.PCM) {
		t.Errorf("Expected decoded length %d, got %d", len(frame.PCM), len(decoded))
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	pcm := make([]byte, 4)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(pcm[2:], 0x8000)

	samples, err := PCM16ToFloat32(pcm)
	if err != nil {
		t.Fatalf("PCM16ToFloat32 failed: %v", err)
	}
	if samples[0] != 0.5 {
		t.Errorf("Expected 0.5, got %f", samples[0])
	}
	if samples[1] != -1 {
		t.Errorf("Expected -1, got %f", samples[1])
	}

	if _, err := PCM16ToFloat32([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for odd-length PCM data")
	}
}

func TestDecodeF32LE(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-0.75))

	samples, err := DecodeF32LE(data)
	if err != nil {
		t.Fatalf("DecodeF32LE failed: %v", err)
	}
	if len(samples) != 2 || samples[0] != 0.25 || samples[1] != -0.75 {
		t.Errorf("Unexpected samples: %v", samples)
	}

	if _, err := DecodeF32LE(make([]byte, 6)); err == nil {
		t.Error("Expected error for truncated f32le data")
	}
}

func TestResample(t *testing.T) {
	// 0.1 seconds at 48kHz
	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = float32(i%100) / 100
	}

	out := Resample(samples, 48000, 16000)
	expectedLen := 1600
	tolerance := 10
	if len(out) < expectedLen-tolerance || len(out) > expectedLen+tolerance {
		t.Errorf("Expected length around %d, got %d", expectedLen, len(out))
	}

	same := Resample(samples, 16000, 16000)
	if len(same) != len(samples) {
		t.Errorf("Expected unchanged length for equal rates, got %d", len(same))
	}

	up := Resample([]float32{0, 1}, 8000, 16000)
	if len(up) != 4 {
		t.Fatalf("Expected 4 samples after upsampling, got %d", len(up))
	}
	if up[1] != 0.5 {
		t.Errorf("Expected interpolated 0.5, got %f", up[1])
	}
}

func TestDownmix(t *testing.T) {
	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	mono := Downmix(stereo, 2)
	expected := []float32{0.5, 0.5, 0}
	if len(mono) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(mono))
	}
	for i := range expected {
		if mono[i] != expected[i] {
			t.Errorf("Expected %f at %d, got %f", expected[i], i, mono[i])
		}
	}
}

func TestCalculateRMS(t *testing.T) {
	if rms := CalculateRMS(nil); rms != 0 {
		t.Errorf("Expected 0 for empty input, got %f", rms)
	}

	samples := []float32{0.5, -0.5, 0.5, -0.5}
	rms := CalculateRMS(samples)
	if math.Abs(rms-0.5) > 1e-9 {
		t.Errorf("Expected RMS 0.5, got %f", rms)
	}
}
