package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 3200) // 100ms at 16kHz mono 16-bit
	for i := range pcm {
		pcm[i] = byte(i)
	}

	wav, err := EncodeWAV(pcm)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	if len(wav) != len(pcm)+44 {
		t.Fatalf("expected %d bytes, got %d", len(pcm)+44, len(wav))
	}
	if string(wav[0:4]) != "RIFF" {
		t.Errorf("missing RIFF marker: %q", wav[0:4])
	}
	if string(wav[8:12]) != "WAVE" {
		t.Errorf("missing WAVE marker: %q", wav[8:12])
	}
	if string(wav[12:16]) != "fmt " {
		t.Errorf("missing fmt marker: %q", wav[12:16])
	}
	if string(wav[36:40]) != "data" {
		t.Errorf("missing data marker: %q", wav[36:40])
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(len(pcm)+36) {
		t.Errorf("riff chunk size = %d, want %d", got, len(pcm)+36)
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Error("pcm payload was modified")
	}
}

func TestEncodeWAVFormatFields(t *testing.T) {
	wav, err := EncodeWAV(make([]byte, 320))
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	if got := binary.LittleEndian.Uint16(wav[20:22]); got != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != SampleRate {
		t.Errorf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != SampleRate*2 {
		t.Errorf("byte rate = %d, want %d", got, SampleRate*2)
	}
	if got := binary.LittleEndian.Uint16(wav[32:34]); got != 2 {
		t.Errorf("block align = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
}

func TestEncodeWAVEmptyInput(t *testing.T) {
	wav, err := EncodeWAV(nil)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if len(wav) != 44 {
		t.Fatalf("expected bare header, got %d bytes", len(wav))
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != 0 {
		t.Errorf("data size = %d, want 0", got)
	}
}

func TestEncodeWAVOddLength(t *testing.T) {
	if _, err := EncodeWAV(make([]byte, 321)); err == nil {
		t.Fatal("expected error for odd-length pcm")
	}
}
