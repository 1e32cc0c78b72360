package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// LoadPCM decodes a whole WAV file into memory. TED talks run under an hour
// of 16kHz mono, so a full decode stays well within a worker's budget.
func LoadPCM(path string) (*gaudio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("%w: %s: expected mono PCM", ErrUnreadableAudio, path)
	}
	return buf, nil
}

// WriteSegment writes the [startSec, endSec) slice of a mono PCM buffer to
// path as a 16-bit WAV file. Sample positions round outward (floor the start,
// ceil the end) so the cut never loses audio at the edges; the range is
// clamped to the buffer.
func WriteSegment(buf *gaudio.IntBuffer, path string, startSec, endSec float64) error {
	rate := float64(buf.Format.SampleRate)
	start := int(math.Floor(startSec * rate))
	end := int(math.Ceil(endSec * rate))
	if start < 0 {
		start = 0
	}
	if end > len(buf.Data) {
		end = len(buf.Data)
	}
	if start >= end {
		return fmt.Errorf("segment %s: empty range [%vs, %vs)", path, startSec, endSec)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("segment %s: %w", path, err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("segment %s: %w", path, err)
	}

	enc := wav.NewEncoder(out, buf.Format.SampleRate, 16, buf.Format.NumChannels, 1)
	part := &gaudio.IntBuffer{
		Format:         buf.Format,
		Data:           buf.Data[start:end],
		SourceBitDepth: 16,
	}
	err = enc.Write(part)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("segment %s: %w", path, err)
	}
	return nil
}
