package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/svanichkin/effectcam/orient"
)

const (
	RecordMagic   = "ECAM"
	recordVersion = 1

	recordHeaderSize = 4 + 4 + 1 + 8
	maxRecordSide    = 16384
)

var ErrBadRecording = errors.New("bad recording")

var zstdRecordLevel = zstd.SpeedFastest

// Record is one captured frame together with the rotation resolved for it.
type Record struct {
	Frame    Frame
	Rotation orient.Rotation
	At       time.Time
}

// Recorder appends frames to a zstd-compressed stream. It is safe for
// concurrent use.
type Recorder struct {
	mu     sync.Mutex
	enc    *zstd.Encoder
	hdr    [recordHeaderSize]byte
	frames int
	closed bool
}

// NewRecorder writes the stream preamble to w and returns a recorder. Close
// must be called to flush the compressed stream; it does not close w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	if _, err := io.WriteString(w, RecordMagic); err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte{recordVersion}); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdRecordLevel))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &Recorder{enc: enc}, nil
}

// WriteFrame appends one record.
func (r *Recorder) WriteFrame(f Frame, rot orient.Rotation, at time.Time) error {
	if !f.Valid() {
		return ErrBadFrame
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return io.ErrClosedPipe
	}
	binary.LittleEndian.PutUint32(r.hdr[0:4], uint32(f.Width))
	binary.LittleEndian.PutUint32(r.hdr[4:8], uint32(f.Height))
	r.hdr[8] = byte(rot.QuarterTurns())
	binary.LittleEndian.PutUint64(r.hdr[9:17], uint64(at.UnixNano()))
	if _, err := r.enc.Write(r.hdr[:]); err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}
	if _, err := r.enc.Write(f.Data[:f.Width*f.Height*3]); err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}
	r.frames++
	return nil
}

// Frames returns how many frames were written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close flushes the compressed stream.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.enc.Close()
}

// Replay reads records written by Recorder.
type Replay struct {
	dec *zstd.Decoder
	hdr [recordHeaderSize]byte
}

// NewReplay checks the preamble and prepares the decoder.
func NewReplay(r io.Reader) (*Replay, error) {
	var pre [len(RecordMagic) + 1]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecording, err)
	}
	if string(pre[:len(RecordMagic)]) != RecordMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadRecording, pre[:len(RecordMagic)])
	}
	if pre[len(RecordMagic)] != recordVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadRecording, pre[len(RecordMagic)])
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &Replay{dec: dec}, nil
}

// Next returns the next record or io.EOF at the end of the stream.
func (p *Replay) Next() (Record, error) {
	if _, err := io.ReadFull(p.dec, p.hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("%w: header: %v", ErrBadRecording, err)
	}
	w := int(binary.LittleEndian.Uint32(p.hdr[0:4]))
	h := int(binary.LittleEndian.Uint32(p.hdr[4:8]))
	if w <= 0 || h <= 0 || w > maxRecordSide || h > maxRecordSide {
		return Record{}, fmt.Errorf("%w: frame size %dx%d", ErrBadRecording, w, h)
	}
	rot := orient.Rotation(p.hdr[8] & 3)
	at := time.Unix(0, int64(binary.LittleEndian.Uint64(p.hdr[9:17])))

	data := make([]byte, w*h*3)
	if _, err := io.ReadFull(p.dec, data); err != nil {
		return Record{}, fmt.Errorf("%w: payload: %v", ErrBadRecording, err)
	}
	return Record{Frame: Frame{Data: data, Width: w, Height: h}, Rotation: rot, At: at}, nil
}

// Close releases the decoder.
func (p *Replay) Close() {
	p.dec.Close()
}
