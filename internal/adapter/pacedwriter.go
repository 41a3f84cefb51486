package adapter

import (
	"context"
	"io"
	"time"
)

// writeChunkSize and writeChunkDelay implement the gateway's input-buffer
// pacing contract from spec.md §4.5: writes happen in chunks of at most 64
// bytes, with a 2ms pause between chunks (not after the last one).
const (
	writeChunkSize  = 64
	writeChunkDelay = 2 * time.Millisecond
)

// writePaced writes data to w in bounded chunks, sleeping writeChunkDelay
// between chunks so the gateway's input buffer can drain. It aborts early if
// ctx is cancelled.
func writePaced(ctx context.Context, w io.Writer, data []byte) error {
	for len(data) > 0 {
		n := writeChunkSize
		if n > len(data) {
			n = len(data)
		}
		if _, err := w.Write(data[:n]); err != nil {
			return &Error{Kind: LinkDown, Msg: "adapter: write failed: " + err.Error()}
		}
		data = data[n:]
		if len(data) == 0 {
			break
		}
		select {
		case <-time.After(writeChunkDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
