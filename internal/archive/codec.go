package archive

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"docket/internal/submission"
)

var (
	snapshotEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	snapshotDecoder, _ = zstd.NewReader(nil)
)

// maxSnapshotSize guards decoding against a corrupted frame header.
const maxSnapshotSize = 16 << 20

func encodeSnapshot(sub *submission.Submission) ([]byte, error) {
	raw, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return snapshotEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func decodeSnapshot(blob []byte) (*submission.Submission, error) {
	raw, err := snapshotDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	if len(raw) > maxSnapshotSize {
		return nil, fmt.Errorf("snapshot of %d bytes exceeds limit", len(raw))
	}
	var sub submission.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &sub, nil
}
