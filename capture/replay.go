package capture

import (
	"bytes"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// RecordedFrame is an image file from a recorded session.
type RecordedFrame struct {
	// Path is the path to the image file.
	Path string
	// Image is the decoded image.
	Image image.Image
	// Index is the frame number parsed from a "frame-<n>" file name.
	Index int
}

// LoadRecordedFrames reads and decodes all frame images from a directory.
//
// Files must be named frame-<n>.<ext>; they are returned ordered by n.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []RecordedFrame: The decoded frames in order.
//   - error: Error if a file cannot be read, decoded or numbered.
func LoadRecordedFrames(dir string) ([]RecordedFrame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}

	var frames []RecordedFrame
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png":
		default:
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		index, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "frame-"), filepath.Ext(entry.Name())))
		if err != nil {
			return nil, errors.Wrapf(err, "frame number of %s", entry.Name())
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", path)
		}

		frames = append(frames, RecordedFrame{Path: path, Image: img, Index: index})
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Index < frames[j].Index
	})

	return frames, nil
}

// Replay serves recorded frames in order, looping at the end.
//
// Only Snapshot advances the sequence; viewers read the last served frame with Current.
type Replay struct {
	mu     sync.Mutex
	frames []RecordedFrame
	next   int
	last   int
}

// NewReplay creates a replay source.
//
// Returns:
//   - error: An error if frames is empty.
func NewReplay(frames []RecordedFrame) (*Replay, error) {
	if len(frames) == 0 {
		return nil, errors.New("replay needs at least one frame")
	}
	return &Replay{frames: frames}, nil
}

// Snapshot returns the next recorded frame.
func (r *Replay) Snapshot() (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = r.next
	r.next = (r.next + 1) % len(r.frames)
	return r.frames[r.last].Image, nil
}

// Current returns the frame most recently served by Snapshot, or the first
// frame before any Snapshot, without advancing the sequence.
func (r *Replay) Current() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[r.last].Image
}
