package singer

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// MessageWriter is where the replication strategies emit protocol messages.
type MessageWriter interface {
	Write(msg Message) error
}

// Writer serializes messages as JSON lines to an io.Writer (normally stdout).
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.WithStack(err)
	}
	data = append(data, '\n')
	_, err = w.w.Write(data)
	return errors.WithStack(err)
}

var _ MessageWriter = (*Writer)(nil)
