package vault

import (
	"io"
	"strings"
	"sync"
)

const maskReplacement = "****"

// Masker replaces every registered secret substring with "****". Secrets stay
// registered after their binding is released so late-flushed log lines are
// still masked.
type Masker struct {
	mu      sync.Mutex
	secrets []string
}

func NewMasker() *Masker {
	return &Masker{secrets: make([]string, 0)}
}

func (m *Masker) Add(secret string) {
	if secret == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.secrets {
		if s == secret {
			return
		}
	}
	m.secrets = append(m.secrets, secret)
}

func (m *Masker) Mask(text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.secrets {
		text = strings.ReplaceAll(text, s, maskReplacement)
	}
	return text
}

// Writer wraps w so everything written through it is masked first. Writes are
// line-buffered so a secret split across two writes of the same line is still
// caught.
func (m *Masker) Writer(w io.Writer) *MaskingWriter {
	return &MaskingWriter{masker: m, w: w}
}

type MaskingWriter struct {
	masker *Masker
	w      io.Writer
	buf    strings.Builder
}

func (mw *MaskingWriter) Write(p []byte) (int, error) {
	mw.buf.Write(p)
	for {
		buffered := mw.buf.String()
		idx := strings.IndexByte(buffered, '\n')
		if idx < 0 {
			break
		}
		line := buffered[:idx+1]
		mw.buf.Reset()
		mw.buf.WriteString(buffered[idx+1:])
		if _, err := io.WriteString(mw.w, mw.masker.Mask(line)); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Flush writes any buffered partial line, masked.
func (mw *MaskingWriter) Flush() error {
	if mw.buf.Len() == 0 {
		return nil
	}
	rest := mw.buf.String()
	mw.buf.Reset()
	_, err := io.WriteString(mw.w, mw.masker.Mask(rest))
	return err
}
