package visualizer

import "io"

// Tap sits between an audio source and its output. Everything written reaches the
// output unchanged; the analyzer sees a copy.
type Tap struct {
	out      io.Writer
	analyzer *Analyzer
}

// NewTap connects analyzer in series in front of out
func NewTap(out io.Writer, analyzer *Analyzer) *Tap {
	return &Tap{out: out, analyzer: analyzer}
}

func (t *Tap) Write(p []byte) (int, error) {
	n, err := t.out.Write(p)
	if n > 0 {
		_, _ = t.analyzer.Write(p[:n])
	}
	return n, err
}
