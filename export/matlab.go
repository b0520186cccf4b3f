package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Matlab writes variables and commands as a MATLAB/Octave script.
type Matlab struct {
	Silent bool // end statements with ';'

	w   *bufio.Writer
	err error
}

func NewMatlab(w io.Writer) *Matlab {
	return &Matlab{Silent: true, w: bufio.NewWriter(w)}
}

func (m *Matlab) printf(format string, args ...interface{}) {
	if m.err != nil {
		return
	}
	_, m.err = fmt.Fprintf(m.w, format, args...)
}

func (m *Matlab) end() {
	if m.Silent {
		m.printf(";\n")
	} else {
		m.printf("\n")
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Export writes v as the row vector name.
func (m *Matlab) Export(name string, v []float64) {
	m.printf("%s=[", name)
	for i, x := range v {
		if i > 0 {
			m.printf(" ")
		}
		m.printf("%s", number(x))
	}
	m.printf("]")
	m.end()
}

// ExportMatrix writes a as the matrix name, one row per line.
func (m *Matlab) ExportMatrix(name string, a mat.Matrix) {
	r, c := a.Dims()
	m.printf("%s=[", name)
	for i := 0; i < r; i++ {
		if i > 0 {
			m.printf(";\n")
		}
		for j := 0; j < c; j++ {
			if j > 0 {
				m.printf(" ")
			}
			m.printf("%s", number(a.At(i, j)))
		}
	}
	m.printf("]")
	m.end()
}

// Command writes cmd verbatim on its own line.
func (m *Matlab) Command(cmd string) {
	m.printf("%s\n", cmd)
}

// Close flushes the script and returns the first write error.
func (m *Matlab) Close() error {
	if m.err != nil {
		return m.err
	}
	return m.w.Flush()
}
