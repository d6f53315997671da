package output

import (
	"io"

	"github.com/cmgg/labqc/internal/report"
)

// Formatter defines the interface for serializing a finished report.
type Formatter interface {
	Format(w io.Writer, rep *report.Report) error
}
