package eskf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Exporter defines an export interface.
type Exporter interface {
	Write(Estimate) error
	Close() error
}

// ErrorStateHeaders names the error state components, in order.
var ErrorStateHeaders = []string{
	"x", "y", "z",
	"vx", "vy", "vz",
	"roll", "pitch", "yaw",
	"bax", "bay", "baz",
	"bgx", "bgy", "bgz",
}

// CSVExporter writes one line per estimate: the nominal position, velocity and
// biases, the attitude as a rotation vector, each followed by its ±2σ bounds.
type CSVExporter struct {
	delimiter string
	hdlr      *os.File
}

// Close closes the file.
func (e CSVExporter) Close() (err error) {
	err = e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC()))
	if err != nil {
		return
	}
	return e.hdlr.Close()
}

// Name returns the path of the CSV file.
func (e CSVExporter) Name() string {
	return e.hdlr.Name()
}

// Write writes the estimate to the CSV file.
func (e CSVExporter) Write(est Estimate) error {
	δ, err := StateError(NewNominalState(nil, nil, IdentityQuaternion, nil, nil), est.State())
	if err != nil {
		return err
	}
	vals := make([]string, ErrorSize*3)
	for i := 0; i < ErrorSize*3; i += 3 {
		vals[i] = fmt.Sprintf("%f", δ.AtVec(i/3))
		covar := 2 * math.Sqrt(est.Covariance().At(i/3, i/3))
		vals[i+1] = fmt.Sprintf("%f", covar)
		vals[i+2] = fmt.Sprintf("%f", -1*covar)
	}
	_, err = e.hdlr.WriteString(strings.Join(vals, e.delimiter) + "\n")
	return err
}

// WriteError writes an error state, such as a GroundTruth error, with the ±2σ bounds of the estimate.
func (e CSVExporter) WriteError(δx mat.Vector, est Estimate) error {
	if δx.Len() != ErrorSize {
		return fmt.Errorf("%sδx(%d) expected (%d)", dimErrMsg, δx.Len(), ErrorSize)
	}
	vals := make([]string, ErrorSize*3)
	for i := 0; i < ErrorSize*3; i += 3 {
		vals[i] = fmt.Sprintf("%f", δx.AtVec(i/3))
		covar := 2 * math.Sqrt(est.Covariance().At(i/3, i/3))
		vals[i+1] = fmt.Sprintf("%f", covar)
		vals[i+2] = fmt.Sprintf("%f", -1*covar)
	}
	_, err := e.hdlr.WriteString(strings.Join(vals, e.delimiter) + "\n")
	return err
}

// WriteRawLn writes a raw line to the CSV file.
func (e CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}

// NewCSVExporter initializes a new CSV export of the error state components named by headers.
func NewCSVExporter(headers []string, dir, filename string) (e *CSVExporter, err error) {
	if len(headers) != ErrorSize {
		return nil, fmt.Errorf("eskf: expected %d headers, got %d", ErrorSize, len(headers))
	}
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return
	}
	delimiter := ","
	// Header
	hdr := make([]string, len(headers)*3)
	for i := 0; i < len(headers)*3; i += 3 {
		hdr[i] = headers[i/3]
		hdr[i+1] = hdr[i] + "+2s"
		hdr[i+2] = hdr[i] + "-2s"
	}
	if _, err = f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n%s\n", time.Now().UTC(), strings.Join(hdr, delimiter))); err != nil {
		f.Close()
		return nil, err
	}
	e = &CSVExporter{delimiter, f}
	return
}
