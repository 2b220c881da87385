package waveform

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// AnnotationLabel marks the EDF+ annotation channel, which holds text.
const AnnotationLabel = "EDF Annotations"

const (
	fixedHeaderSize  = 256
	signalHeaderSize = 256
)

var (
	// ErrInvalidHeader is returned for an EDF header that cannot be parsed.
	ErrInvalidHeader = errors.New("invalid EDF header")
	// ErrSignalIndex is returned for a signal index outside the recording.
	ErrSignalIndex = errors.New("signal index out of range")
)

// Header is the EDF/EDF+ file header.
type Header struct {
	Version            string
	PatientID          string
	RecordingID        string
	StartTime          time.Time
	HeaderBytes        int
	DataRecords        int // -1 if unknown
	DataRecordDuration time.Duration
	Signals            []Signal
}

// Signal describes one channel of a recording.
type Signal struct {
	Label             string
	TransducerType    string
	PhysicalDimension string
	PhysicalMin       float64
	PhysicalMax       float64
	DigitalMin        int
	DigitalMax        int
	Prefiltering      string
	SamplesPerRecord  int
}

// IsAnnotation reports whether the signal is the EDF+ annotation channel.
func (s Signal) IsAnnotation() bool {
	return s.Label == AnnotationLabel
}

// SampleRate returns samples per second.
func (s Signal) SampleRate(recordDuration time.Duration) float64 {
	if recordDuration <= 0 {
		return 0
	}
	return float64(s.SamplesPerRecord) / recordDuration.Seconds()
}

// Recording is a fully decoded EDF file in physical units.
type Recording struct {
	Header  Header
	Samples [][]float64
}

// ReadEDF decodes the header and every complete data record of r.
// A trailing partial record is ignored.
func ReadEDF(r io.Reader) (*Recording, error) {
	br := bufio.NewReader(r)
	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	recordSize := 0
	for _, sig := range hdr.Signals {
		recordSize += sig.SamplesPerRecord * 2
	}

	rec := &Recording{Header: *hdr, Samples: make([][]float64, len(hdr.Signals))}
	if recordSize == 0 {
		return rec, nil
	}

	buf := make([]byte, recordSize)
	for n := 0; hdr.DataRecords < 0 || n < hdr.DataRecords; n++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("error reading data record %d: %w", n, err)
		}
		offset := 0
		for i, sig := range hdr.Signals {
			for k := 0; k < sig.SamplesPerRecord; k++ {
				digital := int16(binary.LittleEndian.Uint16(buf[offset:])) //nolint:gosec // two's complement sample
				rec.Samples[i] = append(rec.Samples[i], digitalToPhysical(digital, sig))
				offset += 2
			}
		}
	}
	return rec, nil
}

// PerSecond averages signal i into one-second bins measured from the
// recording start. Seconds without samples are NaN.
func (r *Recording) PerSecond(i int) ([]float64, error) {
	if i < 0 || i >= len(r.Header.Signals) {
		return nil, fmt.Errorf("%w: %d", ErrSignalIndex, i)
	}
	rate := r.Header.Signals[i].SampleRate(r.Header.DataRecordDuration)
	samples := r.Samples[i]
	if rate <= 0 || len(samples) == 0 {
		return nil, nil
	}

	seconds := int(math.Ceil(float64(len(samples)) / rate))
	sums := make([]float64, seconds)
	counts := make([]int, seconds)
	for k, v := range samples {
		bin := int(float64(k) / rate)
		if bin >= seconds {
			bin = seconds - 1
		}
		sums[bin] += v
		counts[bin]++
	}

	out := make([]float64, seconds)
	for s := range out {
		if counts[s] == 0 {
			out[s] = math.NaN()
			continue
		}
		out[s] = sums[s] / float64(counts[s])
	}
	return out, nil
}

func readHeader(r io.Reader) (*Header, error) {
	b := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	hdr := &Header{
		Version:     field(b[0:8]),
		PatientID:   field(b[8:88]),
		RecordingID: field(b[88:168]),
	}

	startDate, err := time.Parse("02.01.06", field(b[168:176]))
	if err != nil {
		return nil, fmt.Errorf("%w: start date: %w", ErrInvalidHeader, err)
	}
	startTime, err := time.Parse("15.04.05", field(b[176:184]))
	if err != nil {
		return nil, fmt.Errorf("%w: start time: %w", ErrInvalidHeader, err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = strconv.Atoi(field(b[184:192])); err != nil {
		return nil, fmt.Errorf("%w: header bytes: %w", ErrInvalidHeader, err)
	}
	if hdr.DataRecords, err = strconv.Atoi(field(b[236:244])); err != nil {
		return nil, fmt.Errorf("%w: data records: %w", ErrInvalidHeader, err)
	}
	duration, err := strconv.ParseFloat(field(b[244:252]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: record duration: %w", ErrInvalidHeader, err)
	}
	hdr.DataRecordDuration = time.Duration(duration * float64(time.Second))

	signalCount, err := strconv.Atoi(field(b[252:256]))
	if err != nil || signalCount < 0 {
		return nil, fmt.Errorf("%w: signal count %q", ErrInvalidHeader, field(b[252:256]))
	}
	if hdr.HeaderBytes != fixedHeaderSize+signalCount*signalHeaderSize {
		return nil, fmt.Errorf("%w: header size %d does not match %d signals", ErrInvalidHeader, hdr.HeaderBytes, signalCount)
	}

	sb := make([]byte, signalCount*signalHeaderSize)
	if _, err := io.ReadFull(r, sb); err != nil {
		return nil, fmt.Errorf("%w: signal headers: %w", ErrInvalidHeader, err)
	}

	// Signal headers are stored field by field, each field repeated for every signal.
	hdr.Signals = make([]Signal, signalCount)
	pos := 0
	next := func(width int) []string {
		out := make([]string, signalCount)
		for i := range out {
			out[i] = field(sb[pos : pos+width])
			pos += width
		}
		return out
	}
	labels := next(16)
	transducers := next(80)
	dimensions := next(8)
	physMin := next(8)
	physMax := next(8)
	digMin := next(8)
	digMax := next(8)
	prefilters := next(80)
	samples := next(8)

	for i := range hdr.Signals {
		hdr.Signals[i] = Signal{
			Label:             labels[i],
			TransducerType:    transducers[i],
			PhysicalDimension: dimensions[i],
			PhysicalMin:       parseFloat(physMin[i]),
			PhysicalMax:       parseFloat(physMax[i]),
			DigitalMin:        parseInt(digMin[i]),
			DigitalMax:        parseInt(digMax[i]),
			Prefiltering:      prefilters[i],
			SamplesPerRecord:  parseInt(samples[i]),
		}
		if hdr.Signals[i].SamplesPerRecord < 0 {
			return nil, fmt.Errorf("%w: negative sample count for %s", ErrInvalidHeader, labels[i])
		}
	}
	return hdr, nil
}

// digitalToPhysical applies the signal calibration.
func digitalToPhysical(digital int16, sig Signal) float64 {
	if sig.DigitalMax == sig.DigitalMin {
		return 0
	}
	return sig.PhysicalMin + (float64(digital)-float64(sig.DigitalMin))*
		(sig.PhysicalMax-sig.PhysicalMin)/float64(sig.DigitalMax-sig.DigitalMin)
}

func field(b []byte) string {
	return strings.TrimSpace(string(b))
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}
