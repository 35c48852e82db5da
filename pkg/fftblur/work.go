package fftblur

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// work holds the padded transform arrays.
//
// The arrays are row × colPadded float64 values. The row axis runs along
// image x, the col axis along image y and is contiguous. In the frequency
// domain each row holds col/2+1 interleaved complex values, which is why a
// row is padded to an even length of at least col+2. The source region sits
// space pixels in from every edge, starting at origin.
type work struct {
	row       int
	col       int
	colPadded int
	nelements int

	image  []float64
	kernel []float64
	plan   *plan

	space  int
	origin int

	// level of the kernel currently in the kernel array, if loaded
	level  int
	loaded bool
}

// updateWork sizes the work arrays for the current source and kernel radius.
// Arrays and plans are rebuilt only when the padded dimensions change.
func (b *Buffer) updateWork(radius int) error {
	w := &b.work

	row := b.source.width + 2*radius
	col := b.source.height + 2*radius

	if w.image != nil && row == w.row && col == w.col {
		if radius != w.space {
			w.space = radius
			w.origin = (w.colPadded + 1) * radius
			w.loaded = false
		}
		return nil
	}

	b.clearWork()

	colPadded := (col + 2) &^ 1
	nelements := row * colPadded
	if nelements > b.maxWorkElements {
		return fmt.Errorf("%w: work buffer needs %d elements", ErrOutOfMemory, nelements)
	}

	p, err := newPlan(row, col, colPadded)
	if err != nil {
		b.clearWork()
		return err
	}

	log.WithFields(log.Fields{
		"row":    row,
		"col":    col,
		"padded": colPadded,
	}).Debug("allocating work buffers")

	w.row = row
	w.col = col
	w.colPadded = colPadded
	w.nelements = nelements
	w.image = make([]float64, nelements)
	w.kernel = make([]float64, nelements)
	w.plan = p

	w.space = radius
	w.origin = (colPadded + 1) * radius
	w.loaded = false

	return nil
}

func (b *Buffer) clearWork() {
	b.work = work{}
}

func (b *Buffer) fillZero() {
	clear(b.work.image)
}

// wrap maps a signed offset onto a periodic axis of the given extent, so
// negative offsets land at the far end of the array
func wrap(coord, extent int) int {
	if coord < 0 {
		return coord + extent
	}
	return coord
}

// MakeKernel loads the spectrum of the diffusion kernel for level. The
// kernel is laid out centred on (0, 0) with wrap-around and scaled by
// 1/(row·col) to cancel the unnormalized inverse transform. Asking for the
// level that is already loaded does nothing.
func (b *Buffer) MakeKernel(d Diffusion, level int) error {
	w := &b.work
	if w.image == nil {
		return errNoWork
	}
	if w.loaded && level == w.level {
		return nil
	}

	norm := 1.0 / float64(w.row*w.col)
	r := min(d.RadiusInt(), w.space)

	b.fillZero()

	for x := -r; x <= r; x++ {
		line := wrap(x, w.row) * w.colPadded
		for y := -r; y <= r; y++ {
			w.image[line+wrap(y, w.col)] = norm * d.Weight(level, 0, 0, x, y)
		}
	}

	w.plan.forward(w.image)
	copy(w.kernel, w.image)

	w.level = level
	w.loaded = true

	return nil
}

// Convolve transforms the image array, multiplies it by the loaded kernel
// spectrum and transforms it back, leaving the convolved values in place
func (b *Buffer) Convolve() error {
	w := &b.work
	if w.image == nil {
		return errNoWork
	}
	if !w.loaded {
		return ErrNoKernel
	}

	w.plan.forward(w.image)

	img, ker := w.image, w.kernel
	for i := 0; i+1 < w.nelements; i += 2 {
		c := complex(img[i], img[i+1]) * complex(ker[i], ker[i+1])
		img[i] = real(c)
		img[i+1] = imag(c)
	}

	w.plan.inverse(w.image)

	return nil
}

// interior copies the source-sized region of the image array into dst,
// x-major (dst[x*height+y])
func (b *Buffer) interior(dst []float64) {
	w := &b.work
	h := b.source.height
	for x := 0; x < b.source.width; x++ {
		off := w.origin + x*w.colPadded
		copy(dst[x*h:(x+1)*h], w.image[off:off+h])
	}
}

// accumulate adds the source-sized region of the image array to dst,
// x-major like interior
func (b *Buffer) accumulate(dst []float64) {
	w := &b.work
	h := b.source.height
	for x := 0; x < b.source.width; x++ {
		off := w.origin + x*w.colPadded
		floats.Add(dst[x*h:(x+1)*h], w.image[off:off+h])
	}
}

// plan performs the 2D real transforms in place over a padded array: a
// real FFT along each row followed by complex FFTs down the columns of the
// half spectrum. Neither direction is normalized.
type plan struct {
	row    int
	col    int
	stride int

	rfft *fourier.FFT
	cfft *fourier.CmplxFFT

	seq   []float64
	coeff []complex128
	line  []complex128
	out   []complex128
}

func newPlan(row, col, stride int) (*plan, error) {
	if row < 1 || col < 1 {
		return nil, fmt.Errorf("cannot plan a %dx%d transform", row, col)
	}
	half := col/2 + 1
	if stride < 2*half {
		return nil, fmt.Errorf("row stride %d too short for %d complex values", stride, half)
	}

	return &plan{
		row:    row,
		col:    col,
		stride: stride,
		rfft:   fourier.NewFFT(col),
		cfft:   fourier.NewCmplxFFT(row),
		seq:    make([]float64, col),
		coeff:  make([]complex128, half),
		line:   make([]complex128, row),
		out:    make([]complex128, row),
	}, nil
}

// forward replaces the real values of data with their half spectrum
func (p *plan) forward(data []float64) {
	for x := 0; x < p.row; x++ {
		base := x * p.stride
		copy(p.seq, data[base:base+p.col])
		p.rfft.Coefficients(p.coeff, p.seq)
		for k, c := range p.coeff {
			data[base+2*k] = real(c)
			data[base+2*k+1] = imag(c)
		}
	}

	for k := range p.coeff {
		p.column(data, k, p.cfft.Coefficients)
	}
}

// inverse replaces a half spectrum with its real values, scaled by row·col
func (p *plan) inverse(data []float64) {
	for k := range p.coeff {
		p.column(data, k, p.cfft.Sequence)
	}

	for x := 0; x < p.row; x++ {
		base := x * p.stride
		for k := range p.coeff {
			p.coeff[k] = complex(data[base+2*k], data[base+2*k+1])
		}
		p.rfft.Sequence(p.seq, p.coeff)
		copy(data[base:base+p.col], p.seq)
	}
}

// column runs a complex transform down the k-th complex column
func (p *plan) column(data []float64, k int, transform func(dst, src []complex128) []complex128) {
	for x := 0; x < p.row; x++ {
		i := x*p.stride + 2*k
		p.line[x] = complex(data[i], data[i+1])
	}
	transform(p.out, p.line)
	for x, c := range p.out {
		i := x*p.stride + 2*k
		data[i] = real(c)
		data[i+1] = imag(c)
	}
}
