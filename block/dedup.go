package block

import (
	"github.com/google/hilbert"
	"golang.org/x/sync/errgroup"
)

// Scan is the order in which blocks are visited when assigning indices.
type Scan int

const (
	// ScanRowMajor visits blocks left to right, top to bottom.
	ScanRowMajor Scan = iota
	// ScanHilbert visits blocks along a Hilbert curve, which keeps
	// neighbouring blocks at nearby indices.
	ScanHilbert
)

func (s Scan) String() string {
	switch s {
	case ScanRowMajor:
		return "rowmajor"
	case ScanHilbert:
		return "hilbert"
	}
	return "unknown"
}

// ParseScan returns the scan order named by s.
func ParseScan(s string) (Scan, bool) {
	for _, scan := range []Scan{ScanRowMajor, ScanHilbert} {
		if scan.String() == s {
			return scan, true
		}
	}
	return 0, false
}

type packConfig struct {
	Workers int
	Scan    Scan
}

type Option func(*packConfig)

// WithWorkers splits the pairwise comparison across n goroutines.
func WithWorkers(n int) Option {
	return func(c *packConfig) { c.Workers = max(n, 1) }
}

func WithScanOrder(s Scan) Option {
	return func(c *packConfig) { c.Scan = s }
}

// order returns row-major block positions in visiting order.
func (s Scan) order(width, height int) ([]int, error) {
	order := make([]int, 0, width*height)
	if s != ScanHilbert {
		for i := range width * height {
			order = append(order, i)
		}
		return order, nil
	}

	n := 1
	for n < max(width, height) {
		n <<= 1
	}
	h, err := hilbert.NewHilbert(n)
	if err != nil {
		return nil, err
	}
	for t := range n * n {
		x, y, err := h.Map(t)
		if err != nil {
			return nil, err
		}
		if x < width && y < height {
			order = append(order, y*width+x)
		}
	}
	return order, nil
}

// minChunk is the smallest number of comparisons handed to one goroutine.
const minChunk = 64

// dedup assigns indices in visiting order. The first block of each
// equivalence class becomes its representative and takes the next index.
func dedup(blocks []Block, order []int, eq Equivalence, workers int) (indices []int, unique []int, err error) {
	indices = make([]int, len(blocks))
	for i := range indices {
		indices[i] = -1
	}

	for k, pos := range order {
		if indices[pos] != -1 {
			continue
		}
		index := len(unique)
		indices[pos] = index
		unique = append(unique, pos)

		rest := order[k+1:]
		mark := func(part []int) error {
			for _, other := range part {
				if indices[other] == -1 && blocks[pos].Equal(blocks[other], eq) {
					indices[other] = index
				}
			}
			return nil
		}

		if workers <= 1 || len(rest) < 2*minChunk {
			mark(rest)
			continue
		}

		// Each goroutine owns a disjoint slice of positions, so writes to
		// indices never overlap.
		var g errgroup.Group
		g.SetLimit(workers)
		chunk := max((len(rest)+workers-1)/workers, minChunk)
		for start := 0; start < len(rest); start += chunk {
			part := rest[start:min(start+chunk, len(rest))]
			g.Go(func() error { return mark(part) })
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	}
	return indices, unique, nil
}
