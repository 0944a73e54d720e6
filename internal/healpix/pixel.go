// Package healpix implements the parts of the HEALPix pixelisation needed to
// change the resolution of full-sky maps: RING/NESTED index conversion and
// the ud_grade block average/replication.
package healpix

import (
	"fmt"
	"math"
)

// MaxNSide is the largest Nside representable with 64-bit pixel indices.
const MaxNSide = 1 << 29

// Base-face offsets in ring and phi direction.
var (
	jrll = [12]int{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

// ValidNSide reports whether nside is a positive power of two no larger
// than MaxNSide.
func ValidNSide(nside int) bool {
	return nside > 0 && nside <= MaxNSide && nside&(nside-1) == 0
}

// Order returns log2(nside), or an error if nside is not a power of two.
func Order(nside int) (int, error) {
	if !ValidNSide(nside) {
		return 0, fmt.Errorf("healpix: invalid nside %d", nside)
	}
	order := 0
	for n := nside; n > 1; n >>= 1 {
		order++
	}
	return order, nil
}

// spreadBits interleaves zero bits between the bits of v.
func spreadBits(v int) int {
	out := 0
	for i := 0; v != 0; i++ {
		out |= (v & 1) << (2 * i)
		v >>= 1
	}
	return out
}

// compressBits is the inverse of spreadBits on the even bits of v.
func compressBits(v int) int {
	out := 0
	for i := 0; v != 0; i++ {
		out |= (v & 1) << i
		v >>= 2
	}
	return out
}

func isqrt(v int) int {
	r := int(math.Sqrt(float64(v) + 0.5))
	for r*r > v {
		r--
	}
	for (r+1)*(r+1) <= v {
		r++
	}
	return r
}

type grid struct {
	nside int
	order int
	npix  int
	ncap  int
}

func newGrid(nside int) (grid, error) {
	order, err := Order(nside)
	if err != nil {
		return grid{}, err
	}
	return grid{
		nside: nside,
		order: order,
		npix:  12 * nside * nside,
		ncap:  2 * nside * (nside - 1),
	}, nil
}

func (g grid) nest2xyf(pix int) (ix, iy, face int) {
	face = pix >> (2 * g.order)
	ipf := pix & (g.nside*g.nside - 1)
	return compressBits(ipf), compressBits(ipf >> 1), face
}

func (g grid) xyf2nest(ix, iy, face int) int {
	return face<<(2*g.order) + spreadBits(ix) + spreadBits(iy)<<1
}

func (g grid) ring2xyf(pix int) (ix, iy, face int) {
	nside := g.nside
	nl2 := 2 * nside
	var iring, iphi, kshift, nr int

	switch {
	case pix < g.ncap:
		// north polar cap
		iring = (1 + isqrt(1+2*pix)) >> 1
		iphi = pix + 1 - 2*iring*(iring-1)
		kshift = 0
		nr = iring
		face = (iphi - 1) / nr
	case pix < g.npix-g.ncap:
		// equatorial belt
		ip := pix - g.ncap
		tmp := ip >> (g.order + 2)
		iring = tmp + nside
		iphi = ip - tmp*4*nside + 1
		kshift = (iring + nside) & 1
		nr = nside
		ire := tmp + 1
		irm := nl2 + 2 - ire
		ifm := (iphi - ire/2 + nside - 1) >> g.order
		ifp := (iphi - irm/2 + nside - 1) >> g.order
		switch {
		case ifp == ifm:
			face = ifp | 4
		case ifp < ifm:
			face = ifp
		default:
			face = ifm + 8
		}
	default:
		// south polar cap
		ip := g.npix - pix
		iring = (1 + isqrt(2*ip-1)) >> 1
		iphi = 4*iring + 1 - (ip - 2*iring*(iring-1))
		kshift = 0
		nr = iring
		iring = 2*nl2 - iring
		face = (iphi-1)/nr + 8
	}

	irt := iring - jrll[face]*nside + 1
	ipt := 2*iphi - jpll[face]*nr - kshift - 1
	if ipt >= nl2 {
		ipt -= 8 * nside
	}
	ix = (ipt - irt) >> 1
	iy = (-ipt - irt) >> 1
	return ix, iy, face
}

func (g grid) xyf2ring(ix, iy, face int) int {
	nside := g.nside
	nl4 := 4 * nside
	jr := jrll[face]*nside - ix - iy - 1

	var nr, nBefore, kshift int
	switch {
	case jr < nside:
		nr = jr
		nBefore = 2 * nr * (nr - 1)
	case jr > 3*nside:
		nr = nl4 - jr
		nBefore = g.npix - 2*(nr+1)*nr
	default:
		nr = nside
		nBefore = g.ncap + (jr-nside)*nl4
		kshift = (jr - nside) & 1
	}

	jp := (jpll[face]*nr + ix - iy + 1 + kshift) / 2
	if jp > nl4 {
		jp -= nl4
	} else if jp < 1 {
		jp += nl4
	}
	return nBefore + jp - 1
}

// Nest2Ring converts a NESTED pixel index to its RING index.
func Nest2Ring(nside, pix int) (int, error) {
	g, err := newGrid(nside)
	if err != nil {
		return 0, err
	}
	if pix < 0 || pix >= g.npix {
		return 0, fmt.Errorf("healpix: pixel %d out of range for nside %d", pix, nside)
	}
	return g.xyf2ring(g.nest2xyf(pix)), nil
}

// Ring2Nest converts a RING pixel index to its NESTED index.
func Ring2Nest(nside, pix int) (int, error) {
	g, err := newGrid(nside)
	if err != nil {
		return 0, err
	}
	if pix < 0 || pix >= g.npix {
		return 0, fmt.Errorf("healpix: pixel %d out of range for nside %d", pix, nside)
	}
	return g.xyf2nest(g.ring2xyf(pix)), nil
}

// ReorderToNest returns a NESTED copy of a RING-ordered pixel slice.
func ReorderToNest(ring []float64, nside int) ([]float64, error) {
	g, err := newGrid(nside)
	if err != nil {
		return nil, err
	}
	if len(ring) != g.npix {
		return nil, fmt.Errorf("healpix: nside %d requires %d pixels, got %d", nside, g.npix, len(ring))
	}
	nest := make([]float64, g.npix)
	for n := range nest {
		nest[n] = ring[g.xyf2ring(g.nest2xyf(n))]
	}
	return nest, nil
}

// ReorderToRing returns a RING copy of a NESTED-ordered pixel slice.
func ReorderToRing(nest []float64, nside int) ([]float64, error) {
	g, err := newGrid(nside)
	if err != nil {
		return nil, err
	}
	if len(nest) != g.npix {
		return nil, fmt.Errorf("healpix: nside %d requires %d pixels, got %d", nside, g.npix, len(nest))
	}
	ring := make([]float64, g.npix)
	for n, v := range nest {
		ring[g.xyf2ring(g.nest2xyf(n))] = v
	}
	return ring, nil
}
