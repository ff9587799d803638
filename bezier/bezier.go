// Package bezier implements piecewise cubic bezier paths used to author terrain.
//
// A path is a list of points. Each point has a position and two control
// handles stored in absolute coordinates; curve i runs from point i through
// its outgoing handle and the incoming handle of point i+1.
package bezier

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Flatness is the chord tolerance, in pixels, used when measuring paths.
const Flatness = 0.01

type Point struct {
	Position vec.Vec2
	ControlA vec.Vec2 // incoming handle
	ControlB vec.Vec2 // outgoing handle
}

// NewPoint builds a point from a position and handle offsets relative to it.
func NewPoint(pos, controlA, controlB vec.Vec2) Point {
	return Point{Position: pos, ControlA: pos.Add(controlA), ControlB: pos.Add(controlB)}
}

type Path struct {
	Points []Point
}

func (p *Path) NumPoints() int { return len(p.Points) }

func (p *Path) NumCurves() int {
	if len(p.Points) == 0 {
		return 0
	}
	return len(p.Points) - 1
}

func (p *Path) checkPoint(i int) {
	if i < 0 || i >= len(p.Points) {
		panic(fmt.Sprintf("beehive: bezier point %d out of range [0, %d)", i, len(p.Points)))
	}
}

func (p *Path) AddPoint(pos, controlA, controlB vec.Vec2) int {
	p.Points = append(p.Points, NewPoint(pos, controlA, controlB))
	return len(p.Points) - 1
}

func (p *Path) RemovePoint(i int) {
	p.checkPoint(i)
	p.Points = append(p.Points[:i], p.Points[i+1:]...)
}

func (p *Path) SetPoint(i int, pos, controlA, controlB vec.Vec2) {
	p.checkPoint(i)
	p.Points[i] = NewPoint(pos, controlA, controlB)
}

// Point returns the position and handle offsets of point i.
func (p *Path) Point(i int) (pos, controlA, controlB vec.Vec2) {
	p.checkPoint(i)
	pt := p.Points[i]
	return pt.Position, pt.ControlA.Sub(pt.Position), pt.ControlB.Sub(pt.Position)
}

// Move translates every point and handle.
func (p *Path) Move(offset vec.Vec2) {
	for i := range p.Points {
		p.Points[i].Position = p.Points[i].Position.Add(offset)
		p.Points[i].ControlA = p.Points[i].ControlA.Add(offset)
		p.Points[i].ControlB = p.Points[i].ControlB.Add(offset)
	}
}

// Curve returns the four control points of curve i.
func (p *Path) Curve(i int) [4]vec.Vec2 {
	if i < 0 || i >= p.NumCurves() {
		panic(fmt.Sprintf("beehive: bezier curve %d out of range [0, %d)", i, p.NumCurves()))
	}
	return [4]vec.Vec2{
		p.Points[i].Position,
		p.Points[i].ControlB,
		p.Points[i+1].ControlA,
		p.Points[i+1].Position,
	}
}

// Data returns the path as a move followed by one cubic segment per curve.
func (p *Path) Data() *path.Data {
	d := &path.Data{}
	if len(p.Points) == 0 {
		return d
	}
	d.Cmds = append(d.Cmds, path.CmdMoveTo)
	d.Coords = append(d.Coords, p.Points[0].Position)
	for i := range p.NumCurves() {
		c := p.Curve(i)
		d.Cmds = append(d.Cmds, path.CmdCubeTo)
		d.Coords = append(d.Coords, c[1], c[2], c[3])
	}
	return d
}

func position(c [4]vec.Vec2, t float64) vec.Vec2 {
	u := 1 - t
	return c[0].Mul(u * u * u).
		Add(c[1].Mul(3 * u * u * t)).
		Add(c[2].Mul(3 * u * t * t)).
		Add(c[3].Mul(t * t * t))
}

func derivative(c [4]vec.Vec2, t float64) vec.Vec2 {
	u := 1 - t
	return c[1].Sub(c[0]).Mul(3 * u * u).
		Add(c[2].Sub(c[1]).Mul(6 * u * t)).
		Add(c[3].Sub(c[2]).Mul(3 * t * t))
}

// locate maps a path parameter in [0, 1] to a curve index and curve parameter.
func (p *Path) locate(t float64) (int, float64) {
	if t < 0 || t > 1 {
		panic(fmt.Sprintf("beehive: bezier parameter %v out of range [0, 1]", t))
	}
	n := p.NumCurves()
	i := int(math.Floor(float64(n) * t))
	if i >= n {
		return n - 1, 1
	}
	return i, math.Mod(t*float64(n), 1)
}

// At returns the position at parameter t in [0, 1] over the whole path.
func (p *Path) At(t float64) vec.Vec2 {
	switch len(p.Points) {
	case 0:
		return vec.Vec2{}
	case 1:
		return p.Points[0].Position
	}
	i, ct := p.locate(t)
	if ct == 1 {
		return p.Points[i+1].Position
	}
	return position(p.Curve(i), ct)
}

// Normal returns the unit normal at parameter t, 90 degrees counter-clockwise
// from the direction of travel.
func (p *Path) Normal(t float64) vec.Vec2 {
	switch len(p.Points) {
	case 0:
		return vec.Vec2{}
	case 1:
		return vec.Vec2{X: 0, Y: 1}
	}
	i, ct := p.locate(t)
	d := derivative(p.Curve(i), ct)
	l := d.Length()
	if l == 0 {
		return vec.Vec2{X: 0, Y: 1}
	}
	return vec.Vec2{X: -d.Y / l, Y: d.X / l}
}

// Positions samples n evenly spaced parameters from start to end inclusive.
func (p *Path) Positions(start, end float64, n int) []vec.Vec2 {
	switch {
	case len(p.Points) == 0:
		return []vec.Vec2{{}}
	case len(p.Points) == 1:
		return []vec.Vec2{p.Points[0].Position}
	case n < 2:
		return []vec.Vec2{p.At(start)}
	}
	step := (end - start) / float64(n-1)
	out := make([]vec.Vec2, n)
	for i := range n {
		out[i] = p.At(min(start+step*float64(i), end))
	}
	return out
}

func extend(r rect.Rect, v vec.Vec2) rect.Rect {
	return rect.Rect{
		LLx: min(r.LLx, v.X),
		LLy: min(r.LLy, v.Y),
		URx: max(r.URx, v.X),
		URy: max(r.URy, v.Y),
	}
}

// Bounds returns the exact axis-aligned bounds of the path.
func (p *Path) Bounds() rect.Rect {
	if len(p.Points) == 0 {
		return rect.Rect{}
	}
	start := p.Points[0].Position
	r := rect.Rect{LLx: start.X, LLy: start.Y, URx: start.X, URy: start.Y}
	for i := range p.NumCurves() {
		c := p.Curve(i)
		r = extend(r, c[3])
		for _, t := range extrema(c) {
			r = extend(r, position(c, t))
		}
	}
	return r
}

// Overlaps reports whether two closed rectangles share at least one point.
func Overlaps(a, b rect.Rect) bool {
	return a.LLx <= b.URx && b.LLx <= a.URx && a.LLy <= b.URy && b.LLy <= a.URy
}

// extrema returns curve parameters in (0, 1) where either coordinate has a
// zero derivative.
func extrema(c [4]vec.Vec2) []float64 {
	var ts []float64
	axis := func(p0, p1, p2, p3 float64) {
		// Derivative divided by 3: a t^2 + b t + k.
		a := -p0 + 3*p1 - 3*p2 + p3
		b := 2 * (p0 - 2*p1 + p2)
		k := p1 - p0
		for _, t := range quadraticRoots(a, b, k) {
			if t > 0 && t < 1 {
				ts = append(ts, t)
			}
		}
	}
	axis(c[0].X, c[1].X, c[2].X, c[3].X)
	axis(c[0].Y, c[1].Y, c[2].Y, c[3].Y)
	return ts
}

func quadraticRoots(a, b, c float64) []float64 {
	const eps = 1e-12
	if math.Abs(a) < eps {
		if math.Abs(b) < eps {
			return nil
		}
		return []float64{-c / b}
	}
	d := b*b - 4*a*c
	if d < 0 {
		return nil
	}
	s := math.Sqrt(d)
	return []float64{(-b + s) / (2 * a), (-b - s) / (2 * a)}
}

// Length returns the arc length of the path, measured on its flattening.
func (p *Path) Length() float64 {
	var l float64
	d := p.Data()
	var current vec.Vec2
	k := 0
	for _, cmd := range d.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			current = d.Coords[k]
			k++
		case path.CmdCubeTo:
			flatten(current, d.Coords[k], d.Coords[k+1], d.Coords[k+2], func(from, to vec.Vec2) {
				l += to.Sub(from).Length()
			})
			current = d.Coords[k+2]
			k += 3
		}
	}
	return l
}

// flatten splits a cubic into line segments no further than Flatness from
// the curve, using Wang's formula for the segment count.
func flatten(p0, p1, p2, p3 vec.Vec2, emit func(from, to vec.Vec2)) {
	d1 := p0.Sub(p1.Mul(2)).Add(p2)
	d2 := p1.Sub(p2.Mul(2)).Add(p3)
	n := 1
	if m := max(d1.Length(), d2.Length()); m > 0 {
		n = max(1, int(math.Ceil(math.Sqrt(3*m/(4*Flatness)))))
	}
	c := [4]vec.Vec2{p0, p1, p2, p3}
	prev := p0
	for i := 1; i <= n; i++ {
		pt := position(c, float64(i)/float64(n))
		emit(prev, pt)
		prev = pt
	}
}
