package functions

import "math"

// The functions in this file read x[0] and x[1] only.

func sq(v float64) float64 { return v * v }

// Booth has its minimum 0 at (1, 3).
func Booth(x []float64) float64 {
	a, b := x[0], x[1]
	return sq(a+2*b-7) + sq(2*a+b-5)
}

// Matyas has its minimum 0 at the origin.
func Matyas(x []float64) float64 {
	a, b := x[0], x[1]
	return 0.26*(a*a+b*b) - 0.48*a*b
}

// Himmelblau has four minima of value 0, one of them at (3, 2).
func Himmelblau(x []float64) float64 {
	a, b := x[0], x[1]
	return sq(a*a+b-11) + sq(a+b*b-7)
}

// ThreeHumps is the three-hump camel function.
func ThreeHumps(x []float64) float64 {
	a, b := x[0], x[1]
	return 2*a*a - 1.05*math.Pow(a, 4) + math.Pow(a, 6)/6 + a*b + b*b
}

// Easom is flat almost everywhere with a narrow well at (pi, pi).
func Easom(x []float64) float64 {
	a, b := x[0], x[1]
	return -math.Cos(a) * math.Cos(b) * math.Exp(-(sq(a-math.Pi) + sq(b-math.Pi)))
}

// Eggholder has its minimum on the edge of the [-512, 512] box.
func Eggholder(x []float64) float64 {
	a, b := x[0], x[1]
	return -(b+47)*math.Sin(math.Sqrt(math.Abs(a/2+b+47))) -
		a*math.Sin(math.Sqrt(math.Abs(a-(b+47))))
}

// Holder is the Holder table function with four symmetric minima.
func Holder(x []float64) float64 {
	a, b := x[0], x[1]
	return -math.Abs(math.Sin(a) * math.Cos(b) * math.Exp(math.Abs(1-math.Hypot(a, b)/math.Pi)))
}

// McCormick has its minimum near (-0.547, -1.547).
func McCormick(x []float64) float64 {
	a, b := x[0], x[1]
	return math.Sin(a+b) + sq(a-b) - 1.5*a + 2.5*b + 1
}

// Schaffer2 is Schaffer function N. 2.
func Schaffer2(x []float64) float64 {
	a, b := x[0], x[1]
	return 0.5 + (sq(math.Sin(a*a-b*b))-0.5)/sq(1+0.001*(a*a+b*b))
}

// Schaffer4 is Schaffer function N. 4, using the squared cosine of the
// sine of |x^2 - y^2|.
func Schaffer4(x []float64) float64 {
	a, b := x[0], x[1]
	return 0.5 + (sq(math.Cos(math.Sin(math.Abs(a*a-b*b))))-0.5)/sq(1+0.001*(a*a+b*b))
}

// GoldsteinPrice has its minimum 3 at (0, -1).
func GoldsteinPrice(x []float64) float64 {
	a, b := x[0], x[1]
	return (1 + sq(a+b+1)*(19-14*a+3*a*a-14*b+6*a*b+3*b*b)) *
		(30 + sq(2*a-3*b)*(18-32*a+12*a*a+48*b-36*a*b+27*b*b))
}

// Levi is Levi function N. 13.
func Levi(x []float64) float64 {
	a, b := x[0], x[1]
	return sq(math.Sin(3*math.Pi*a)) +
		sq(a-1)*(1+sq(math.Sin(3*math.Pi*b))) +
		sq(b-1)*(1+sq(math.Sin(2*math.Pi*b)))
}

// CrossInTray has four minima at (+-1.349, +-1.349).
func CrossInTray(x []float64) float64 {
	a, b := x[0], x[1]
	inner := math.Abs(math.Sin(a) * math.Sin(b) * math.Exp(math.Abs(100-math.Hypot(a, b)/math.Pi)))
	return -0.0001 * math.Pow(inner+1, 0.1)
}

// Bukin is Bukin function N. 6, with a ridge of minima along y = x^2/100.
func Bukin(x []float64) float64 {
	a, b := x[0], x[1]
	return 100*math.Sqrt(math.Abs(b-0.01*a*a)) + 0.01*math.Abs(a+10)
}
