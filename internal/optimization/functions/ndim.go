package functions

import "math"

// Sphere is the sum of squares. Minimum 0 at the origin.
func Sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// ShiftedSphere is Sphere with coordinate i shifted by i+1.
func ShiftedSphere(x []float64) float64 {
	sum := 0.0
	for i, v := range x {
		d := v - float64(i+1)
		sum += d * d
	}
	return sum
}

// Ackley has a nearly flat outer region and a deep hole at the origin.
func Ackley(x []float64) float64 {
	var sumSq, sumCos float64
	for _, v := range x {
		sumSq += v * v
		sumCos += math.Cos(2 * math.Pi * v)
	}
	n := float64(len(x))
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E
}

// Rastrigin is highly multimodal with a regular lattice of local minima.
func Rastrigin(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v) + 10
	}
	return sum
}

const (
	weierstrassA    = 0.5
	weierstrassB    = 3.0
	weierstrassKMax = 20
)

// Weierstrass is continuous but nowhere differentiable in the limit.
func Weierstrass(x []float64) float64 {
	var sum, offset float64
	for k := 0; k < weierstrassKMax; k++ {
		ak := math.Pow(weierstrassA, float64(k))
		bk := math.Pow(weierstrassB, float64(k))
		offset += ak * math.Cos(2*math.Pi*bk*0.5)
		for _, v := range x {
			sum += ak * math.Cos(2*math.Pi*bk*(v+0.5))
		}
	}
	return sum - float64(len(x))*offset
}
