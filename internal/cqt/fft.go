package cqt

import "math"

// fft is a recursive radix-2 Cooley-Tukey transform, grounded on the
// reference implementation used across the pack (e.g. shazoom's
// core.FFT); input length must be a power of two.
func fft(input []complex128) []complex128 {
	n := len(input)
	if n <= 1 {
		return input
	}

	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = input[2*i]
		odd[i] = input[2*i+1]
	}

	even = fft(even)
	odd = fft(odd)

	out := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		angle := -2 * math.Pi * float64(k) / float64(n)
		twiddle := complex(math.Cos(angle), math.Sin(angle))
		out[k] = even[k] + twiddle*odd[k]
		out[k+n/2] = even[k] - twiddle*odd[k]
	}
	return out
}

// realFFT computes the FFT of a real-valued frame, zero-padding the
// imaginary component, and returns the full complex spectrum.
func realFFT(frame []float64) []complex128 {
	in := make([]complex128, len(frame))
	for i, v := range frame {
		in[i] = complex(v, 0)
	}
	return fft(in)
}
