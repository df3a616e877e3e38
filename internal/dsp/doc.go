// Package dsp implements the spectral analysis used to find melodic events:
// short-time Fourier transform, harmonic/percussive separation by median
// filtering, mel-band onset strength, windowed peak picking and RMS loudness.
//
// Spectrograms are stored frame-major: S[t][f] is the value of frequency bin f
// in analysis frame t. Frame t is centred on sample t*hop of the input.
package dsp
