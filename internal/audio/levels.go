package audio

// Intensity maps a frequency-bin snapshot (byte magnitudes as produced by the
// output device analyser) to a visual level in [0, 1]. Any monotonic mapping
// works for the waveform rendering; this one uses mean bin energy with a
// fixed gain.
func Intensity(bins []byte) float64 {
	if len(bins) == 0 {
		return 0
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	level := float64(sum) / float64(len(bins)) / 255 * 2
	if level > 1 {
		level = 1
	}
	return level
}
