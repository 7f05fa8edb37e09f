// Package audio decodes, normalizes and concatenates WAV clips.
package audio

// DownmixToMono averages interleaved channels into one.
func DownmixToMono(data []int, channels int) []int {
	if channels <= 1 {
		return data
	}
	frames := len(data) / channels
	out := make([]int, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			sum += data[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// To16Bit rescales samples decoded at srcDepth bits into the int16 range.
// 8-bit WAV is unsigned and is re-centred around zero first.
func To16Bit(data []int, srcDepth int) []int {
	switch {
	case srcDepth == 16 || srcDepth == 0:
		return data
	case srcDepth == 8:
		out := make([]int, len(data))
		for i, v := range data {
			out[i] = (v - 128) << 8
		}
		return out
	case srcDepth > 16:
		shift := uint(srcDepth - 16)
		out := make([]int, len(data))
		for i, v := range data {
			out[i] = v >> shift
		}
		return out
	default:
		shift := uint(16 - srcDepth)
		out := make([]int, len(data))
		for i, v := range data {
			out[i] = v << shift
		}
		return out
	}
}

// ResampleLinear converts mono samples from srcRate to dstRate with linear
// interpolation.
func ResampleLinear(data []int, srcRate, dstRate int) []int {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(data) == 0 {
		return data
	}
	dstSamples := int(int64(len(data)) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}
	out := make([]int, dstSamples)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstSamples {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		s0 := data[idx]
		s1 := s0
		if idx+1 < len(data) {
			s1 = data[idx+1]
		}
		out[i] = int(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

func clamp16(v int) int {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}
