package rnnoise

const (
	upsampleFactor = 3
)

// upsample linearly interpolates src into dst, len(dst) == len(src)*upsampleFactor.
func upsample(dst []float32, src []float32) {
	for idx, v := range src {
		next := v
		if idx+1 < len(src) {
			next = src[idx+1]
		}
		base := idx * upsampleFactor
		for step := 0; step < upsampleFactor; step++ {
			dst[base+step] = v + (next-v)*float32(step)/upsampleFactor
		}
	}
}

// downsample averages every upsampleFactor samples of src into dst.
func downsample(dst []float32, src []float32) {
	for idx := range dst {
		var sum float32
		for _, v := range src[idx*upsampleFactor : (idx+1)*upsampleFactor] {
			sum += v
		}
		dst[idx] = sum / upsampleFactor
	}
}
