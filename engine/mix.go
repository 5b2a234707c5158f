package engine

import "github.com/viterin/vek/vek32"

// mixInto adds the channels of src to dst. A mono source is added to every
// channel of dst; several source channels going into a mono dst are
// averaged.
func mixInto(dst, src [][]float32) {
	switch {
	case len(dst) == len(src):
		for c := range dst {
			vek32.Add_Inplace(dst[c], src[c])
		}
	case len(src) == 1:
		for c := range dst {
			vek32.Add_Inplace(dst[c], src[0])
		}
	case len(dst) == 1:
		mixMono(dst[0], src)
	default:
		for c := range dst {
			vek32.Add_Inplace(dst[c], src[min(c, len(src)-1)])
		}
	}
}

// mixMono adds the average of the channels of src to dst.
func mixMono(dst []float32, src [][]float32) {
	if len(src) == 1 {
		vek32.Add_Inplace(dst, src[0])
		return
	}
	scale := 1 / float32(len(src))
	for i := range dst {
		var sum float32
		for _, ch := range src {
			sum += ch[i]
		}
		dst[i] += sum * scale
	}
}

// mono returns the average of the channels of in as a view, using tmp when
// in has more than one channel. nil stays nil.
func mono(in [][]float32, tmp []float32) []float32 {
	switch len(in) {
	case 0:
		return nil
	case 1:
		return in[0]
	}
	clear(tmp)
	mixMono(tmp, in)
	return tmp
}

func silence(out [][]float32) {
	for _, ch := range out {
		clear(ch)
	}
}
