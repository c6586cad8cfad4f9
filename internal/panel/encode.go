package panel

// Encode packs channel outputs into the register byte: bit i is channel i.
// Entries past ChannelCount are ignored.
func Encode(outputs []bool) byte {
	var b byte
	for i, on := range outputs {
		if i >= ChannelCount {
			break
		}
		if on {
			b |= 1 << uint(i)
		}
	}
	return b
}

// Decode is the inverse of Encode.
func Decode(b byte) []bool {
	out := make([]bool, ChannelCount)
	for i := range out {
		out[i] = b&(1<<uint(i)) != 0
	}
	return out
}
