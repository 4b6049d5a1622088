package tilerecon

// Score returns the fraction of pixels that are byte-identical in a and b.
// With skipTransparent, pixels that are fully transparent in a are left out
// of both the match count and the total. Blocks of different length score 0,
// and so does a comparison in which every pixel was left out.
func Score(a, b []byte, skipTransparent bool) float64 {
	if len(a) != len(b) {
		return 0
	}
	matched, checked := 0, 0
	for i := 0; i+3 < len(a); i += 4 {
		if skipTransparent && a[i+3] == 0 {
			continue
		}
		checked++
		if a[i] == b[i] && a[i+1] == b[i+1] && a[i+2] == b[i+2] && a[i+3] == b[i+3] {
			matched++
		}
	}
	if checked == 0 {
		return 0
	}
	return float64(matched) / float64(checked)
}

// Score compares b against other, see Score.
func (b *PixelBlock) Score(other *PixelBlock, skipTransparent bool) float64 {
	return Score(b[:], other[:], skipTransparent)
}
