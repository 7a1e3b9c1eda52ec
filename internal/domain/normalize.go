package domain

// Normalize returns a copy of g with every negative sample replaced by nodata.
// Negative values are fill codes in the PERSIANN product; precipitation is
// never below zero. NaN compares false and passes through unchanged.
func Normalize(g Grid, nodata float32) Grid {
	out := g.Clone()
	for i, v := range out.Data {
		if v < 0 {
			out.Data[i] = nodata
		}
	}
	return out
}
