package driveline

// IsShortcut reports whether moving from sector from to sector to skips more
// than threshold track length. Unknown and neighboring sectors never count.
func (d *Driveline) IsShortcut(from, to int, threshold float64) bool {
	n := len(d.vertices)
	if from < 0 || to < 0 || from >= n || to >= n {
		return false
	}
	if from == to || d.next(from) == to || d.next(to) == from {
		return false
	}
	lo, hi := min(from, to), max(from, to)
	dist := d.vertices[hi].CumulativeDistance - d.vertices[lo].CumulativeDistance
	if dist < 0 {
		dist += d.totalLength
	}
	// crossing the start line itself
	if n > 2*WrapSectors && hi >= n-WrapSectors && lo < WrapSectors {
		dist -= d.totalLength
	}
	return dist > threshold
}
