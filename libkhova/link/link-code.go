package link

// Each crossing c (one-based) owns the four strand-ends 4c-4 .. 4c-1 of the link code.
// Which end a strand enters or leaves by depends on whether it passes over or under and on the crossing's sign.

func exitEnd(c int, signs []bool) int {
	if c > 0 {
		if signs[c-1] {
			return 4*c - 2
		}
		return 4*c - 3
	}
	c = -c
	if signs[c-1] {
		return 4*c - 3
	}
	return 4*c - 2
}

func entryEnd(c int, signs []bool) int {
	if c > 0 {
		if signs[c-1] {
			return 4*c - 4
		}
		return 4*c - 1
	}
	c = -c
	if signs[c-1] {
		return 4*c - 1
	}
	return 4*c - 4
}

// makeCode pairs the exit end of each Gauss entry with the entry end of the next one along its component.
func makeCode(gauss [][]int, signs []bool) []int {
	code := make([]int, 4*len(signs))

	for _, compo := range gauss {
		N := len(compo)
		for i, ci := range compo {
			cj := compo[(i+1)%N]
			from := exitEnd(ci, signs)
			to := entryEnd(cj, signs)
			code[from] = to
			code[to] = from
		}
	}

	return code
}
