package game

type region struct {
	cells   []Loc
	borders [3]bool
}

func (r region) owner() Player {
	if r.borders[Black] && !r.borders[White] {
		return Black
	}
	if r.borders[White] && !r.borders[Black] {
		return White
	}
	return Empty
}

// emptyRegions flood fills the empty cells and records which colors border each region.
func (b *Board) emptyRegions() ([]region, []int) {
	regionOf := make([]int, len(b.stones))
	for i := range regionOf {
		regionOf[i] = -1
	}
	var regions []region
	var nbuf [4]Loc
	for start := range b.stones {
		if b.stones[start] != Empty || regionOf[start] >= 0 {
			continue
		}
		id := len(regions)
		r := region{}
		stack := []Loc{Loc(start)}
		regionOf[start] = id
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			r.cells = append(r.cells, cur)
			for _, n := range b.neighbors(cur, nbuf[:0]) {
				switch c := b.stones[n]; c {
				case Empty:
					if regionOf[n] < 0 {
						regionOf[n] = id
						stack = append(stack, n)
					}
				default:
					r.borders[c] = true
				}
			}
		}
		regions = append(regions, r)
	}
	return regions, regionOf
}

func (b *Board) FullArea() []Player {
	area := make([]Player, len(b.stones))
	copy(area, b.stones)
	regions, _ := b.emptyRegions()
	for _, r := range regions {
		o := r.owner()
		for _, c := range r.cells {
			area[c] = o
		}
	}
	return area
}

// IndependentLifeArea drops chains that touch a region bordered by both colors, which is how
// seki shows up once all dead stones have been removed.
func (b *Board) IndependentLifeArea() []Player {
	area := b.FullArea()
	regions, regionOf := b.emptyRegions()
	visited := make([]bool, len(b.stones))
	var nbuf [4]Loc
	for loc := range b.stones {
		if b.stones[loc] == Empty || visited[loc] {
			continue
		}
		group, _ := chain(b, b.stones, Loc(loc))
		shared := false
		for _, g := range group {
			visited[g] = true
			for _, n := range b.neighbors(g, nbuf[:0]) {
				if b.stones[n] == Empty && regions[regionOf[n]].owner() == Empty {
					shared = true
				}
			}
		}
		if shared {
			for _, g := range group {
				area[g] = Empty
			}
		}
	}
	return area
}

// allPassAlive reports whether every chain has two eyes of its own color and no region is shared.
func (b *Board) allPassAlive() bool {
	regions, regionOf := b.emptyRegions()
	for _, r := range regions {
		if r.owner() == Empty {
			return false
		}
	}
	visited := make([]bool, len(b.stones))
	var nbuf [4]Loc
	numChains := 0
	for loc := range b.stones {
		if b.stones[loc] == Empty || visited[loc] {
			continue
		}
		numChains++
		color := b.stones[loc]
		group, _ := chain(b, b.stones, Loc(loc))
		eyes := map[int]bool{}
		for _, g := range group {
			visited[g] = true
			for _, n := range b.neighbors(g, nbuf[:0]) {
				if b.stones[n] == Empty && regions[regionOf[n]].owner() == color {
					eyes[regionOf[n]] = true
				}
			}
		}
		if len(eyes) < 2 {
			return false
		}
	}
	return numChains > 0
}
