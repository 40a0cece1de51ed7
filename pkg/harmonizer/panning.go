package harmonizer

import (
	"math"
	"sort"
)

// PanningManager hands out stereo pan positions for new voices so that the
// harmony spreads across the field configured by the stereo width setting.
// Positions are computed once per (width, poolSize) pair and assigned
// center-outward; releasing a position makes it available again.
type PanningManager struct {
	width     int // 0..100
	poolSize  int
	positions []int // ordered center-out
	inUse     []bool
	nextRobin int
}

func NewPanningManager() *PanningManager {
	p := &PanningManager{width: 100}
	p.Prepare(1)
	return p
}

// Prepare recomputes the position set for the given voice pool size.
func (p *PanningManager) Prepare(poolSize int) {
	if poolSize < 1 {
		poolSize = 1
	}
	p.poolSize = poolSize
	p.rebuild()
}

// SetStereoWidth updates the width (0 = everything center, 100 = full field)
// and recomputes the positions. Existing assignments are cleared.
func (p *PanningManager) SetStereoWidth(width int) {
	if width < 0 {
		width = 0
	} else if width > 100 {
		width = 100
	}
	if width == p.width {
		return
	}
	p.width = width
	p.rebuild()
}

func (p *PanningManager) StereoWidth() int { return p.width }

func (p *PanningManager) rebuild() {
	n := p.poolSize

	p.positions = p.positions[:0]

	lo := 64 - 64*p.width/100
	hi := 64 + 63*p.width/100

	if n == 1 || hi <= lo {
		for i := 0; i < n; i++ {
			p.positions = append(p.positions, 64)
		}
	} else {
		step := float64(hi-lo) / float64(n-1)
		for i := 0; i < n; i++ {
			p.positions = append(p.positions, lo+int(math.Round(step*float64(i))))
		}
		// Assign center positions first so a small number of voices sits
		// near the middle of the field.
		sort.SliceStable(p.positions, func(a, b int) bool {
			da := absInt(p.positions[a] - 64)
			db := absInt(p.positions[b] - 64)
			if da != db {
				return da < db
			}
			return p.positions[a] > p.positions[b]
		})
	}

	p.inUse = make([]bool, len(p.positions))
	p.nextRobin = 0
}

// NextPanVal returns the next unused position. When every position is taken
// the positions are recycled round-robin.
func (p *PanningManager) NextPanVal() int {
	for i, used := range p.inUse {
		if !used {
			p.inUse[i] = true
			return p.positions[i]
		}
	}

	v := p.positions[p.nextRobin]
	p.nextRobin = (p.nextRobin + 1) % len(p.positions)
	return v
}

// PanValTurnedOff releases the position closest to the given pan value.
func (p *PanningManager) PanValTurnedOff(pan int) {
	best := -1
	bestDist := math.MaxInt32
	for i, used := range p.inUse {
		if !used {
			continue
		}
		if d := absInt(p.positions[i] - pan); d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best >= 0 {
		p.inUse[best] = false
	}
}

// Reset clears every assignment.
func (p *PanningManager) Reset() {
	for i := range p.inUse {
		p.inUse[i] = false
	}
	p.nextRobin = 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
