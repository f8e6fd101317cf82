package replay

import "sort"

// Pool accumulates the replay draws of completed tasks so later tasks
// reuse them instead of re-deriving prior splits from scratch. Draws
// are stored in draw order, which lets Rebalance truncate them without
// losing their class mixture.
type Pool struct {
	draws map[int][]int
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{draws: make(map[int][]int)}
}

// Update stores a task's draw, replacing any previous entry.
func (p *Pool) Update(task int, draw []int) {
	stored := make([]int, len(draw))
	copy(stored, draw)
	p.draws[task] = stored
}

// Rebalance truncates each stored draw to an even share of capacity,
// earlier tasks keeping the remainder. Truncation keeps the front of
// each draw. A capacity of zero or less means the pool is unbounded
// and nothing changes.
func (p *Pool) Rebalance(capacity int) {
	if capacity <= 0 || len(p.draws) == 0 {
		return
	}

	tasks := p.Tasks()
	base := capacity / len(tasks)
	rem := capacity % len(tasks)
	for pos, t := range tasks {
		share := base
		if pos < rem {
			share++
		}
		if len(p.draws[t]) > share {
			p.draws[t] = p.draws[t][:share]
		}
	}
}

// Tasks lists the stored task indices in ascending order.
func (p *Pool) Tasks() []int {
	tasks := make([]int, 0, len(p.draws))
	for t := range p.draws {
		tasks = append(tasks, t)
	}
	sort.Ints(tasks)
	return tasks
}

// Draw returns a copy of the stored draw for a task, in draw order.
func (p *Pool) Draw(task int) []int {
	draw, ok := p.draws[task]
	if !ok {
		return nil
	}
	out := make([]int, len(draw))
	copy(out, draw)
	return out
}

// Indices flattens the pool into a single ascending index list.
func (p *Pool) Indices() []int {
	var out []int
	for _, draw := range p.draws {
		out = append(out, draw...)
	}
	sort.Ints(out)
	return out
}

// Len returns the total number of remembered samples.
func (p *Pool) Len() int {
	n := 0
	for _, draw := range p.draws {
		n += len(draw)
	}
	return n
}
