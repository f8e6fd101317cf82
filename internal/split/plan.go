package split

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/hollen/taskline/internal/data"
)

// PlanOptions configures how a Plan is derived from a dataset.
type PlanOptions struct {
	// NumTasks is the number of tasks the dataset is split into.
	NumTasks int

	// Strategy selects the partitioning rule.
	Strategy Strategy

	// Seed drives the permutations used by the random strategies.
	Seed int64

	// ClassTasks optionally fixes the class grouping for the class
	// strategies: ClassTasks[t] lists the classes of task t. When
	// set it must cover every observed class exactly once.
	ClassTasks [][]int

	// DomainTasks optionally fixes the domain grouping for the
	// domain strategy, with the same coverage rule.
	DomainTasks [][]string
}

// Plan is a materialized assignment of every dataset sample to a task.
// It is immutable once built, so the same plan can back splitting,
// replay sampling and reporting without re-deriving anything.
type Plan struct {
	numTasks    int
	strategy    Strategy
	taskOf      []int
	counts      []int
	classTasks  [][]int
	domainTasks [][]string
}

// NewPlan partitions ds into opts.NumTasks tasks and returns the plan.
// Plans built from the same dataset and options are identical.
func NewPlan(ds data.Dataset, opts PlanOptions) (*Plan, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset is nil", data.ErrConfig)
	}
	if opts.NumTasks < 1 {
		return nil, fmt.Errorf("%w: num_tasks must be at least 1, got %d", data.ErrConfig, opts.NumTasks)
	}
	if !opts.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: unknown split strategy %q", data.ErrConfig, opts.Strategy)
	}

	p := &Plan{
		numTasks: opts.NumTasks,
		strategy: opts.Strategy,
		taskOf:   make([]int, ds.Len()),
		counts:   make([]int, opts.NumTasks),
	}

	var err error
	switch opts.Strategy {
	case StrategyClassSequential, StrategyClassRandom:
		err = p.assignByClass(ds, opts)
	case StrategyDataRandom:
		err = p.assignByIndex(ds, opts)
	case StrategyDomain:
		err = p.assignByDomain(ds, opts)
	}
	if err != nil {
		return nil, err
	}

	for _, t := range p.taskOf {
		p.counts[t]++
	}
	return p, nil
}

// NumTasks returns the number of tasks in the plan.
func (p *Plan) NumTasks() int {
	return p.numTasks
}

// Strategy returns the partitioning rule the plan was built with.
func (p *Plan) Strategy() Strategy {
	return p.strategy
}

// TaskOf returns the task the i-th sample belongs to.
func (p *Plan) TaskOf(i int) int {
	return p.taskOf[i]
}

// Count returns the number of samples assigned to a task.
func (p *Plan) Count(task int) (int, error) {
	if err := p.checkTask(task); err != nil {
		return 0, err
	}
	return p.counts[task], nil
}

// TaskIndices returns the sample indices of a task in ascending order.
func (p *Plan) TaskIndices(task int) ([]int, error) {
	if err := p.checkTask(task); err != nil {
		return nil, err
	}
	out := make([]int, 0, p.counts[task])
	for i, t := range p.taskOf {
		if t == task {
			out = append(out, i)
		}
	}
	return out, nil
}

// Classes returns the classes grouped under a task, or nil when the
// plan was not built with a class strategy.
func (p *Plan) Classes(task int) ([]int, error) {
	if err := p.checkTask(task); err != nil {
		return nil, err
	}
	if p.classTasks == nil {
		return nil, nil
	}
	out := make([]int, len(p.classTasks[task]))
	copy(out, p.classTasks[task])
	return out, nil
}

// Domains returns the domains grouped under a task, or nil when the
// plan was not built with the domain strategy.
func (p *Plan) Domains(task int) ([]string, error) {
	if err := p.checkTask(task); err != nil {
		return nil, err
	}
	if p.domainTasks == nil {
		return nil, nil
	}
	out := make([]string, len(p.domainTasks[task]))
	copy(out, p.domainTasks[task])
	return out, nil
}

func (p *Plan) checkTask(task int) error {
	if task < 0 || task >= p.numTasks {
		return fmt.Errorf("%w: task index %d out of range [0, %d)", data.ErrConfig, task, p.numTasks)
	}
	return nil
}

func (p *Plan) assignByClass(ds data.Dataset, opts PlanOptions) error {
	classes := data.Classes(ds)

	var groups [][]int
	if opts.ClassTasks != nil {
		if err := validateClassTasks(opts.ClassTasks, classes, opts.NumTasks); err != nil {
			return err
		}
		groups = opts.ClassTasks
	} else {
		if opts.NumTasks > len(classes) {
			return fmt.Errorf("%w: num_tasks %d exceeds the %d observed classes", data.ErrConfig, opts.NumTasks, len(classes))
		}
		order := make([]int, len(classes))
		copy(order, classes)
		if opts.Strategy == StrategyClassRandom {
			rng := rand.New(rand.NewSource(opts.Seed))
			rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}
		groups = chunkClasses(order, opts.NumTasks)
	}

	taskOfClass := make(map[int]int, len(classes))
	p.classTasks = make([][]int, opts.NumTasks)
	for t, grp := range groups {
		sorted := make([]int, len(grp))
		copy(sorted, grp)
		sort.Ints(sorted)
		p.classTasks[t] = sorted
		for _, c := range grp {
			taskOfClass[c] = t
		}
	}

	for i := 0; i < ds.Len(); i++ {
		p.taskOf[i] = taskOfClass[ds.Target(i)]
	}
	return nil
}

func (p *Plan) assignByIndex(ds data.Dataset, opts PlanOptions) error {
	n := ds.Len()
	if opts.NumTasks > n {
		return fmt.Errorf("%w: num_tasks %d exceeds the %d samples", data.ErrConfig, opts.NumTasks, n)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	perm := rng.Perm(n)

	// Near-equal parts; the remainder goes to the first task.
	base := n / opts.NumTasks
	rem := n % opts.NumTasks
	pos := 0
	for t := 0; t < opts.NumTasks; t++ {
		size := base
		if t == 0 {
			size += rem
		}
		for k := 0; k < size; k++ {
			p.taskOf[perm[pos]] = t
			pos++
		}
	}
	return nil
}

func (p *Plan) assignByDomain(ds data.Dataset, opts PlanOptions) error {
	domains := data.Domains(ds)
	if len(domains) == 0 {
		return fmt.Errorf("%w: domain strategy requires domain labels", data.ErrConfig)
	}
	sort.Strings(domains)

	var groups [][]string
	if opts.DomainTasks != nil {
		if err := validateDomainTasks(opts.DomainTasks, domains, opts.NumTasks); err != nil {
			return err
		}
		groups = opts.DomainTasks
	} else {
		if opts.NumTasks != len(domains) {
			return fmt.Errorf("%w: domain strategy needs num_tasks %d to match the %d observed domains", data.ErrConfig, opts.NumTasks, len(domains))
		}
		groups = make([][]string, len(domains))
		for t, d := range domains {
			groups[t] = []string{d}
		}
	}

	taskOfDomain := make(map[string]int, len(domains))
	p.domainTasks = make([][]string, opts.NumTasks)
	for t, grp := range groups {
		sorted := make([]string, len(grp))
		copy(sorted, grp)
		sort.Strings(sorted)
		p.domainTasks[t] = sorted
		for _, d := range grp {
			taskOfDomain[d] = t
		}
	}

	for i := 0; i < ds.Len(); i++ {
		p.taskOf[i] = taskOfDomain[ds.Domain(i)]
	}
	return nil
}

// chunkClasses splits an ordered class list into n contiguous groups
// whose sizes differ by at most one, earlier groups taking the extra.
func chunkClasses(order []int, n int) [][]int {
	base := len(order) / n
	rem := len(order) % n
	groups := make([][]int, n)
	pos := 0
	for t := 0; t < n; t++ {
		size := base
		if t < rem {
			size++
		}
		groups[t] = order[pos : pos+size]
		pos += size
	}
	return groups
}

func validateClassTasks(groups [][]int, classes []int, numTasks int) error {
	if len(groups) != numTasks {
		return fmt.Errorf("%w: class grouping has %d tasks, expected %d", data.ErrConfig, len(groups), numTasks)
	}
	known := make(map[int]bool, len(classes))
	for _, c := range classes {
		known[c] = true
	}
	seen := make(map[int]int, len(classes))
	for t, grp := range groups {
		for _, c := range grp {
			if !known[c] {
				return fmt.Errorf("%w: task %d references class %d absent from the dataset", data.ErrConfig, t, c)
			}
			if prev, dup := seen[c]; dup {
				return fmt.Errorf("%w: class %d assigned to both task %d and task %d", data.ErrConfig, c, prev, t)
			}
			seen[c] = t
		}
	}
	for _, c := range classes {
		if _, ok := seen[c]; !ok {
			return fmt.Errorf("%w: class %d is not assigned to any task", data.ErrConfig, c)
		}
	}
	return nil
}

func validateDomainTasks(groups [][]string, domains []string, numTasks int) error {
	if len(groups) != numTasks {
		return fmt.Errorf("%w: domain grouping has %d tasks, expected %d", data.ErrConfig, len(groups), numTasks)
	}
	known := make(map[string]bool, len(domains))
	for _, d := range domains {
		known[d] = true
	}
	seen := make(map[string]int, len(domains))
	for t, grp := range groups {
		for _, d := range grp {
			if !known[d] {
				return fmt.Errorf("%w: task %d references domain %q absent from the dataset", data.ErrConfig, t, d)
			}
			if prev, dup := seen[d]; dup {
				return fmt.Errorf("%w: domain %q assigned to both task %d and task %d", data.ErrConfig, d, prev, t)
			}
			seen[d] = t
		}
	}
	for _, d := range domains {
		if _, ok := seen[d]; !ok {
			return fmt.Errorf("%w: domain %q is not assigned to any task", data.ErrConfig, d)
		}
	}
	return nil
}
