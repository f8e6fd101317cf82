package split

// Strategy selects how dataset samples are grouped into tasks.
type Strategy string

const (
	// StrategyClassSequential chunks the sorted class labels into
	// consecutive groups, one group per task.
	StrategyClassSequential Strategy = "class_sequential"

	// StrategyClassRandom chunks a seeded permutation of the class
	// labels, one group per task.
	StrategyClassRandom Strategy = "class_random"

	// StrategyDataRandom chunks a seeded permutation of sample
	// indices into near-equal parts regardless of class.
	StrategyDataRandom Strategy = "data_random"

	// StrategyDomain assigns samples to tasks by their domain label.
	StrategyDomain Strategy = "domain"
)

// IsValid checks if the strategy is a known one.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyClassSequential, StrategyClassRandom,
		StrategyDataRandom, StrategyDomain:
		return true
	}
	return false
}

// String returns string representation.
func (s Strategy) String() string {
	return string(s)
}
