package train

// StepContext carries everything a training step's objectives need:
// the student's embeddings of both augmented views, the frozen
// teacher's embeddings of the same views when a teacher exists, and
// the batch metadata.
type StepContext struct {
	TaskIdx int
	Epoch   int
	Step    int

	// Student embeddings of the two views.
	Z1, Z2 [][]float64

	// Frozen teacher embeddings of the same views. Nil on the first
	// task, before any snapshot exists.
	FrozenZ1, FrozenZ2 [][]float64

	// Batch metadata.
	Indices []int
	Targets []int
}

// NewStepContext creates a step context for one batch.
func NewStepContext(taskIdx, epoch, step int) *StepContext {
	return &StepContext{
		TaskIdx: taskIdx,
		Epoch:   epoch,
		Step:    step,
	}
}

// WithViews sets the student embeddings of the two views.
func (c *StepContext) WithViews(z1, z2 [][]float64) *StepContext {
	c.Z1 = z1
	c.Z2 = z2
	return c
}

// WithFrozenViews sets the frozen teacher embeddings.
func (c *StepContext) WithFrozenViews(z1, z2 [][]float64) *StepContext {
	c.FrozenZ1 = z1
	c.FrozenZ2 = z2
	return c
}

// WithBatch sets the batch metadata.
func (c *StepContext) WithBatch(indices, targets []int) *StepContext {
	c.Indices = indices
	c.Targets = targets
	return c
}

// HasTeacher reports whether frozen embeddings are present.
func (c *StepContext) HasTeacher() bool {
	return c.FrozenZ1 != nil && c.FrozenZ2 != nil
}
