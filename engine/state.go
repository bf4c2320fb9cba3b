package engine

// Mode is the engine's one-way exploration-to-mutation state. Once set
// to ModeMutation it never reverts for the remainder of a run.
type Mode int

const (
	ModeExploration Mode = iota
	ModeMutation
)

func (m Mode) String() string {
	if m == ModeMutation {
		return "mutation"
	}
	return "exploration"
}
