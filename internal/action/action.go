package action

type Action int

const (
	Undecided Action = iota // 0：Undecided
	Allow                   // 1：Pass
	Block                   // 2：Deny
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "Allow"
	case Block:
		return "Block"
	default:
		return "Undecided"
	}
}

// Decision saves the result of the decision
type Decision struct {
	result Action
	rule   string
}

func NewDecision() *Decision {
	return &Decision{result: Undecided}
}

func (d *Decision) Get() Action {
	return d.result
}

func (d *Decision) Set(new Action) {
	d.result = new
}

// SetBy records the decision together with the set that produced it
func (d *Decision) SetBy(new Action, rule string) {
	d.result = new
	d.rule = rule
}

func (d *Decision) Rule() string {
	return d.rule
}
