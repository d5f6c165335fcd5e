package core

// Gate holds at most one submission token. It is owned by a single oracle
// instance and never shared.
type Gate struct {
	held bool
}

// IssueToken sets the permit. Returns false if a token was already held;
// tokens never stack.
func (g *Gate) IssueToken() bool {
	if g.held {
		return false
	}
	g.held = true
	return true
}

// TrySubmit consumes the token if one is held.
func (g *Gate) TrySubmit() bool {
	if !g.held {
		return false
	}
	g.held = false
	return true
}

func (g Gate) Held() bool {
	return g.held
}
