package chat

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// Confirmed approves every prompt.
var Confirmed Confirmer = ConfirmFunc(func(string) bool { return true })

// Declined rejects every prompt.
var Declined Confirmer = ConfirmFunc(func(string) bool { return false })

func confirmed(c Confirmer, prompt string) bool {
	return c != nil && c.Confirm(prompt)
}
