package domain

// User is the directory entry an opaque assignee id resolves to.
type User struct {
	ID    string
	Name  string
	Email string
}
