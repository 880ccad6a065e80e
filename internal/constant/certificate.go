package constant

type TemplateStatus int

const (
	TemplateStatusActive TemplateStatus = iota
	TemplateStatusInactive
	TemplateStatusDeleted
)

type IssueMethod string

const (
	IssueMethodSelfService IssueMethod = "self_service"
	IssueMethodManual      IssueMethod = "manual"
)

const (
	// Alphabet for access code secrets, ambiguous glyphs I/O/0/1 excluded
	AccessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	AccessCodeLength = 8
	UniqueLinkLength = 12

	// Attempts before code/slug/number generation gives up on collisions
	MaxCodeGenerationAttempts = 5
)
