package model

// SystemMovementTypes are written by the backend itself when a card is
// created, moved between columns, or completed. They form the card's audit
// trail and must never be edited or deleted by an operator.
var SystemMovementTypes = map[MovementType]struct{}{
	MovementCreated:      {},
	MovementColumnChange: {},
	MovementCompleted:    {},
}

func IsSystemMovement(t MovementType) bool {
	_, ok := SystemMovementTypes[t]
	return ok
}

// MovementEditable decides whether a movement accepts operator edits or
// deletion. Single call site for the rule; render layers must not duplicate
// the check inline.
func MovementEditable(m Movement) bool {
	return !IsSystemMovement(m.Type)
}

func ValidPriority(p Priority) bool {
	_, ok := AllowedPriorities[p]
	return ok
}

// ValidImageAttachment enforces the attachment discriminator: exactly one of
// CardImageID and MovementImageID is populated.
func ValidImageAttachment(img Image) bool {
	return (img.CardImageID != nil) != (img.MovementImageID != nil)
}
