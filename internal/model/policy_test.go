package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSystemMovementsAreNeverEditable(t *testing.T) {
	for movementType := range SystemMovementTypes {
		require.False(t, MovementEditable(Movement{Type: movementType}), "type %s", movementType)
	}
}

func TestOperatorMovementsAreEditable(t *testing.T) {
	require.True(t, MovementEditable(Movement{Type: MovementNote}))
	require.True(t, MovementEditable(Movement{Type: MovementType("Ligação")}))
}

func TestValidPriority(t *testing.T) {
	for priority := range AllowedPriorities {
		require.True(t, ValidPriority(priority))
	}
	require.False(t, ValidPriority(Priority("Critical")))
	require.False(t, ValidPriority(Priority("")))
}

func TestValidImageAttachmentRequiresExactlyOneOwner(t *testing.T) {
	cardID := int64(10)
	movementID := int64(20)

	require.True(t, ValidImageAttachment(Image{CardImageID: &cardID}))
	require.True(t, ValidImageAttachment(Image{MovementImageID: &movementID}))
	require.False(t, ValidImageAttachment(Image{}))
	require.False(t, ValidImageAttachment(Image{CardImageID: &cardID, MovementImageID: &movementID}))
}
