package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
)

func TestComputeCapacity(t *testing.T) {
	owners := []models.Owner{
		{Name: "Alice", CapacityHours: 100},
		{Name: "Bob", CapacityHours: 40},
		{Name: "Cara", CapacityHours: 0},
		{Name: "Dan", CapacityHours: 50},
		{Name: "Erin", CapacityHours: 0},
	}
	initiatives := []models.Initiative{
		{Key: "I1", Owner: "alice ", EffortHours: 60, Status: constants.InitiativeInProgress},
		{Key: "I2", Owner: "Alice", EffortHours: 30, Status: constants.InitiativeNotStarted},
		{Key: "I3", Owner: "Alice", EffortHours: 500, Status: constants.InitiativeDone},
		{Key: "I4", Owner: "Bob", EffortHours: 45, Status: constants.InitiativeBlocked},
		{Key: "I5", Owner: "Cara", EffortHours: 5, Status: constants.InitiativeNotStarted},
		{Key: "I6", Owner: "Dan", EffortHours: 10, Status: constants.InitiativeInProgress},
		{Key: "I7", Owner: "Zed", EffortHours: 8, Status: constants.InitiativeInProgress},
	}

	report := ComputeCapacity(owners, initiatives, 0.85)

	require.Len(t, report.Loads, 5)
	assert.Equal(t, 90.0, report.Loads[0].CommittedHours)
	assert.Equal(t, 0.9, report.Loads[0].Utilisation)
	assert.Equal(t, 1.13, report.Loads[1].Utilisation)
	assert.Equal(t, 0.0, report.Loads[4].CommittedHours)

	require.Len(t, report.Warnings, 4)
	assert.Equal(t, constants.CapacityOver, report.Warnings[0].Kind)
	assert.Equal(t, "Bob", report.Warnings[0].Owner)
	assert.Equal(t, constants.CapacityNoCapacity, report.Warnings[1].Kind)
	assert.Equal(t, "Cara", report.Warnings[1].Owner)
	assert.Equal(t, constants.CapacityUnknownOwner, report.Warnings[2].Kind)
	assert.Equal(t, "Zed", report.Warnings[2].Owner)
	assert.Equal(t, []string{"I7"}, report.Warnings[2].Initiatives)
	assert.Equal(t, constants.CapacityNear, report.Warnings[3].Kind)
	assert.Equal(t, "Alice", report.Warnings[3].Owner)
	assert.Equal(t, []string{"I1", "I2"}, report.Warnings[3].Initiatives)
}

func TestComputeCapacity_ExactlyFullIsNearNotOver(t *testing.T) {
	report := ComputeCapacity(
		[]models.Owner{{Name: "A", CapacityHours: 10}},
		[]models.Initiative{{Key: "X", Owner: "A", EffortHours: 10, Status: constants.InitiativeInProgress}},
		0.85,
	)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, constants.CapacityNear, report.Warnings[0].Kind)
}

func TestComputeCapacity_DefaultRatio(t *testing.T) {
	report := ComputeCapacity(
		[]models.Owner{{Name: "A", CapacityHours: 100}},
		[]models.Initiative{{Key: "X", Owner: "A", EffortHours: 84, Status: constants.InitiativeInProgress}},
		0,
	)
	assert.Empty(t, report.Warnings)
}
