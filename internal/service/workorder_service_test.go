package service

import (
	"context"
	"testing"

	"serviceease/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusAssigned)

	resp, err := env.workOrderSvc.Start(context.Background(), wo.ID, env.technician.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusInProgress), resp.Status)
	assert.NotNil(t, resp.StartedAt)

	reloaded := env.reloadWorkOrder(t, wo.ID)
	assert.Equal(t, model.StatusInProgress, reloaded.Status)
	require.NotNil(t, reloaded.TechnicianID)
	assert.Equal(t, env.technician.ID, *reloaded.TechnicianID)

	entries, err := env.historyRepo.ListByWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusAssigned, entries[0].PreviousStatus)
	assert.Equal(t, model.StatusInProgress, entries[0].NewStatus)
}

func TestStartResumesFromHold(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusOnHold)

	_, err := env.workOrderSvc.Start(context.Background(), wo.ID, env.technician.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, env.reloadWorkOrder(t, wo.ID).Status)
}

func TestStartIllegalStates(t *testing.T) {
	env := newTestEnv(t)

	for _, status := range []model.WorkOrderStatus{
		model.StatusPendingApproval,
		model.StatusCompleted,
		model.StatusCancelled,
	} {
		wo := env.createWorkOrder(t, status)
		_, err := env.workOrderSvc.Start(context.Background(), wo.ID, env.technician.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition, "start from %s", status)
		assert.Equal(t, status, env.reloadWorkOrder(t, wo.ID).Status)
	}
}

func TestStartUncoveredTechnician(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusAssigned)
	stranger := seedUser(t, env.db, "stranger2@serviceease.test", "Kim", "Park", model.RoleTechnician)

	_, err := env.workOrderSvc.Start(context.Background(), wo.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestHold(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)

	resp, err := env.workOrderSvc.Hold(context.Background(), wo.ID, env.technician.ID, "waiting for a fuser unit")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusOnHold), resp.Status)

	entries, err := env.historyRepo.ListByWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Notes, "waiting for a fuser unit")
}

func TestHoldFromPendingApproval(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusPendingApproval)

	_, err := env.workOrderSvc.Hold(context.Background(), wo.ID, env.technician.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReportIssue(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)

	err := env.workOrderSvc.ReportIssue(context.Background(), wo.ID, env.technician.ID, "Missing Parts", "No spare fuser in the van")
	require.NoError(t, err)

	// Issue reports land in history without moving the status.
	assert.Equal(t, model.StatusInProgress, env.reloadWorkOrder(t, wo.ID).Status)

	entries, err := env.historyRepo.ListByWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entries[0].PreviousStatus, entries[0].NewStatus)
	assert.Contains(t, entries[0].Notes, "ISSUE REPORT [Missing Parts]")
	assert.Contains(t, entries[0].Notes, "No spare fuser in the van")

	err = env.workOrderSvc.ReportIssue(context.Background(), wo.ID, env.technician.ID, "", "")
	assert.True(t, IsValidationError(err))
}

func TestListForTechnician(t *testing.T) {
	env := newTestEnv(t)
	env.createWorkOrder(t, model.StatusAssigned)
	env.createWorkOrder(t, model.StatusInProgress)
	env.createWorkOrder(t, model.StatusCompleted)

	all, total, err := env.workOrderSvc.ListForTechnician(context.Background(), env.technician.ID, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)
	assert.Equal(t, "Hillside Elementary", all[0].InstitutionName)

	inProgress, total, err := env.workOrderSvc.ListForTechnician(context.Background(), env.technician.ID, "in_progress", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, inProgress, 1)
	assert.Equal(t, string(model.StatusInProgress), inProgress[0].Status)

	_, _, err = env.workOrderSvc.ListForTechnician(context.Background(), env.technician.ID, "bogus", 1, 20)
	assert.True(t, IsValidationError(err))
}

func TestHistoryNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusAssigned)

	_, err := env.workOrderSvc.Start(context.Background(), wo.ID, env.technician.ID)
	require.NoError(t, err)
	_, err = env.workOrderSvc.Hold(context.Background(), wo.ID, env.technician.ID, "parts on order")
	require.NoError(t, err)

	entries, err := env.workOrderSvc.History(context.Background(), wo.ID, env.technician.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, string(model.StatusOnHold), entries[0].NewStatus)
	assert.Equal(t, "Taylor Nguyen", entries[0].ActorName)
	assert.Equal(t, string(model.StatusInProgress), entries[1].NewStatus)
}
