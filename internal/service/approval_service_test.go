package service

import (
	"context"
	"testing"

	"serviceease/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitCompletion(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)

	approval := env.submitDefault(t, wo)

	assert.Equal(t, string(model.ApprovalPending), approval.Status)
	assert.Equal(t, wo.ID.String(), approval.WorkOrderID)

	reloaded := env.reloadWorkOrder(t, wo.ID)
	assert.Equal(t, model.StatusPendingApproval, reloaded.Status)
	require.NotNil(t, reloaded.ResolvedBy)
	assert.Equal(t, env.technician.ID, *reloaded.ResolvedBy)
	assert.NotNil(t, reloaded.ResolvedAt)

	usages, err := env.usageRepo.ListByWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Len(t, usages, 2)

	// Submission declares, it never settles: the ledger is untouched until
	// an approver accepts.
	assert.Equal(t, 5, env.reloadLedger(t, env.roller.ID).Quantity)
	ink := env.reloadLedger(t, env.ink.ID)
	assert.Equal(t, 2, ink.Quantity)
	assert.False(t, ink.IsOpened)
}

func TestSubmitCompletionValidation(t *testing.T) {
	env := newTestEnv(t)

	t.Run("empty report", func(t *testing.T) {
		wo := env.createWorkOrder(t, model.StatusInProgress)
		_, err := env.approvalSvc.SubmitCompletion(context.Background(), wo.ID, env.technician.ID, SubmitCompletionRequest{
			Report: "   ",
		})
		assert.True(t, IsValidationError(err))
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		wo := env.createWorkOrder(t, model.StatusInProgress)
		_, err := env.approvalSvc.SubmitCompletion(context.Background(), wo.ID, env.technician.ID, SubmitCompletionRequest{
			Report: "done",
			Usage:  []UsageDeclaration{{ItemID: env.roller.ID.String(), Quantity: 0}},
		})
		assert.True(t, IsValidationError(err))
	})

	t.Run("partial without amount", func(t *testing.T) {
		wo := env.createWorkOrder(t, model.StatusInProgress)
		_, err := env.approvalSvc.SubmitCompletion(context.Background(), wo.ID, env.technician.ID, SubmitCompletionRequest{
			Report: "done",
			Usage:  []UsageDeclaration{{ItemID: env.ink.ID.String(), Quantity: 1, ConsumptionType: "partial"}},
		})
		assert.True(t, IsValidationError(err))
	})

	t.Run("malformed item id", func(t *testing.T) {
		wo := env.createWorkOrder(t, model.StatusInProgress)
		_, err := env.approvalSvc.SubmitCompletion(context.Background(), wo.ID, env.technician.ID, SubmitCompletionRequest{
			Report: "done",
			Usage:  []UsageDeclaration{{ItemID: "not-a-uuid", Quantity: 1}},
		})
		assert.True(t, IsValidationError(err))
	})
}

func TestSubmitCompletionWrongStatus(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusAssigned)

	_, err := env.approvalSvc.SubmitCompletion(context.Background(), wo.ID, env.technician.ID, SubmitCompletionRequest{
		Report: "done",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitCompletionExceedsStock(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)

	_, err := env.approvalSvc.SubmitCompletion(context.Background(), wo.ID, env.technician.ID, SubmitCompletionRequest{
		Report: "done",
		Usage:  []UsageDeclaration{{ItemID: env.roller.ID.String(), Quantity: 99}},
	})
	assert.ErrorIs(t, err, ErrInventoryExceeded)

	// The rejected submission must leave nothing behind.
	assert.Equal(t, model.StatusInProgress, env.reloadWorkOrder(t, wo.ID).Status)
	usages, err := env.usageRepo.ListByWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Empty(t, usages)
}

func TestSubmitCompletionUncoveredTechnician(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	stranger := seedUser(t, env.db, "stranger@serviceease.test", "Pat", "Lee", model.RoleTechnician)

	_, err := env.approvalSvc.SubmitCompletion(context.Background(), wo.ID, stranger.ID, SubmitCompletionRequest{
		Report: "done",
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApprove(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	approval := env.submitDefault(t, wo)

	result, err := env.approvalSvc.Approve(context.Background(), mustUUID(t, approval.ID), env.admin.ID, "Good work")
	require.NoError(t, err)
	assert.Equal(t, wo.ID.String(), result.WorkOrderID)

	reloaded := env.reloadWorkOrder(t, wo.ID)
	assert.Equal(t, model.StatusCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)
	assert.Contains(t, reloaded.ResolutionNotes, "Approved by Institution Admin - Ana Reyes")
	assert.Contains(t, reloaded.ResolutionNotes, "Good work")

	stored, err := env.approvalRepo.FindByID(context.Background(), mustUUID(t, approval.ID))
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, stored.Status)
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, env.admin.ID, *stored.ApprovedBy)
	assert.NotNil(t, stored.ReviewedAt)

	// Settlement: two rollers gone, ink bottle opened at 70ml, quantity kept.
	assert.Equal(t, 3, env.reloadLedger(t, env.roller.ID).Quantity)
	ink := env.reloadLedger(t, env.ink.ID)
	assert.Equal(t, 2, ink.Quantity)
	assert.True(t, ink.IsOpened)
	require.True(t, ink.RemainingVolume.Valid)
	assert.Equal(t, "70", ink.RemainingVolume.Decimal.String())

	entries, err := env.historyRepo.ListByWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if e.PreviousStatus == model.StatusPendingApproval && e.NewStatus == model.StatusCompleted {
			found = true
		}
	}
	assert.True(t, found, "history must record the pending_approval -> completed transition")

	var notifications []model.Notification
	require.NoError(t, env.db.Where("user_id = ?", env.technician.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationServiceApproved, notifications[0].Type)
	assert.NotNil(t, notifications[0].DispatchedAt)
}

func TestApproveTwice(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	approval := env.submitDefault(t, wo)

	_, err := env.approvalSvc.Approve(context.Background(), mustUUID(t, approval.ID), env.admin.ID, "")
	require.NoError(t, err)

	_, err = env.approvalSvc.Approve(context.Background(), mustUUID(t, approval.ID), env.admin.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	// Settlement must have run exactly once.
	assert.Equal(t, 3, env.reloadLedger(t, env.roller.ID).Quantity)
}

func TestApproveTwoWorkOrdersSameItem(t *testing.T) {
	env := newTestEnv(t)

	submit := func(wo *model.ServiceRequest) *ApprovalResponse {
		approval, err := env.approvalSvc.SubmitCompletion(context.Background(), wo.ID, env.technician.ID, SubmitCompletionRequest{
			Report: "Replaced the pickup roller.",
			Usage:  []UsageDeclaration{{ItemID: env.roller.ID.String(), Quantity: 1, ConsumptionType: "full"}},
		})
		require.NoError(t, err)
		return approval
	}

	first := submit(env.createWorkOrder(t, model.StatusInProgress))
	second := submit(env.createWorkOrder(t, model.StatusInProgress))

	_, err := env.approvalSvc.Approve(context.Background(), mustUUID(t, first.ID), env.admin.ID, "")
	require.NoError(t, err)
	_, err = env.approvalSvc.Approve(context.Background(), mustUUID(t, second.ID), env.admin.ID, "")
	require.NoError(t, err)

	// Two separate approvals deduct from the same technician ledger row;
	// both deductions must land.
	assert.Equal(t, 3, env.reloadLedger(t, env.roller.ID).Quantity)
}

func TestApproveByOutsider(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	approval := env.submitDefault(t, wo)

	_, err := env.approvalSvc.Approve(context.Background(), mustUUID(t, approval.ID), env.outsider.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, model.StatusPendingApproval, env.reloadWorkOrder(t, wo.ID).Status)
	assert.Equal(t, 5, env.reloadLedger(t, env.roller.ID).Quantity)
}

func TestRejectRequiresNote(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	approval := env.submitDefault(t, wo)

	_, err := env.approvalSvc.Reject(context.Background(), mustUUID(t, approval.ID), env.admin.ID, "  ")
	assert.True(t, IsValidationError(err))
}

func TestReject(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	approval := env.submitDefault(t, wo)

	result, err := env.approvalSvc.Reject(context.Background(), mustUUID(t, approval.ID), env.admin.ID, "Photos of the repair are missing")
	require.NoError(t, err)
	assert.Equal(t, wo.ID.String(), result.WorkOrderID)

	reloaded := env.reloadWorkOrder(t, wo.ID)
	assert.Equal(t, model.StatusInProgress, reloaded.Status)
	assert.Nil(t, reloaded.CompletedAt)

	stored, err := env.approvalRepo.FindByID(context.Background(), mustUUID(t, approval.ID))
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalRejected, stored.Status)
	assert.Equal(t, "Photos of the repair are missing", stored.ApproverNotes)

	// Rejection is a pure rollback: declarations discarded, ledger untouched.
	usages, err := env.usageRepo.ListByWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Empty(t, usages)
	assert.Equal(t, 5, env.reloadLedger(t, env.roller.ID).Quantity)
	ink := env.reloadLedger(t, env.ink.ID)
	assert.Equal(t, 2, ink.Quantity)
	assert.False(t, ink.IsOpened)

	var notifications []model.Notification
	require.NoError(t, env.db.Where("user_id = ?", env.technician.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationRevisionRequired, notifications[0].Type)
}

func TestRejectThenResubmit(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	first := env.submitDefault(t, wo)

	_, err := env.approvalSvc.Reject(context.Background(), mustUUID(t, first.ID), env.admin.ID, "redo")
	require.NoError(t, err)

	second := env.submitDefault(t, wo)
	assert.NotEqual(t, first.ID, second.ID, "resubmission creates a fresh approval row")

	var count int64
	require.NoError(t, env.db.Model(&model.ServiceApproval{}).
		Where("service_request_id = ?", wo.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	_, err = env.approvalSvc.Approve(context.Background(), mustUUID(t, second.ID), env.admin.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, env.reloadWorkOrder(t, wo.ID).Status)
}

func TestListPending(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	env.submitDefault(t, wo)

	rows, err := env.approvalSvc.ListPending(context.Background(), env.admin.ID, model.RoleInstitutionAdmin)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, wo.ID, rows[0].WorkOrderID)
	assert.Equal(t, "Taylor Nguyen", rows[0].TechnicianName)
	assert.Equal(t, "Hillside Elementary", rows[0].InstitutionName)

	// The queue is scoped: an unrelated admin sees nothing.
	rows, err = env.approvalSvc.ListPending(context.Background(), env.outsider.ID, model.RoleInstitutionAdmin)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListPendingForCoordinator(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	require.NoError(t, env.db.Model(wo).Update("requested_by", env.coordinator.ID).Error)
	env.submitDefault(t, wo)

	rows, err := env.approvalSvc.ListPending(context.Background(), env.coordinator.ID, model.RoleCoordinator)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, wo.ID, rows[0].WorkOrderID)

	// The coordinator who requested the work order may also review it.
	_, err = env.approvalSvc.Approve(context.Background(), rows[0].ApprovalID, env.coordinator.ID, "")
	require.NoError(t, err)
}

func TestApprovalDetails(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWorkOrder(t, model.StatusInProgress)
	approval := env.submitDefault(t, wo)

	detail, err := env.approvalSvc.Details(context.Background(), mustUUID(t, approval.ID), env.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, wo.ID.String(), detail.WorkOrder.ID)
	require.Len(t, detail.ItemsUsed, 2)
	byName := make(map[string]UsageRowResponse, 2)
	for _, row := range detail.ItemsUsed {
		byName[row.ItemName] = row
	}
	assert.Equal(t, 2, byName["Pickup Roller"].Quantity)
	inkRow, ok := byName["Epson 664 Black Ink"]
	require.True(t, ok)
	require.NotNil(t, inkRow.AmountConsumed)
	assert.Equal(t, "30", *inkRow.AmountConsumed)

	_, err = env.approvalSvc.Details(context.Background(), mustUUID(t, approval.ID), env.outsider.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
