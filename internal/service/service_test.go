package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"serviceease/internal/database"
	"serviceease/internal/model"
	"serviceease/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a named in-memory database so each test gets its own
// isolated schema while gorm's connection pool still sees the same store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// testEnv wires the full service graph over an in-memory database plus the
// fixture rows every workflow test needs: a covered technician, an
// institution with its admin, and a small parts catalog with ledger stock.
type testEnv struct {
	db *gorm.DB

	technician  *model.User
	admin       *model.User
	coordinator *model.User
	outsider    *model.User
	institution *model.Institution

	ink    *model.PrinterItem // 100ml bottle, 2 on hand
	toner  *model.PrinterItem // 120g cartridge, 3 on hand
	roller *model.PrinterItem // discrete part, 5 on hand

	workOrderRepo repository.WorkOrderRepository
	usageRepo     repository.UsageRepository
	approvalRepo  repository.ApprovalRepository
	historyRepo   repository.HistoryRepository

	inventorySvc InventoryService
	workOrderSvc WorkOrderService
	approvalSvc  ApprovalService
	notifySvc    NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	env := &testEnv{db: db}

	env.technician = seedUser(t, db, "tech@serviceease.test", "Taylor", "Nguyen", model.RoleTechnician)
	env.admin = seedUser(t, db, "admin@school.test", "Ana", "Reyes", model.RoleInstitutionAdmin)
	env.coordinator = seedUser(t, db, "coord@serviceease.test", "Sam", "Cruz", model.RoleCoordinator)
	env.outsider = seedUser(t, db, "other@school.test", "Omar", "Diaz", model.RoleInstitutionAdmin)

	env.institution = &model.Institution{Name: "Hillside Elementary", Type: "school", AdminID: &env.admin.ID}
	require.NoError(t, db.Create(env.institution).Error)

	require.NoError(t, db.Create(&model.TechnicianAssignment{
		TechnicianID:  env.technician.ID,
		InstitutionID: env.institution.ID,
		IsActive:      true,
	}).Error)

	env.ink = &model.PrinterItem{
		Name: "Epson 664 Black Ink", Category: "ink", Brand: "Epson", Unit: "bottle",
		InkVolume: nd("100"),
	}
	env.toner = &model.PrinterItem{
		Name: "HP 85A Toner", Category: "toner", Brand: "HP", Unit: "cartridge",
		TonerWeight: nd("120"),
	}
	env.roller = &model.PrinterItem{Name: "Pickup Roller", Category: "part", Brand: "Canon", Unit: "piece"}
	require.NoError(t, db.Create(env.ink).Error)
	require.NoError(t, db.Create(env.toner).Error)
	require.NoError(t, db.Create(env.roller).Error)

	seedLedger(t, db, env.technician.ID, env.ink.ID, 2)
	seedLedger(t, db, env.technician.ID, env.toner.ID, 3)
	seedLedger(t, db, env.technician.ID, env.roller.ID, 5)

	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	env.workOrderRepo = repository.NewWorkOrderRepository(db)
	env.approvalRepo = repository.NewApprovalRepository(db)
	env.usageRepo = repository.NewUsageRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	env.historyRepo = repository.NewHistoryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	env.inventorySvc = NewInventoryService(inventoryRepo)
	env.workOrderSvc = NewWorkOrderService(env.workOrderRepo, env.historyRepo, txManager)
	env.notifySvc = NewNotificationService(notificationRepo, userRepo, nil, nil)
	env.approvalSvc = NewApprovalService(
		env.approvalRepo, env.workOrderRepo, env.usageRepo, userRepo,
		env.inventorySvc, env.historyRepo, env.notifySvc, txManager,
	)

	return env
}

var requestSeq int

// createWorkOrder seeds a work order at the given status, assigned to the
// fixture technician when the status implies an assignee.
func (e *testEnv) createWorkOrder(t *testing.T, status model.WorkOrderStatus) *model.ServiceRequest {
	t.Helper()
	requestSeq++
	wo := &model.ServiceRequest{
		RequestNumber: fmt.Sprintf("SR-2026-%04d", requestSeq),
		InstitutionID: e.institution.ID,
		Status:        status,
		Priority:      model.PriorityMedium,
		Description:   "Printer feeding blank pages",
		Location:      "Room 204",
	}
	if status != model.StatusNew {
		wo.TechnicianID = &e.technician.ID
	}
	if status == model.StatusInProgress || status == model.StatusPendingApproval {
		now := time.Now()
		wo.StartedAt = &now
	}
	require.NoError(t, e.db.Create(wo).Error)
	return wo
}

// reloadWorkOrder fetches the current row, bypassing any stale copy.
func (e *testEnv) reloadWorkOrder(t *testing.T, id uuid.UUID) *model.ServiceRequest {
	t.Helper()
	var wo model.ServiceRequest
	require.NoError(t, e.db.First(&wo, "id = ?", id).Error)
	return &wo
}

func (e *testEnv) reloadLedger(t *testing.T, itemID uuid.UUID) *model.TechnicianInventory {
	t.Helper()
	var row model.TechnicianInventory
	require.NoError(t, e.db.First(&row, "technician_id = ? AND item_id = ?", e.technician.ID, itemID).Error)
	return &row
}

// submitDefault files a completion with one full roller and one 30ml ink draw.
func (e *testEnv) submitDefault(t *testing.T, wo *model.ServiceRequest) *ApprovalResponse {
	t.Helper()
	amount := "30"
	approval, err := e.approvalSvc.SubmitCompletion(context.Background(), wo.ID, e.technician.ID, SubmitCompletionRequest{
		Report: "Replaced the pickup roller and topped up black ink.",
		Usage: []UsageDeclaration{
			{ItemID: e.roller.ID.String(), Quantity: 2, ConsumptionType: "full"},
			{ItemID: e.ink.ID.String(), Quantity: 1, ConsumptionType: "partial", AmountConsumed: &amount},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, approval)
	return approval
}

func seedUser(t *testing.T, db *gorm.DB, email, first, last, role string) *model.User {
	t.Helper()
	user := &model.User{
		Email:     email,
		Password:  "x", // never checked in workflow tests
		FirstName: first,
		LastName:  last,
		Role:      role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedLedger(t *testing.T, db *gorm.DB, technicianID, itemID uuid.UUID, quantity int) {
	t.Helper()
	require.NoError(t, db.Create(&model.TechnicianInventory{
		TechnicianID: technicianID,
		ItemID:       itemID,
		Quantity:     quantity,
	}).Error)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}
