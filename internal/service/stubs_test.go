package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"taller/internal/model"
	"taller/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store shared by every stub repository ─────────────────────────

type memStore struct {
	seq        uint
	clock      time.Time
	materials  map[uint]model.Material
	movements  []model.StockMovement
	usages     map[uint]model.MaterialUsage
	tools      map[uint]model.Tool
	repairs    map[uint]model.Repair
	history    []model.RepairHistory
	orders     map[uint]model.Order
	items      []model.OrderItem
	stages     []model.OrderStageHistory
	audits     []model.AuditLog
	failOn     string // name of the stub method that should fail
	failErr    error
	txDepth    int
	txCommits  int
	txRollback int
}

func newMemStore() *memStore {
	return &memStore{
		clock:     time.Date(2025, 11, 23, 9, 0, 0, 0, time.Local),
		materials: map[uint]model.Material{},
		usages:    map[uint]model.MaterialUsage{},
		tools:     map[uint]model.Tool{},
		repairs:   map[uint]model.Repair{},
		orders:    map[uint]model.Order{},
	}
}

func (s *memStore) nextID() uint {
	s.seq++
	return s.seq
}

// tick returns strictly increasing timestamps so ordering by created_at is stable.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) fail(method string) error {
	if s.failOn == method {
		if s.failErr != nil {
			return s.failErr
		}
		return errors.New("connection reset by peer")
	}
	return nil
}

func (s *memStore) snapshot() *memStore {
	c := *s
	c.materials = cloneMap(s.materials)
	c.usages = cloneMap(s.usages)
	c.tools = cloneMap(s.tools)
	c.repairs = cloneMap(s.repairs)
	c.orders = cloneMap(s.orders)
	c.movements = append([]model.StockMovement(nil), s.movements...)
	c.history = append([]model.RepairHistory(nil), s.history...)
	c.items = append([]model.OrderItem(nil), s.items...)
	c.stages = append([]model.OrderStageHistory(nil), s.stages...)
	c.audits = append([]model.AuditLog(nil), s.audits...)
	return &c
}

func (s *memStore) restore(from *memStore) {
	s.seq = from.seq
	s.materials = from.materials
	s.usages = from.usages
	s.tools = from.tools
	s.repairs = from.repairs
	s.orders = from.orders
	s.movements = from.movements
	s.history = from.history
	s.items = from.items
	s.stages = from.stages
	s.audits = from.audits
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// ── Transaction manager: snapshot on entry, restore on error ────────────────

type memTxManager struct{ s *memStore }

func (m memTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if m.s.txDepth > 0 {
		return fn(ctx)
	}
	saved := m.s.snapshot()
	m.s.txDepth++
	err := fn(ctx)
	m.s.txDepth--
	if err != nil {
		m.s.restore(saved)
		m.s.txRollback++
		return err
	}
	m.s.txCommits++
	return nil
}

func paginate[T any](rows []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// ── Materials ───────────────────────────────────────────────────────────────

type memMaterialRepo struct{ s *memStore }

func (r memMaterialRepo) Create(_ context.Context, m *model.Material) error {
	if err := r.s.fail("material.Create"); err != nil {
		return err
	}
	m.ID = r.s.nextID()
	m.CreatedAt = r.s.tick()
	m.UpdatedAt = m.CreatedAt
	r.s.materials[m.ID] = *m
	return nil
}

func (r memMaterialRepo) Update(_ context.Context, m *model.Material) error {
	if err := r.s.fail("material.Update"); err != nil {
		return err
	}
	stored, ok := r.s.materials[m.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	quantity := stored.Quantity
	stored = *m
	stored.Quantity = quantity
	r.s.materials[m.ID] = stored
	return nil
}

func (r memMaterialRepo) UpdateQuantity(_ context.Context, id uint, quantity int) error {
	if err := r.s.fail("material.UpdateQuantity"); err != nil {
		return err
	}
	m, ok := r.s.materials[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.Quantity = quantity
	r.s.materials[id] = m
	return nil
}

func (r memMaterialRepo) Deactivate(_ context.Context, id uint) error {
	m, ok := r.s.materials[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.Active = false
	r.s.materials[id] = m
	return nil
}

func (r memMaterialRepo) FindByID(_ context.Context, id uint) (*model.Material, error) {
	m, ok := r.s.materials[id]
	if !ok || !m.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r memMaterialRepo) FindAnyByID(_ context.Context, id uint) (*model.Material, error) {
	m, ok := r.s.materials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r memMaterialRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Material, error) {
	if err := r.s.fail("material.FindByIDForUpdate"); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r memMaterialRepo) List(_ context.Context, f repository.MaterialFilter) ([]model.Material, int64, error) {
	var rows []model.Material
	for _, m := range r.s.materials {
		if !m.Active {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(m.Name+" "+m.Description), strings.ToLower(f.Search)) {
			continue
		}
		rows = append(rows, m)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), nil
}

func (r memMaterialRepo) LowStock(_ context.Context) ([]model.Material, error) {
	var rows []model.Material
	for _, m := range r.s.materials {
		if m.Active && m.Quantity <= m.StockMinimum {
			rows = append(rows, m)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Quantity < rows[j].Quantity })
	return rows, nil
}

type memMovementRepo struct{ s *memStore }

func (r memMovementRepo) Create(_ context.Context, m *model.StockMovement) error {
	if err := r.s.fail("movement.Create"); err != nil {
		return err
	}
	m.ID = r.s.nextID()
	m.CreatedAt = r.s.tick()
	r.s.movements = append(r.s.movements, *m)
	return nil
}

func (r memMovementRepo) ListByMaterial(_ context.Context, materialID uint) ([]model.StockMovement, error) {
	var rows []model.StockMovement
	for _, m := range r.s.movements {
		if m.MaterialID == materialID {
			rows = append(rows, m)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows, nil
}

type memUsageRepo struct{ s *memStore }

func (r memUsageRepo) Create(_ context.Context, u *model.MaterialUsage) error {
	if err := r.s.fail("usage.Create"); err != nil {
		return err
	}
	u.ID = r.s.nextID()
	u.CreatedAt = r.s.tick()
	r.s.usages[u.ID] = *u
	return nil
}

func (r memUsageRepo) FindByID(_ context.Context, id uint) (*model.MaterialUsage, error) {
	u, ok := r.s.usages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUsageRepo) ListByDocument(_ context.Context, kind string, documentID uint) ([]model.MaterialUsage, error) {
	var rows []model.MaterialUsage
	for _, u := range r.s.usages {
		if u.DocumentKind == kind && u.DocumentID == documentID {
			rows = append(rows, u)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (r memUsageRepo) CostForDocument(ctx context.Context, kind string, documentID uint) (decimal.Decimal, error) {
	rows, _ := r.ListByDocument(ctx, kind, documentID)
	total := decimal.Zero
	for _, u := range rows {
		total = total.Add(u.Cost())
	}
	return total, nil
}

func (r memUsageRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.usages, id)
	return nil
}

// ── Tools ───────────────────────────────────────────────────────────────────

type memToolRepo struct{ s *memStore }

func (r memToolRepo) Create(_ context.Context, t *model.Tool) error {
	if err := r.s.fail("tool.Create"); err != nil {
		return err
	}
	t.ID = r.s.nextID()
	t.CreatedAt = r.s.tick()
	r.s.tools[t.ID] = *t
	return nil
}

func (r memToolRepo) Update(_ context.Context, t *model.Tool) error {
	if err := r.s.fail("tool.Update"); err != nil {
		return err
	}
	r.s.tools[t.ID] = *t
	return nil
}

func (r memToolRepo) FindByID(_ context.Context, id uint) (*model.Tool, error) {
	t, ok := r.s.tools[id]
	if !ok || !t.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r memToolRepo) FindByName(_ context.Context, name string) (*model.Tool, error) {
	var found *model.Tool
	for _, t := range r.s.tools {
		if t.Active && t.Name == name && (found == nil || t.ID < found.ID) {
			t := t
			found = &t
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return found, nil
}

func (r memToolRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Tool, error) {
	return r.FindByID(ctx, id)
}

func (r memToolRepo) FindByNameForUpdate(ctx context.Context, name string) (*model.Tool, error) {
	return r.FindByName(ctx, name)
}

func (r memToolRepo) List(_ context.Context, f repository.ToolFilter) ([]model.Tool, int64, error) {
	var rows []model.Tool
	for _, t := range r.s.tools {
		if !t.Active || (f.Status != "" && t.Status != f.Status) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(f.Search)) {
			continue
		}
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), nil
}

// ── Repairs ─────────────────────────────────────────────────────────────────

type memRepairRepo struct{ s *memStore }

func (r memRepairRepo) Create(_ context.Context, rep *model.Repair) error {
	if err := r.s.fail("repair.Create"); err != nil {
		return err
	}
	rep.ID = r.s.nextID()
	rep.CreatedAt = r.s.tick()
	r.s.repairs[rep.ID] = *rep
	return nil
}

func (r memRepairRepo) Update(_ context.Context, rep *model.Repair) error {
	if err := r.s.fail("repair.Update"); err != nil {
		return err
	}
	r.s.repairs[rep.ID] = *rep
	return nil
}

func (r memRepairRepo) UpdateState(_ context.Context, id uint, state string) error {
	if err := r.s.fail("repair.UpdateState"); err != nil {
		return err
	}
	rep := r.s.repairs[id]
	rep.State = state
	r.s.repairs[id] = rep
	return nil
}

func (r memRepairRepo) Deactivate(_ context.Context, id uint) error {
	rep := r.s.repairs[id]
	rep.Active = false
	r.s.repairs[id] = rep
	return nil
}

func (r memRepairRepo) FindByID(_ context.Context, id uint) (*model.Repair, error) {
	rep, ok := r.s.repairs[id]
	if !ok || !rep.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return &rep, nil
}

func (r memRepairRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Repair, error) {
	return r.FindByID(ctx, id)
}

func (r memRepairRepo) List(_ context.Context, f repository.RepairFilter) ([]model.Repair, int64, error) {
	var rows []model.Repair
	for _, rep := range r.s.repairs {
		if !rep.Active || (f.State != "" && rep.State != f.State) {
			continue
		}
		if f.Customer != "" && !strings.Contains(strings.ToLower(rep.CustomerName), strings.ToLower(f.Customer)) {
			continue
		}
		rows = append(rows, rep)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), nil
}

type memRepairHistoryRepo struct{ s *memStore }

func (r memRepairHistoryRepo) Create(_ context.Context, h *model.RepairHistory) error {
	if err := r.s.fail("history.Create"); err != nil {
		return err
	}
	h.ID = r.s.nextID()
	h.CreatedAt = r.s.tick()
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r memRepairHistoryRepo) ListByRepair(_ context.Context, repairID uint) ([]model.RepairHistory, error) {
	var rows []model.RepairHistory
	for _, h := range r.s.history {
		if h.RepairID == repairID {
			rows = append(rows, h)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows, nil
}

// ── Orders ──────────────────────────────────────────────────────────────────

type memOrderRepo struct{ s *memStore }

func (r memOrderRepo) Create(_ context.Context, o *model.Order) error {
	if err := r.s.fail("order.Create"); err != nil {
		return err
	}
	o.ID = r.s.nextID()
	o.CreatedAt = r.s.tick()
	header := *o
	header.Items = nil
	r.s.orders[o.ID] = header
	return nil
}

func (r memOrderRepo) CreateItem(_ context.Context, item *model.OrderItem) error {
	if err := r.s.fail("order.CreateItem"); err != nil {
		return err
	}
	item.ID = r.s.nextID()
	r.s.items = append(r.s.items, *item)
	return nil
}

func (r memOrderRepo) CreateStageHistory(_ context.Context, h *model.OrderStageHistory) error {
	if err := r.s.fail("order.CreateStageHistory"); err != nil {
		return err
	}
	h.ID = r.s.nextID()
	h.CreatedAt = r.s.tick()
	r.s.stages = append(r.s.stages, *h)
	return nil
}

func (r memOrderRepo) withItems(o model.Order) model.Order {
	o.Items = nil
	for _, item := range r.s.items {
		if item.OrderID == o.ID {
			o.Items = append(o.Items, item)
		}
	}
	return o
}

func (r memOrderRepo) FindByIDWithItems(_ context.Context, id uint) (*model.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	o = r.withItems(o)
	return &o, nil
}

func (r memOrderRepo) FindByIDForUpdate(_ context.Context, id uint) (*model.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (r memOrderRepo) ListCreatedOn(_ context.Context, day time.Time) ([]model.Order, error) {
	var rows []model.Order
	for _, o := range r.s.orders {
		if !o.CreatedAt.Before(day) && o.CreatedAt.Before(day.AddDate(0, 0, 1)) {
			rows = append(rows, r.withItems(o))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return rows, nil
}

func (r memOrderRepo) List(_ context.Context, page, limit int) ([]model.Order, int64, error) {
	var rows []model.Order
	for _, o := range r.s.orders {
		rows = append(rows, r.withItems(o))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return paginate(rows, page, limit), int64(len(rows)), nil
}

func (r memOrderRepo) ListStageHistory(_ context.Context, orderID uint) ([]model.OrderStageHistory, error) {
	var rows []model.OrderStageHistory
	for _, h := range r.s.stages {
		if h.OrderID == orderID {
			rows = append(rows, h)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return rows, nil
}

func (r memOrderRepo) UpdateStage(_ context.Context, id uint, stage string) error {
	if err := r.s.fail("order.UpdateStage"); err != nil {
		return err
	}
	o := r.s.orders[id]
	o.Stage = stage
	r.s.orders[id] = o
	return nil
}

func (r memOrderRepo) Delete(_ context.Context, id uint) error {
	var stages []model.OrderStageHistory
	for _, h := range r.s.stages {
		if h.OrderID != id {
			stages = append(stages, h)
		}
	}
	r.s.stages = stages

	var items []model.OrderItem
	for _, item := range r.s.items {
		if item.OrderID != id {
			items = append(items, item)
		}
	}
	r.s.items = items

	if err := r.s.fail("order.Delete"); err != nil {
		return err
	}
	delete(r.s.orders, id)
	return nil
}

// ── Audit ───────────────────────────────────────────────────────────────────

type memAuditRepo struct{ s *memStore }

func (r memAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if err := r.s.fail("audit.Log"); err != nil {
		return err
	}
	entry.ID = uuid.New()
	entry.CreatedAt = r.s.tick()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r memAuditRepo) List(_ context.Context, f repository.AuditFilter) ([]model.AuditLog, int64, error) {
	if err := r.s.fail("audit.List"); err != nil {
		return nil, 0, err
	}
	var rows []model.AuditLog
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		a := r.s.audits[i]
		if f.EntityType != "" && a.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != "" && a.EntityID != f.EntityID {
			continue
		}
		rows = append(rows, a)
	}
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), nil
}

func (s *memStore) auditActions() []string {
	actions := make([]string, 0, len(s.audits))
	for _, a := range s.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

// ── Fixture ─────────────────────────────────────────────────────────────────

type fakeRenderer struct {
	rendered []model.Receipt
	err      error
}

func (f *fakeRenderer) Render(r model.Receipt) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rendered = append(f.rendered, r)
	return []byte("%PDF-1.3 fake"), nil
}

type fixture struct {
	store     *memStore
	materials MaterialService
	usage     UsageService
	tools     ToolService
	repairs   RepairService
	orders    OrderService
	audit     AuditService
	renderer  *fakeRenderer
}

func newFixture() *fixture {
	s := newMemStore()
	now = s.tick
	tx := memTxManager{s: s}
	materialRepo := memMaterialRepo{s: s}
	usageRepo := memUsageRepo{s: s}
	auditRepo := memAuditRepo{s: s}

	materials := NewMaterialService(materialRepo, memMovementRepo{s: s}, usageRepo, auditRepo, tx)
	usage := NewUsageService(usageRepo, materialRepo, auditRepo, tx)
	renderer := &fakeRenderer{}

	return &fixture{
		store:     s,
		materials: materials,
		usage:     usage,
		tools:     NewToolService(memToolRepo{s: s}, auditRepo, tx),
		repairs:   NewRepairService(memRepairRepo{s: s}, memRepairHistoryRepo{s: s}, auditRepo, tx, materials, usage, renderer),
		orders:    NewOrderService(memOrderRepo{s: s}, auditRepo, tx),
		audit:     NewAuditService(auditRepo),
		renderer:  renderer,
	}
}
