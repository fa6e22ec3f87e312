package approval

import (
	"context"
	"fmt"
	"strings"

	"fin_flow/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"
)

// Creator records new money movements in Pending and manages AutoPay.
type Creator struct {
	*engine
}

// NewCreator creates a Creator
func NewCreator(d Deps) *Creator {
	return &Creator{engine: newEngine(d)}
}

// CollectionInput is a new money-in event
type CollectionInput struct {
	CollectedBy      uint
	AssignedReceiver *uint
	Amount           decimal.Decimal
	Mode             domain.Mode
	CustomerName     string
	Notes            string
}

// CreateCollection stores a Pending collection. When AutoPay is enabled for
// the mode, the configured account becomes the receiver regardless of the
// requested assignment.
func (c *Creator) CreateCollection(ctx context.Context, in CollectionInput) (*domain.Collection, error) {
	if in.CollectedBy == 0 {
		return nil, fmt.Errorf("%w: collector is required", domain.ErrValidation)
	}
	if err := validateMoney(in.Amount, in.Mode); err != nil {
		return nil, err
	}

	receiver := in.AssignedReceiver
	setting, err := c.autoPayFor(ctx, in.Mode)
	if err != nil {
		return nil, err
	}
	if setting != nil {
		id := setting.ReceiverID
		receiver = &id
		logrus.WithFields(logrus.Fields{
			"mode":        in.Mode,
			"receiver_id": id,
		}).Debug("AutoPay redirected collection receiver")
	}

	collectedBy := in.CollectedBy
	col := domain.Collection{
		VoucherNumber:    newVoucher("COL"),
		CollectedBy:      &collectedBy,
		AssignedReceiver: receiver,
		Amount:           in.Amount,
		Mode:             in.Mode,
		CustomerName:     in.CustomerName,
		Notes:            in.Notes,
		Status:           domain.StatusPending,
	}
	if err := c.db.WithContext(ctx).Create(&col).Error; err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	c.created(ctx, domain.EntityCollection, col.ID, in.CollectedBy, col, "Created collection "+col.VoucherNumber)
	return &col, nil
}

// TransactionInput is a new peer transfer request
type TransactionInput struct {
	SenderID   uint
	ReceiverID uint
	Amount     decimal.Decimal
	Mode       domain.Mode
	Purpose    string
}

// CreateTransaction stores a Pending transfer
func (c *Creator) CreateTransaction(ctx context.Context, in TransactionInput) (*domain.Transaction, error) {
	if in.SenderID == 0 || in.ReceiverID == 0 {
		return nil, fmt.Errorf("%w: sender and receiver are required", domain.ErrValidation)
	}
	if in.SenderID == in.ReceiverID {
		return nil, fmt.Errorf("%w: cannot transfer to yourself", domain.ErrValidation)
	}
	if err := validateMoney(in.Amount, in.Mode); err != nil {
		return nil, err
	}
	tr := domain.Transaction{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Amount:     in.Amount,
		Mode:       in.Mode,
		Purpose:    in.Purpose,
		Status:     domain.StatusPending,
	}
	if err := c.db.WithContext(ctx).Create(&tr).Error; err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	c.created(ctx, domain.EntityTransaction, tr.ID, in.SenderID, tr, fmt.Sprintf("Created transaction %d", tr.ID))
	return &tr, nil
}

// ExpenseInput is a new expense claim
type ExpenseInput struct {
	SpentBy     uint
	Amount      decimal.Decimal
	Mode        domain.Mode
	Category    string
	Description string
}

// CreateExpense stores a Pending expense
func (c *Creator) CreateExpense(ctx context.Context, in ExpenseInput) (*domain.Expense, error) {
	if in.SpentBy == 0 {
		return nil, fmt.Errorf("%w: spender is required", domain.ErrValidation)
	}
	if err := validateMoney(in.Amount, in.Mode); err != nil {
		return nil, err
	}
	e := domain.Expense{
		SpentBy:     in.SpentBy,
		Amount:      in.Amount,
		Mode:        in.Mode,
		Category:    in.Category,
		Description: in.Description,
		Status:      domain.StatusPending,
	}
	if err := c.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	c.created(ctx, domain.EntityExpense, e.ID, in.SpentBy, e, fmt.Sprintf("Created expense %d", e.ID))
	return &e, nil
}

// SetAutoPay upserts the AutoPay setting of a mode
func (c *Creator) SetAutoPay(ctx context.Context, mode domain.Mode, receiverID uint, enabled bool, actorID uint) (*domain.AutoPaySetting, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown payment mode %q", domain.ErrValidation, mode)
	}
	if enabled && receiverID == 0 {
		return nil, fmt.Errorf("%w: AutoPay needs a receiver", domain.ErrValidation)
	}
	setting := domain.AutoPaySetting{Mode: mode, ReceiverID: receiverID, Enabled: enabled, UpdatedBy: actorID}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mode"}},
		DoUpdates: clause.AssignmentColumns([]string{"receiver_id", "enabled", "updated_by", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return nil, fmt.Errorf("save AutoPay for %s: %w", mode, err)
	}
	var saved domain.AutoPaySetting
	if err := c.db.WithContext(ctx).Where("mode = ?", mode).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload AutoPay for %s: %w", mode, err)
	}
	c.created(ctx, domain.EntityAutoPay, saved.ID, actorID, saved, fmt.Sprintf("Set AutoPay for %s", mode))
	return &saved, nil
}

// AutoPaySettings lists every AutoPay setting
func (c *Creator) AutoPaySettings(ctx context.Context) ([]domain.AutoPaySetting, error) {
	var out []domain.AutoPaySetting
	if err := c.db.WithContext(ctx).Order("id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list AutoPay settings: %w", err)
	}
	return out, nil
}

func (c *Creator) autoPayFor(ctx context.Context, mode domain.Mode) (*domain.AutoPaySetting, error) {
	var settings []domain.AutoPaySetting
	err := c.db.WithContext(ctx).Where("mode = ? AND enabled = ?", mode, true).Limit(1).Find(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("look up AutoPay for %s: %w", mode, err)
	}
	if len(settings) == 0 || settings[0].ReceiverID == 0 {
		return nil, nil
	}
	return &settings[0], nil
}

func (c *Creator) created(ctx context.Context, entity domain.Entity, id, actorID uint, after any, summary string) {
	status := domain.StatusPending
	if entity == domain.EntityAutoPay {
		status = ""
	}
	ch := &change{entity: entity, id: id, event: domain.EventCreate, actorID: actorID}
	ch.record(nil, after, status, summary)
	logrus.WithFields(logrus.Fields{
		"entity":   entity,
		"id":       id,
		"actor_id": actorID,
	}).Info(summary)
	c.publish(ctx, ch)
}

func validateMoney(amount decimal.Decimal, mode domain.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown payment mode %q", domain.ErrValidation, mode)
	}
	return domain.ValidateAmount(amount)
}

// newVoucher returns a prefix plus twelve upper-case hex digits
func newVoucher(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:12])
}
