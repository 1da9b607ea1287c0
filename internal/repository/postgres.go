package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Wallet{},
		&models.Transaction{},
		&models.Payment{},
		&models.Plan{},
		&models.Subscription{},
		&models.ExchangeRate{},
		&models.AppLock{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
	}

	repo := &PostgresDB{Conn: db, logger: logger}
	if err := repo.seedPlans(); err != nil {
		return nil, fmt.Errorf("failed to seed plans: %w", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return repo, nil
}

// seedPlans installs the plan catalogue on an empty database.
func (db *PostgresDB) seedPlans() error {
	var count int64
	if err := db.Conn.Model(&models.Plan{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	plans := []*models.Plan{
		{ID: "starter-monthly", Name: "Starter (monthly)", PriceUSD: decimal.RequireFromString("9.99"), BillingIntervalDays: 30, Active: true},
		{ID: "pro-monthly", Name: "Pro (monthly)", PriceUSD: decimal.RequireFromString("19.99"), BillingIntervalDays: 30, Active: true},
		{ID: "pro-yearly", Name: "Pro (yearly)", PriceUSD: decimal.RequireFromString("199.99"), BillingIntervalDays: 365, Active: true},
	}
	return db.Conn.Create(&plans).Error
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

// notFound maps gorm's sentinel onto the service-level one.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

// ----- wallets -----

func (db *PostgresDB) AddWallet(ctx context.Context, wallet *models.Wallet) error {
	if err := db.Conn.WithContext(ctx).Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetWalletByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := db.Conn.WithContext(ctx).First(&wallet, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &wallet, nil
}

func (db *PostgresDB) GetWalletByUserAndChain(ctx context.Context, userID uint, chain models.Chain) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := db.Conn.WithContext(ctx).
		Where("user_id = ? AND chain = ?", userID, chain).
		First(&wallet).Error; err != nil {
		return nil, notFound(err)
	}
	return &wallet, nil
}

func (db *PostgresDB) GetWalletByAddress(ctx context.Context, address string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := db.Conn.WithContext(ctx).
		Where("address = ?", address).
		First(&wallet).Error; err != nil {
		return nil, notFound(err)
	}
	return &wallet, nil
}

func (db *PostgresDB) GetWalletsByUser(ctx context.Context, userID uint) ([]*models.Wallet, error) {
	var wallets []*models.Wallet
	if err := db.Conn.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("chain").
		Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (db *PostgresDB) SetWalletActive(ctx context.Context, id uint, active bool) error {
	res := db.Conn.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update wallet active flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) UpdateWalletBalance(ctx context.Context, id uint, balance decimal.Decimal) error {
	if err := db.Conn.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", id).
		Update("balance", balance).Error; err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	return nil
}

// ----- transactions -----

func (db *PostgresDB) AddTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := db.Conn.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetTransactionByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Conn.WithContext(ctx).
		Where("tx_hash = ?", txHash).
		First(&tx).Error; err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

func (db *PostgresDB) GetTransactionByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Conn.WithContext(ctx).First(&tx, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

func (db *PostgresDB) GetTransactionsByUser(ctx context.Context, userID uint) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	if err := db.Conn.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (db *PostgresDB) GetPendingTransactions(ctx context.Context) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	if err := db.Conn.WithContext(ctx).
		Where("status = ?", models.TxStatusPending).
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	return txs, nil
}

func (db *PostgresDB) UpdateTransactionConfirmations(ctx context.Context, id uint, confirmations int64, status models.TransactionStatus) error {
	// Confirmed rows are immutable; only pending ones may be refreshed.
	res := db.Conn.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TxStatusPending).
		Updates(map[string]interface{}{
			"confirmations": confirmations,
			"status":        status,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction confirmations: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) LinkTransactionPayment(ctx context.Context, txID, paymentID uint) error {
	res := db.Conn.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND payment_id IS NULL", txID).
		Update("payment_id", paymentID)
	if res.Error != nil {
		return fmt.Errorf("failed to link transaction to payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ----- payments -----

func (db *PostgresDB) AddPayment(ctx context.Context, payment *models.Payment) error {
	if err := db.Conn.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetPaymentByReference(ctx context.Context, referenceID string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Conn.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		First(&payment).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (db *PostgresDB) GetLatestPendingPayment(ctx context.Context, userID uint, chain models.Chain) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Conn.WithContext(ctx).
		Where("user_id = ? AND chain = ? AND status = ?", userID, chain, models.PaymentStatusPending).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (db *PostgresDB) GetPendingPaymentsByUser(ctx context.Context, userID uint) ([]*models.Payment, error) {
	var payments []*models.Payment
	if err := db.Conn.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.PaymentStatusPending).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	return payments, nil
}

func (db *PostgresDB) CompletePayment(ctx context.Context, paymentID uint, txHash string, completedAt time.Time) error {
	// Guarding on the pending status makes pending->completed a one-shot
	// transition even under concurrent webhook deliveries.
	res := db.Conn.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":       models.PaymentStatusCompleted,
			"tx_hash":      txHash,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) MarkPaymentFailed(ctx context.Context, paymentID uint) error {
	if err := db.Conn.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed).Error; err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

func (db *PostgresDB) ExpirePaymentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := db.Conn.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status = ? AND expires_at < ?", models.PaymentStatusPending, cutoff).
		Update("status", models.PaymentStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire payments: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ----- plans & subscriptions -----

func (db *PostgresDB) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	var plan models.Plan
	if err := db.Conn.WithContext(ctx).
		Where("id = ? AND active = ?", planID, true).
		First(&plan).Error; err != nil {
		return nil, notFound(err)
	}
	return &plan, nil
}

func (db *PostgresDB) GetActiveSubscription(ctx context.Context, userID uint, planID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := db.Conn.WithContext(ctx).
		Where("user_id = ? AND plan_id = ? AND status = ?", userID, planID, models.SubStatusActive).
		First(&sub).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (db *PostgresDB) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if err := db.Conn.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (db *PostgresDB) ExtendSubscription(ctx context.Context, id uint, newEnd time.Time) error {
	res := db.Conn.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ends_at": newEnd,
			"status":  models.SubStatusActive,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to extend subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ----- exchange rates -----

func (db *PostgresDB) UpsertExchangeRates(ctx context.Context, rates []*models.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}
	// One transaction, upsert per chain: readers never observe a window
	// with no rate for a chain.
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rate := range rates {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "chain"}},
				DoUpdates: clause.AssignmentColumns([]string{"usd_price", "fetched_at", "updated_at"}),
			}).Create(rate).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rates: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetExchangeRate(ctx context.Context, chain models.Chain) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	if err := db.Conn.WithContext(ctx).
		Where("chain = ?", chain).
		First(&rate).Error; err != nil {
		return nil, notFound(err)
	}
	return &rate, nil
}

// ----- app locks -----

func (db *PostgresDB) TryAcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now().Unix()
	res := db.Conn.WithContext(ctx).Exec(`
		INSERT INTO app_locks (lock_name, instance_id, acquired_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (lock_name) DO UPDATE
		SET instance_id = EXCLUDED.instance_id,
		    acquired_at = EXCLUDED.acquired_at,
		    expires_at  = EXCLUDED.expires_at
		WHERE app_locks.expires_at < ? OR app_locks.instance_id = EXCLUDED.instance_id`,
		name, instanceID, now, now+int64(ttl.Seconds()), now)
	if res.Error != nil {
		return false, fmt.Errorf("failed to acquire lock %q: %w", name, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (db *PostgresDB) ReleaseLock(ctx context.Context, name, instanceID string) error {
	if err := db.Conn.WithContext(ctx).
		Where("lock_name = ? AND instance_id = ?", name, instanceID).
		Delete(&models.AppLock{}).Error; err != nil {
		return fmt.Errorf("failed to release lock %q: %w", name, err)
	}
	return nil
}
