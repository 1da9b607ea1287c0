// Package payments is the application core: it provisions wallets, quotes
// subscription plans in crypto, verifies on-chain payments and maintains
// the resulting subscriptions.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

const (
	// sweepInterval paces the background maintenance pass.
	sweepInterval = 5 * time.Minute
	// sweepLockName guards the sweep so only one instance runs it.
	sweepLockName = "payments-sweep"
	sweepLockTTL  = 4 * time.Minute
)

type Service struct {
	logger *logger.Logger

	repo        models.Repository
	chains      models.BlockchainService
	generator   models.WalletGenerator
	rateSource  models.RateSource
	notificator models.NotificationService

	instanceID string
	now        func() time.Time
}

// NewService wires the application core. notificator may be nil when no
// operator channel is configured.
func NewService(
	repo models.Repository,
	chains models.BlockchainService,
	generator models.WalletGenerator,
	rateSource models.RateSource,
	notificator models.NotificationService,
	log *logger.Logger,
) *Service {
	return &Service{
		logger:      log,
		repo:        repo,
		chains:      chains,
		generator:   generator,
		rateSource:  rateSource,
		notificator: notificator,
		instanceID:  uuid.NewString(),
		now:         time.Now,
	}
}

// Start runs the background sweeps until ctx is cancelled: expiring stale
// payment quotes and advancing pending transactions whose confirmations
// have accrued since they were last seen.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Payment sweeps stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	acquired, err := s.repo.TryAcquireLock(ctx, sweepLockName, s.instanceID, sweepLockTTL)
	if err != nil {
		s.logger.Error("Failed to acquire sweep lock ", "error ", err)
		return
	}
	if !acquired {
		s.logger.Debug("Sweep lock held elsewhere, skipping")
		return
	}
	defer func() {
		if err := s.repo.ReleaseLock(ctx, sweepLockName, s.instanceID); err != nil {
			s.logger.Error("Failed to release sweep lock ", "error ", err)
		}
	}()

	expired, err := s.repo.ExpirePaymentsBefore(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to expire stale payments ", "error ", err)
	} else if expired > 0 {
		s.logger.Info("Expired stale payments ", "count ", expired)
	}

	s.refreshPendingTransactions(ctx)
}

// refreshPendingTransactions re-checks every pending transaction and, for
// those that have reached finality, applies the payment completion that a
// client verify or webhook would otherwise have to trigger.
func (s *Service) refreshPendingTransactions(ctx context.Context) {
	pending, err := s.repo.GetPendingTransactions(ctx)
	if err != nil {
		s.logger.Error("Failed to load pending transactions ", "error ", err)
		return
	}
	for _, tx := range pending {
		result, err := s.chains.IsTransactionConfirmed(ctx, tx.Chain, tx.TxHash, 0)
		if err != nil {
			s.logger.Error("Failed to check pending transaction ", "tx ", tx.TxHash, " error ", err)
			continue
		}
		switch result.State {
		case models.StateUnknown:
			// Lookup failed; leave the row untouched for the next pass.
			continue
		case models.StatePending:
			if err := s.repo.UpdateTransactionConfirmations(ctx, tx.ID, result.Confirmations, models.TxStatusPending); err != nil {
				s.logger.Error("Failed to refresh confirmations ", "tx ", tx.TxHash, " error ", err)
			}
		case models.StateConfirmed:
			if err := s.repo.UpdateTransactionConfirmations(ctx, tx.ID, result.Confirmations, models.TxStatusConfirmed); err != nil {
				s.logger.Error("Failed to confirm transaction ", "tx ", tx.TxHash, " error ", err)
				continue
			}
			if err := s.applyCompletedPayment(ctx, tx.UserID, tx.Chain, tx.ID, tx.TxHash, result); err != nil {
				s.logger.Error("Failed to apply confirmed payment ", "tx ", tx.TxHash, " error ", err)
			}
		}
	}
}

// ----- wallets -----

// EnsureUserWallets provisions one wallet per supported chain, continuing
// past per-chain failures so one failing derivation does not block the
// others. It errors only when no wallet could be provisioned at all.
func (s *Service) EnsureUserWallets(ctx context.Context, userID uint) ([]*models.Wallet, error) {
	var (
		wallets []*models.Wallet
		lastErr error
	)
	for _, chain := range models.SupportedChains() {
		wallet, err := s.ensureWallet(ctx, userID, chain)
		if err != nil {
			s.logger.Error("Failed to provision wallet ", "user ", userID, " chain ", chain, " error ", err)
			lastErr = err
			continue
		}
		wallets = append(wallets, wallet)
	}
	if len(wallets) == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to provision any wallet: %w", lastErr)
	}
	return wallets, nil
}

// ensureWallet fetches the user's wallet for chain, deriving and storing
// one if it does not exist yet.
func (s *Service) ensureWallet(ctx context.Context, userID uint, chain models.Chain) (*models.Wallet, error) {
	wallet, err := s.repo.GetWalletByUserAndChain(ctx, userID, chain)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	generated, err := s.generator.Generate(chain, userID)
	if err != nil {
		return nil, fmt.Errorf("wallet derivation failed: %w", err)
	}
	wallet = &models.Wallet{
		UserID:              userID,
		Chain:               chain,
		Address:             generated.Address,
		PublicKey:           generated.PublicKey,
		EncryptedPrivateKey: generated.EncryptedPrivateKey,
		EncryptedMnemonic:   generated.EncryptedMnemonic,
		Active:              true,
	}
	if err := s.repo.AddWallet(ctx, wallet); err != nil {
		// Derivation is deterministic, so a unique-address collision means
		// a concurrent request won the race; fall back to its row.
		if existing, getErr := s.repo.GetWalletByUserAndChain(ctx, userID, chain); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	s.logger.Info("Wallet provisioned ", "user ", userID, " chain ", chain, " address ", wallet.Address)
	return wallet, nil
}

func (s *Service) GetUserWallets(ctx context.Context, userID uint) ([]*models.Wallet, error) {
	return s.repo.GetWalletsByUser(ctx, userID)
}

func (s *Service) GetWallet(ctx context.Context, userID, walletID uint) (*models.Wallet, error) {
	wallet, err := s.repo.GetWalletByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrWalletNotFound
		}
		return nil, err
	}
	if wallet.UserID != userID {
		return nil, models.ErrWalletNotFound
	}
	return wallet, nil
}

func (s *Service) GetWalletByChain(ctx context.Context, userID uint, chain models.Chain) (*models.Wallet, error) {
	wallet, err := s.repo.GetWalletByUserAndChain(ctx, userID, chain)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrWalletNotFound
		}
		return nil, err
	}
	return wallet, nil
}

func (s *Service) DeactivateWallet(ctx context.Context, userID, walletID uint) error {
	if _, err := s.GetWallet(ctx, userID, walletID); err != nil {
		return err
	}
	return s.repo.SetWalletActive(ctx, walletID, false)
}

// ----- payment requests -----

// CreatePaymentRequest quotes a plan in the chosen chain's native asset
// and opens a pending payment with a 24-hour expiry.
func (s *Service) CreatePaymentRequest(ctx context.Context, userID uint, planID string, chain models.Chain) (*models.Payment, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrPlanNotFound
		}
		return nil, err
	}

	wallet, err := s.ensureWallet(ctx, userID, chain)
	if err != nil {
		return nil, err
	}
	if !wallet.Active {
		return nil, models.ErrWalletInactive
	}

	rate, err := s.repo.GetExchangeRate(ctx, chain)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrRateUnavailable
		}
		return nil, err
	}

	now := s.now()
	payment := &models.Payment{
		ReferenceID:   uuid.NewString(),
		UserID:        userID,
		PlanID:        plan.ID,
		Chain:         chain,
		WalletID:      wallet.ID,
		WalletAddress: wallet.Address,
		AmountUSD:     plan.PriceUSD,
		AmountCrypto:  models.QuoteCrypto(plan.PriceUSD, rate.USDPrice),
		Status:        models.PaymentStatusPending,
		ExpiresAt:     now.Add(models.PaymentTTL),
	}
	if err := s.repo.AddPayment(ctx, payment); err != nil {
		return nil, err
	}
	s.logger.Info("Payment request created ", "user ", userID, " plan ", plan.ID,
		" chain ", chain, " amount ", payment.AmountCrypto.String(), " ref ", payment.ReferenceID)
	return payment, nil
}

func (s *Service) GetPendingPayments(ctx context.Context, userID uint) ([]*models.Payment, error) {
	return s.repo.GetPendingPaymentsByUser(ctx, userID)
}

// ----- verification -----

// VerifyPayment checks a client-submitted transaction hash. A hash already
// on file short-circuits to the stored status: the same hash can never
// create two transaction rows or extend a subscription twice.
func (s *Service) VerifyPayment(ctx context.Context, userID uint, txHash string, chain models.Chain, walletID uint) (*models.VerificationResult, error) {
	wallet, err := s.GetWallet(ctx, userID, walletID)
	if err != nil {
		return nil, err
	}
	if wallet.Chain != chain {
		return nil, models.ErrWalletNotFound
	}
	return s.verifyAndApply(ctx, wallet, txHash)
}

// HandlePaymentWebhook applies the same completion logic for a monitor
// notification, resolving the wallet by deposit address.
func (s *Service) HandlePaymentWebhook(ctx context.Context, notif *models.WebhookNotification) (*models.VerificationResult, error) {
	chain, err := models.ParseChain(notif.Chain)
	if err != nil {
		return nil, err
	}
	wallet, err := s.repo.GetWalletByAddress(ctx, notif.WalletAddress)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrWalletNotFound
		}
		return nil, err
	}
	if wallet.Chain != chain {
		return nil, models.ErrWalletNotFound
	}
	// The monitor's confirmation count is advisory; the chain is always
	// re-queried before any state changes.
	return s.verifyAndApply(ctx, wallet, notif.TransactionHash)
}

func (s *Service) verifyAndApply(ctx context.Context, wallet *models.Wallet, txHash string) (*models.VerificationResult, error) {
	existing, err := s.repo.GetTransactionByHash(ctx, txHash)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		// Seen before: report the stored status without touching the chain
		// or the subscription. Repeat webhook deliveries land here.
		return storedResult(existing), nil
	}

	result, err := s.chains.IsTransactionConfirmed(ctx, wallet.Chain, txHash, 0)
	if err != nil {
		return nil, err
	}

	switch result.State {
	case models.StateUnknown:
		// Lookup failed: report unknown without persisting anything, so a
		// later attempt starts from a clean slate.
		return &models.VerificationResult{
			State:   models.StateUnknown,
			Status:  models.TxStatusPending,
			Message: "transaction status could not be determined, try again later",
		}, nil

	case models.StatePending:
		tx := transactionFromResult(wallet, txHash, result, models.TxStatusPending)
		if err := s.repo.AddTransaction(ctx, tx); err != nil {
			return nil, err
		}
		needed := int64(result.Required) - result.Confirmations
		return &models.VerificationResult{
			State:         models.StatePending,
			Status:        models.TxStatusPending,
			Confirmations: result.Confirmations,
			Message:       fmt.Sprintf("transaction needs %d more confirmations", needed),
		}, nil

	default: // confirmed
		tx := transactionFromResult(wallet, txHash, result, models.TxStatusConfirmed)
		if err := s.repo.AddTransaction(ctx, tx); err != nil {
			// A concurrent verify for the same hash beat us to the insert;
			// the uniqueness constraint makes this a no-op.
			if dup, getErr := s.repo.GetTransactionByHash(ctx, txHash); getErr == nil {
				return storedResult(dup), nil
			}
			return nil, err
		}
		if err := s.applyCompletedPayment(ctx, wallet.UserID, wallet.Chain, tx.ID, txHash, result); err != nil {
			return nil, err
		}
		return &models.VerificationResult{
			Verified:      true,
			State:         models.StateConfirmed,
			Status:        models.TxStatusConfirmed,
			Confirmations: result.Confirmations,
			Message:       "payment confirmed",
		}, nil
	}
}

// applyCompletedPayment closes the user's most recent pending payment on
// the chain and grants the subscription period the plan declares.
func (s *Service) applyCompletedPayment(ctx context.Context, userID uint, chain models.Chain, txID uint, txHash string, result *models.ConfirmationResult) error {
	now := s.now()

	// Lazy expiry: quotes past their deadline drop out before the lookup.
	if _, err := s.repo.ExpirePaymentsBefore(ctx, now); err != nil {
		s.logger.Error("Failed to expire stale payments ", "error ", err)
	}

	payment, err := s.repo.GetLatestPendingPayment(ctx, userID, chain)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Confirmed transaction without a pending payment ", "user ", userID, " tx ", txHash)
			return nil
		}
		return err
	}

	if err := s.repo.CompletePayment(ctx, payment.ID, txHash, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Lost the race against a concurrent completion; nothing to do.
			return nil
		}
		return err
	}
	if err := s.repo.LinkTransactionPayment(ctx, txID, payment.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("Failed to link transaction to payment ", "error ", err)
	}

	if err := s.grantSubscription(ctx, payment); err != nil {
		return err
	}

	if s.notificator != nil {
		notification := &models.PaymentNotification{
			UserID:      userID,
			PlanID:      payment.PlanID,
			Chain:       chain,
			TxHash:      txHash,
			Amount:      result.Amount,
			ReferenceID: payment.ReferenceID,
		}
		go s.notificator.SendPaymentNotification(notification)
	}

	s.logger.Info("Payment completed ", "user ", userID, " plan ", payment.PlanID, " tx ", txHash)
	return nil
}

func (s *Service) grantSubscription(ctx context.Context, payment *models.Payment) error {
	plan, err := s.repo.GetPlan(ctx, payment.PlanID)
	if err != nil {
		return fmt.Errorf("failed to load plan %q: %w", payment.PlanID, err)
	}
	interval := time.Duration(plan.BillingIntervalDays) * 24 * time.Hour
	now := s.now()

	sub, err := s.repo.GetActiveSubscription(ctx, payment.UserID, payment.PlanID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		return s.repo.CreateSubscription(ctx, &models.Subscription{
			UserID:   payment.UserID,
			PlanID:   payment.PlanID,
			Status:   models.SubStatusActive,
			StartsAt: now,
			EndsAt:   now.Add(interval),
		})
	}

	// Extend from the current end if still running, from now if lapsed.
	base := sub.EndsAt
	if base.Before(now) {
		base = now
	}
	return s.repo.ExtendSubscription(ctx, sub.ID, base.Add(interval))
}

// ----- transactions -----

func (s *Service) GetUserTransactions(ctx context.Context, userID uint) ([]*models.Transaction, error) {
	return s.repo.GetTransactionsByUser(ctx, userID)
}

func (s *Service) GetTransaction(ctx context.Context, userID, txID uint) (*models.Transaction, error) {
	tx, err := s.repo.GetTransactionByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, models.ErrNotFound
	}
	return tx, nil
}

// ----- exchange rates -----

// UpdateExchangeRates fetches fresh USD prices and upserts them per chain
// in one transaction, so readers never observe a missing rate.
func (s *Service) UpdateExchangeRates(ctx context.Context) error {
	fetched, err := s.rateSource.FetchUSDRates(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	now := s.now()
	rates := make([]*models.ExchangeRate, 0, len(fetched))
	for _, chain := range models.SupportedChains() {
		price, ok := fetched[chain]
		if !ok {
			continue
		}
		rates = append(rates, &models.ExchangeRate{
			Chain:     chain,
			USDPrice:  price,
			FetchedAt: now,
		})
	}
	if len(rates) == 0 {
		return fmt.Errorf("rate source returned no usable rates")
	}
	if err := s.repo.UpsertExchangeRates(ctx, rates); err != nil {
		return err
	}
	s.logger.Info("Exchange rates updated ", "chains ", len(rates))
	return nil
}

// ----- helpers -----

func storedResult(tx *models.Transaction) *models.VerificationResult {
	result := &models.VerificationResult{
		Status:        tx.Status,
		Confirmations: tx.Confirmations,
	}
	switch tx.Status {
	case models.TxStatusConfirmed:
		result.Verified = true
		result.State = models.StateConfirmed
		result.Message = "transaction already processed"
	case models.TxStatusFailed:
		result.State = models.StateConfirmed
		result.Message = "transaction failed on chain"
	default:
		result.State = models.StatePending
		result.Message = "transaction is awaiting confirmations"
	}
	return result
}

func transactionFromResult(wallet *models.Wallet, txHash string, result *models.ConfirmationResult, status models.TransactionStatus) *models.Transaction {
	return &models.Transaction{
		TxHash:        txHash,
		UserID:        wallet.UserID,
		WalletID:      wallet.ID,
		Chain:         wallet.Chain,
		Amount:        result.Amount,
		Fee:           result.Fee,
		Confirmations: result.Confirmations,
		BlockHeight:   result.BlockHeight,
		BlockTime:     result.BlockTime,
		FromAddress:   result.From,
		ToAddress:     result.To,
		Status:        status,
	}
}
