package service

import (
	"context"
	"fmt"

	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/auth"
	"riddlen/riddle-service/pkg/helpers"
	"riddlen/riddle-service/pkg/logger"
)

// LedgerService manages the spendable credit supply: pool-capped minting,
// burn-protocol spends, and peer transfers.
type LedgerService interface {
	// Credit mints amount into the account from the named pool. Admins may
	// mint from any pool; oracles only from the airdrop pool.
	Credit(ctx context.Context, caller auth.Caller, address string, amount int64, bucket string) error

	// Debit burns the caller's own credit through the distribution
	// protocol and returns the recorded split.
	Debit(ctx context.Context, caller auth.Caller, amount int64, reference string) (*models.BurnDistribution, error)

	// Transfer moves spendable credit from the caller to another account.
	Transfer(ctx context.Context, caller auth.Caller, to string, amount int64) error

	Balance(ctx context.Context, address string) (int64, error)
	Pools(ctx context.Context) ([]*models.TokenPool, error)
	History(ctx context.Context, address string, limit int) ([]*models.BurnDistribution, error)
}

type ledgerService struct {
	ledgerRepo  repository.LedgerRepository
	accountRepo repository.AccountRepository
	guard       GuardService
	publisher   pubsub.AuditPublisher
	idGen       *helpers.IDGenerator
	log         *logger.Logger
}

func NewLedgerService(
	ledgerRepo repository.LedgerRepository,
	accountRepo repository.AccountRepository,
	guard GuardService,
	publisher pubsub.AuditPublisher,
	idGen *helpers.IDGenerator,
	log *logger.Logger,
) LedgerService {
	return &ledgerService{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		guard:       guard,
		publisher:   publisher,
		idGen:       idGen,
		log:         log,
	}
}

func (s *ledgerService) Credit(ctx context.Context, caller auth.Caller, address string, amount int64, bucket string) error {
	if amount <= 0 {
		return rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("credit of %d: %w", amount, errs.ErrInvalidAmount))
	}
	switch {
	case caller.Can(auth.RoleAdmin):
	case caller.Can(auth.RoleOracle) && bucket == models.PoolAirdrop:
	default:
		return rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("minting from pool %s: %w", bucket, errs.ErrAccessDenied))
	}

	if err := s.ledgerRepo.Credit(ctx, address, amount, bucket); err != nil {
		return rejected(ctx, s.publisher, address, "", err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindCredit,
		Account: address,
		Amount:  amount,
		Detail:  bucket,
	})
	return nil
}

func (s *ledgerService) Debit(ctx context.Context, caller auth.Caller, amount int64, reference string) (*models.BurnDistribution, error) {
	// a negative amount would flip the conditional debit into a credit
	if amount <= 0 {
		return nil, rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("debit of %d: %w", amount, errs.ErrInvalidAmount))
	}
	if _, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address); err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, "", err)
	}

	dist := repository.NewDistribution(
		s.idGen.GenerateDistributionID(), caller.Address, amount,
		models.BurnReasonDirectSpend, reference,
	)
	if err := s.ledgerRepo.DebitWithDistribution(ctx, dist); err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, "", err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindDebitDistribution,
		Account: caller.Address,
		Amount:  amount,
		Detail:  dist.ID,
	})
	return dist, nil
}

func (s *ledgerService) Transfer(ctx context.Context, caller auth.Caller, to string, amount int64) error {
	if amount <= 0 {
		return rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("transfer of %d: %w", amount, errs.ErrInvalidAmount))
	}
	if _, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address); err != nil {
		return rejected(ctx, s.publisher, caller.Address, "", err)
	}

	if err := s.ledgerRepo.Transfer(ctx, caller.Address, to, amount); err != nil {
		return rejected(ctx, s.publisher, caller.Address, "", err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindTransfer,
		Account: caller.Address,
		Amount:  amount,
		Detail:  fmt.Sprintf("to %s", to),
	})
	return nil
}

func (s *ledgerService) Balance(ctx context.Context, address string) (int64, error) {
	return s.ledgerRepo.GetBalance(ctx, address)
}

func (s *ledgerService) Pools(ctx context.Context) ([]*models.TokenPool, error) {
	return s.ledgerRepo.ListPools(ctx)
}

func (s *ledgerService) History(ctx context.Context, address string, limit int) ([]*models.BurnDistribution, error) {
	return s.ledgerRepo.ListDistributions(ctx, address, limit)
}
