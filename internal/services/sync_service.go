package services

import (
	"context"
	"log"
	"sync"
	"time"

	"dinetrack/internal/repository"
)

// SyncService periodically reconciles every active bill against the
// Order and Menu services. Each cycle is a full refresh of each bill,
// not a delta merge; per-bill failures are logged and skipped so one
// bad bill cannot stall the pass.
type SyncService struct {
	billRepo repository.BillRepository
	bills    BillService
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSyncService(billRepo repository.BillRepository, bills BillService, interval time.Duration) *SyncService {
	return &SyncService{billRepo: billRepo, bills: bills, interval: interval}
}

// Start launches the background loop. Calling Start on a running
// service is a no-op.
func (s *SyncService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)
	log.Printf("Background bill sync started (interval %s)", s.interval)
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (s *SyncService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Println("Background bill sync stopped")
}

func (s *SyncService) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncOnce(ctx)
		}
	}
}

func (s *SyncService) syncOnce(ctx context.Context) {
	bills, err := s.billRepo.ListActive()
	if err != nil {
		log.Printf("Bill sync: could not list active bills: %v", err)
		return
	}

	refreshed := 0
	for _, bill := range bills {
		if ctx.Err() != nil {
			return
		}
		result, err := s.bills.Refresh(ctx, bill.BillID)
		if err != nil {
			log.Printf("Bill sync: refresh of %s failed: %v", bill.BillID, err)
			continue
		}
		if result.UpdatesApplied {
			refreshed++
		}
	}

	log.Printf("Bill sync: completed pass over %d active bills, %d updated", len(bills), refreshed)
}
